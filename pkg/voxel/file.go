package voxel

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/voxelab/skelstitch/pkg/errors"
)

// maskSchemaVersion identifies the encoded mask layout.
const maskSchemaVersion = 1

// maskFile is the on-disk form of a Mask: placement metadata plus the
// occupancy grid bit-packed eight voxels per byte.
type maskFile struct {
	SchemaVersion int        `cbor:"1,keyasint"`
	Shape         [3]int     `cbor:"2,keyasint"`
	Offset        [3]int     `cbor:"3,keyasint"`
	Spacing       [3]float64 `cbor:"4,keyasint"`
	Bits          []byte     `cbor:"5,keyasint"`
}

// EncodeMask serializes a mask to CBOR with bit-packed occupancy.
func EncodeMask(m *Mask) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	bits := make([]byte, (len(m.Data)+7)/8)
	for i, v := range m.Data {
		if v {
			bits[i/8] |= 1 << (i % 8)
		}
	}
	data, err := cbor.Marshal(maskFile{
		SchemaVersion: maskSchemaVersion,
		Shape:         m.Shape,
		Offset:        m.Offset,
		Spacing:       m.Spacing,
		Bits:          bits,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode mask")
	}
	return data, nil
}

// DecodeMask deserializes a mask produced by EncodeMask.
func DecodeMask(data []byte) (*Mask, error) {
	var f maskFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode mask")
	}
	if f.SchemaVersion != maskSchemaVersion {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported mask schema version %d", f.SchemaVersion)
	}
	m, err := NewMask(f.Shape, f.Offset, f.Spacing)
	if err != nil {
		return nil, err
	}
	if want := (len(m.Data) + 7) / 8; len(f.Bits) != want {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mask bit buffer has %d bytes, shape %v requires %d", len(f.Bits), f.Shape, want)
	}
	for i := range m.Data {
		m.Data[i] = f.Bits[i/8]&(1<<(i%8)) != 0
	}
	return m, nil
}

// WriteMaskFile writes a mask to path with 0644 permissions.
func WriteMaskFile(m *Mask, path string) error {
	data, err := EncodeMask(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadMaskFile reads a mask written by WriteMaskFile.
func ReadMaskFile(path string) (*Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeMask(data)
}
