package skeleton

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/voxelab/skelstitch/pkg/errors"
)

// FragmentSchemaVersion is bumped whenever the encoded fragment layout
// changes incompatibly. Decoders reject versions they do not understand
// rather than guessing.
const FragmentSchemaVersion = 1

// Fragment is a skeleton computed for one chunk of a larger volume, tagged
// with the chunk's grid coordinate and the crop margin that was applied when
// it was produced. Fragments are persisted by the chunk task and consumed
// read-only by exactly one merge run for their object.
type Fragment struct {
	SchemaVersion int    `cbor:"1,keyasint" json:"schema_version"`
	ObjectID      uint64 `cbor:"2,keyasint" json:"object_id"`
	Chunk         [3]int `cbor:"3,keyasint" json:"chunk"`
	CropMargin    int    `cbor:"4,keyasint" json:"crop_margin"`
	Nodes         []Node `cbor:"5,keyasint" json:"nodes"`
	Edges         []Edge `cbor:"6,keyasint" json:"edges"`
}

// NewFragment wraps a skeleton as a fragment record for persistence.
// The node and edge slices are shared, not copied; the fragment must be
// encoded before the skeleton is mutated again.
func NewFragment(s *Skeleton, chunk [3]int, cropMargin int) *Fragment {
	return &Fragment{
		SchemaVersion: FragmentSchemaVersion,
		ObjectID:      s.ObjectID,
		Chunk:         chunk,
		CropMargin:    cropMargin,
		Nodes:         s.Nodes,
		Edges:         s.Edges,
	}
}

// Skeleton returns the fragment's graph as a Skeleton value.
// Node order and ids are exactly as encoded; the merge stage relies on that.
func (f *Fragment) Skeleton() *Skeleton {
	return &Skeleton{ObjectID: f.ObjectID, Nodes: f.Nodes, Edges: f.Edges}
}

// EncodeFragment serializes a fragment to CBOR. CBOR round-trips float64
// coordinates exactly, which the merge stage's coordinate-coincidence
// deduplication depends on.
func EncodeFragment(f *Fragment) ([]byte, error) {
	data, err := cbor.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode fragment for object %d chunk %v", f.ObjectID, f.Chunk)
	}
	return data, nil
}

// DecodeFragment deserializes a fragment record. Any decoding failure is
// reported as FRAGMENT_CORRUPT so the caller can trigger a re-run of the
// chunk rather than silently dropping the fragment.
func DecodeFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFragmentCorrupt, err, "decode fragment record")
	}
	if f.SchemaVersion != FragmentSchemaVersion {
		return nil, errors.New(errors.ErrCodeFragmentCorrupt, "unsupported fragment schema version %d", f.SchemaVersion)
	}
	if err := f.Skeleton().Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFragmentCorrupt, err, "fragment for object %d chunk %v fails graph validation", f.ObjectID, f.Chunk)
	}
	return &f, nil
}
