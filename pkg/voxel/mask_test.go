package voxel

import (
	"path/filepath"
	"testing"

	"github.com/voxelab/skelstitch/pkg/errors"
)

func TestNewMaskValidation(t *testing.T) {
	tests := []struct {
		name    string
		shape   [3]int
		spacing [3]float64
	}{
		{"zero extent", [3]int{0, 4, 4}, [3]float64{1, 1, 1}},
		{"negative extent", [3]int{4, -1, 4}, [3]float64{1, 1, 1}},
		{"zero spacing", [3]int{4, 4, 4}, [3]float64{1, 0, 1}},
		{"negative spacing", [3]int{4, 4, 4}, [3]float64{1, 1, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMask(tt.shape, [3]int{}, tt.spacing)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("NewMask = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestValidateBufferMismatch(t *testing.T) {
	m := &Mask{
		Data:    make([]bool, 10),
		Shape:   [3]int{4, 4, 4},
		Spacing: [3]float64{1, 1, 1},
	}
	if err := m.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Validate = %v, want INVALID_INPUT", err)
	}
}

func TestIndexUnindexRoundTrip(t *testing.T) {
	m, err := NewMask([3]int{3, 5, 7}, [3]int{}, [3]float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < 7; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 3; x++ {
				i := m.Index(x, y, z)
				gx, gy, gz := m.Unindex(i)
				if gx != x || gy != y || gz != z {
					t.Fatalf("Unindex(Index(%d,%d,%d)) = (%d,%d,%d)", x, y, z, gx, gy, gz)
				}
			}
		}
	}
}

func TestAtOutsideGridIsBackground(t *testing.T) {
	m, err := NewMask([3]int{2, 2, 2}, [3]int{}, [3]float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	m.Set(1, 1, 1, true)

	if !m.At(1, 1, 1) {
		t.Error("At(1,1,1) = false after Set")
	}
	for _, p := range [][3]int{{-1, 0, 0}, {2, 0, 0}, {0, -1, 0}, {0, 2, 0}, {0, 0, -1}, {0, 0, 2}} {
		if m.At(p[0], p[1], p[2]) {
			t.Errorf("At(%v) outside grid should be background", p)
		}
	}
}

func TestCoordUsesOffsetAndSpacing(t *testing.T) {
	m, err := NewMask([3]int{4, 4, 4}, [3]int{10, 20, 30}, [3]float64{4, 4, 40})
	if err != nil {
		t.Fatal(err)
	}
	x, y, z := m.Coord(1, 2, 3)
	if x != 44 || y != 88 || z != 1320 {
		t.Errorf("Coord(1,2,3) = (%v,%v,%v), want (44,88,1320)", x, y, z)
	}
}

func TestCoordCoincidesAcrossOverlappingChunks(t *testing.T) {
	// Two chunks covering the same global voxel must produce bit-identical
	// physical coordinates; the merge stage's epsilon test depends on it.
	spacing := [3]float64{4.25, 4.25, 40.5}
	a, _ := NewMask([3]int{8, 8, 8}, [3]int{0, 0, 0}, spacing)
	b, _ := NewMask([3]int{8, 8, 8}, [3]int{6, 0, 0}, spacing)

	ax, ay, az := a.Coord(7, 3, 2)
	bx, by, bz := b.Coord(1, 3, 2)
	if ax != bx || ay != by || az != bz {
		t.Errorf("coordinates differ: (%v,%v,%v) vs (%v,%v,%v)", ax, ay, az, bx, by, bz)
	}
}

func TestBounds(t *testing.T) {
	m, err := NewMask([3]int{10, 10, 5}, [3]int{2, 0, 1}, [3]float64{2, 2, 10})
	if err != nil {
		t.Fatal(err)
	}
	b := m.Bounds()
	if b.Min != [3]float64{4, 0, 10} {
		t.Errorf("Min = %v", b.Min)
	}
	if b.Max != [3]float64{24, 20, 60} {
		t.Errorf("Max = %v", b.Max)
	}
}

func TestMaskFileRoundTrip(t *testing.T) {
	m, err := NewMask([3]int{5, 3, 2}, [3]int{7, 8, 9}, [3]float64{4, 4, 40})
	if err != nil {
		t.Fatal(err)
	}
	m.Set(0, 0, 0, true)
	m.Set(4, 2, 1, true)
	m.Set(2, 1, 0, true)

	path := filepath.Join(t.TempDir(), "mask.bin")
	if err := WriteMaskFile(m, path); err != nil {
		t.Fatalf("WriteMaskFile: %v", err)
	}
	got, err := ReadMaskFile(path)
	if err != nil {
		t.Fatalf("ReadMaskFile: %v", err)
	}

	if got.Shape != m.Shape || got.Offset != m.Offset || got.Spacing != m.Spacing {
		t.Errorf("metadata mismatch: %+v vs %+v", got, m)
	}
	for i := range m.Data {
		if got.Data[i] != m.Data[i] {
			t.Fatalf("voxel %d mismatch", i)
		}
	}
}

func TestDecodeMaskGarbage(t *testing.T) {
	if _, err := DecodeMask([]byte("junk")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("DecodeMask = %v, want INVALID_INPUT", err)
	}
}
