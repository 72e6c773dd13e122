package skeletonize

import (
	"math"
	"testing"

	"github.com/voxelab/skelstitch/pkg/voxel"
)

func fullMask(t *testing.T, shape [3]int, spacing [3]float64) *voxel.Mask {
	t.Helper()
	m, err := voxel.NewMask(shape, [3]int{}, spacing)
	if err != nil {
		t.Fatal(err)
	}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

func TestDistanceTransformSingleVoxel(t *testing.T) {
	m := fullMask(t, [3]int{1, 1, 1}, [3]float64{1, 1, 1})
	d := DistanceTransform(m)
	if d[0] != 1 {
		t.Errorf("distance = %v, want 1 (virtual background one voxel away)", d[0])
	}
}

func TestDistanceTransformRow(t *testing.T) {
	// A 5-voxel row padded by huge spacing on y/z, so only the x border
	// matters. Distances should ramp toward the middle.
	m := fullMask(t, [3]int{5, 1, 1}, [3]float64{1, 100, 100})
	d := DistanceTransform(m)
	want := []float64{1, 2, 3, 2, 1}
	for i := range want {
		if d[i] != want[i] {
			t.Errorf("d[%d] = %v, want %v", i, d[i], want[i])
		}
	}
}

func TestDistanceTransformInteriorBackground(t *testing.T) {
	// Background in the middle splits the ramp.
	m := fullMask(t, [3]int{5, 1, 1}, [3]float64{1, 100, 100})
	m.Set(2, 0, 0, false)
	d := DistanceTransform(m)
	if d[2] != 0 {
		t.Errorf("background distance = %v, want 0", d[2])
	}
	want := []float64{1, 1, 0, 1, 1}
	for i := range want {
		if d[i] != want[i] {
			t.Errorf("d[%d] = %v, want %v", i, d[i], want[i])
		}
	}
}

func TestDistanceTransformPlane(t *testing.T) {
	m := fullMask(t, [3]int{3, 3, 1}, [3]float64{1, 1, 100})
	d := DistanceTransform(m)

	if got := d[m.Index(1, 1, 0)]; got != 2 {
		t.Errorf("center = %v, want 2", got)
	}
	if got := d[m.Index(0, 0, 0)]; got != 1 {
		t.Errorf("corner = %v, want 1", got)
	}
}

func TestDistanceTransformAnisotropic(t *testing.T) {
	// With z spacing 40, the z border is 40 away from a single slice, so
	// the x/y borders dominate everywhere.
	m := fullMask(t, [3]int{7, 7, 1}, [3]float64{4, 4, 40})
	m.Set(0, 0, 0, false)
	d := DistanceTransform(m)

	if got := d[m.Index(3, 3, 0)]; got != 16 {
		t.Errorf("center = %v, want 16 (4 voxels x 4 units)", got)
	}

	// Diagonal distances are true Euclidean, not chamfer approximations:
	// the nearest background to (1,1) is the hole at (0,0).
	got := d[m.Index(1, 1, 0)]
	want := math.Sqrt(32)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("d(1,1) = %v, want %v", got, want)
	}
}
