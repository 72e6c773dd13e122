package skeletonize

import (
	"math"

	"github.com/voxelab/skelstitch/pkg/voxel"
)

// DistanceTransform computes, for every foreground voxel, the exact Euclidean
// distance to the nearest background voxel in physical units, honoring the
// mask's anisotropic spacing. Background voxels map to zero. The volume
// outside the grid counts as background, so foreground touching the chunk
// border gets a finite distance.
//
// The result doubles as the radius estimate for every eventual skeleton node
// and as the weight shaping both the path penalty and the invalidation
// radius during extraction.
//
// Implementation: Felzenszwalb–Huttenlocher separable squared-distance
// transform, one 1D lower-envelope pass per axis. Runs in O(n) per axis.
func DistanceTransform(m *voxel.Mask) []float64 {
	n := m.Len()
	sq := make([]float64, n)
	for i, fg := range m.Data {
		if fg {
			sq[i] = math.Inf(1)
		}
	}

	nx, ny, nz := m.Shape[0], m.Shape[1], m.Shape[2]
	longest := max(nx, ny, nz)
	tr := newLineTransform(longest)

	// Pass along x: rows are contiguous.
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			base := m.Index(0, y, z)
			tr.run(sq, base, 1, nx, m.Spacing[0])
		}
	}
	// Pass along y.
	for z := 0; z < nz; z++ {
		for x := 0; x < nx; x++ {
			base := m.Index(x, 0, z)
			tr.run(sq, base, nx, ny, m.Spacing[1])
		}
	}
	// Pass along z.
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			base := m.Index(x, y, 0)
			tr.run(sq, base, nx*ny, nz, m.Spacing[2])
		}
	}

	for i := range sq {
		sq[i] = math.Sqrt(sq[i])
	}
	return sq
}

// lineTransform holds the scratch buffers for repeated 1D transforms.
type lineTransform struct {
	f   []float64 // site values
	pos []float64 // site positions (physical)
	v   []int     // lower-envelope site indices
	zb  []float64 // envelope breakpoints
	out []float64
}

func newLineTransform(n int) *lineTransform {
	// Two extra slots for the virtual background sites just outside the
	// volume on each side.
	size := n + 2
	return &lineTransform{
		f:   make([]float64, 0, size),
		pos: make([]float64, 0, size),
		v:   make([]int, size),
		zb:  make([]float64, size+1),
		out: make([]float64, n),
	}
}

// run applies the 1D squared-distance transform in place to the line of
// length n starting at sq[base] with the given stride and physical spacing.
// Sites with infinite value (untouched foreground on the first pass) are
// excluded from the envelope; the virtual sites at both ends guarantee at
// least two sites, so every output is finite.
func (t *lineTransform) run(sq []float64, base, stride, n int, w float64) {
	t.f = t.f[:0]
	t.pos = t.pos[:0]

	t.f = append(t.f, 0)
	t.pos = append(t.pos, -w)
	for i := 0; i < n; i++ {
		val := sq[base+i*stride]
		if !math.IsInf(val, 1) {
			t.f = append(t.f, val)
			t.pos = append(t.pos, float64(i)*w)
		}
	}
	t.f = append(t.f, 0)
	t.pos = append(t.pos, float64(n)*w)

	// Build the lower envelope of the parabolas y = (x-pos)^2 + f.
	k := 0
	t.v[0] = 0
	t.zb[0] = math.Inf(-1)
	t.zb[1] = math.Inf(1)
	for q := 1; q < len(t.f); q++ {
		var s float64
		for {
			p := t.v[k]
			s = ((t.f[q] + t.pos[q]*t.pos[q]) - (t.f[p] + t.pos[p]*t.pos[p])) / (2*t.pos[q] - 2*t.pos[p])
			if s > t.zb[k] {
				break
			}
			k--
		}
		k++
		t.v[k] = q
		t.zb[k] = s
		t.zb[k+1] = math.Inf(1)
	}

	// Evaluate the envelope at each voxel position.
	k = 0
	for i := 0; i < n; i++ {
		x := float64(i) * w
		for t.zb[k+1] < x {
			k++
		}
		p := t.v[k]
		d := x - t.pos[p]
		t.out[i] = d*d + t.f[p]
	}
	for i := 0; i < n; i++ {
		sq[base+i*stride] = t.out[i]
	}
}
