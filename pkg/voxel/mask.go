// Package voxel provides the typed view over a chunk's binary occupancy data
// together with its placement in the global volume.
//
// A Mask is a dense 3D boolean grid plus a global voxel offset and an
// anisotropic physical spacing vector. Masks are read-only inputs to the
// skeleton extraction stage: the pipeline borrows them for the duration of
// one call and never mutates them.
//
// # Memory layout
//
// Voxels are stored x-fastest: the linear index of (x, y, z) is
// (z*Ny + y)*Nx + x. Linear indices double as the deterministic tie-break
// order everywhere the extraction algorithm selects an extremum.
package voxel

import (
	"github.com/voxelab/skelstitch/pkg/errors"
)

// Mask is a chunk's binary occupancy grid placed in the global frame.
type Mask struct {
	// Data holds one flag per voxel in x-fastest order.
	Data []bool
	// Shape is the grid extent per axis (nx, ny, nz).
	Shape [3]int
	// Offset is the chunk's position in global voxel coordinates.
	Offset [3]int
	// Spacing is the physical voxel size per axis. Anisotropic volumes
	// (e.g. EM stacks with coarse z sectioning) have unequal entries.
	Spacing [3]float64
}

// Bounds is an axis-aligned box in physical coordinates.
type Bounds struct {
	Min, Max [3]float64
}

// NewMask allocates an all-background mask with the given placement.
func NewMask(shape, offset [3]int, spacing [3]float64) (*Mask, error) {
	n := shape[0] * shape[1] * shape[2]
	if n < 0 {
		// Leave Data empty so Validate can report the bad shape instead
		// of make panicking on a negative length.
		n = 0
	}
	m := &Mask{
		Data:    make([]bool, n),
		Shape:   shape,
		Offset:  offset,
		Spacing: spacing,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mask's structural invariants. It returns an
// INVALID_INPUT error for a zero-sized grid, a buffer whose length does not
// match the shape, or a non-positive spacing component.
func (m *Mask) Validate() error {
	for axis, n := range m.Shape {
		if n <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "mask shape %v has non-positive extent on axis %d", m.Shape, axis)
		}
	}
	if want := m.Shape[0] * m.Shape[1] * m.Shape[2]; len(m.Data) != want {
		return errors.New(errors.ErrCodeInvalidInput, "mask buffer has %d voxels, shape %v requires %d", len(m.Data), m.Shape, want)
	}
	for axis, s := range m.Spacing {
		if s <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "mask spacing %v has non-positive component on axis %d", m.Spacing, axis)
		}
	}
	return nil
}

// Len returns the total number of voxels.
func (m *Mask) Len() int { return len(m.Data) }

// Index returns the linear index of the voxel at (x, y, z).
func (m *Mask) Index(x, y, z int) int {
	return (z*m.Shape[1]+y)*m.Shape[0] + x
}

// Unindex is the inverse of Index.
func (m *Mask) Unindex(i int) (x, y, z int) {
	x = i % m.Shape[0]
	i /= m.Shape[0]
	y = i % m.Shape[1]
	z = i / m.Shape[1]
	return x, y, z
}

// At reports whether the voxel at (x, y, z) is foreground.
// Coordinates outside the grid are background.
func (m *Mask) At(x, y, z int) bool {
	if x < 0 || x >= m.Shape[0] || y < 0 || y >= m.Shape[1] || z < 0 || z >= m.Shape[2] {
		return false
	}
	return m.Data[m.Index(x, y, z)]
}

// Set marks the voxel at (x, y, z) as foreground (true) or background.
func (m *Mask) Set(x, y, z int, v bool) {
	m.Data[m.Index(x, y, z)] = v
}

// Count returns the number of foreground voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Coord returns the physical position of the voxel at local grid position
// (x, y, z), translated into the global frame. Two chunks that cover the
// same global voxel produce bit-identical coordinates, which the merge
// stage's coincidence test relies on.
func (m *Mask) Coord(x, y, z int) (float64, float64, float64) {
	return float64(m.Offset[0]+x) * m.Spacing[0],
		float64(m.Offset[1]+y) * m.Spacing[1],
		float64(m.Offset[2]+z) * m.Spacing[2]
}

// Bounds returns the chunk's extent in physical coordinates.
func (m *Mask) Bounds() Bounds {
	var b Bounds
	for axis := 0; axis < 3; axis++ {
		b.Min[axis] = float64(m.Offset[axis]) * m.Spacing[axis]
		b.Max[axis] = float64(m.Offset[axis]+m.Shape[axis]) * m.Spacing[axis]
	}
	return b
}
