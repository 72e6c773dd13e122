// Package postprocess reconciles per-chunk skeleton fragments into one
// globally consistent skeleton.
//
// The three stages run in order: Crop discards unreliable nodes near chunk
// seams right after extraction, Merge unions all of an object's cropped
// fragments into one graph, and Trim removes short terminal branches from
// the merged result. Crop runs once per chunk; Merge and Trim run once per
// object after every covering chunk has produced its fragment.
package postprocess

import (
	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// boundsEps absorbs float rounding when deciding whether a chunk face
// coincides with the global volume boundary.
const boundsEps = 1e-6

// Crop returns a copy of the skeleton with every node removed that lies
// within margin of an interior seam face of the chunk. Faces that coincide
// with the global volume boundary are real object boundaries with no
// neighbor chunk to reconnect with, so nodes near them are kept. Edges with
// a removed endpoint are removed.
//
// margin is per-axis in physical units (a voxel margin times the spacing).
// chunk and volume are both in physical coordinates.
func Crop(s *skeleton.Skeleton, chunk, volume voxel.Bounds, margin [3]float64) *skeleton.Skeleton {
	out := s.Clone()
	if out.IsEmpty() {
		return out
	}

	remove := make([]bool, out.NodeCount())
	for i, n := range out.Nodes {
		pos := [3]float64{n.X, n.Y, n.Z}
		for axis := 0; axis < 3; axis++ {
			if interiorFace(chunk.Min[axis], volume.Min[axis]) && pos[axis] < chunk.Min[axis]+margin[axis] {
				remove[i] = true
			}
			if interiorFace(chunk.Max[axis], volume.Max[axis]) && pos[axis] > chunk.Max[axis]-margin[axis] {
				remove[i] = true
			}
		}
	}
	out.RemoveNodes(remove)
	return out
}

// interiorFace reports whether a chunk face at position face is an
// artificial seam rather than part of the global volume boundary at bound.
func interiorFace(face, bound float64) bool {
	d := face - bound
	if d < 0 {
		d = -d
	}
	return d > boundsEps
}
