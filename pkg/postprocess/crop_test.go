package postprocess

import (
	"testing"

	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// chainAlongX builds a unit-spaced node chain from x0 to x1 at (y, z).
func chainAlongX(s *skeleton.Skeleton, x0, x1 int, y, z float64) {
	prev := -1
	for x := x0; x <= x1; x++ {
		id := s.AddNode(skeleton.Node{X: float64(x), Y: y, Z: z, Radius: 1})
		if prev >= 0 {
			s.AddEdge(prev, id)
		}
		prev = id
	}
}

func TestCropRemovesSeamNodes(t *testing.T) {
	// A chunk covering x in [0,10] inside a volume spanning [0,30]: the
	// x=10 face is a seam, the x=0 face is the real volume boundary.
	volume := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{30, 10, 10}}
	chunk := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}
	margin := [3]float64{2, 2, 2}

	s := skeleton.New(7)
	chainAlongX(s, 0, 10, 5, 5)

	out := Crop(s, chunk, volume, margin)
	if err := out.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for _, n := range out.Nodes {
		if n.X > chunk.Max[0]-margin[0] {
			t.Errorf("node at x=%v survived inside the seam margin", n.X)
		}
	}
	// Nodes near the genuine volume boundary stay put.
	found := false
	for _, n := range out.Nodes {
		if n.X == 0 {
			found = true
		}
	}
	if !found {
		t.Error("node at the volume boundary x=0 was cropped")
	}
	// x in {9, 10} removed, 0..8 kept.
	if out.NodeCount() != 9 {
		t.Errorf("kept %d nodes, want 9", out.NodeCount())
	}
	if out.EdgeCount() != 8 {
		t.Errorf("kept %d edges, want 8", out.EdgeCount())
	}
}

func TestCropInteriorChunkBothFaces(t *testing.T) {
	// A middle chunk: both x faces are seams.
	volume := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{30, 10, 10}}
	chunk := voxel.Bounds{Min: [3]float64{10, 0, 0}, Max: [3]float64{20, 10, 10}}
	margin := [3]float64{2, 0, 0}

	s := skeleton.New(7)
	chainAlongX(s, 10, 20, 5, 5)

	out := Crop(s, chunk, volume, margin)
	for _, n := range out.Nodes {
		if n.X < chunk.Min[0]+margin[0] || n.X > chunk.Max[0]-margin[0] {
			t.Errorf("node at x=%v inside a seam margin", n.X)
		}
	}
	if out.NodeCount() != 5 { // x in 13..17
		t.Errorf("kept %d nodes, want 5", out.NodeCount())
	}
}

func TestCropZeroMargin(t *testing.T) {
	volume := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{30, 10, 10}}
	chunk := voxel.Bounds{Min: [3]float64{10, 0, 0}, Max: [3]float64{20, 10, 10}}

	s := skeleton.New(7)
	chainAlongX(s, 10, 20, 5, 5)

	out := Crop(s, chunk, volume, [3]float64{})
	if out.NodeCount() != s.NodeCount() {
		t.Errorf("zero margin removed nodes: %d -> %d", s.NodeCount(), out.NodeCount())
	}
}

func TestCropDoesNotMutateInput(t *testing.T) {
	volume := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{30, 10, 10}}
	chunk := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}

	s := skeleton.New(7)
	chainAlongX(s, 0, 10, 5, 5)
	before := s.NodeCount()

	Crop(s, chunk, volume, [3]float64{5, 5, 5})
	if s.NodeCount() != before {
		t.Errorf("input mutated: %d -> %d nodes", before, s.NodeCount())
	}
}

func TestCropEmptySkeleton(t *testing.T) {
	volume := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{30, 10, 10}}
	chunk := voxel.Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}

	out := Crop(skeleton.New(7), chunk, volume, [3]float64{2, 2, 2})
	if !out.IsEmpty() {
		t.Error("cropping an empty skeleton is not empty")
	}
}
