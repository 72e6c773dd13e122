package skeleton

import (
	"testing"
)

// path builds a straight chain of n nodes spaced 1 unit apart along x.
func path(t *testing.T, n int) *Skeleton {
	t.Helper()
	s := New(1)
	for i := 0; i < n; i++ {
		s.AddNode(Node{X: float64(i), Radius: 1})
	}
	for i := 0; i+1 < n; i++ {
		if err := s.AddEdge(i, i+1); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", i, i+1, err)
		}
	}
	return s
}

func TestAddEdgeCanonicalOrder(t *testing.T) {
	s := path(t, 2)
	s.AddNode(Node{X: 5})
	if err := s.AddEdge(2, 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	last := s.Edges[len(s.Edges)-1]
	if last.A != 0 || last.B != 2 {
		t.Errorf("edge stored as (%d,%d), want canonical (0,2)", last.A, last.B)
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	s := path(t, 2)
	if err := s.AddEdge(1, 1); err != ErrSelfLoop {
		t.Errorf("AddEdge(1,1) = %v, want ErrSelfLoop", err)
	}
}

func TestAddEdgeRejectsUnknownEndpoint(t *testing.T) {
	s := path(t, 2)
	if err := s.AddEdge(0, 7); err != ErrUnknownEndpoint {
		t.Errorf("AddEdge(0,7) = %v, want ErrUnknownEndpoint", err)
	}
	if err := s.AddEdge(-1, 0); err != ErrUnknownEndpoint {
		t.Errorf("AddEdge(-1,0) = %v, want ErrUnknownEndpoint", err)
	}
}

func TestValidateDetectsDuplicate(t *testing.T) {
	s := path(t, 3)
	s.Edges = append(s.Edges, NewEdge(1, 0))
	if err := s.Validate(); err != ErrDuplicateEdge {
		t.Errorf("Validate = %v, want ErrDuplicateEdge", err)
	}

	s.Canonicalize()
	if err := s.Validate(); err != nil {
		t.Errorf("Validate after Canonicalize = %v, want nil", err)
	}
	if s.EdgeCount() != 2 {
		t.Errorf("EdgeCount after Canonicalize = %d, want 2", s.EdgeCount())
	}
}

func TestRemoveNodesRemapsEdges(t *testing.T) {
	// 0-1-2-3 chain; removing node 1 must drop both incident edges and
	// renumber 2,3 down to 1,2 with the 2-3 edge surviving as 1-2.
	s := path(t, 4)
	remap := s.RemoveNodes([]bool{false, true, false, false})

	if s.NodeCount() != 3 {
		t.Fatalf("NodeCount = %d, want 3", s.NodeCount())
	}
	if remap[1] != -1 {
		t.Errorf("remap[1] = %d, want -1", remap[1])
	}
	if remap[2] != 1 || remap[3] != 2 {
		t.Errorf("remap = %v, want [0 -1 1 2]", remap)
	}
	if len(s.Edges) != 1 || s.Edges[0] != (Edge{A: 1, B: 2}) {
		t.Errorf("Edges = %v, want [{1 2}]", s.Edges)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate after RemoveNodes: %v", err)
	}
}

func TestComponentCount(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Skeleton
		want  int
	}{
		{"empty", func(t *testing.T) *Skeleton { return New(1) }, 0},
		{"single node", func(t *testing.T) *Skeleton {
			s := New(1)
			s.AddNode(Node{})
			return s
		}, 1},
		{"one chain", func(t *testing.T) *Skeleton { return path(t, 5) }, 1},
		{"chain plus isolated", func(t *testing.T) *Skeleton {
			s := path(t, 3)
			s.AddNode(Node{X: 100})
			return s
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(t).ComponentCount(); got != tt.want {
				t.Errorf("ComponentCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalLength(t *testing.T) {
	s := path(t, 5)
	if got := s.TotalLength(); got != 4 {
		t.Errorf("TotalLength = %v, want 4", got)
	}
}

func TestDegrees(t *testing.T) {
	// Y shape: 0-1, 1-2, 1-3.
	s := New(1)
	for i := 0; i < 4; i++ {
		s.AddNode(Node{X: float64(i)})
	}
	for _, pair := range [][2]int{{0, 1}, {1, 2}, {1, 3}} {
		if err := s.AddEdge(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}
	deg := s.Degrees()
	want := []int{1, 3, 1, 1}
	for i := range want {
		if deg[i] != want[i] {
			t.Errorf("deg[%d] = %d, want %d", i, deg[i], want[i])
		}
	}
}
