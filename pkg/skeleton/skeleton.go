// Package skeleton defines the centerline graph data model shared by every
// pipeline stage.
//
// A Skeleton is a plain value type: an arena of nodes addressed by dense
// integer index plus a set of undirected index-pair edges. Keeping the graph
// as flat slices (rather than a pointer-linked structure) makes the renumber
// and deduplication passes in the merge stage straightforward array remaps.
//
// # Identity
//
// Node ids are the indices into the Nodes slice. Operations that delete nodes
// (crop, trim) compact the arena and remap edge endpoints, so ids stay dense
// and every surviving edge remains valid.
package skeleton

import (
	"errors"
	"math"
	"slices"
)

var (
	// ErrSelfLoop is returned by [Skeleton.AddEdge] when both endpoints name
	// the same node. Centerline graphs never contain self-loops.
	ErrSelfLoop = errors.New("edge endpoints must differ")

	// ErrUnknownEndpoint is returned by [Skeleton.AddEdge] and
	// [Skeleton.Validate] when an edge endpoint does not reference an
	// existing node.
	ErrUnknownEndpoint = errors.New("edge endpoint out of range")

	// ErrDuplicateEdge is returned by [Skeleton.Validate] when the same
	// unordered node pair appears more than once.
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Node is one centerline sample: a position in the global physical frame and
// the radius of the largest sphere inscribed at that position (distance to
// the nearest mask boundary).
type Node struct {
	X      float64 `json:"x" cbor:"1,keyasint"`
	Y      float64 `json:"y" cbor:"2,keyasint"`
	Z      float64 `json:"z" cbor:"3,keyasint"`
	Radius float64 `json:"radius" cbor:"4,keyasint"`
}

// Dist returns the Euclidean distance between two nodes.
func Dist(a, b Node) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Edge is an unordered pair of node ids, stored canonically with A < B.
type Edge struct {
	A int `json:"a" cbor:"1,keyasint"`
	B int `json:"b" cbor:"2,keyasint"`
}

// NewEdge returns the canonical form of the edge a-b.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Skeleton is a centerline graph for one object. The zero value is a valid
// empty skeleton.
//
// Skeleton is not safe for concurrent mutation without external
// synchronization; the pipeline never shares one instance between goroutines.
type Skeleton struct {
	ObjectID uint64
	Nodes    []Node
	Edges    []Edge
}

// New creates an empty skeleton for the given object.
func New(objectID uint64) *Skeleton {
	return &Skeleton{ObjectID: objectID}
}

// NodeCount returns the number of nodes.
func (s *Skeleton) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges.
func (s *Skeleton) EdgeCount() int { return len(s.Edges) }

// IsEmpty reports whether the skeleton has no nodes.
func (s *Skeleton) IsEmpty() bool { return len(s.Nodes) == 0 }

// AddNode appends a node and returns its id.
func (s *Skeleton) AddNode(n Node) int {
	s.Nodes = append(s.Nodes, n)
	return len(s.Nodes) - 1
}

// AddEdge adds the undirected edge a-b in canonical form.
// Returns ErrSelfLoop if a == b or ErrUnknownEndpoint if either id is out of
// range. Callers are responsible for not inserting the same pair twice;
// Canonicalize and Validate provide the safety net.
func (s *Skeleton) AddEdge(a, b int) error {
	if a == b {
		return ErrSelfLoop
	}
	if a < 0 || a >= len(s.Nodes) || b < 0 || b >= len(s.Nodes) {
		return ErrUnknownEndpoint
	}
	s.Edges = append(s.Edges, NewEdge(a, b))
	return nil
}

// Canonicalize sorts the edge set and removes duplicate pairs.
// Node order is untouched, so ids remain stable.
func (s *Skeleton) Canonicalize() {
	slices.SortFunc(s.Edges, compareEdges)
	s.Edges = slices.Compact(s.Edges)
}

func compareEdges(x, y Edge) int {
	if x.A != y.A {
		return x.A - y.A
	}
	return x.B - y.B
}

// Validate checks graph integrity and returns nil if valid.
// It verifies that every edge endpoint resolves to an existing node, that no
// edge is a self-loop, and that no unordered pair appears twice.
func (s *Skeleton) Validate() error {
	seen := make(map[Edge]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		a, b := e.A, e.B
		if a == b {
			return ErrSelfLoop
		}
		if a < 0 || a >= len(s.Nodes) || b < 0 || b >= len(s.Nodes) {
			return ErrUnknownEndpoint
		}
		key := NewEdge(a, b)
		if _, dup := seen[key]; dup {
			return ErrDuplicateEdge
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Skeleton) Clone() *Skeleton {
	return &Skeleton{
		ObjectID: s.ObjectID,
		Nodes:    slices.Clone(s.Nodes),
		Edges:    slices.Clone(s.Edges),
	}
}

// Adjacency builds the adjacency list keyed by node id.
func (s *Skeleton) Adjacency() [][]int {
	adj := make([][]int, len(s.Nodes))
	for _, e := range s.Edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}
	return adj
}

// Degrees returns the degree of every node.
func (s *Skeleton) Degrees() []int {
	deg := make([]int, len(s.Nodes))
	for _, e := range s.Edges {
		deg[e.A]++
		deg[e.B]++
	}
	return deg
}

// ComponentCount returns the number of connected components.
// Isolated nodes count as components of their own.
func (s *Skeleton) ComponentCount() int {
	if len(s.Nodes) == 0 {
		return 0
	}
	adj := s.Adjacency()
	visited := make([]bool, len(s.Nodes))
	count := 0
	stack := make([]int, 0, len(s.Nodes))
	for start := range s.Nodes {
		if visited[start] {
			continue
		}
		count++
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range adj[v] {
				if !visited[w] {
					visited[w] = true
					stack = append(stack, w)
				}
			}
		}
	}
	return count
}

// EdgeLength returns the physical length of an edge.
func (s *Skeleton) EdgeLength(e Edge) float64 {
	return Dist(s.Nodes[e.A], s.Nodes[e.B])
}

// TotalLength returns the sum of all edge lengths in physical units.
func (s *Skeleton) TotalLength() float64 {
	var sum float64
	for _, e := range s.Edges {
		sum += s.EdgeLength(e)
	}
	return sum
}

// RemoveNodes deletes every node whose flag is set, compacting the arena and
// remapping edge endpoints. Edges with a deleted endpoint are dropped.
// Returns the old-id → new-id map, with -1 for deleted nodes.
func (s *Skeleton) RemoveNodes(remove []bool) []int {
	remap := make([]int, len(s.Nodes))
	kept := s.Nodes[:0]
	next := 0
	for i, n := range s.Nodes {
		if i < len(remove) && remove[i] {
			remap[i] = -1
			continue
		}
		remap[i] = next
		kept = append(kept, n)
		next++
	}
	s.Nodes = kept

	edges := s.Edges[:0]
	for _, e := range s.Edges {
		a, b := remap[e.A], remap[e.B]
		if a < 0 || b < 0 {
			continue
		}
		edges = append(edges, NewEdge(a, b))
	}
	s.Edges = edges
	return remap
}
