package postprocess

import (
	"github.com/voxelab/skelstitch/pkg/skeleton"
)

// Trim returns a copy of the skeleton with short terminal branches removed.
//
// A terminal branch is the maximal path from a degree-1 node to the nearest
// node of degree ≥ 3. Branches whose cumulative physical length is below
// minLength are thinning artifacts rather than real structure and are
// deleted, iterating because a removal can expose a previously internal
// node as a new, shorter terminal. A component with no branch point is the
// object's sole axis and is never trimmed, regardless of its length, so a
// single-node skeleton passes through unchanged.
//
// Trim is idempotent: trimming an already-trimmed skeleton is a no-op.
func Trim(s *skeleton.Skeleton, minLength float64) *skeleton.Skeleton {
	out := s.Clone()
	if minLength <= 0 {
		return out
	}
	for trimPass(out, minLength) {
	}
	return out
}

// trimPass removes every sub-threshold terminal branch found in one sweep.
// Returns true if anything was removed.
func trimPass(s *skeleton.Skeleton, minLength float64) bool {
	deg := s.Degrees()
	adj := s.Adjacency()

	remove := make([]bool, s.NodeCount())
	any := false
	for leaf, d := range deg {
		if d != 1 || remove[leaf] {
			continue
		}
		branch, attached := walkTerminal(s, adj, deg, leaf)
		if !attached {
			// No branch point: this component is a bare path (or will
			// become one); leave it alone.
			continue
		}
		length := 0.0
		for i := 0; i+1 < len(branch); i++ {
			length += skeleton.Dist(s.Nodes[branch[i]], s.Nodes[branch[i+1]])
		}
		// branch[len-1] is the branch point itself and survives.
		if length < minLength {
			for _, id := range branch[:len(branch)-1] {
				remove[id] = true
			}
			any = true
		}
	}
	if any {
		s.RemoveNodes(remove)
	}
	return any
}

// walkTerminal follows the path from a leaf through degree-2 nodes until a
// node of degree ≥ 3. Returns the path including that branch point and
// attached=true, or attached=false when the walk ends at another leaf
// (the component has no branch point).
func walkTerminal(s *skeleton.Skeleton, adj [][]int, deg []int, leaf int) (path []int, attached bool) {
	path = []int{leaf}
	prev, cur := -1, leaf
	for {
		if deg[cur] >= 3 {
			return path, true
		}
		next := -1
		for _, nb := range adj[cur] {
			if nb != prev {
				next = nb
				break
			}
		}
		if next < 0 {
			// Dead end: reached the other leaf of a bare path.
			return path, false
		}
		path = append(path, next)
		prev, cur = cur, next
	}
}
