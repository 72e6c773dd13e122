package skeletonize

import (
	"math"

	"github.com/voxelab/skelstitch/pkg/skeleton"
)

// downsample straightens runs of degree-2 nodes whose shape deviates from a
// straight line by at most tol, replacing each run with a simplified chain.
// Topology is untouched: endpoints, branch points, and leaves all survive,
// and no two chains share interior nodes. Pure cycles (components that are
// all degree-2) are left alone.
func downsample(s *skeleton.Skeleton, tol float64) {
	deg := s.Degrees()
	adj := s.Adjacency()

	keep := make([]bool, s.NodeCount())
	for i, d := range deg {
		if d != 2 {
			keep[i] = true
		}
	}

	var edges []skeleton.Edge
	walked := make(map[skeleton.Edge]bool, s.EdgeCount())

	for start := range s.Nodes {
		if !keep[start] {
			continue
		}
		for _, next := range adj[start] {
			first := skeleton.NewEdge(start, next)
			if walked[first] {
				continue
			}
			chain := walkChain(adj, deg, start, next, walked)
			simplifyChain(s, chain, tol, keep, &edges)
		}
	}

	// Edges not part of any walked chain connect two anchors directly or
	// belong to pure cycles; carry them over unchanged.
	for _, e := range s.Edges {
		if !walked[e] {
			edges = append(edges, e)
		}
	}

	// Interior nodes that were not kept by simplification get removed;
	// RemoveNodes remaps the new edge list. Pure-cycle nodes stay.
	remove := make([]bool, s.NodeCount())
	for i := range remove {
		remove[i] = !keep[i] && !nodeInCycle(i, walked, adj)
	}
	s.Edges = edges
	s.RemoveNodes(remove)
}

// walkChain follows degree-2 nodes from an anchor until the next anchor,
// marking every traversed edge. The returned slice includes both anchors.
func walkChain(adj [][]int, deg []int, start, next int, walked map[skeleton.Edge]bool) []int {
	chain := []int{start}
	prev, cur := start, next
	walked[skeleton.NewEdge(prev, cur)] = true
	for deg[cur] == 2 {
		chain = append(chain, cur)
		var step int
		if adj[cur][0] == prev {
			step = adj[cur][1]
		} else {
			step = adj[cur][0]
		}
		walked[skeleton.NewEdge(cur, step)] = true
		prev, cur = cur, step
	}
	chain = append(chain, cur)
	return chain
}

// simplifyChain runs Douglas–Peucker over the chain's node positions,
// keeping only the nodes needed to stay within tol of the original
// polyline, and emits the simplified chain's edges.
func simplifyChain(s *skeleton.Skeleton, chain []int, tol float64, keep []bool, edges *[]skeleton.Edge) {
	if len(chain) < 2 {
		return
	}
	douglasPeucker(s, chain, tol, keep)
	prev := chain[0]
	for _, id := range chain[1:] {
		if !keep[id] {
			continue
		}
		if prev != id {
			*edges = append(*edges, skeleton.NewEdge(prev, id))
		}
		prev = id
	}
}

func douglasPeucker(s *skeleton.Skeleton, chain []int, tol float64, keep []bool) {
	keep[chain[0]] = true
	keep[chain[len(chain)-1]] = true
	if len(chain) <= 2 {
		return
	}
	a := s.Nodes[chain[0]]
	b := s.Nodes[chain[len(chain)-1]]
	worst := -1
	worstDist := tol
	for i := 1; i < len(chain)-1; i++ {
		if d := perpDist(s.Nodes[chain[i]], a, b); d > worstDist {
			worst = i
			worstDist = d
		}
	}
	if worst < 0 {
		return
	}
	douglasPeucker(s, chain[:worst+1], tol, keep)
	douglasPeucker(s, chain[worst:], tol, keep)
}

// perpDist returns the distance from p to the segment a-b.
func perpDist(p, a, b skeleton.Node) float64 {
	abx, aby, abz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	apx, apy, apz := p.X-a.X, p.Y-a.Y, p.Z-a.Z
	ab2 := abx*abx + aby*aby + abz*abz
	if ab2 == 0 {
		return skeleton.Dist(p, a)
	}
	t := (apx*abx + apy*aby + apz*abz) / ab2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy, cz := a.X+t*abx, a.Y+t*aby, a.Z+t*abz
	dx, dy, dz := p.X-cx, p.Y-cy, p.Z-cz
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// nodeInCycle reports whether a degree-2 node was never reached by a chain
// walk, which happens exactly when its component is a pure cycle.
func nodeInCycle(i int, walked map[skeleton.Edge]bool, adj [][]int) bool {
	for _, nb := range adj[i] {
		if walked[skeleton.NewEdge(i, nb)] {
			return false
		}
	}
	return len(adj[i]) > 0
}
