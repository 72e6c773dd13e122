package postprocess

import (
	"math"
	"slices"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/skeleton"
)

// Merge defaults. Epsilon only needs to absorb float round-trip noise:
// overlapping chunks compute coordinates from the same global voxel grid,
// so coincident nodes match exactly or very nearly so.
const (
	DefaultMergeEpsilon = 1e-5
	DefaultCycleHops    = 8
)

// MergeConfig controls fragment stitching.
type MergeConfig struct {
	// Epsilon is the coordinate coincidence tolerance: nodes from
	// different fragments closer than this are coalesced into one.
	Epsilon float64

	// CycleHops and CycleLength bound the stitch-cycle collapse: an edge
	// is dropped when an alternative path of at most CycleHops hops and
	// at most CycleLength total length connects its endpoints. Zero
	// CycleLength disables the length bound.
	CycleHops   int
	CycleLength float64
}

// DefaultMergeConfig returns the documented stitching defaults.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{Epsilon: DefaultMergeEpsilon, CycleHops: DefaultCycleHops}
}

// Report summarizes one merge run so the caller can surface data-quality
// conditions. Multiple components with non-empty input usually means the
// upstream chunk overlap was too small for fragments to coincide.
type Report struct {
	Fragments  int // fragments merged
	NodesIn    int // nodes across all fragments before dedup
	NodesOut   int // nodes after coalescing
	Coalesced  int // node pairs merged by coordinate coincidence
	DupEdges   int // duplicate/self-loop edges removed
	CyclesCut  int // redundant stitch-cycle edges removed
	Components int // connected components in the output
}

// Merge unions all fragments for one object into a single skeleton.
//
// Fragment node ids are renumbered to be globally unique, nodes from
// different fragments within cfg.Epsilon of each other are coalesced
// (keeping the larger, more interior radius estimate), duplicate and
// self-loop edges produced by coalescing are dropped, and small cycles
// introduced by stitch imprecision are cut back to a spanning structure.
//
// Fragments must all carry the same object id; mixing objects is a caller
// bug reported as OBJECT_MISMATCH. A merge of only-empty fragments yields
// an empty skeleton and no error. If non-empty input produces an empty
// graph, that is an internal invariant violation (MERGE_CONSISTENCY).
func Merge(frags []*skeleton.Fragment, cfg MergeConfig) (*skeleton.Skeleton, *Report, error) {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultMergeEpsilon
	}
	if cfg.CycleHops <= 0 {
		cfg.CycleHops = DefaultCycleHops
	}

	report := &Report{Fragments: len(frags)}
	if len(frags) == 0 {
		return skeleton.New(0), report, nil
	}

	objectID := frags[0].ObjectID
	for _, f := range frags {
		if f.ObjectID != objectID {
			return nil, nil, errors.New(errors.ErrCodeObjectMismatch,
				"fragment for object %d in merge of object %d", f.ObjectID, objectID)
		}
	}

	// Step 1: union into one arena with a fragment-local → global id map.
	union := skeleton.New(objectID)
	fragOf := []int{} // global id -> fragment ordinal, for the dedup rule
	for fi, f := range frags {
		base := union.NodeCount()
		union.Nodes = append(union.Nodes, f.Nodes...)
		for range f.Nodes {
			fragOf = append(fragOf, fi)
		}
		for _, e := range f.Edges {
			union.Edges = append(union.Edges, skeleton.NewEdge(e.A+base, e.B+base))
		}
	}
	report.NodesIn = union.NodeCount()

	// Step 2: coalesce coincident nodes from different fragments.
	report.Coalesced = coalesce(union, fragOf, cfg.Epsilon)

	// Step 3: coalescing leaves duplicate pairs and self-loops behind.
	report.DupEdges = dropRedundantEdges(union)

	// Step 4: cut small stitch cycles so each component is tree-shaped.
	report.CyclesCut = breakSmallCycles(union, cfg.CycleHops, cfg.CycleLength)

	report.NodesOut = union.NodeCount()
	report.Components = union.ComponentCount()
	if report.NodesIn > 0 && report.NodesOut == 0 {
		return nil, nil, errors.New(errors.ErrCodeMergeConsistency,
			"merge produced no nodes from %d input nodes across %d fragments", report.NodesIn, len(frags))
	}
	return union, report, nil
}

// coalesce merges nodes from different fragments whose coordinates lie
// within eps of each other, rewriting edges to the surviving node. The
// survivor is the lowest global id in each coincidence group and keeps the
// group's maximum radius. Returns the number of nodes eliminated.
func coalesce(s *skeleton.Skeleton, fragOf []int, eps float64) int {
	if s.NodeCount() == 0 {
		return 0
	}

	parent := make([]int, s.NodeCount())
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	unite := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Smaller id wins so output order is deterministic.
		if ra > rb {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	// Spatial hash over eps-sized cells; a match can only be in the same
	// or an adjacent cell.
	cell := func(n skeleton.Node) [3]int64 {
		return [3]int64{
			int64(math.Floor(n.X / eps)),
			int64(math.Floor(n.Y / eps)),
			int64(math.Floor(n.Z / eps)),
		}
	}
	grid := make(map[[3]int64][]int, s.NodeCount())
	for i, n := range s.Nodes {
		grid[cell(n)] = append(grid[cell(n)], i)
	}
	for i, n := range s.Nodes {
		c := cell(n)
		for dz := int64(-1); dz <= 1; dz++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dx := int64(-1); dx <= 1; dx++ {
					for _, j := range grid[[3]int64{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if j <= i || fragOf[i] == fragOf[j] {
							continue
						}
						if skeleton.Dist(n, s.Nodes[j]) <= eps {
							unite(i, j)
						}
					}
				}
			}
		}
	}

	// Rebuild the arena keeping one node per group.
	remap := make([]int, s.NodeCount())
	var nodes []skeleton.Node
	groupOf := make(map[int]int, s.NodeCount())
	for i := range s.Nodes {
		root := find(i)
		gi, seen := groupOf[root]
		if !seen {
			gi = len(nodes)
			groupOf[root] = gi
			nodes = append(nodes, s.Nodes[root])
		}
		if s.Nodes[i].Radius > nodes[gi].Radius {
			// The more interior sample is the more reliable radius.
			nodes[gi].Radius = s.Nodes[i].Radius
		}
		remap[i] = gi
	}

	eliminated := s.NodeCount() - len(nodes)
	s.Nodes = nodes
	for i, e := range s.Edges {
		s.Edges[i] = skeleton.NewEdge(remap[e.A], remap[e.B])
	}
	return eliminated
}

// dropRedundantEdges removes self-loops and duplicate pairs left behind by
// coalescing. Returns the number of edges removed.
func dropRedundantEdges(s *skeleton.Skeleton) int {
	before := len(s.Edges)
	seen := make(map[skeleton.Edge]struct{}, len(s.Edges))
	kept := s.Edges[:0]
	for _, e := range s.Edges {
		if e.A == e.B {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		kept = append(kept, e)
	}
	s.Edges = kept
	s.Canonicalize()
	return before - len(s.Edges)
}

// adjEntry is one weighted adjacency record used by the cycle cutter.
type adjEntry struct {
	to  int
	len float64
}

// breakSmallCycles drops edges that close short cycles: for each edge, if
// an alternative path of at most maxHops hops (and, when maxLen > 0, at
// most maxLen total length) connects its endpoints, the edge is redundant
// stitching and is removed. Longer edges are examined first so the
// surviving spanning structure prefers short segments. Returns the number
// of edges cut.
func breakSmallCycles(s *skeleton.Skeleton, maxHops int, maxLen float64) int {
	adj := make([][]adjEntry, s.NodeCount())
	for _, e := range s.Edges {
		l := s.EdgeLength(e)
		adj[e.A] = append(adj[e.A], adjEntry{to: e.B, len: l})
		adj[e.B] = append(adj[e.B], adjEntry{to: e.A, len: l})
	}

	order := slices.Clone(s.Edges)
	slices.SortFunc(order, func(x, y skeleton.Edge) int {
		lx, ly := s.EdgeLength(x), s.EdgeLength(y)
		switch {
		case lx > ly:
			return -1
		case lx < ly:
			return 1
		case x.A != y.A:
			return x.A - y.A
		default:
			return x.B - y.B
		}
	})

	removed := make(map[skeleton.Edge]bool)
	for _, e := range order {
		if removed[e] {
			continue
		}
		if altPath(adj, removed, e, maxHops, maxLen) {
			removed[e] = true
		}
	}
	if len(removed) == 0 {
		return 0
	}
	kept := s.Edges[:0]
	for _, e := range s.Edges {
		if !removed[e] {
			kept = append(kept, e)
		}
	}
	s.Edges = kept
	return len(removed)
}

// altPath reports whether e.A reaches e.B without using edge e, within the
// hop and length bounds. Bounded breadth-first search with per-node best
// lengths; the bounds keep this cheap even on large merged graphs.
func altPath(adj [][]adjEntry, removed map[skeleton.Edge]bool, e skeleton.Edge, maxHops int, maxLen float64) bool {
	type state struct {
		node int
		len  float64
	}
	best := map[int]float64{e.A: 0}
	frontier := []state{{node: e.A}}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []state
		for _, st := range frontier {
			for _, a := range adj[st.node] {
				edge := skeleton.NewEdge(st.node, a.to)
				if edge == e || removed[edge] {
					continue
				}
				l := st.len + a.len
				if maxLen > 0 && l > maxLen {
					continue
				}
				if a.to == e.B {
					return true
				}
				if prev, seen := best[a.to]; seen && prev <= l {
					continue
				}
				best[a.to] = l
				next = append(next, state{node: a.to, len: l})
			}
		}
		frontier = next
	}
	return false
}
