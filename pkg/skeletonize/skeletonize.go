// Package skeletonize extracts a centerline skeleton from one voxel mask.
//
// The algorithm is TEASAR-family extraction: a boundary distance field seeds
// a root at the center of the largest inscribed sphere, penalized shortest
// paths are traced from the farthest remaining voxel back toward the
// existing skeleton, and a scale-invariant ball around every traced path
// invalidates nearby voxels so near-parallel redundant branches never form.
// The loop repeats per connected component until every foreground voxel is
// invalidated.
//
// Extraction is deterministic: every selection of an extremum breaks ties by
// smallest linear voxel index, so identical inputs produce byte-identical
// skeletons across runs and machines.
package skeletonize

import (
	"context"
	"math"

	"github.com/voxelab/skelstitch/pkg/skeleton"
	"github.com/voxelab/skelstitch/pkg/voxel"
)

// Default shaping constants. Scale and Const control the invalidation
// radius (r = Scale*DBF + Const); the PDRF pair controls how hard paths are
// pushed away from the boundary. The literature values below are tunable
// but load-bearing for reproducibility, so overriding them changes output.
const (
	DefaultScale        = 4.0
	DefaultConst        = 10.0
	DefaultPDRFScale    = 100000.0
	DefaultPDRFExponent = 16.0
)

// Config carries the extraction parameters. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// Scale and Const shape the invalidation radius around accepted paths:
	// every voxel within Scale*DBF(p)+Const of a path voxel p is marked
	// visited. Const is in physical units.
	Scale float64
	Const float64

	// PDRFScale and PDRFExponent shape the boundary penalty
	// PDRFScale * (1 - DBF/maxDBF)^PDRFExponent added to each step cost.
	PDRFScale    float64
	PDRFExponent float64

	// MinPathLength suppresses noise: a traced branch shorter than this
	// (physical units) is discarded instead of added to the skeleton. The
	// first path of a skeleton is always kept so an isolated voxel still
	// yields a one-node skeleton.
	MinPathLength float64

	// Downsample collapses nearly-colinear runs of degree-2 nodes after
	// extraction to bound output size without changing topology.
	Downsample bool

	// DownsampleTolerance is the maximum perpendicular deviation (physical
	// units) allowed when straightening a chain. Zero means half the
	// smallest spacing component.
	DownsampleTolerance float64
}

// DefaultConfig returns the documented default extraction parameters.
func DefaultConfig() Config {
	return Config{
		Scale:        DefaultScale,
		Const:        DefaultConst,
		PDRFScale:    DefaultPDRFScale,
		PDRFExponent: DefaultPDRFExponent,
	}
}

// Skeletonize extracts the centerline skeleton of the mask's foreground.
//
// The returned skeleton's coordinates are in the global physical frame
// (mask offset and spacing applied). An empty mask yields an empty skeleton;
// a single isolated voxel yields one node and no edges. The mask is
// borrowed read-only.
//
// The context is checked at voxel-processing granularity so a surrounding
// scheduler can enforce wall-clock budgets; there is no other suspension
// point.
func Skeletonize(ctx context.Context, m *voxel.Mask, cfg Config) (*skeleton.Skeleton, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s := skeleton.New(0)
	if m.Count() == 0 {
		return s, nil
	}

	dbf := DistanceTransform(m)
	maxDBF := 0.0
	for i, fg := range m.Data {
		if fg && dbf[i] > maxDBF {
			maxDBF = dbf[i]
		}
	}

	// Penalized distance-from-root field weight per voxel.
	penalty := make([]float64, m.Len())
	for i, fg := range m.Data {
		if fg {
			penalty[i] = cfg.PDRFScale * math.Pow(1-dbf[i]/maxDBF, cfg.PDRFExponent)
		}
	}

	ex := &extractor{
		mask:    m,
		cfg:     cfg,
		dbf:     dbf,
		penalty: penalty,
		visited: make([]bool, m.Len()),
		nodeOf:  make([]int32, m.Len()),
		skel:    s,
	}
	for i := range ex.nodeOf {
		ex.nodeOf[i] = -1
	}

	// One outer round per connected component: pick the most interior
	// unvisited voxel as root, exhaust its component, repeat.
	for {
		root := ex.nextRoot()
		if root < 0 {
			break
		}
		if err := ex.component(ctx, root); err != nil {
			return nil, err
		}
	}

	if cfg.Downsample {
		tol := cfg.DownsampleTolerance
		if tol == 0 {
			tol = 0.5 * min(m.Spacing[0], m.Spacing[1], m.Spacing[2])
		}
		downsample(s, tol)
	}
	s.Canonicalize()
	return s, nil
}

// extractor holds the per-call state of the extraction loop.
type extractor struct {
	mask    *voxel.Mask
	cfg     Config
	dbf     []float64
	penalty []float64
	visited []bool  // invalidated voxels, no longer branch targets
	nodeOf  []int32 // linear voxel index -> node id, -1 if none
	skel    *skeleton.Skeleton
}

// nextRoot picks the unvisited foreground voxel with maximum boundary
// distance, breaking ties by smallest linear index. Returns -1 when all
// foreground is visited.
func (ex *extractor) nextRoot() int {
	best := -1
	bestDBF := -1.0
	for i, fg := range ex.mask.Data {
		if fg && !ex.visited[i] && ex.dbf[i] > bestDBF {
			best = i
			bestDBF = ex.dbf[i]
		}
	}
	return best
}

// component skeletonizes the connected component containing root: trace the
// path from the farthest unvisited voxel back to the existing skeleton,
// accept it unless it is below the noise threshold, and invalidate around
// it either way so the loop always makes progress.
func (ex *extractor) component(ctx context.Context, root int) error {
	field, err := shortestPathField(ctx, ex.mask, ex.penalty, root)
	if err != nil {
		return err
	}

	for {
		target := ex.farthest(field)
		if target < 0 {
			return nil
		}
		path := ex.trace(field, target)

		segLen := field.dist[target]
		junction := path[len(path)-1]
		if ex.nodeOf[junction] >= 0 {
			segLen -= field.dist[junction]
		}

		if ex.skel.IsEmpty() || segLen >= ex.cfg.MinPathLength {
			ex.commit(path)
		}
		ex.invalidate(path)
	}
}

// farthest returns the unvisited foreground voxel with the highest penalized
// path cost from the current root, ties broken by smallest linear index.
// Returns -1 when no reachable unvisited voxel remains in this component.
func (ex *extractor) farthest(field *pathField) int {
	best := -1
	bestCost := -1.0
	for i, fg := range ex.mask.Data {
		if fg && !ex.visited[i] && field.reachable(i) && field.cost[i] > bestCost {
			best = i
			bestCost = field.cost[i]
		}
	}
	return best
}

// trace walks parent pointers from target toward the root, stopping early at
// the first voxel that is already a skeleton node (the junction where the
// new branch attaches). The returned path is ordered target first.
func (ex *extractor) trace(field *pathField, target int) []int {
	path := []int{target}
	for v := target; ex.nodeOf[v] < 0 && field.parent[v] >= 0; {
		v = int(field.parent[v])
		path = append(path, v)
		if ex.nodeOf[v] >= 0 {
			break
		}
	}
	return path
}

// commit adds the path's voxels as skeleton nodes joined by a chain of
// edges, reusing the junction node if the path ends on one.
func (ex *extractor) commit(path []int) {
	prev := int32(-1)
	for _, v := range path {
		id := ex.nodeOf[v]
		if id < 0 {
			x, y, z := ex.mask.Unindex(v)
			px, py, pz := ex.mask.Coord(x, y, z)
			id = int32(ex.skel.AddNode(skeleton.Node{X: px, Y: py, Z: pz, Radius: ex.dbf[v]}))
			ex.nodeOf[v] = id
		}
		if prev >= 0 && prev != id {
			// Path voxels are consecutive and distinct, so the only
			// failure mode is a duplicate chain edge, which
			// Canonicalize removes.
			_ = ex.skel.AddEdge(int(prev), int(id))
		}
		prev = id
	}
}

// invalidate marks every voxel within Scale*DBF+Const of each path voxel as
// visited. The radius grows with local thickness, which is what prevents
// redundant near-parallel branches in fat regions while preserving detail
// in thin ones.
func (ex *extractor) invalidate(path []int) {
	m := ex.mask
	for _, p := range path {
		ex.visited[p] = true
		r := ex.cfg.Scale*ex.dbf[p] + ex.cfg.Const
		if r <= 0 {
			continue
		}
		px, py, pz := m.Unindex(p)
		rx := int(r / m.Spacing[0])
		ry := int(r / m.Spacing[1])
		rz := int(r / m.Spacing[2])
		r2 := r * r
		for dz := -rz; dz <= rz; dz++ {
			for dy := -ry; dy <= ry; dy++ {
				for dx := -rx; dx <= rx; dx++ {
					x, y, z := px+dx, py+dy, pz+dz
					if !m.At(x, y, z) {
						continue
					}
					fx := float64(dx) * m.Spacing[0]
					fy := float64(dy) * m.Spacing[1]
					fz := float64(dz) * m.Spacing[2]
					if fx*fx+fy*fy+fz*fz <= r2 {
						ex.visited[m.Index(x, y, z)] = true
					}
				}
			}
		}
	}
}
