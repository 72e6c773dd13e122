package skeletonize

import (
	"context"
	"math"

	"github.com/voxelab/skelstitch/pkg/voxel"
)

// checkInterval is how many heap pops happen between context checks. The
// search is CPU-bound with no natural suspension points, so this is the
// granularity at which a scheduler-imposed deadline takes effect.
const checkInterval = 8192

// neighbor is one of the 26 lattice offsets around a voxel.
type neighbor struct {
	dx, dy, dz int
	step       float64 // physical length of the step
	di         int     // linear index delta
}

// neighborhood precomputes the 26-connected offsets for a mask's shape and
// spacing. The linear deltas are only valid away from the grid border, so
// lookups still bounds-check coordinates.
func neighborhood(m *voxel.Mask) []neighbor {
	ns := make([]neighbor, 0, 26)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				sx := float64(dx) * m.Spacing[0]
				sy := float64(dy) * m.Spacing[1]
				sz := float64(dz) * m.Spacing[2]
				ns = append(ns, neighbor{
					dx:   dx,
					dy:   dy,
					dz:   dz,
					step: math.Sqrt(sx*sx + sy*sy + sz*sz),
					di:   (dz*m.Shape[1]+dy)*m.Shape[0] + dx,
				})
			}
		}
	}
	return ns
}

// pathField is the result of one penalized shortest-path search: for every
// reachable foreground voxel, the penalized cost from the root, the physical
// length of the chosen path, and the predecessor for path reconstruction.
type pathField struct {
	cost   []float64
	dist   []float64
	parent []int32
}

// reachable reports whether the search reached linear index i.
func (f *pathField) reachable(i int) bool { return !math.IsInf(f.cost[i], 1) }

// heapItem orders the frontier by penalized cost, breaking ties by linear
// voxel index so repeated runs expand voxels in the same order.
type heapItem struct {
	cost float64
	idx  int32
}

func itemLess(a, b heapItem) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.idx < b.idx
}

// costHeap is a plain binary min-heap over heapItems.
type costHeap []heapItem

func (h *costHeap) push(it heapItem) {
	*h = append(*h, it)
	i := len(*h) - 1
	for i > 0 {
		p := (i - 1) / 2
		if !itemLess((*h)[i], (*h)[p]) {
			break
		}
		(*h)[i], (*h)[p] = (*h)[p], (*h)[i]
		i = p
	}
}

func (h *costHeap) pop() heapItem {
	old := *h
	top := old[0]
	last := len(old) - 1
	old[0] = old[last]
	*h = old[:last]
	i := 0
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < last && itemLess(old[l], old[smallest]) {
			smallest = l
		}
		if r < last && itemLess(old[r], old[smallest]) {
			smallest = r
		}
		if smallest == i {
			break
		}
		old[i], old[smallest] = old[smallest], old[i]
		i = smallest
	}
	return top
}

// shortestPathField runs Dijkstra from root over the 26-connected foreground
// voxel graph. The edge cost into a voxel is its physical step length plus a
// penalty that grows steeply toward the object boundary, so minimum-cost
// paths hug the medial axis. penalty must be indexed by linear voxel index.
//
// The search is exhaustive (no target), covering the root's entire connected
// component. Voxels in other components keep +Inf cost.
func shortestPathField(ctx context.Context, m *voxel.Mask, penalty []float64, root int) (*pathField, error) {
	n := m.Len()
	f := &pathField{
		cost:   make([]float64, n),
		dist:   make([]float64, n),
		parent: make([]int32, n),
	}
	for i := range f.cost {
		f.cost[i] = math.Inf(1)
		f.parent[i] = -1
	}
	done := make([]bool, n)
	ns := neighborhood(m)

	f.cost[root] = 0
	h := make(costHeap, 0, 1024)
	h.push(heapItem{cost: 0, idx: int32(root)})

	pops := 0
	for len(h) > 0 {
		it := h.pop()
		u := int(it.idx)
		if done[u] {
			continue
		}
		done[u] = true

		pops++
		if pops%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		ux, uy, uz := m.Unindex(u)
		for _, nb := range ns {
			vx, vy, vz := ux+nb.dx, uy+nb.dy, uz+nb.dz
			if !m.At(vx, vy, vz) {
				continue
			}
			v := u + nb.di
			if done[v] {
				continue
			}
			c := f.cost[u] + nb.step + penalty[v]
			if c < f.cost[v] || (c == f.cost[v] && int32(u) < f.parent[v]) {
				f.cost[v] = c
				f.dist[v] = f.dist[u] + nb.step
				f.parent[v] = int32(u)
				h.push(heapItem{cost: c, idx: int32(v)})
			}
		}
	}
	return f, nil
}
