package routing

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// Enumeration ceilings. Yen's algorithm can generate a combinatorial number
// of candidates on dense graphs; both the candidate heap and the number of
// enumerated paths are capped so cost scales with k, not with the total
// simple-path count of the graph.
const (
	maxCandidates      = 512
	maxEnumeratedPaths = 64
)

// AlternativeRoutes produces up to k simple paths between two nodes in
// non-decreasing total-weight order, each individually passing ValidatePath.
// Paths failing validation are skipped and replaced by the next candidate.
//
// Returns ErrNodeNotFound if either endpoint is absent and ErrNoPath if no
// path exists at all. When paths exist but none validate, the result is an
// empty slice and a nil error.
func AlternativeRoutes(g *graph.Graph, start, end int64, k int) ([]Route, error) {
	if !g.HasNode(start) || !g.HasNode(end) {
		return nil, ErrNodeNotFound
	}
	if k < 1 {
		return nil, nil
	}

	it, err := newPathIterator(g, start, end)
	if err != nil {
		return nil, err
	}

	routes := make([]Route, 0, k)
	for i := 0; i < maxEnumeratedPaths && len(routes) < k; i++ {
		path, ok := it.next()
		if !ok {
			break
		}
		if v := ValidatePath(g, path); !v.Valid {
			continue
		}
		routes = append(routes, routeFromPath(g, path))
	}
	return routes, nil
}

// candidate is a simple path pending acceptance, ordered by total weight.
type candidate struct {
	path   []int64
	weight float64
}

type candidateHeap []*candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].weight < h[j].weight }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(*candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// pathIterator enumerates simple paths lazily in non-decreasing weight order
// using Yen's algorithm. Spur candidates for the i-th path are only computed
// when the i+1-th path is requested, so consuming k paths costs k rounds of
// spur searches rather than a full enumeration.
type pathIterator struct {
	g          *graph.Graph
	start, end int64

	staged     *candidate    // the shortest path, before the first next()
	accepted   [][]int64     // paths already handed out, in order
	candidates candidateHeap // pending spur candidates
	seen       map[string]struct{}
}

// newPathIterator prepares the iterator, running the initial shortest-path
// search. Returns ErrNoPath when the end node is unreachable.
func newPathIterator(g *graph.Graph, start, end int64) (*pathIterator, error) {
	path, weight, ok := astar(g, start, end, nil, nil)
	if !ok {
		return nil, ErrNoPath
	}

	it := &pathIterator{
		g:      g,
		start:  start,
		end:    end,
		staged: &candidate{path: path, weight: weight},
		seen:   map[string]struct{}{pathKey(path): {}},
	}
	heap.Init(&it.candidates)
	return it, nil
}

// next returns the next simple path in non-decreasing weight order.
func (it *pathIterator) next() ([]int64, bool) {
	if it.staged != nil {
		c := it.staged
		it.staged = nil
		it.accepted = append(it.accepted, c.path)
		return c.path, true
	}
	if len(it.accepted) == 0 {
		return nil, false
	}

	it.spurFrom(it.accepted[len(it.accepted)-1])

	if it.candidates.Len() == 0 {
		return nil, false
	}
	c := heap.Pop(&it.candidates).(*candidate)
	it.accepted = append(it.accepted, c.path)
	return c.path, true
}

// spurFrom generates Yen spur candidates branching off each prefix of the
// most recently accepted path.
func (it *pathIterator) spurFrom(prev []int64) {
	for i := 0; i < len(prev)-1; i++ {
		if it.candidates.Len() >= maxCandidates {
			return
		}

		spurNode := prev[i]
		rootPath := prev[:i+1]

		// Edges leaving the spur node on any accepted path sharing this
		// root must not be reused, or the search would rediscover them.
		bannedEdges := make(map[[2]int64]struct{})
		for _, p := range it.accepted {
			if len(p) > i+1 && equalPath(p[:i+1], rootPath) {
				bannedEdges[[2]int64{p[i], p[i+1]}] = struct{}{}
			}
		}

		// Root nodes (except the spur node) are off limits to keep paths simple.
		bannedNodes := make(map[int64]struct{}, i)
		for _, id := range rootPath[:i] {
			bannedNodes[id] = struct{}{}
		}

		spurPath, _, ok := astar(it.g, spurNode, it.end, bannedEdges, bannedNodes)
		if !ok {
			continue
		}

		total := make([]int64, 0, i+len(spurPath))
		total = append(total, rootPath[:i]...)
		total = append(total, spurPath...)

		key := pathKey(total)
		if _, dup := it.seen[key]; dup {
			continue
		}
		it.seen[key] = struct{}{}

		heap.Push(&it.candidates, &candidate{
			path:   total,
			weight: pathWeight(it.g, total),
		})
	}
}

func equalPath(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func pathKey(path []int64) string {
	var sb strings.Builder
	for i, id := range path {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	return sb.String()
}
