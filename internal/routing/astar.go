package routing

import (
	"container/heap"
	"math"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// ShortestPath finds the minimum-weight path between two nodes using A*
// with a Euclidean distance heuristic.
//
// Returns ErrNodeNotFound if either endpoint is absent from the graph and
// ErrNoPath if the end is unreachable. The returned route's total distance
// is the sum of edge lengths along the path, not the search cost.
func ShortestPath(g *graph.Graph, start, end int64) (Route, error) {
	if !g.HasNode(start) || !g.HasNode(end) {
		return Route{}, ErrNodeNotFound
	}

	path, _, ok := astar(g, start, end, nil, nil)
	if !ok {
		return Route{}, ErrNoPath
	}
	return routeFromPath(g, path), nil
}

// euclidean is the A* heuristic: straight-line distance between two nodes.
func euclidean(g *graph.Graph, u, v int64) float64 {
	a, _ := g.Node(u)
	b, _ := g.Node(v)
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// astar runs an A* search on edge weight. Edges in bannedEdges and nodes in
// bannedNodes are skipped; both may be nil. Used directly by ShortestPath
// and for spur searches in the k-shortest-paths iterator.
func astar(g *graph.Graph, start, end int64, bannedEdges map[[2]int64]struct{}, bannedNodes map[int64]struct{}) ([]int64, float64, bool) {
	if _, banned := bannedNodes[start]; banned {
		return nil, 0, false
	}

	gScore := map[int64]float64{start: 0}
	cameFrom := make(map[int64]int64)
	closed := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: start, priority: euclidean(g, start, end)})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem).node
		if current == end {
			return reconstructPath(cameFrom, current), gScore[current], true
		}
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, e := range g.Out(current) {
			if _, banned := bannedEdges[[2]int64{e.From, e.To}]; banned {
				continue
			}
			if _, banned := bannedNodes[e.To]; banned {
				continue
			}

			tentative := gScore[current] + e.Weight
			if old, seen := gScore[e.To]; !seen || tentative < old {
				cameFrom[e.To] = current
				gScore[e.To] = tentative
				heap.Push(pq, &pqItem{node: e.To, priority: tentative + euclidean(g, e.To, end)})
			}
		}
	}

	return nil, 0, false
}

// reconstructPath walks the cameFrom chain back to the start node.
func reconstructPath(cameFrom map[int64]int64, current int64) []int64 {
	path := []int64{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		current = prev
		path = append(path, current)
	}
	// Reverse in place: the chain is walked end-to-start.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// pathWeight sums edge weights along a node sequence.
func pathWeight(g *graph.Graph, path []int64) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		if e, ok := g.Edge(path[i], path[i+1]); ok {
			total += e.Weight
		}
	}
	return total
}

// pqItem is a priority queue entry for A* and the candidate heap.
type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
