package graph

import (
	"sync"
	"time"
)

// Graph holds one lot's topology: node attributes plus directed adjacency.
//
// The structure is immutable after Build; only node and edge status fields
// mutate. A single RWMutex guards all attribute access so pathfinding reads
// can run in parallel while status writes are exclusive.
type Graph struct {
	lotID int64

	mu    sync.RWMutex
	nodes map[int64]*Node
	out   map[int64][]*Edge          // outgoing edges per node, in insertion order
	edges map[int64]map[int64]*Edge  // from -> to -> edge
}

// newGraph constructs a graph from typed node and edge records.
// Bidirectional edges are expanded to two directed edges; a zero weight
// defaults to the edge length.
func newGraph(lotID int64, nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		lotID: lotID,
		nodes: make(map[int64]*Node, len(nodes)),
		out:   make(map[int64][]*Edge),
		edges: make(map[int64]map[int64]*Edge),
	}

	for i := range nodes {
		n := nodes[i]
		n.LotID = lotID
		g.nodes[n.ID] = &n
	}

	for i := range edges {
		e := edges[i]
		if e.Weight == 0 {
			e.Weight = e.LengthM
		}
		if e.Status == "" {
			e.Status = EdgeOpen
		}
		g.addEdge(e.From, e.To, e)
		if e.Bidirectional {
			g.addEdge(e.To, e.From, e)
		}
	}

	return g
}

// addEdge inserts a single directed edge, replacing any previous edge
// between the same pair.
func (g *Graph) addEdge(from, to int64, tmpl Edge) {
	e := tmpl
	e.From = from
	e.To = to

	if prev, ok := g.edges[from][to]; ok {
		*prev = e
		return
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[int64]*Edge)
	}
	ptr := &e
	g.edges[from][to] = ptr
	g.out[from] = append(g.out[from], ptr)
}

// LotID returns the lot this graph belongs to.
func (g *Graph) LotID() int64 { return g.lotID }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, es := range g.out {
		n += len(es)
	}
	return n
}

// HasNode reports whether a node exists.
func (g *Graph) HasNode(id int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id int64) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes. Order is unspecified.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, *n)
	}
	return nodes
}

// NodesOfType returns copies of all nodes with the given type.
func (g *Graph) NodesOfType(t NodeType) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var nodes []Node
	for _, n := range g.nodes {
		if n.Type == t {
			nodes = append(nodes, *n)
		}
	}
	return nodes
}

// Edge returns a copy of the directed edge from one node to another.
func (g *Graph) Edge(from, to int64) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[from][to]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Out returns copies of all outgoing edges from a node.
func (g *Graph) Out(id int64) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ptrs := g.out[id]
	if len(ptrs) == 0 {
		return nil
	}
	edges := make([]Edge, len(ptrs))
	for i, e := range ptrs {
		edges[i] = *e
	}
	return edges
}

// Edges returns copies of all directed edges. Order is unspecified.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var edges []Edge
	for _, ptrs := range g.out {
		for _, e := range ptrs {
			edges = append(edges, *e)
		}
	}
	return edges
}

// SetNodeStatus mutates a node's in-memory status and expiry.
// Returns false if the node does not exist.
func (g *Graph) SetNodeStatus(id int64, status NodeStatus, expiresAt *time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Status = status
	n.ExpiresAt = expiresAt
	return true
}

// SetEdgeStatus mutates a single directed edge's status. The reverse edge of
// a bidirectional pair is untouched; callers update both directions.
// Returns false if the edge does not exist.
func (g *Graph) SetEdgeStatus(from, to int64, status EdgeStatus) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[from][to]
	if !ok {
		return false
	}
	e.Status = status
	return true
}
