package graph

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the per-process registry of lot graphs.
//
// It owns one Graph per lot, built from persisted node/edge records.
// Graphs are rebuildable at any time from the source records; Build
// replaces any prior graph for the lot.
//
// All public methods are thread-safe.
type Store struct {
	mu     sync.RWMutex
	graphs map[int64]*Graph
	logger Logger
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{
		graphs: make(map[int64]*Graph),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Build constructs the graph for a lot from typed node and edge records,
// replacing any previously built graph for that lot.
//
// Each bidirectional edge input yields two directed edges with identical
// length, weight and status. Edge weight defaults to length when zero.
func (s *Store) Build(lotID int64, nodes []Node, edges []Edge) *Graph {
	g := newGraph(lotID, nodes, edges)

	s.mu.Lock()
	s.graphs[lotID] = g
	s.mu.Unlock()

	s.logger.Info("graph built",
		"lot_id", lotID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
	)
	return g
}

// Get returns the graph for a lot, or ErrGraphNotFound if none was built.
func (s *Store) Get(lotID int64) (*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[lotID]
	if !ok {
		return nil, ErrGraphNotFound
	}
	return g, nil
}

// LotIDs returns the IDs of all lots with a built graph.
func (s *Store) LotIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	return ids
}

// SetNodeStatus mutates the in-memory status of a node. The persisted record
// is updated by the caller; this touches only the graph. It is a no-op when
// the lot graph or node is absent — callers check existence via Get first.
func (s *Store) SetNodeStatus(lotID, nodeID int64, status NodeStatus, expiresAt *time.Time) {
	s.mu.RLock()
	g, ok := s.graphs[lotID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if !g.SetNodeStatus(nodeID, status, expiresAt) {
		s.logger.Debug("status update for unknown node", "lot_id", lotID, "node_id", nodeID)
	}
}
