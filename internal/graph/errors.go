package graph

import "errors"

// Domain errors for the graph package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, graph.ErrGraphNotFound) {
//	    // lot graph was never built
//	}
var (
	// ErrGraphNotFound is returned when no graph has been built for a lot.
	ErrGraphNotFound = errors.New("graph: not loaded")

	// ErrNodeNotFound is returned when a node ID does not exist in a graph.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrEdgeNotFound is returned when no directed edge connects two nodes.
	ErrEdgeNotFound = errors.New("graph: edge not found")
)
