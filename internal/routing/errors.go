package routing

import "errors"

// Domain errors for the routing package, checked with errors.Is().
var (
	// ErrNodeNotFound is returned when a start or end node is absent from the graph.
	ErrNodeNotFound = errors.New("routing: node not in graph")

	// ErrNoPath is returned when no path connects two nodes.
	ErrNoPath = errors.New("routing: no path found")

	// ErrNoExits is returned when a lot has no CAR_EXIT nodes at all.
	ErrNoExits = errors.New("routing: no exits in lot")

	// ErrNoSpot is returned when no available spot is validly reachable.
	ErrNoSpot = errors.New("routing: no available spot found")
)
