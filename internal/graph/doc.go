// Package graph provides the in-memory topology store for ParkPilot Core.
//
// Each parking lot is modelled as a directed weighted graph: nodes are points
// in the lot (spots, road segments, entrances, exits, walls) and edges are
// drivable connections between them. Graphs are built once from persisted
// records and are structurally immutable afterwards; only node and edge
// status attributes change at runtime.
//
// # Key Types
//
//   - Node: a point in a lot's topology with coordinates and a status
//   - Edge: a directed weighted connection between two nodes
//   - Graph: one lot's nodes plus adjacency, safe for concurrent reads
//   - Store: the per-process registry of lot graphs
//
// # Usage
//
//	store := graph.NewStore()
//	store.Build(lotID, nodes, edges)
//
//	g, err := store.Get(lotID)
//	if err != nil {
//	    return err
//	}
//	route, err := routing.ShortestPath(g, start, end)
//
// Thread Safety: all Store and Graph methods are safe for concurrent use.
// Pathfinding reads run in parallel; status mutations take the write lock.
package graph
