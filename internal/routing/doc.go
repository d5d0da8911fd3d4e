// Package routing implements pathfinding over parking lot graphs.
//
// All operations are pure with respect to the graph: they only read node and
// edge attributes and may run concurrently with each other. Search cost is
// edge weight; reported distances are summed edge lengths.
//
// # Operations
//
//   - ShortestPath: A* with a straight-line distance heuristic
//   - AlternativeRoutes: lazy k-shortest simple paths (Yen's algorithm)
//   - NearestAvailableSpot: closest reachable AVAILABLE parking spot
//   - RouteToExit: closest reachable CAR_EXIT
//   - ValidatePath: edge existence, open status and destination checks
//
// # Optimality contract
//
// The A* heuristic is the Euclidean distance between node coordinates.
// Results are optimal only while every edge weight is at least the
// straight-line distance between its endpoints. Deployments that assign
// weights below physical length (cost bonuses) may receive suboptimal
// paths; this is a contract on callers, not a runtime check.
package routing
