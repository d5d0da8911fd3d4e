package routing

import (
	"math"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// NearestAvailableSpot finds the AVAILABLE parking spot with the minimum
// total path length from an entrance node.
//
// Candidates are filtered to exact preference matches when any preference is
// set; if nothing matches, the search falls back to the unfiltered available
// set. Candidates whose shortest path fails ValidatePath are discarded.
// Ties on distance go to the first candidate found.
//
// Returns ErrNodeNotFound if the entrance is absent from the graph and
// ErrNoSpot when no candidate yields a valid path.
func NearestAvailableSpot(g *graph.Graph, entrance int64, prefs Preferences) (*SpotRecommendation, error) {
	if !g.HasNode(entrance) {
		return nil, ErrNodeNotFound
	}

	candidates := availableSpots(g)
	if len(candidates) == 0 {
		return nil, ErrNoSpot
	}

	if !prefs.empty() {
		var filtered []graph.Node
		for _, n := range candidates {
			if prefs.matches(n) {
				filtered = append(filtered, n)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	var best *graph.Node
	bestDistance := math.Inf(1)
	var bestRoute Route

	for i := range candidates {
		spot := candidates[i]
		route, ok := validRoute(g, entrance, spot.ID)
		if !ok {
			continue
		}
		if route.TotalDistanceM < bestDistance {
			bestDistance = route.TotalDistanceM
			best = &candidates[i]
			bestRoute = route
		}
	}

	if best == nil {
		return nil, ErrNoSpot
	}

	return &SpotRecommendation{
		SpotNodeID:      best.ID,
		SpotLabel:       best.Label,
		SpotOrientation: best.Orientation,
		Route:           bestRoute,
	}, nil
}

// RouteToExit finds the shortest valid route from the current node to the
// nearest CAR_EXIT.
//
// Returns ErrNodeNotFound if the current node is absent, ErrNoExits when the
// lot has no exit nodes at all, and ErrNoPath when none are validly reachable.
func RouteToExit(g *graph.Graph, current int64) (*ExitRoute, error) {
	if !g.HasNode(current) {
		return nil, ErrNodeNotFound
	}

	exits := g.NodesOfType(graph.NodeTypeCarExit)
	if len(exits) == 0 {
		return nil, ErrNoExits
	}

	var bestExit *graph.Node
	bestDistance := math.Inf(1)
	var bestRoute Route

	for i := range exits {
		route, ok := validRoute(g, current, exits[i].ID)
		if !ok {
			continue
		}
		if route.TotalDistanceM < bestDistance {
			bestDistance = route.TotalDistanceM
			bestExit = &exits[i]
			bestRoute = route
		}
	}

	if bestExit == nil {
		return nil, ErrNoPath
	}

	return &ExitRoute{
		ExitNodeID:     bestExit.ID,
		NodeIDs:        bestRoute.NodeIDs,
		Coords:         bestRoute.Coords,
		TotalDistanceM: bestRoute.TotalDistanceM,
	}, nil
}

// availableSpots returns all PARKING_SPOT nodes currently AVAILABLE.
func availableSpots(g *graph.Graph) []graph.Node {
	var spots []graph.Node
	for _, n := range g.NodesOfType(graph.NodeTypeParkingSpot) {
		if n.Status == graph.StatusAvailable {
			spots = append(spots, n)
		}
	}
	return spots
}

// validRoute computes the shortest path and checks it with ValidatePath.
func validRoute(g *graph.Graph, from, to int64) (Route, bool) {
	route, err := ShortestPath(g, from, to)
	if err != nil {
		return Route{}, false
	}
	if v := ValidatePath(g, route.NodeIDs); !v.Valid {
		return Route{}, false
	}
	return route, true
}
