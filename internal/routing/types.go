package routing

import "github.com/parkpilot/parkpilot-core/internal/graph"

// Route is an ordered node sequence with coordinates and total physical
// distance (summed edge lengths, not weights).
type Route struct {
	NodeIDs        []int64      `json:"node_ids"`
	Coords         [][2]float64 `json:"coords"`
	TotalDistanceM float64      `json:"total_distance_m"`
}

// SpotRecommendation is the result of a nearest-available-spot search.
type SpotRecommendation struct {
	SpotNodeID      int64    `json:"spot_node_id"`
	SpotLabel       *string  `json:"spot_label,omitempty"`
	SpotOrientation *float64 `json:"spot_orientation,omitempty"`
	Route           Route    `json:"route"`
}

// ExitRoute is the result of a nearest-exit search.
type ExitRoute struct {
	ExitNodeID     int64        `json:"exit_node_id"`
	NodeIDs        []int64      `json:"node_ids"`
	Coords         [][2]float64 `json:"coords"`
	TotalDistanceM float64      `json:"total_distance_m"`
}

// Preferences narrows the candidate set of a spot search to exact attribute
// matches. When no candidate matches, the search falls back to the
// unfiltered available set.
type Preferences struct {
	Orientation *float64
	Label       *string
}

// empty reports whether no preference is set.
func (p Preferences) empty() bool {
	return p.Orientation == nil && p.Label == nil
}

// matches reports whether a node satisfies every set preference exactly.
func (p Preferences) matches(n graph.Node) bool {
	if p.Orientation != nil {
		if n.Orientation == nil || *n.Orientation != *p.Orientation {
			return false
		}
	}
	if p.Label != nil {
		if n.Label == nil || *n.Label != *p.Label {
			return false
		}
	}
	return true
}

// Validation is the result of a path availability check.
type Validation struct {
	Valid        bool       `json:"valid"`
	Reason       string     `json:"reason"`
	BlockedEdges [][2]int64 `json:"blocked_edges,omitempty"`
}

// routeFromPath assembles a Route from an ordered node sequence,
// summing edge lengths for the total distance.
func routeFromPath(g *graph.Graph, path []int64) Route {
	coords := make([][2]float64, len(path))
	for i, id := range path {
		n, _ := g.Node(id)
		coords[i] = [2]float64{n.X, n.Y}
	}

	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		if e, ok := g.Edge(path[i], path[i+1]); ok {
			total += e.LengthM
		}
	}

	return Route{NodeIDs: path, Coords: coords, TotalDistanceM: total}
}
