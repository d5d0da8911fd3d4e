package routing

import (
	"errors"
	"testing"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

func ptr[T any](v T) *T { return &v }

// corridor builds the three-node line used by most tests:
// entrance 1 (0,0) — road 2 (10,0) — spot 3 (20,0), all edges OPEN,
// length = weight = 10.
func corridor(t *testing.T) *graph.Graph {
	t.Helper()
	store := graph.NewStore()
	return store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeCarEntrance, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
			{ID: 3, Type: graph.NodeTypeParkingSpot, X: 20, Y: 0, Status: graph.StatusAvailable},
		},
		[]graph.Edge{
			{From: 1, To: 2, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 2, To: 3, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
		},
	)
}

// square builds a four-node ring with two distinct 1->4 paths:
// via 2 (total weight 20) and via 3 (total weight 25).
func square(t *testing.T) *graph.Graph {
	t.Helper()
	store := graph.NewStore()
	return store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeCarEntrance, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
			{ID: 3, Type: graph.NodeTypeRoad, X: 0, Y: 10, Status: graph.StatusAvailable},
			{ID: 4, Type: graph.NodeTypeRoad, X: 10, Y: 10, Status: graph.StatusAvailable},
		},
		[]graph.Edge{
			{From: 1, To: 2, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 2, To: 4, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 1, To: 3, LengthM: 10, Weight: 15, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 3, To: 4, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
		},
	)
}

func TestShortestPathCorridor(t *testing.T) {
	g := corridor(t)

	route, err := ShortestPath(g, 1, 3)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}

	want := []int64{1, 2, 3}
	if !equalPath(route.NodeIDs, want) {
		t.Errorf("expected path %v, got %v", want, route.NodeIDs)
	}
	if route.TotalDistanceM != 20 {
		t.Errorf("expected total distance 20, got %v", route.TotalDistanceM)
	}
	if len(route.Coords) != 3 || route.Coords[2] != [2]float64{20, 0} {
		t.Errorf("unexpected coords %v", route.Coords)
	}
}

func TestShortestPathDistanceSumsLengthsNotWeights(t *testing.T) {
	// Weight diverges from length (congestion): the route total must still
	// report physical length.
	store := graph.NewStore()
	g := store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeRoad, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
		},
		[]graph.Edge{
			{From: 1, To: 2, LengthM: 10, Weight: 50, Status: graph.EdgeOpen},
		},
	)

	route, err := ShortestPath(g, 1, 2)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if route.TotalDistanceM != 10 {
		t.Errorf("expected distance 10 (length), got %v", route.TotalDistanceM)
	}
}

func TestShortestPathErrors(t *testing.T) {
	g := corridor(t)

	if _, err := ShortestPath(g, 1, 99); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}

	// Disconnected node: present in graph, no edges.
	store := graph.NewStore()
	g2 := store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeRoad, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
		},
		nil,
	)
	if _, err := ShortestPath(g2, 1, 2); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestValidatePathReportsAllBlockedEdges(t *testing.T) {
	g := corridor(t)
	g.SetEdgeStatus(1, 2, graph.EdgeClosed)
	g.SetEdgeStatus(2, 3, graph.EdgeClosed)

	v := ValidatePath(g, []int64{1, 2, 3})
	if v.Valid {
		t.Fatal("expected invalid path")
	}
	if v.Reason != "Path blocked" {
		t.Errorf("expected reason \"Path blocked\", got %q", v.Reason)
	}
	want := [][2]int64{{1, 2}, {2, 3}}
	if len(v.BlockedEdges) != 2 || v.BlockedEdges[0] != want[0] || v.BlockedEdges[1] != want[1] {
		t.Errorf("expected blocked edges %v, got %v", want, v.BlockedEdges)
	}
}

func TestValidatePathMissingNodeAndEdge(t *testing.T) {
	g := corridor(t)

	if v := ValidatePath(g, []int64{1, 99}); v.Valid || v.Reason != "Node 99 does not exist" {
		t.Errorf("unexpected validation %+v", v)
	}
	if v := ValidatePath(g, []int64{1, 3}); v.Valid || v.Reason != "No edge between 1 and 3" {
		t.Errorf("unexpected validation %+v", v)
	}
	if v := ValidatePath(g, nil); v.Valid {
		t.Errorf("empty path must be invalid, got %+v", v)
	}
}

func TestValidatePathDestinationSpotStatus(t *testing.T) {
	g := corridor(t)

	g.SetNodeStatus(3, graph.StatusOccupied, nil)
	if v := ValidatePath(g, []int64{1, 2, 3}); v.Valid || v.Reason != "Destination spot is OCCUPIED" {
		t.Errorf("unexpected validation %+v", v)
	}

	// RESERVED destinations stay routable (the reservation holder drives to it).
	g.SetNodeStatus(3, graph.StatusReserved, nil)
	if v := ValidatePath(g, []int64{1, 2, 3}); !v.Valid {
		t.Errorf("reserved destination should validate, got %+v", v)
	}
}

func TestAlternativeRoutesOrderedByWeight(t *testing.T) {
	g := square(t)

	routes, err := AlternativeRoutes(g, 1, 4, 3)
	if err != nil {
		t.Fatalf("AlternativeRoutes: %v", err)
	}
	if len(routes) < 2 {
		t.Fatalf("expected at least 2 routes, got %d", len(routes))
	}
	if !equalPath(routes[0].NodeIDs, []int64{1, 2, 4}) {
		t.Errorf("expected cheapest route via 2 first, got %v", routes[0].NodeIDs)
	}
	if !equalPath(routes[1].NodeIDs, []int64{1, 3, 4}) {
		t.Errorf("expected route via 3 second, got %v", routes[1].NodeIDs)
	}

	last := 0.0
	for _, r := range routes {
		w := pathWeight(g, r.NodeIDs)
		if w < last {
			t.Errorf("routes not in non-decreasing weight order: %v after %v", w, last)
		}
		last = w
		if v := ValidatePath(g, r.NodeIDs); !v.Valid {
			t.Errorf("returned route fails validation: %v", r.NodeIDs)
		}
	}
}

func TestAlternativeRoutesSkipsBlocked(t *testing.T) {
	g := square(t)
	// Close the cheaper branch; enumeration must backfill with the next path.
	g.SetEdgeStatus(2, 4, graph.EdgeClosed)

	routes, err := AlternativeRoutes(g, 1, 4, 1)
	if err != nil {
		t.Fatalf("AlternativeRoutes: %v", err)
	}
	if len(routes) != 1 || !equalPath(routes[0].NodeIDs, []int64{1, 3, 4}) {
		t.Errorf("expected the open route via 3, got %+v", routes)
	}
}

func TestAlternativeRoutesNoPath(t *testing.T) {
	store := graph.NewStore()
	g := store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeRoad, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
		},
		nil,
	)
	if _, err := AlternativeRoutes(g, 1, 2, 3); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

// spotLot builds an entrance with two reachable spots at distances 10 and 20.
func spotLot(t *testing.T) *graph.Graph {
	t.Helper()
	store := graph.NewStore()
	return store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeCarEntrance, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeParkingSpot, X: 10, Y: 0, Status: graph.StatusAvailable, Orientation: ptr(90.0)},
			{ID: 3, Type: graph.NodeTypeParkingSpot, X: 20, Y: 0, Status: graph.StatusAvailable, Orientation: ptr(180.0)},
		},
		[]graph.Edge{
			{From: 1, To: 2, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 2, To: 3, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
		},
	)
}

func TestNearestAvailableSpotPicksClosest(t *testing.T) {
	g := spotLot(t)

	rec, err := NearestAvailableSpot(g, 1, Preferences{})
	if err != nil {
		t.Fatalf("NearestAvailableSpot: %v", err)
	}
	if rec.SpotNodeID != 2 {
		t.Errorf("expected nearest spot 2, got %d", rec.SpotNodeID)
	}
	if rec.Route.TotalDistanceM != 10 {
		t.Errorf("expected distance 10, got %v", rec.Route.TotalDistanceM)
	}
}

func TestNearestAvailableSpotPreferenceFilter(t *testing.T) {
	g := spotLot(t)

	rec, err := NearestAvailableSpot(g, 1, Preferences{Orientation: ptr(180.0)})
	if err != nil {
		t.Fatalf("NearestAvailableSpot: %v", err)
	}
	if rec.SpotNodeID != 3 {
		t.Errorf("expected preferred spot 3, got %d", rec.SpotNodeID)
	}

	// No spot matches: fall back to the unfiltered available set.
	rec, err = NearestAvailableSpot(g, 1, Preferences{Orientation: ptr(270.0)})
	if err != nil {
		t.Fatalf("NearestAvailableSpot fallback: %v", err)
	}
	if rec.SpotNodeID != 2 {
		t.Errorf("expected fallback to nearest spot 2, got %d", rec.SpotNodeID)
	}
}

func TestNearestAvailableSpotNoCandidates(t *testing.T) {
	g := spotLot(t)
	g.SetNodeStatus(2, graph.StatusOccupied, nil)
	g.SetNodeStatus(3, graph.StatusOccupied, nil)

	if _, err := NearestAvailableSpot(g, 1, Preferences{}); !errors.Is(err, ErrNoSpot) {
		t.Errorf("expected ErrNoSpot, got %v", err)
	}
}

func TestNearestAvailableSpotSkipsBlockedPaths(t *testing.T) {
	g := spotLot(t)
	g.SetEdgeStatus(1, 2, graph.EdgeClosed)

	// Spot 2 is unreachable on an open path; 3 is reached through the same
	// closed edge, so nothing is validly reachable.
	if _, err := NearestAvailableSpot(g, 1, Preferences{}); !errors.Is(err, ErrNoSpot) {
		t.Errorf("expected ErrNoSpot, got %v", err)
	}
}

func TestRouteToExit(t *testing.T) {
	store := graph.NewStore()
	g := store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeRoad, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeCarExit, X: 10, Y: 0, Status: graph.StatusAvailable},
			{ID: 3, Type: graph.NodeTypeCarExit, X: 30, Y: 0, Status: graph.StatusAvailable},
		},
		[]graph.Edge{
			{From: 1, To: 2, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
			{From: 1, To: 3, LengthM: 30, Weight: 30, Status: graph.EdgeOpen, Bidirectional: true},
		},
	)

	route, err := RouteToExit(g, 1)
	if err != nil {
		t.Fatalf("RouteToExit: %v", err)
	}
	if route.ExitNodeID != 2 || route.TotalDistanceM != 10 {
		t.Errorf("expected nearest exit 2 at distance 10, got %+v", route)
	}
}

func TestRouteToExitErrors(t *testing.T) {
	g := corridor(t) // no CAR_EXIT nodes
	if _, err := RouteToExit(g, 1); !errors.Is(err, ErrNoExits) {
		t.Errorf("expected ErrNoExits, got %v", err)
	}

	store := graph.NewStore()
	g2 := store.Build(1,
		[]graph.Node{
			{ID: 1, Type: graph.NodeTypeRoad, X: 0, Y: 0, Status: graph.StatusAvailable},
			{ID: 2, Type: graph.NodeTypeCarExit, X: 10, Y: 0, Status: graph.StatusAvailable},
		},
		nil,
	)
	if _, err := RouteToExit(g2, 1); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}
