package parking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parkpilot/parkpilot-core/internal/events"
	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// MockRepository is a test implementation of Repository backed by maps.
type MockRepository struct {
	mu        sync.Mutex
	lots      map[int64]Lot
	nodes     map[int64]graph.Node
	edges     map[int64][]graph.Edge
	nextLotID int64
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		lots:      make(map[int64]Lot),
		nodes:     make(map[int64]graph.Node),
		edges:     make(map[int64][]graph.Edge),
		nextLotID: 1,
	}
}

func (m *MockRepository) ListLots(_ context.Context) ([]Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lots []Lot
	for _, lot := range m.lots {
		lots = append(lots, lot)
	}
	return lots, nil
}

func (m *MockRepository) GetLot(_ context.Context, id int64) (*Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return nil, ErrLotNotFound
	}
	return &lot, nil
}

func (m *MockRepository) CreateLot(_ context.Context, lot *Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot.ID = m.nextLotID
	m.nextLotID++
	m.lots[lot.ID] = *lot
	return nil
}

func (m *MockRepository) CountLots(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lots), nil
}

func (m *MockRepository) ListNodes(_ context.Context, lotID int64) ([]graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var nodes []graph.Node
	for _, n := range m.nodes {
		if n.LotID == lotID {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (m *MockRepository) ListEdges(_ context.Context, lotID int64) ([]graph.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[lotID], nil
}

func (m *MockRepository) GetNode(_ context.Context, nodeID int64) (*graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return &n, nil
}

func (m *MockRepository) CreateNode(_ context.Context, node *graph.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = *node
	return nil
}

func (m *MockRepository) CreateEdge(_ context.Context, lotID int64, edge *graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[lotID] = append(m.edges[lotID], *edge)
	return nil
}

func (m *MockRepository) UpdateNodeStatus(_ context.Context, nodeID int64, status graph.NodeStatus, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	n.Status = status
	n.ExpiresAt = expiresAt
	m.nodes[nodeID] = n
	return nil
}

func (m *MockRepository) ListReservedNodes(_ context.Context) ([]graph.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var nodes []graph.Node
	for _, n := range m.nodes {
		if n.Status == graph.StatusReserved {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// mockRecorder counts occupancy events.
type mockRecorder struct {
	mu      sync.Mutex
	records []int64
}

func (r *mockRecorder) Record(_ context.Context, _, nodeID int64, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, nodeID)
	return nil
}

func (r *mockRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// setupService builds a service with one lot: entrance 1 — road 2 — spot 3.
func setupService(t *testing.T) (*Service, *MockRepository, *events.Bus) {
	t.Helper()

	repo := NewMockRepository()
	ctx := context.Background()

	lot := &Lot{Name: "Test Lot", Location: "Testville", Latitude: -33.87, Longitude: 151.21}
	if err := repo.CreateLot(ctx, lot); err != nil {
		t.Fatalf("creating lot: %v", err)
	}

	nodes := []graph.Node{
		{ID: 1, LotID: lot.ID, Type: graph.NodeTypeCarEntrance, X: 0, Y: 0, Status: graph.StatusAvailable},
		{ID: 2, LotID: lot.ID, Type: graph.NodeTypeRoad, X: 10, Y: 0, Status: graph.StatusAvailable},
		{ID: 3, LotID: lot.ID, Type: graph.NodeTypeParkingSpot, X: 20, Y: 0, Status: graph.StatusAvailable},
	}
	for i := range nodes {
		if err := repo.CreateNode(ctx, &nodes[i]); err != nil {
			t.Fatalf("creating node: %v", err)
		}
	}
	edges := []graph.Edge{
		{From: 1, To: 2, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
		{From: 2, To: 3, LengthM: 10, Weight: 10, Status: graph.EdgeOpen, Bidirectional: true},
	}
	for i := range edges {
		if err := repo.CreateEdge(ctx, lot.ID, &edges[i]); err != nil {
			t.Fatalf("creating edge: %v", err)
		}
	}

	bus := events.NewBus(nil)
	svc := NewService(repo, graph.NewStore(), bus, nil)
	if err := svc.LoadGraphs(ctx); err != nil {
		t.Fatalf("loading graphs: %v", err)
	}
	t.Cleanup(svc.Close)

	return svc, repo, bus
}

func TestReserveAvailableSpot(t *testing.T) {
	svc, repo, bus := setupService(t)
	sub := bus.Subscribe(nil)
	defer sub.Close()

	result, err := svc.UpdateNodeStatus(context.Background(), 1, 3, "RESERVED", 30*time.Second)
	if err != nil {
		t.Fatalf("UpdateNodeStatus: %v", err)
	}

	if result.Message != "Node reserved successfully" {
		t.Errorf("unexpected message %q", result.Message)
	}
	if result.Status != "RESERVED" || result.ExpiresAt == nil {
		t.Errorf("unexpected result %+v", result)
	}

	node, _ := repo.GetNode(context.Background(), 3)
	if node.Status != graph.StatusReserved || node.ExpiresAt == nil {
		t.Errorf("row not persisted: %+v", node)
	}

	select {
	case u := <-sub.C():
		if u.NodeID != 3 || u.Status != "RESERVED" || u.ExpiresAt == nil {
			t.Errorf("unexpected event %+v", u)
		}
	default:
		t.Error("no status update published")
	}

	if svc.Scheduler().Pending() != 1 {
		t.Errorf("expected 1 armed timer, got %d", svc.Scheduler().Pending())
	}
}

func TestReserveConflicts(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	// Already reserved with a live TTL.
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}

	// Occupied spot cannot be reserved.
	future := time.Now().UTC().Add(time.Minute)
	_ = repo.UpdateNodeStatus(ctx, 3, graph.StatusOccupied, &future)
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrNotAvailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != racers-1 {
		t.Errorf("expected 1 winner and %d conflicts, got %d and %d",
			racers-1, wins, conflicts)
	}
}

func TestReserveLapsedReservation(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	_ = repo.UpdateNodeStatus(ctx, 3, graph.StatusReserved, &past)

	result, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute)
	if err != nil {
		t.Fatalf("re-reserving lapsed spot: %v", err)
	}
	if result.ExpiresAt == nil || !result.ExpiresAt.After(time.Now().UTC()) {
		t.Errorf("expected a fresh expiry, got %v", result.ExpiresAt)
	}
}

func TestOccupyReservedSpot(t *testing.T) {
	svc, repo, _ := setupService(t)
	recorder := &mockRecorder{}
	svc.SetOccupancyRecorder(recorder)
	ctx := context.Background()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	result, err := svc.UpdateNodeStatus(ctx, 1, 3, "OCCUPIED", 0)
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if result.Message != "Node marked as occupied" || result.ExpiresAt != nil {
		t.Errorf("unexpected result %+v", result)
	}

	node, _ := repo.GetNode(ctx, 3)
	if node.Status != graph.StatusOccupied || node.ExpiresAt != nil {
		t.Errorf("row not updated: %+v", node)
	}
	if recorder.count() != 1 {
		t.Errorf("expected 1 occupancy record, got %d", recorder.count())
	}
}

func TestOccupyRequiresReservation(t *testing.T) {
	svc, _, _ := setupService(t)

	if _, err := svc.UpdateNodeStatus(context.Background(), 1, 3, "OCCUPIED", 0); !errors.Is(err, ErrNotReserved) {
		t.Errorf("expected ErrNotReserved, got %v", err)
	}
}

func TestFreeOccupiedSpot(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	_ = repo.UpdateNodeStatus(ctx, 3, graph.StatusOccupied, nil)
	svc.store.SetNodeStatus(1, 3, graph.StatusOccupied, nil)

	result, err := svc.UpdateNodeStatus(ctx, 1, 3, "AVAILABLE", 0)
	if err != nil {
		t.Fatalf("free: %v", err)
	}
	if result.Message != "Node released and available" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestFreeRequiresOccupied(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "AVAILABLE", 0); !errors.Is(err, ErrNotOccupied) {
		t.Errorf("expected ErrNotOccupied, got %v", err)
	}

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "AVAILABLE", 0); !errors.Is(err, ErrNotOccupied) {
		t.Errorf("reserved spot must not be freeable, got %v", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "BROKEN", 0); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.UpdateNodeStatus(ctx, 1, 99, "RESERVED", time.Minute); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
	// Node 3 exists but belongs to lot 1, not lot 7.
	if _, err := svc.UpdateNodeStatus(ctx, 7, 3, "RESERVED", time.Minute); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound for lot mismatch, got %v", err)
	}
}

func TestReservationExpires(t *testing.T) {
	svc, repo, bus := setupService(t)
	ctx := context.Background()
	sub := bus.Subscribe(nil)
	defer sub.Close()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", 20*time.Millisecond); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	<-sub.C() // RESERVED event

	deadline := time.After(2 * time.Second)
	for {
		node, _ := repo.GetNode(ctx, 3)
		if node.Status == graph.StatusAvailable {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reservation did not expire")
		case <-time.After(10 * time.Millisecond):
		}
	}

	select {
	case u := <-sub.C():
		if u.Status != "AVAILABLE" || u.ExpiresAt != nil {
			t.Errorf("unexpected expiry event %+v", u)
		}
	case <-time.After(time.Second):
		t.Error("no expiry event published")
	}
}

func TestStaleTimerIsNoop(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", 20*time.Millisecond); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "OCCUPIED", 0); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	// Let the reservation timer fire; the spot is OCCUPIED so it must not act.
	time.Sleep(100 * time.Millisecond)

	node, _ := repo.GetNode(ctx, 3)
	if node.Status != graph.StatusOccupied {
		t.Errorf("stale timer reverted an occupied spot: %s", node.Status)
	}
}

func TestApplySensorReading(t *testing.T) {
	svc, repo, _ := setupService(t)
	recorder := &mockRecorder{}
	svc.SetOccupancyRecorder(recorder)
	ctx := context.Background()

	// Car detected on an available spot: forced OCCUPIED, recorded.
	if err := svc.ApplySensorReading(ctx, 1, 3, true); err != nil {
		t.Fatalf("sensor occupy: %v", err)
	}
	node, _ := repo.GetNode(ctx, 3)
	if node.Status != graph.StatusOccupied {
		t.Errorf("expected OCCUPIED, got %s", node.Status)
	}
	if recorder.count() != 1 {
		t.Errorf("expected occupancy record, got %d", recorder.count())
	}

	// Clear reading releases the spot.
	if err := svc.ApplySensorReading(ctx, 1, 3, false); err != nil {
		t.Fatalf("sensor release: %v", err)
	}
	node, _ = repo.GetNode(ctx, 3)
	if node.Status != graph.StatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", node.Status)
	}

	// Clear reading must not cancel a pending reservation.
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.ApplySensorReading(ctx, 1, 3, false); err != nil {
		t.Fatalf("sensor no-op: %v", err)
	}
	node, _ = repo.GetNode(ctx, 3)
	if node.Status != graph.StatusReserved {
		t.Errorf("clear reading wiped a reservation: %s", node.Status)
	}
}

func TestRearmReservations(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	// One lapsed, one still pending.
	past := time.Now().UTC().Add(-time.Minute)
	_ = repo.UpdateNodeStatus(ctx, 3, graph.StatusReserved, &past)

	future := time.Now().UTC().Add(time.Hour)
	extra := graph.Node{ID: 4, LotID: 1, Type: graph.NodeTypeParkingSpot, X: 30, Y: 0,
		Status: graph.StatusReserved, ExpiresAt: &future}
	_ = repo.CreateNode(ctx, &extra)

	if err := svc.RearmReservations(ctx); err != nil {
		t.Fatalf("RearmReservations: %v", err)
	}

	node, _ := repo.GetNode(ctx, 3)
	if node.Status != graph.StatusAvailable {
		t.Errorf("lapsed reservation not released: %s", node.Status)
	}
	if svc.Scheduler().Pending() != 1 {
		t.Errorf("expected 1 re-armed timer, got %d", svc.Scheduler().Pending())
	}
}

func TestLotSummaries(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "RESERVED", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.UpdateNodeStatus(ctx, 1, 3, "OCCUPIED", 0); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	summary, err := svc.LotSummaries(ctx)
	if err != nil {
		t.Fatalf("LotSummaries: %v", err)
	}
	if len(summary.LotsSummary) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(summary.LotsSummary))
	}

	lot := summary.LotsSummary[0]
	if lot.TotalSpots != 1 || lot.NumOccupied != 1 || lot.NumAvailable != 0 {
		t.Errorf("unexpected counts %+v", lot)
	}
	if lot.OccupancyPercentage != 100 {
		t.Errorf("expected 100%% occupancy, got %v", lot.OccupancyPercentage)
	}
}

func TestClosestLot(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	far := &Lot{Name: "Far Lot", Location: "Elsewhere", Latitude: 48.85, Longitude: 2.35}
	if err := repo.CreateLot(ctx, far); err != nil {
		t.Fatalf("creating lot: %v", err)
	}

	// Near Sydney: the test lot at (-33.87, 151.21) must win over Paris.
	closest, err := svc.ClosestLot(ctx, 151.0, -33.9)
	if err != nil {
		t.Fatalf("ClosestLot: %v", err)
	}
	if closest.LotName != "Test Lot" {
		t.Errorf("expected Test Lot, got %s", closest.LotName)
	}
}

func TestClosestLotNoLots(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, graph.NewStore(), events.NewBus(nil), nil)
	defer svc.Close()

	if _, err := svc.ClosestLot(context.Background(), 0, 0); !errors.Is(err, ErrNoLots) {
		t.Errorf("expected ErrNoLots, got %v", err)
	}
}

func TestNodesGridDimensions(t *testing.T) {
	svc, _, _ := setupService(t)

	nodes, err := svc.Nodes(1)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	if len(nodes.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(nodes.Nodes))
	}
	// x spans 0..20, y spans 0..0.
	if nodes.Dimensions.Cols != 21 || nodes.Dimensions.Rows != 1 {
		t.Errorf("unexpected dimensions %+v", nodes.Dimensions)
	}
}

func TestNodesGridDimensionsFractional(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	extra := graph.Node{ID: 4, LotID: 1, Type: graph.NodeTypeParkingSpot,
		X: 20.5, Y: 1.5, Status: graph.StatusAvailable}
	if err := repo.CreateNode(ctx, &extra); err != nil {
		t.Fatalf("creating node: %v", err)
	}
	if err := svc.LoadGraphs(ctx); err != nil {
		t.Fatalf("loading graphs: %v", err)
	}

	nodes, err := svc.Nodes(1)
	if err != nil {
		t.Fatalf("Nodes: %v", err)
	}
	// x spans 0..20.5, y spans 0..1.5; fractional extents round up.
	if nodes.Dimensions.Cols != 22 || nodes.Dimensions.Rows != 3 {
		t.Errorf("unexpected dimensions %+v", nodes.Dimensions)
	}
}
