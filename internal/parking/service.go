package parking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parkpilot/parkpilot-core/internal/events"
	"github.com/parkpilot/parkpilot-core/internal/graph"
	"github.com/parkpilot/parkpilot-core/internal/routing"
)

// earthRadiusKM is the mean Earth radius used by the haversine distance.
const earthRadiusKM = 6371.0

// Logger is the logging interface used by the service.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// OccupancyRecorder receives one event per spot transition into OCCUPIED.
// Satisfied by the occupancy repository.
type OccupancyRecorder interface {
	Record(ctx context.Context, lotID, nodeID int64, ts time.Time) error
}

// Telemetry receives spot status changes for time-series export.
// Satisfied by the tsdb client. Optional.
type Telemetry interface {
	WriteSpotStatus(lotID, nodeID int64, status string)
}

// Service owns lot inventory, the in-memory graphs and the spot
// reservation state machine. See the package documentation for the
// transition table and effect ordering.
type Service struct {
	repo      Repository
	store     *graph.Store
	bus       *events.Bus
	sched     *Scheduler
	occupancy OccupancyRecorder
	telemetry Telemetry
	logger    Logger

	locks nodeLocks
}

// NewService creates the parking service and its expiry scheduler.
// Pass nil for logger to disable logging.
func NewService(repo Repository, store *graph.Store, bus *events.Bus, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Service{
		repo:   repo,
		store:  store,
		bus:    bus,
		logger: logger,
		locks:  nodeLocks{locks: make(map[int64]*sync.Mutex)},
	}
	s.sched = NewScheduler(s.releaseExpired)
	return s
}

// SetOccupancyRecorder wires occupancy history recording. Optional.
func (s *Service) SetOccupancyRecorder(r OccupancyRecorder) { s.occupancy = r }

// SetTelemetry wires time-series export of status changes. Optional.
func (s *Service) SetTelemetry(t Telemetry) { s.telemetry = t }

// Scheduler exposes the expiry scheduler for lifecycle management.
func (s *Service) Scheduler() *Scheduler { return s.sched }

// Close stops the expiry scheduler.
func (s *Service) Close() { s.sched.Close() }

// LoadGraphs builds the in-memory graph for every lot from the database.
// Called once on startup; safe to call again to rebuild.
func (s *Service) LoadGraphs(ctx context.Context) error {
	lots, err := s.repo.ListLots(ctx)
	if err != nil {
		return fmt.Errorf("listing lots: %w", err)
	}

	for _, lot := range lots {
		nodes, err := s.repo.ListNodes(ctx, lot.ID)
		if err != nil {
			return fmt.Errorf("listing nodes for lot %d: %w", lot.ID, err)
		}
		edges, err := s.repo.ListEdges(ctx, lot.ID)
		if err != nil {
			return fmt.Errorf("listing edges for lot %d: %w", lot.ID, err)
		}
		s.store.Build(lot.ID, nodes, edges)
	}

	s.logger.Info("graphs loaded", "lots", len(lots))
	return nil
}

// RearmReservations re-arms expiry timers for reservations that survived a
// restart. Already-lapsed reservations are released immediately. The
// persisted expires_at is ground truth.
func (s *Service) RearmReservations(ctx context.Context) error {
	reserved, err := s.repo.ListReservedNodes(ctx)
	if err != nil {
		return fmt.Errorf("listing reserved nodes: %w", err)
	}

	now := time.Now().UTC()
	rearmed := 0
	for _, node := range reserved {
		if node.ExpiresAt == nil {
			s.logger.Warn("reserved node without expiry, skipping", "node_id", node.ID)
			continue
		}
		if node.ExpiresAt.After(now) {
			s.sched.Arm(node.LotID, node.ID, *node.ExpiresAt)
			rearmed++
		} else {
			s.releaseExpired(node.LotID, node.ID)
		}
	}

	if len(reserved) > 0 {
		s.logger.Info("reservation timers recovered",
			"reserved", len(reserved), "rearmed", rearmed)
	}
	return nil
}

// UpdateNodeStatus runs one guarded state machine transition on a spot.
//
// Valid transitions: AVAILABLE→RESERVED (also lapsed RESERVED→RESERVED),
// RESERVED→OCCUPIED, OCCUPIED→AVAILABLE. Everything else returns
// ErrNotAvailable / ErrNotReserved / ErrNotOccupied, and an unknown status
// returns ErrInvalidStatus. Effects apply in order: database row,
// in-memory graph, expiry timer (reserve only), event bus.
func (s *Service) UpdateNodeStatus(ctx context.Context, lotID, nodeID int64, status string, ttl time.Duration) (*StatusResult, error) {
	target := graph.NodeStatus(strings.ToUpper(status))

	lock := s.locks.get(nodeID)
	lock.Lock()
	defer lock.Unlock()

	node, err := s.repo.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.LotID != lotID {
		return nil, ErrNodeNotFound
	}

	now := time.Now().UTC()
	var (
		message   string
		expiresAt *time.Time
	)

	switch target {
	case graph.StatusReserved:
		lapsed := node.Status == graph.StatusReserved &&
			node.ExpiresAt != nil && node.ExpiresAt.Before(now)
		if node.Status != graph.StatusAvailable && !lapsed {
			return nil, ErrNotAvailable
		}
		t := now.Add(ttl)
		expiresAt = &t
		message = "Node reserved successfully"

	case graph.StatusOccupied:
		if node.Status != graph.StatusReserved {
			return nil, ErrNotReserved
		}
		message = "Node marked as occupied"

	case graph.StatusAvailable:
		if node.Status != graph.StatusOccupied {
			return nil, ErrNotOccupied
		}
		message = "Node released and available"

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.repo.UpdateNodeStatus(ctx, nodeID, target, expiresAt); err != nil {
		return nil, fmt.Errorf("persisting status: %w", err)
	}
	s.store.SetNodeStatus(lotID, nodeID, target, expiresAt)

	if target == graph.StatusReserved {
		s.sched.Arm(lotID, nodeID, *expiresAt)
	}

	if target == graph.StatusOccupied && s.occupancy != nil {
		if err := s.occupancy.Record(ctx, lotID, nodeID, now); err != nil {
			// History is best-effort; the transition itself already committed.
			s.logger.Error("failed to record occupancy event",
				"lot_id", lotID, "node_id", nodeID, "error", err)
		}
	}

	s.publishStatus(lotID, nodeID, target, expiresAt)

	return &StatusResult{
		Message:   message,
		LotID:     lotID,
		NodeID:    nodeID,
		Status:    string(target),
		ExpiresAt: expiresAt,
	}, nil
}

// releaseExpired is the scheduler callback: reverts a lapsed reservation
// to AVAILABLE. Re-reads the persisted row first so timers that outlived
// an occupy or a re-reserve do nothing. Failures are logged and dropped.
func (s *Service) releaseExpired(lotID, nodeID int64) {
	ctx := context.Background()

	lock := s.locks.get(nodeID)
	lock.Lock()
	defer lock.Unlock()

	node, err := s.repo.GetNode(ctx, nodeID)
	if err != nil {
		s.logger.Error("expiry check failed", "node_id", nodeID, "error", err)
		return
	}

	now := time.Now().UTC()
	if node.Status != graph.StatusReserved || node.ExpiresAt == nil || node.ExpiresAt.After(now) {
		return // reservation was occupied, re-reserved or already released
	}

	if err := s.repo.UpdateNodeStatus(ctx, nodeID, graph.StatusAvailable, nil); err != nil {
		s.logger.Error("expiry release failed", "node_id", nodeID, "error", err)
		return
	}
	s.store.SetNodeStatus(lotID, nodeID, graph.StatusAvailable, nil)
	s.publishStatus(lotID, nodeID, graph.StatusAvailable, nil)

	s.logger.Info("reservation expired", "lot_id", lotID, "node_id", nodeID)
}

// ApplySensorReading applies a ground-truth occupancy reading from a spot
// sensor. A car detected on a spot forces OCCUPIED regardless of the
// reservation guards; a clear reading releases only an OCCUPIED spot, so
// a pending reservation is not wiped out by its own empty spot.
func (s *Service) ApplySensorReading(ctx context.Context, lotID, nodeID int64, occupied bool) error {
	lock := s.locks.get(nodeID)
	lock.Lock()
	defer lock.Unlock()

	node, err := s.repo.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.LotID != lotID {
		return ErrNodeNotFound
	}

	target := graph.StatusAvailable
	if occupied {
		target = graph.StatusOccupied
	}

	if node.Status == target {
		return nil
	}
	if !occupied && node.Status != graph.StatusOccupied {
		return nil
	}

	if err := s.repo.UpdateNodeStatus(ctx, nodeID, target, nil); err != nil {
		return fmt.Errorf("persisting sensor status: %w", err)
	}
	s.store.SetNodeStatus(lotID, nodeID, target, nil)

	if occupied && s.occupancy != nil {
		if err := s.occupancy.Record(ctx, lotID, nodeID, time.Now().UTC()); err != nil {
			s.logger.Error("failed to record occupancy event",
				"lot_id", lotID, "node_id", nodeID, "error", err)
		}
	}

	s.publishStatus(lotID, nodeID, target, nil)
	s.logger.Debug("sensor reading applied",
		"lot_id", lotID, "node_id", nodeID, "occupied", occupied)
	return nil
}

// publishStatus fans the transition out to the event bus and telemetry.
func (s *Service) publishStatus(lotID, nodeID int64, status graph.NodeStatus, expiresAt *time.Time) {
	s.bus.Publish(events.StatusUpdate{
		LotID:     lotID,
		NodeID:    nodeID,
		Status:    string(status),
		ExpiresAt: expiresAt,
		Timestamp: time.Now().UTC(),
	})
	if s.telemetry != nil {
		s.telemetry.WriteSpotStatus(lotID, nodeID, string(status))
	}
}

// Lots retrieves all parking lots.
func (s *Service) Lots(ctx context.Context) ([]Lot, error) {
	return s.repo.ListLots(ctx)
}

// LotSummaries returns identity and live spot counts for every lot.
func (s *Service) LotSummaries(ctx context.Context) (*MultiLotSummary, error) {
	lots, err := s.repo.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}

	summaries := make([]LotSummary, 0, len(lots))
	for _, lot := range lots {
		summaries = append(summaries, s.summarise(lot))
	}
	return &MultiLotSummary{LotsSummary: summaries}, nil
}

// ClosestLot finds the lot nearest to the given coordinates by haversine
// distance. Returns ErrNoLots when no lots exist.
func (s *Service) ClosestLot(ctx context.Context, longitude, latitude float64) (*LotSummary, error) {
	lots, err := s.repo.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	if len(lots) == 0 {
		return nil, ErrNoLots
	}

	best := 0
	bestDistance := math.Inf(1)
	for i, lot := range lots {
		d := haversineKM(longitude, latitude, lot.Longitude, lot.Latitude)
		if d < bestDistance {
			bestDistance = d
			best = i
		}
	}

	summary := s.summarise(lots[best])
	return &summary, nil
}

// summarise counts spot statuses from the lot's in-memory graph. A lot
// whose graph is not loaded reports zero counts.
func (s *Service) summarise(lot Lot) LotSummary {
	summary := LotSummary{
		LotID:     lot.ID,
		LotName:   lot.Name,
		Location:  lot.Location,
		Longitude: lot.Longitude,
		Latitude:  lot.Latitude,
	}

	g, err := s.store.Get(lot.ID)
	if err != nil {
		return summary
	}

	for _, n := range g.NodesOfType(graph.NodeTypeParkingSpot) {
		summary.TotalSpots++
		switch n.Status {
		case graph.StatusOccupied:
			summary.NumOccupied++
		case graph.StatusAvailable:
			summary.NumAvailable++
		}
	}
	if summary.TotalSpots > 0 {
		summary.OccupancyPercentage = float64(summary.NumOccupied) / float64(summary.TotalSpots) * 100
	}
	return summary
}

// Nodes lists every node in a lot with grid dimensions derived from the
// coordinate extents.
func (s *Service) Nodes(lotID int64) (*LotNodes, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}

	nodes := g.Nodes()
	result := &LotNodes{LotID: lotID, Nodes: nodes}

	if len(nodes) > 0 {
		minX, maxX := nodes[0].X, nodes[0].X
		minY, maxY := nodes[0].Y, nodes[0].Y
		for _, n := range nodes[1:] {
			minX = math.Min(minX, n.X)
			maxX = math.Max(maxX, n.X)
			minY = math.Min(minY, n.Y)
			maxY = math.Max(maxY, n.Y)
		}
		// Ceil so fractional extents still cover the outermost row/column.
		result.Dimensions = GridDimensions{
			Rows: int(math.Ceil(maxY-minY)) + 1,
			Cols: int(math.Ceil(maxX-minX)) + 1,
		}
	}
	return result, nil
}

// RoadEdges lists ROAD-to-ROAD edges sorted by edge centre, top to bottom
// then left to right.
func (s *Service) RoadEdges(lotID int64) ([]RoadEdge, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}

	type sortable struct {
		cy, cx float64
		edge   RoadEdge
	}
	var roads []sortable

	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		if from.Type != graph.NodeTypeRoad || to.Type != graph.NodeTypeRoad {
			continue
		}
		roads = append(roads, sortable{
			cy: (from.Y + to.Y) / 2,
			cx: (from.X + to.X) / 2,
			edge: RoadEdge{
				FromNodeID:    e.From,
				ToNodeID:      e.To,
				LengthM:       e.LengthM,
				Weight:        e.Weight,
				Status:        e.Status,
				Bidirectional: e.Bidirectional,
			},
		})
	}

	sort.Slice(roads, func(i, j int) bool {
		if roads[i].cy != roads[j].cy {
			return roads[i].cy < roads[j].cy
		}
		if roads[i].cx != roads[j].cx {
			return roads[i].cx < roads[j].cx
		}
		if roads[i].edge.FromNodeID != roads[j].edge.FromNodeID {
			return roads[i].edge.FromNodeID < roads[j].edge.FromNodeID
		}
		return roads[i].edge.ToNodeID < roads[j].edge.ToNodeID
	})

	edges := make([]RoadEdge, len(roads))
	for i, r := range roads {
		edges[i] = r.edge
	}
	return edges, nil
}

// Route finds the shortest route between two nodes in a lot.
func (s *Service) Route(lotID, start, end int64) (*routing.Route, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}
	route, err := routing.ShortestPath(g, start, end)
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// AlternativeRoutes finds up to k alternative routes between two nodes.
func (s *Service) AlternativeRoutes(lotID, start, end int64, k int) ([]routing.Route, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}
	return routing.AlternativeRoutes(g, start, end, k)
}

// FindSpot recommends the nearest available spot from an entrance.
func (s *Service) FindSpot(lotID, entrance int64, prefs routing.Preferences) (*routing.SpotRecommendation, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}
	return routing.NearestAvailableSpot(g, entrance, prefs)
}

// RouteToExit finds the shortest route to the nearest exit.
func (s *Service) RouteToExit(lotID, current int64) (*routing.ExitRoute, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}
	return routing.RouteToExit(g, current)
}

// ValidatePath checks whether a node sequence is currently drivable.
func (s *Service) ValidatePath(lotID int64, nodeIDs []int64) (*routing.Validation, error) {
	g, err := s.store.Get(lotID)
	if err != nil {
		return nil, err
	}
	v := routing.ValidatePath(g, nodeIDs)
	return &v, nil
}

// haversineKM computes the great-circle distance between two coordinates.
func haversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// nodeLocks hands out one mutex per node ID so transitions on the same
// spot serialise while distinct spots proceed in parallel. Entries are
// never freed; the map is bounded by the node count.
type nodeLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (n *nodeLocks) get(id int64) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()

	lock, ok := n.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		n.locks[id] = lock
	}
	return lock
}
