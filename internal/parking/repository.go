package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/parkpilot/parkpilot-core/internal/graph"
)

// Repository defines the interface for parking persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// ListLots retrieves all parking lots ordered by name.
	ListLots(ctx context.Context) ([]Lot, error)

	// GetLot retrieves a lot by ID.
	// Returns ErrLotNotFound if the lot does not exist.
	GetLot(ctx context.Context, id int64) (*Lot, error)

	// CreateLot inserts a new lot and populates its generated ID.
	CreateLot(ctx context.Context, lot *Lot) error

	// CountLots returns the total number of lots.
	CountLots(ctx context.Context) (int, error)

	// ListNodes retrieves all graph nodes belonging to a lot.
	ListNodes(ctx context.Context, lotID int64) ([]graph.Node, error)

	// ListEdges retrieves all graph edges belonging to a lot.
	ListEdges(ctx context.Context, lotID int64) ([]graph.Edge, error)

	// GetNode retrieves a single node by ID.
	// Returns ErrNodeNotFound if the node does not exist.
	GetNode(ctx context.Context, nodeID int64) (*graph.Node, error)

	// CreateNode inserts a new node with an explicit ID.
	CreateNode(ctx context.Context, node *graph.Node) error

	// CreateEdge inserts a new edge for a lot.
	CreateEdge(ctx context.Context, lotID int64, edge *graph.Edge) error

	// UpdateNodeStatus updates only the status and expiry of a node.
	// This is optimised for frequent transitions on the reservation path.
	UpdateNodeStatus(ctx context.Context, nodeID int64, status graph.NodeStatus, expiresAt *time.Time) error

	// ListReservedNodes retrieves all nodes currently RESERVED, across lots.
	// Used by the startup sweep to re-arm expiry timers.
	ListReservedNodes(ctx context.Context) ([]graph.Node, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListLots retrieves all parking lots ordered by name.
func (r *SQLiteRepository) ListLots(ctx context.Context) ([]Lot, error) {
	query := `
		SELECT id, name, location, width_m, height_m, latitude, longitude, created_at
		FROM lots
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying lots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var lots []Lot
	for rows.Next() {
		var lot Lot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.Location, &lot.WidthM,
			&lot.HeightM, &lot.Latitude, &lot.Longitude, &lot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// GetLot retrieves a lot by ID.
func (r *SQLiteRepository) GetLot(ctx context.Context, id int64) (*Lot, error) {
	query := `
		SELECT id, name, location, width_m, height_m, latitude, longitude, created_at
		FROM lots
		WHERE id = ?`

	var lot Lot
	err := r.db.QueryRowContext(ctx, query, id).Scan(&lot.ID, &lot.Name,
		&lot.Location, &lot.WidthM, &lot.HeightM, &lot.Latitude, &lot.Longitude,
		&lot.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("querying lot by id: %w", err)
	}
	return &lot, nil
}

// CreateLot inserts a new lot and populates its generated ID.
func (r *SQLiteRepository) CreateLot(ctx context.Context, lot *Lot) error {
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO lots (name, location, width_m, height_m, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, lot.Name, lot.Location,
		lot.WidthM, lot.HeightM, lot.Latitude, lot.Longitude, lot.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting lot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading lot id: %w", err)
	}
	lot.ID = id
	return nil
}

// CountLots returns the total number of lots.
func (r *SQLiteRepository) CountLots(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lots`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting lots: %w", err)
	}
	return count, nil
}

// ListNodes retrieves all graph nodes belonging to a lot.
func (r *SQLiteRepository) ListNodes(ctx context.Context, lotID int64) ([]graph.Node, error) {
	query := `
		SELECT id, lot_id, type, x, y, orientation, status, label, expires_at
		FROM graph_nodes
		WHERE lot_id = ?
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var nodes []graph.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// ListEdges retrieves all graph edges belonging to a lot.
func (r *SQLiteRepository) ListEdges(ctx context.Context, lotID int64) ([]graph.Edge, error) {
	query := `
		SELECT from_node_id, to_node_id, length_m, weight, status, bidirectional
		FROM graph_edges
		WHERE lot_id = ?
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.From, &e.To, &e.LengthM, &e.Weight,
			&e.Status, &e.Bidirectional); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetNode retrieves a single node by ID.
func (r *SQLiteRepository) GetNode(ctx context.Context, nodeID int64) (*graph.Node, error) {
	query := `
		SELECT id, lot_id, type, x, y, orientation, status, label, expires_at
		FROM graph_nodes
		WHERE id = ?`

	node, err := scanNode(r.db.QueryRowContext(ctx, query, nodeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("querying node by id: %w", err)
	}
	return node, nil
}

// CreateNode inserts a new node with an explicit ID.
func (r *SQLiteRepository) CreateNode(ctx context.Context, node *graph.Node) error {
	query := `
		INSERT INTO graph_nodes (id, lot_id, type, x, y, orientation, status, label, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, node.ID, node.LotID,
		string(node.Type), node.X, node.Y, nullableFloat(node.Orientation),
		string(node.Status), nullableString(node.Label), nullableTime(node.ExpiresAt))
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

// CreateEdge inserts a new edge for a lot.
func (r *SQLiteRepository) CreateEdge(ctx context.Context, lotID int64, edge *graph.Edge) error {
	query := `
		INSERT INTO graph_edges (lot_id, from_node_id, to_node_id, length_m, weight, status, bidirectional)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, lotID, edge.From, edge.To,
		edge.LengthM, edge.Weight, string(edge.Status), edge.Bidirectional)
	if err != nil {
		return fmt.Errorf("inserting edge: %w", err)
	}
	return nil
}

// UpdateNodeStatus updates only the status and expiry of a node.
func (r *SQLiteRepository) UpdateNodeStatus(ctx context.Context, nodeID int64, status graph.NodeStatus, expiresAt *time.Time) error {
	query := `
		UPDATE graph_nodes
		SET status = ?, expires_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), nullableTime(expiresAt), nodeID)
	if err != nil {
		return fmt.Errorf("updating node status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrNodeNotFound
	}
	return nil
}

// ListReservedNodes retrieves all nodes currently RESERVED, across lots.
func (r *SQLiteRepository) ListReservedNodes(ctx context.Context) ([]graph.Node, error) {
	query := `
		SELECT id, lot_id, type, x, y, orientation, status, label, expires_at
		FROM graph_nodes
		WHERE status = ?
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, string(graph.StatusReserved))
	if err != nil {
		return nil, fmt.Errorf("querying reserved nodes: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var nodes []graph.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

// scanNode scans a node row including its nullable columns.
func scanNode(row scanner) (*graph.Node, error) {
	var (
		node        graph.Node
		nodeType    string
		status      string
		orientation sql.NullFloat64
		label       sql.NullString
		expiresAt   sql.NullTime
	)

	err := row.Scan(&node.ID, &node.LotID, &nodeType, &node.X, &node.Y,
		&orientation, &status, &label, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}

	node.Type = graph.NodeType(nodeType)
	node.Status = graph.NodeStatus(status)
	if orientation.Valid {
		node.Orientation = &orientation.Float64
	}
	if label.Valid {
		node.Label = &label.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		node.ExpiresAt = &t
	}
	return &node, nil
}

// nullableString converts a string pointer to a NULL-able SQL value.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullableFloat converts a float pointer to a NULL-able SQL value.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// nullableTime converts a time pointer to a NULL-able SQL value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
