package occupancy

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for occupancy event persistence.
type Repository interface {
	// Record appends one occupancy event.
	Record(ctx context.Context, lotID, nodeID int64, ts time.Time) error

	// HourlyForDate returns 24 hour buckets for the given calendar date.
	HourlyForDate(ctx context.Context, date time.Time, lotID *int64) ([]HourlyCount, error)

	// DailyRange returns one bucket per day over an inclusive date range.
	DailyRange(ctx context.Context, start, end time.Time, lotID *int64) ([]DailyCount, error)

	// MonthlyRange returns one bucket per month over an inclusive range.
	MonthlyRange(ctx context.Context, start, end time.Time, lotID *int64) ([]MonthlyCount, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record appends one occupancy event.
func (r *SQLiteRepository) Record(ctx context.Context, lotID, nodeID int64, ts time.Time) error {
	query := `
		INSERT INTO occupancy_events (lot_id, node_id, timestamp)
		VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, lotID, nodeID, ts.UTC())
	if err != nil {
		return fmt.Errorf("inserting occupancy event: %w", err)
	}
	return nil
}

// HourlyForDate returns 24 hour buckets for the given calendar date.
func (r *SQLiteRepository) HourlyForDate(ctx context.Context, date time.Time, lotID *int64) ([]HourlyCount, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	counts := make([]HourlyCount, 0, 24)
	for h := 0; h < 24; h++ {
		start := day.Add(time.Duration(h) * time.Hour)
		used, err := r.countBetween(ctx, start, start.Add(time.Hour), lotID)
		if err != nil {
			return nil, err
		}
		counts = append(counts, HourlyCount{
			Time: fmt.Sprintf("%02d:00", h),
			Used: used,
		})
	}
	return counts, nil
}

// DailyRange returns one bucket per day over an inclusive date range.
func (r *SQLiteRepository) DailyRange(ctx context.Context, start, end time.Time, lotID *int64) ([]DailyCount, error) {
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var counts []DailyCount
	for !cur.After(last) {
		next := cur.AddDate(0, 0, 1)
		used, err := r.countBetween(ctx, cur, next, lotID)
		if err != nil {
			return nil, err
		}
		counts = append(counts, DailyCount{
			Date: cur.Format("2006-01-02"),
			Used: used,
		})
		cur = next
	}
	return counts, nil
}

// MonthlyRange returns one bucket per month over an inclusive range.
// Both bounds are normalised to the first of their month.
func (r *SQLiteRepository) MonthlyRange(ctx context.Context, start, end time.Time, lotID *int64) ([]MonthlyCount, error) {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var counts []MonthlyCount
	for !cur.After(last) {
		next := cur.AddDate(0, 1, 0)
		used, err := r.countBetween(ctx, cur, next, lotID)
		if err != nil {
			return nil, err
		}
		counts = append(counts, MonthlyCount{
			Month: cur.Format("2006-01"),
			Used:  used,
		})
		cur = next
	}
	return counts, nil
}

// countBetween counts events with start <= timestamp < end, optionally
// restricted to one lot.
func (r *SQLiteRepository) countBetween(ctx context.Context, start, end time.Time, lotID *int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM occupancy_events
		WHERE timestamp >= ? AND timestamp < ?`
	args := []any{start.UTC(), end.UTC()}

	if lotID != nil {
		query += ` AND lot_id = ?`
		args = append(args, *lotID)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting occupancy events: %w", err)
	}
	return count, nil
}
