package carbon

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for carbon saving persistence.
type Repository interface {
	// AddSaving inserts one saving record.
	AddSaving(ctx context.Context, saving *Saving) error

	// TotalUserSavings sums a user's lifetime CO2 grams and money saved.
	// A user with no records returns zeros.
	TotalUserSavings(ctx context.Context, userID string) (co2G, moneyUSD float64, err error)

	// LotTotalsByDate sums a lot's CO2 grams and money saved on one date.
	LotTotalsByDate(ctx context.Context, lotID int64, date time.Time) (co2G, moneyUSD float64, err error)

	// LotContributorsByDate lists per-user savings for a lot on one date,
	// largest CO2 contribution first.
	LotContributorsByDate(ctx context.Context, lotID int64, date time.Time) ([]Contributor, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// AddSaving inserts one saving record.
func (r *SQLiteRepository) AddSaving(ctx context.Context, saving *Saving) error {
	if saving.CreatedAt.IsZero() {
		saving.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO carbon_savings (id, user_id, lot_id, route_length_saved_m, co2_saved_g, money_saved_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, saving.ID, saving.UserID,
		saving.LotID, saving.RouteLengthSavedM, saving.CO2SavedG,
		saving.MoneySavedUSD, saving.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting carbon saving: %w", err)
	}
	return nil
}

// TotalUserSavings sums a user's lifetime CO2 grams and money saved.
func (r *SQLiteRepository) TotalUserSavings(ctx context.Context, userID string) (float64, float64, error) {
	query := `
		SELECT COALESCE(SUM(co2_saved_g), 0), COALESCE(SUM(money_saved_usd), 0)
		FROM carbon_savings
		WHERE user_id = ?`

	var co2G, moneyUSD float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&co2G, &moneyUSD); err != nil {
		return 0, 0, fmt.Errorf("summing user savings: %w", err)
	}
	return co2G, moneyUSD, nil
}

// LotTotalsByDate sums a lot's CO2 grams and money saved on one date.
func (r *SQLiteRepository) LotTotalsByDate(ctx context.Context, lotID int64, date time.Time) (float64, float64, error) {
	start, end := dayBounds(date)

	query := `
		SELECT COALESCE(SUM(co2_saved_g), 0), COALESCE(SUM(money_saved_usd), 0)
		FROM carbon_savings
		WHERE lot_id = ? AND created_at >= ? AND created_at < ?`

	var co2G, moneyUSD float64
	if err := r.db.QueryRowContext(ctx, query, lotID, start, end).Scan(&co2G, &moneyUSD); err != nil {
		return 0, 0, fmt.Errorf("summing lot savings: %w", err)
	}
	return co2G, moneyUSD, nil
}

// LotContributorsByDate lists per-user savings for a lot on one date.
func (r *SQLiteRepository) LotContributorsByDate(ctx context.Context, lotID int64, date time.Time) ([]Contributor, error) {
	start, end := dayBounds(date)

	query := `
		SELECT u.id, u.name, SUM(cs.co2_saved_g), SUM(cs.money_saved_usd)
		FROM carbon_savings cs
		JOIN users u ON u.id = cs.user_id
		WHERE cs.lot_id = ? AND cs.created_at >= ? AND cs.created_at < ?
		GROUP BY u.id, u.name
		ORDER BY SUM(cs.co2_saved_g) DESC`

	rows, err := r.db.QueryContext(ctx, query, lotID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying contributors: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var contributors []Contributor
	for rows.Next() {
		var (
			c    Contributor
			co2G float64
		)
		if err := rows.Scan(&c.UserID, &c.UserName, &co2G, &c.TotalMoneySavedUSD); err != nil {
			return nil, fmt.Errorf("scanning contributor: %w", err)
		}
		c.TotalCO2SavedKG = co2G / 1000
		contributors = append(contributors, c)
	}
	return contributors, rows.Err()
}

// dayBounds returns the UTC half-open interval covering date's calendar day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
