package occupancy

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the events table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE occupancy_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lot_id INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
		CREATE INDEX idx_occupancy_events_timestamp ON occupancy_events(timestamp);
		CREATE INDEX idx_occupancy_events_lot_id ON occupancy_events(lot_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func record(t *testing.T, repo *SQLiteRepository, lotID int64, ts time.Time) {
	t.Helper()
	if err := repo.Record(context.Background(), lotID, 1, ts); err != nil {
		t.Fatalf("recording event: %v", err)
	}
}

func TestHourlyForDate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	record(t, repo, 1, day.Add(9*time.Hour))
	record(t, repo, 1, day.Add(9*time.Hour+30*time.Minute))
	record(t, repo, 1, day.Add(17*time.Hour))
	record(t, repo, 1, day.AddDate(0, 0, 1)) // next day, out of range

	counts, err := repo.HourlyForDate(context.Background(), day, nil)
	if err != nil {
		t.Fatalf("HourlyForDate: %v", err)
	}

	if len(counts) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(counts))
	}
	if counts[9].Time != "09:00" || counts[9].Used != 2 {
		t.Errorf("unexpected 09:00 bucket %+v", counts[9])
	}
	if counts[17].Used != 1 {
		t.Errorf("unexpected 17:00 bucket %+v", counts[17])
	}
	if counts[0].Used != 0 {
		t.Errorf("empty bucket should be zero, got %+v", counts[0])
	}
}

func TestHourlyForDateLotFilter(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	record(t, repo, 1, day.Add(9*time.Hour))
	record(t, repo, 2, day.Add(9*time.Hour))

	lot := int64(2)
	counts, err := repo.HourlyForDate(context.Background(), day, &lot)
	if err != nil {
		t.Fatalf("HourlyForDate: %v", err)
	}
	if counts[9].Used != 1 {
		t.Errorf("lot filter not applied, got %+v", counts[9])
	}
}

func TestDailyRange(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	record(t, repo, 1, start.Add(10*time.Hour))
	record(t, repo, 1, start.AddDate(0, 0, 2).Add(8*time.Hour))

	counts, err := repo.DailyRange(context.Background(), start, start.AddDate(0, 0, 2), nil)
	if err != nil {
		t.Fatalf("DailyRange: %v", err)
	}

	if len(counts) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(counts))
	}
	if counts[0].Date != "2026-03-01" || counts[0].Used != 1 {
		t.Errorf("unexpected first bucket %+v", counts[0])
	}
	if counts[1].Used != 0 {
		t.Errorf("expected empty middle bucket, got %+v", counts[1])
	}
	if counts[2].Used != 1 {
		t.Errorf("unexpected last bucket %+v", counts[2])
	}
}

func TestDailyRangeInverted(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	counts, err := repo.DailyRange(context.Background(), start, start.AddDate(0, 0, -1), nil)
	if err != nil {
		t.Fatalf("DailyRange: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("inverted range should be empty, got %d buckets", len(counts))
	}
}

func TestMonthlyRange(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	record(t, repo, 1, time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC))
	record(t, repo, 1, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC))
	record(t, repo, 1, time.Date(2026, 1, 21, 9, 0, 0, 0, time.UTC))

	counts, err := repo.MonthlyRange(context.Background(),
		time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), // mid-month start normalises down
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("MonthlyRange: %v", err)
	}

	if len(counts) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(counts))
	}
	if counts[0].Month != "2025-11" || counts[0].Used != 1 {
		t.Errorf("unexpected first bucket %+v", counts[0])
	}
	if counts[1].Month != "2025-12" || counts[1].Used != 0 {
		t.Errorf("unexpected middle bucket %+v", counts[1])
	}
	if counts[2].Month != "2026-01" || counts[2].Used != 2 {
		t.Errorf("unexpected last bucket %+v", counts[2])
	}
}
