package carbon

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

// mockRepository is an in-memory Repository for service tests.
type mockRepository struct {
	mu      sync.Mutex
	savings []Saving
}

func (m *mockRepository) AddSaving(_ context.Context, saving *Saving) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savings = append(m.savings, *saving)
	return nil
}

func (m *mockRepository) TotalUserSavings(_ context.Context, userID string) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var co2G, moneyUSD float64
	for _, s := range m.savings {
		if s.UserID == userID {
			co2G += s.CO2SavedG
			moneyUSD += s.MoneySavedUSD
		}
	}
	return co2G, moneyUSD, nil
}

func (m *mockRepository) LotTotalsByDate(_ context.Context, lotID int64, date time.Time) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, end := dayBounds(date)
	var co2G, moneyUSD float64
	for _, s := range m.savings {
		if s.LotID == lotID && !s.CreatedAt.Before(start) && s.CreatedAt.Before(end) {
			co2G += s.CO2SavedG
			moneyUSD += s.MoneySavedUSD
		}
	}
	return co2G, moneyUSD, nil
}

func (m *mockRepository) LotContributorsByDate(_ context.Context, _ int64, _ time.Time) ([]Contributor, error) {
	return nil, nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCalculateAndRecord(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo, nil)

	// Baseline is 5 min at 166.67 m/min = 833.35 m; driving 233.35 m saves 600 m.
	saving, err := svc.CalculateAndRecord(context.Background(), SavingInput{
		UserID: "user-1", LotID: 1, DistanceTraveledM: 233.35,
	})
	if err != nil {
		t.Fatalf("CalculateAndRecord: %v", err)
	}

	if !almostEqual(saving.RouteLengthSavedM, 600) {
		t.Errorf("expected 600 m saved, got %v", saving.RouteLengthSavedM)
	}
	if !almostEqual(saving.CO2SavedG, 600*0.192) {
		t.Errorf("expected %v g CO2, got %v", 600*0.192, saving.CO2SavedG)
	}
	if !almostEqual(saving.MoneySavedUSD, 600*0.192/1000*0.05) {
		t.Errorf("unexpected money saved %v", saving.MoneySavedUSD)
	}
	if saving.ID == "" {
		t.Error("expected generated ID")
	}
	if len(repo.savings) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(repo.savings))
	}
}

func TestCalculateAndRecordClampsAtBaseline(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo, nil)

	saving, err := svc.CalculateAndRecord(context.Background(), SavingInput{
		UserID: "user-1", LotID: 1, DistanceTraveledM: 5000,
	})
	if err != nil {
		t.Fatalf("CalculateAndRecord: %v", err)
	}
	if saving.RouteLengthSavedM != 0 || saving.CO2SavedG != 0 || saving.MoneySavedUSD != 0 {
		t.Errorf("driving past the baseline must record zero saving, got %+v", saving)
	}
}

func TestUserTotal(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, distance := range []float64{100, 200} {
		if _, err := svc.CalculateAndRecord(ctx, SavingInput{
			UserID: "user-1", LotID: 1, DistanceTraveledM: distance,
		}); err != nil {
			t.Fatalf("CalculateAndRecord: %v", err)
		}
	}

	total, err := svc.UserTotal(ctx, "user-1")
	if err != nil {
		t.Fatalf("UserTotal: %v", err)
	}

	wantG := (833.35 - 100 + 833.35 - 200) * 0.192
	if !almostEqual(total.TotalCO2SavedKG, wantG/1000) {
		t.Errorf("expected %v kg, got %v", wantG/1000, total.TotalCO2SavedKG)
	}
}

func TestUserTotalEmpty(t *testing.T) {
	svc := NewService(&mockRepository{}, nil)

	total, err := svc.UserTotal(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("UserTotal: %v", err)
	}
	if total.TotalCO2SavedKG != 0 || total.TotalMoneySavedUSD != 0 {
		t.Errorf("expected zero totals, got %+v", total)
	}
}

func TestLotSummaryByDate(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.CalculateAndRecord(ctx, SavingInput{
		UserID: "user-1", LotID: 1, DistanceTraveledM: 433.35,
	}); err != nil {
		t.Fatalf("CalculateAndRecord: %v", err)
	}

	summary, err := svc.LotSummaryByDate(ctx, 1, time.Now().UTC())
	if err != nil {
		t.Fatalf("LotSummaryByDate: %v", err)
	}
	if !almostEqual(summary.TotalCO2SavedKG, 400*0.192/1000) {
		t.Errorf("unexpected summary CO2 %v", summary.TotalCO2SavedKG)
	}

	// A different date reports zero.
	summary, err = svc.LotSummaryByDate(ctx, 1, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("LotSummaryByDate: %v", err)
	}
	if summary.TotalCO2SavedKG != 0 {
		t.Errorf("expected zero for past date, got %v", summary.TotalCO2SavedKG)
	}
}
