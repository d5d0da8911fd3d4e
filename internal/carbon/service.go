package carbon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Emission model constants.
const (
	// co2GramsPerMetre is the CO2 emitted per metre of low-speed driving.
	co2GramsPerMetre = 0.192

	// moneyPerKgCO2 is the monetary value assigned to a kilogram of CO2.
	moneyPerKgCO2 = 0.05

	// baselineMinutes is how long an unguided driver circles for a spot.
	baselineMinutes = 5

	// averageSpeedMPerMin is the average lot driving speed (10 km/h).
	averageSpeedMPerMin = 166.67
)

// Logger is the logging interface used by the service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service computes and records carbon savings.
type Service struct {
	repo   Repository
	logger Logger
}

// NewService creates the carbon saving service. Pass nil for logger to
// disable logging.
func NewService(repo Repository, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{repo: repo, logger: logger}
}

// CalculateAndRecord derives the saving from the distance actually driven
// against the circling baseline and persists it. Driving further than the
// baseline saves nothing but is still recorded as a zero saving.
func (s *Service) CalculateAndRecord(ctx context.Context, input SavingInput) (*Saving, error) {
	baselineM := float64(baselineMinutes) * averageSpeedMPerMin
	savedM := baselineM - input.DistanceTraveledM
	if savedM < 0 {
		savedM = 0
	}

	co2SavedG := savedM * co2GramsPerMetre
	moneySaved := co2SavedG / 1000 * moneyPerKgCO2

	saving := &Saving{
		ID:                uuid.NewString(),
		UserID:            input.UserID,
		LotID:             input.LotID,
		RouteLengthSavedM: savedM,
		CO2SavedG:         co2SavedG,
		MoneySavedUSD:     moneySaved,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.repo.AddSaving(ctx, saving); err != nil {
		s.logger.Error("failed to record carbon saving",
			"user_id", input.UserID, "lot_id", input.LotID, "error", err)
		return nil, fmt.Errorf("recording saving: %w", err)
	}

	s.logger.Info("carbon saving recorded", "user_id", input.UserID,
		"lot_id", input.LotID, "co2_saved_g", co2SavedG)
	return saving, nil
}

// UserTotal returns a user's lifetime savings in kilograms and dollars.
func (s *Service) UserTotal(ctx context.Context, userID string) (*UserTotal, error) {
	co2G, moneyUSD, err := s.repo.TotalUserSavings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserTotal{
		UserID:             userID,
		TotalCO2SavedKG:    co2G / 1000,
		TotalMoneySavedUSD: moneyUSD,
	}, nil
}

// LotSummaryByDate returns a lot's savings and contributors for one date.
func (s *Service) LotSummaryByDate(ctx context.Context, lotID int64, date time.Time) (*LotSummary, error) {
	co2G, moneyUSD, err := s.repo.LotTotalsByDate(ctx, lotID, date)
	if err != nil {
		return nil, err
	}
	contributors, err := s.repo.LotContributorsByDate(ctx, lotID, date)
	if err != nil {
		return nil, err
	}
	return &LotSummary{
		LotID:              lotID,
		Date:               date.Format("2006-01-02"),
		TotalCO2SavedKG:    co2G / 1000,
		TotalMoneySavedUSD: moneyUSD,
		Contributors:       contributors,
	}, nil
}
