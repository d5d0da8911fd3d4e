package carbon

import "time"

// Saving is one recorded carbon saving event.
type Saving struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	LotID             int64     `json:"lot_id"`
	RouteLengthSavedM float64   `json:"route_length_saved_m"`
	CO2SavedG         float64   `json:"co2_saved_g"`
	MoneySavedUSD     float64   `json:"money_saved_usd"`
	CreatedAt         time.Time `json:"created_at"`
}

// SavingInput is the request to record a saving.
type SavingInput struct {
	UserID            string  `json:"user_id"`
	LotID             int64   `json:"lot_id"`
	DistanceTraveledM float64 `json:"distance_traveled_m"`
}

// UserTotal is a user's lifetime savings.
type UserTotal struct {
	UserID             string  `json:"user_id"`
	TotalCO2SavedKG    float64 `json:"total_co2_saved_kg"`
	TotalMoneySavedUSD float64 `json:"total_money_saved_usd"`
}

// Contributor is one user's share of a lot's savings on a date.
type Contributor struct {
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	TotalCO2SavedKG    float64 `json:"total_co2_saved_kg"`
	TotalMoneySavedUSD float64 `json:"total_money_saved_usd"`
}

// LotSummary aggregates a lot's savings for one date.
type LotSummary struct {
	LotID              int64         `json:"lot_id"`
	Date               string        `json:"date"`
	TotalCO2SavedKG    float64       `json:"total_co2_saved_kg"`
	TotalMoneySavedUSD float64       `json:"total_money_saved_usd"`
	Contributors       []Contributor `json:"contributors"`
}
