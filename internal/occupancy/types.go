package occupancy

// HourlyCount is one hour bucket of a single day, time formatted "HH:00".
type HourlyCount struct {
	Time string `json:"time"`
	Used int    `json:"used"`
}

// DailyCount is one day bucket, date formatted "YYYY-MM-DD".
type DailyCount struct {
	Date string `json:"date"`
	Used int    `json:"used"`
}

// MonthlyCount is one month bucket, month formatted "YYYY-MM".
type MonthlyCount struct {
	Month string `json:"month"`
	Used  int    `json:"used"`
}
