package api

import (
	"net/http"
	"time"
)

// dateLayout is the query parameter date format.
const dateLayout = "2006-01-02"

// queryDate parses a required YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, r.URL.Query().Get(name))
	return t, err == nil
}

// queryLotFilter parses the optional lot_id query parameter. Returns nil
// when absent (all lots) and false on a malformed value.
func queryLotFilter(r *http.Request) (*int64, bool) {
	if r.URL.Query().Get("lot_id") == "" {
		return nil, true
	}
	id, ok := queryInt64(r, "lot_id")
	if !ok {
		return nil, false
	}
	return &id, true
}

// handleOccupancyHourly returns 24 hour buckets for one calendar date.
func (s *Server) handleOccupancyHourly(w http.ResponseWriter, r *http.Request) {
	if s.occupancy == nil {
		writeInternalError(w, "occupancy store not configured")
		return
	}

	date, ok := queryDate(r, "date")
	if !ok {
		writeBadRequest(w, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	lotID, ok := queryLotFilter(r)
	if !ok {
		writeBadRequest(w, "invalid lot_id")
		return
	}

	counts, err := s.occupancy.HourlyForDate(r.Context(), date, lotID)
	if err != nil {
		s.logger.Error("hourly occupancy query failed", "error", err)
		writeInternalError(w, "failed to aggregate occupancy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date": date.Format(dateLayout),
		"data": counts,
	})
}

// handleOccupancyDaily returns one bucket per day over an inclusive range.
func (s *Server) handleOccupancyDaily(w http.ResponseWriter, r *http.Request) {
	if s.occupancy == nil {
		writeInternalError(w, "occupancy store not configured")
		return
	}

	start, okStart := queryDate(r, "start")
	end, okEnd := queryDate(r, "end")
	if !okStart || !okEnd {
		writeBadRequest(w, "start and end query parameters are required (YYYY-MM-DD)")
		return
	}
	if end.Before(start) {
		writeBadRequest(w, "end must not be before start")
		return
	}
	lotID, ok := queryLotFilter(r)
	if !ok {
		writeBadRequest(w, "invalid lot_id")
		return
	}

	counts, err := s.occupancy.DailyRange(r.Context(), start, end, lotID)
	if err != nil {
		s.logger.Error("daily occupancy query failed", "error", err)
		writeInternalError(w, "failed to aggregate occupancy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": start.Format(dateLayout),
		"end":   end.Format(dateLayout),
		"data":  counts,
	})
}

// handleOccupancyMonthly returns one bucket per month over an inclusive range.
func (s *Server) handleOccupancyMonthly(w http.ResponseWriter, r *http.Request) {
	if s.occupancy == nil {
		writeInternalError(w, "occupancy store not configured")
		return
	}

	start, okStart := queryDate(r, "start")
	end, okEnd := queryDate(r, "end")
	if !okStart || !okEnd {
		writeBadRequest(w, "start and end query parameters are required (YYYY-MM-DD)")
		return
	}
	if end.Before(start) {
		writeBadRequest(w, "end must not be before start")
		return
	}
	lotID, ok := queryLotFilter(r)
	if !ok {
		writeBadRequest(w, "invalid lot_id")
		return
	}

	counts, err := s.occupancy.MonthlyRange(r.Context(), start, end, lotID)
	if err != nil {
		s.logger.Error("monthly occupancy query failed", "error", err)
		writeInternalError(w, "failed to aggregate occupancy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": start.Format(dateLayout),
		"end":   end.Format(dateLayout),
		"data":  counts,
	})
}
