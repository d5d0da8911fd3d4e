package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parkpilot/parkpilot-core/internal/auth"
	"github.com/parkpilot/parkpilot-core/internal/carbon"
)

// recordSavingRequest is the request body for POST /carbon-savings.
// The user is taken from the access token, never from the body.
type recordSavingRequest struct {
	LotID             int64   `json:"lot_id"`
	DistanceTraveledM float64 `json:"distance_traveled_m"`
}

// handleRecordSaving computes and stores the carbon saving for one guided
// route, credited to the calling user.
func (s *Server) handleRecordSaving(w http.ResponseWriter, r *http.Request) {
	if s.carbon == nil {
		writeInternalError(w, "carbon service not configured")
		return
	}

	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req recordSavingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.LotID <= 0 {
		writeBadRequest(w, "lot_id is required")
		return
	}
	if req.DistanceTraveledM < 0 {
		writeBadRequest(w, "distance_traveled_m must not be negative")
		return
	}

	saving, err := s.carbon.CalculateAndRecord(r.Context(), carbon.SavingInput{
		UserID:            claims.Subject,
		LotID:             req.LotID,
		DistanceTraveledM: req.DistanceTraveledM,
	})
	if err != nil {
		s.logger.Error("carbon saving record failed", "error", err)
		writeInternalError(w, "failed to record saving")
		return
	}
	writeJSON(w, http.StatusCreated, saving)
}

// handleUserSavings returns a user's lifetime carbon savings. Drivers can
// only read their own totals; admins can read anyone's.
func (s *Server) handleUserSavings(w http.ResponseWriter, r *http.Request) {
	if s.carbon == nil {
		writeInternalError(w, "carbon service not configured")
		return
	}

	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID != claims.Subject && claims.Role != auth.RoleAdmin {
		writeForbidden(w, "cannot read another user's savings")
		return
	}

	total, err := s.carbon.UserTotal(r.Context(), userID)
	if err != nil {
		s.logger.Error("user savings query failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to read savings")
		return
	}
	writeJSON(w, http.StatusOK, total)
}

// handleLotSavings returns a lot's savings and contributors for one date.
// The date query parameter defaults to today.
func (s *Server) handleLotSavings(w http.ResponseWriter, r *http.Request) {
	if s.carbon == nil {
		writeInternalError(w, "carbon service not configured")
		return
	}

	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeBadRequest(w, "date must be formatted YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := s.carbon.LotSummaryByDate(r.Context(), lotID, date)
	if err != nil {
		s.logger.Error("lot savings query failed", "lot_id", lotID, "error", err)
		writeInternalError(w, "failed to read savings")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
