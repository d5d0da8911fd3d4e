package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parkpilot/parkpilot-core/internal/routing"
)

// defaultReservationTTL applies when a reserve request omits the ttl
// parameter.
const defaultReservationTTL = 30 * time.Second

// defaultAlternativeRoutes applies when num_routes is omitted.
const defaultAlternativeRoutes = 3

// maxAlternativeRoutes caps the alternative-route enumeration so one
// request cannot trigger unbounded Yen expansion.
const maxAlternativeRoutes = 10

// lotIDParam parses the {lotID} route parameter.
func lotIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "lotID"), 10, 64)
	return id, err == nil
}

// queryInt64 parses a required int64 query parameter.
func queryInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v, err == nil
}

// handleMultiLotSummary returns identity and live spot counts for every lot.
func (s *Server) handleMultiLotSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.parking.LotSummaries(r.Context())
	if err != nil {
		s.logger.Error("lot summary failed", "error", err)
		writeInternalError(w, "failed to summarise lots")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleNearestLot returns the lot closest to the given coordinates.
func (s *Server) handleNearestLot(w http.ResponseWriter, r *http.Request) {
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if errLon != nil || errLat != nil {
		writeBadRequest(w, "longitude and latitude query parameters are required")
		return
	}

	summary, err := s.parking.ClosestLot(r.Context(), lon, lat)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleLotNodes returns every node in a lot plus derived grid dimensions.
func (s *Server) handleLotNodes(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}

	nodes, err := s.parking.Nodes(lotID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// handleRoadEdges returns the lot's ROAD-to-ROAD edges in listing order.
func (s *Server) handleRoadEdges(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}

	edges, err := s.parking.RoadEdges(lotID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lot_id": lotID,
		"edges":  edges,
	})
}

// handleRoute returns the shortest route between two nodes.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}
	start, okStart := queryInt64(r, "start")
	end, okEnd := queryInt64(r, "end")
	if !okStart || !okEnd {
		writeBadRequest(w, "start and end query parameters are required")
		return
	}

	route, err := s.parking.Route(lotID, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// handleAlternativeRoutes returns up to num_routes alternative routes in
// non-decreasing weight order.
func (s *Server) handleAlternativeRoutes(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}
	start, okStart := queryInt64(r, "start")
	end, okEnd := queryInt64(r, "end")
	if !okStart || !okEnd {
		writeBadRequest(w, "start and end query parameters are required")
		return
	}

	k := defaultAlternativeRoutes
	if raw := r.URL.Query().Get("num_routes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "num_routes must be a positive integer")
			return
		}
		k = parsed
	}
	if k > maxAlternativeRoutes {
		k = maxAlternativeRoutes
	}

	routes, err := s.parking.AlternativeRoutes(lotID, start, end, k)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lot_id": lotID,
		"routes": routes,
	})
}

// handleRouteToExit returns the shortest route to the nearest exit.
func (s *Server) handleRouteToExit(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}
	current, okCur := queryInt64(r, "current_node")
	if !okCur {
		writeBadRequest(w, "current_node query parameter is required")
		return
	}

	route, err := s.parking.RouteToExit(lotID, current)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// handleFindSpot recommends the nearest available spot from an entrance.
// Optional orientation and label parameters narrow the candidate set to
// exact matches, falling back to the unfiltered set when nothing matches.
func (s *Server) handleFindSpot(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}
	entrance, okEnt := queryInt64(r, "entrance_id")
	if !okEnt {
		writeBadRequest(w, "entrance_id query parameter is required")
		return
	}

	var prefs routing.Preferences
	if raw := r.URL.Query().Get("orientation"); raw != "" {
		orientation, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeBadRequest(w, "orientation must be a number")
			return
		}
		prefs.Orientation = &orientation
	}
	if raw := r.URL.Query().Get("label"); raw != "" {
		prefs.Label = &raw
	}

	spot, err := s.parking.FindSpot(lotID, entrance, prefs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

// validatePathRequest is the request body for POST /parking/{lotID}/validate-path.
type validatePathRequest struct {
	NodeIDs []int64 `json:"node_ids"`
}

// handleValidatePath checks whether a node sequence is currently drivable.
func (s *Server) handleValidatePath(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}

	var req validatePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.NodeIDs) == 0 {
		writeBadRequest(w, "node_ids must not be empty")
		return
	}

	validation, err := s.parking.ValidatePath(lotID, req.NodeIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validation)
}

// handleUpdateStatus runs one guarded spot status transition.
//
// Query parameters: node_id (required), status (required: RESERVED,
// OCCUPIED or AVAILABLE), ttl (seconds; reserve only, defaults to 30).
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	lotID, ok := lotIDParam(r)
	if !ok {
		writeBadRequest(w, "invalid lot id")
		return
	}
	nodeID, okNode := queryInt64(r, "node_id")
	if !okNode {
		writeBadRequest(w, "node_id query parameter is required")
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		writeBadRequest(w, "status query parameter is required")
		return
	}

	ttl := defaultReservationTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 1 {
			writeBadRequest(w, "ttl must be a positive number of seconds")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	result, err := s.parking.UpdateNodeStatus(r.Context(), lotID, nodeID, status, ttl)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
