package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleEvents streams spot status updates as Server-Sent Events.
//
// Each update is written as one `data: <json>` line followed by a blank
// line. When the stream has been idle for the configured heartbeat
// interval, a comment frame (`:` plus a blank line) is written so
// intermediaries do not drop the connection. An optional lot_id query
// parameter restricts the stream to one lot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	var lotFilter *int64
	if r.URL.Query().Get("lot_id") != "" {
		id, okLot := queryInt64(r, "lot_id")
		if !okLot {
			writeBadRequest(w, "invalid lot_id")
			return
		}
		lotFilter = &id
	}

	sub := s.bus.Subscribe(lotFilter)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := s.sseCfg.HeartbeatInterval
	if heartbeat < 1 {
		heartbeat = 15
	}
	ticker := time.NewTicker(time.Duration(heartbeat) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case update, okCh := <-sub.C():
			if !okCh {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				s.logger.Error("failed to marshal status update", "error", err)
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				return
			}
			flusher.Flush()
			ticker.Reset(time.Duration(heartbeat) * time.Second)

		case <-ticker.C:
			// Comment frame keeps an idle connection alive
			if _, err := w.Write([]byte(":\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
