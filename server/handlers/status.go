package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusSource is the minimal view into the running daemon's tick loop and
// ingest pipeline that Status needs to render. No single service type
// satisfies it: the server package's statusSource adapter combines
// service.Ticker's LastTick with service.Ingest's QueueLen.
type StatusSource interface {
	LastTick() time.Time
	QueueLen() int
}

type statusResponse struct {
	LastTick    string `json:"last_tick,omitempty"`
	QueueLength int    `json:"queue_length"`
}

// Status answers /status with the daemon's last fired tick and the ingest
// pipeline's current backlog, for a human or a monitoring scrape — not
// authenticated, per SPEC_FULL.md's admin surface trust boundary.
func Status(source StatusSource, errorHandler *ErrorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{QueueLength: source.QueueLen()}
		if lt := source.LastTick(); !lt.IsZero() {
			resp.LastTick = lt.UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			errorHandler.WriteError(w, r, err, "encoding status response", http.StatusInternalServerError)
		}
	}
}
