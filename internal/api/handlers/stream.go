package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/lifeos/internal/logger"
)

// streamSnapshots writes every snapshot from ch as a server-sent event until
// the client goes away.
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, ch <-chan []T) {
	log := logger.FromContext(r.Context())
	rc := http.NewResponseController(w)

	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Error().Err(err).Msg("Streaming not supported")
		return
	}

	for recs := range ch {
		if recs == nil {
			recs = []T{}
		}
		data, err := json.Marshal(recs)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode snapshot")
			return
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
