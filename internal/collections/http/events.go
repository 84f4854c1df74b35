package collectionshttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

// eventBuffer bounds the changes waiting for one stream. Pages only need to
// know that something changed, so overflow is dropped.
const eventBuffer = 16

// handleEvents streams action changes as server-sent events.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.changes == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter := changes.All
	if raw := strings.TrimSpace(r.URL.Query().Get("division")); raw != "" {
		division, err := collections.ParseDivision(raw)
		if err != nil {
			http.Error(w, "invalid division", http.StatusBadRequest)
			return
		}
		filter = changes.ForDivision(division)
	}

	events := make(chan changes.Change, eventBuffer)
	unsubscribe := h.changes.Subscribe(filter, func(c changes.Change) {
		select {
		case events <- c:
		default:
		}
	})
	defer unsubscribe()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "retry: 5000\n: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case c := <-events:
			payload, err := json.Marshal(c)
			if err != nil {
				h.logError("encode change", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: change\ndata: %s\n\n", c.ID, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
