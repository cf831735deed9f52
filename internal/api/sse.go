package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/ledger"
)

const keepAliveInterval = 25 * time.Second

// streamEvents pushes a family snapshot on connect and after every change
// until the client leaves or the family is disconnected.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Only the newest view matters; a slow client skips intermediate ones.
	updates := make(chan ledger.View, 1)
	cancel := store.Observe(func(v ledger.View) {
		select {
		case updates <- v:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- v:
			default:
			}
		}
	})
	defer cancel()

	if !writeEvent(w, flusher, "snapshot", toFamilyView(store.Snapshot())) {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case view := <-updates:
			if !writeEvent(w, flusher, "snapshot", toFamilyView(view)) {
				return
			}
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-store.Done():
			writeEvent(w, flusher, "disconnected", map[string]string{"family_id": store.FamilyID()})
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("event: " + name + "\ndata: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
