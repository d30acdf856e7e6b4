package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/epicvibe/platform/internal/auth"
	"github.com/epicvibe/platform/internal/relay"
)

const eventPing = 30 * time.Second

// handleEvents streams relay events as server-sent events for clients that
// cannot hold a WebSocket open. A valid token adds the user's private topics;
// anything else gets the public feed.
func handleEvents(hub *relay.Hub, authn Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, r, http.StatusInternalServerError, "Streaming not supported", nil)
			return
		}

		u := relay.NewGuest()
		token := r.URL.Query().Get("token")
		if token == "" {
			token = auth.BearerToken(r.Header.Get("Authorization"))
		}
		if token != "" {
			if user, err := authn.Verify(token); err == nil {
				u = user
			}
		}

		ch, stop := hub.Listen(u)
		defer stop()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(eventPing)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				var env relay.Envelope
				if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
