// Package realtime serves the WebSocket endpoint of the relay.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/epicvibe/platform/internal/auth"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/relay"
)

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(token string) (epicvibe.User, error)
}

type Handler struct {
	hub      *relay.Hub
	verifier Verifier
	logger   *slog.Logger
	lifetime time.Duration
}

func NewHandler(logger *slog.Logger, hub *relay.Hub, verifier Verifier) *Handler {
	return &Handler{hub: hub, verifier: verifier, logger: logger, lifetime: time.Hour}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.serve)
	return r
}

// identify binds the connection to the token's user, or a fresh guest when
// the token is absent or unusable.
func (h *Handler) identify(r *http.Request) epicvibe.User {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return relay.NewGuest()
	}

	u, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Info("websocket auth failed, connecting as guest", "error", err)
		return relay.NewGuest()
	}
	return u
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	user := h.identify(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(r.Context(), h.lifetime)
	defer cancel()

	client := h.hub.Join(user)
	defer h.hub.Leave(client)

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-client.Messages():
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					h.logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}()

	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			h.logger.Debug("websocket read ended", "session", client.Session.ID, "error", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.hub.HandleMessage(client, msg)
	}
}
