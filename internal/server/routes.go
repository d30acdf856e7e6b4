package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	requireUser := authenticate(deps.Auth, !deps.Production, logger)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("EpicVibe API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Get("/", handleListGames(deps.Games))
			r.Get("/trending", handleTrendingGames(deps.Games))
			r.Get("/styles", handleGameStyles(deps.Games))
			r.Get("/types", handleGameTypes(deps.Games))
			r.Get("/user/{userID}", handleUserGames(deps.Games))
			r.Get("/{id}", handleGetGame(deps.Games))

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/generate", handleGenerateGame(deps.Games))
				r.Post("/", handlePublishGame(deps.Games))
				r.Put("/{id}", handleUpdateGame(deps.Games))
				r.Delete("/{id}", handleDeleteGame(deps.Games))
				r.Post("/{id}/play", handlePlayGame(deps.Games))
				r.Post("/{id}/like", handleLikeGame(deps.Games))
				r.Post("/{id}/share", handleShareGame(deps.Games))
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", handleLogin(deps.Auth, logger))
			r.With(requireUser).Get("/me", handleMe())
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/balance", handleBalance(deps.Ledger))
			r.Get("/history", handleHistory(deps.Ledger))
			r.Post("/purchase", handlePurchase(deps.Ledger))
		})

		if deps.Hub != nil {
			r.Get("/events", handleEvents(deps.Hub, deps.Auth))
		}

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusNotFound, "Not Found - "+r.URL.Path, nil)
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		} else {
			logger.Warn("SPA directory not found, client routes disabled", "dir", deps.SPADir)
		}
	}
}
