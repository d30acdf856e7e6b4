package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/catalog"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/game"
	"github.com/epicvibe/platform/internal/generate"
)

// GameResponse is the data of every single-game response.
type GameResponse struct {
	Game epicvibe.Game `json:"game"`
}

// GameListResponse is the data of GET /api/games.
type GameListResponse struct {
	Games  []epicvibe.Game `json:"games"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// GameCollectionResponse is the data of the user and trending listings.
type GameCollectionResponse struct {
	Games []epicvibe.Game `json:"games"`
	Total int             `json:"total"`
}

// PublishRequest is the body of POST /api/games.
type PublishRequest struct {
	GameID string `json:"gameId"`
}

// PublishResponse carries the creation reward on first publish.
type PublishResponse struct {
	Game        epicvibe.Game         `json:"game"`
	Transaction *epicvibe.RewardEvent `json:"transaction,omitempty"`
}

// RewardResponse is the data of play, like, and share.
type RewardResponse struct {
	Game        epicvibe.Game        `json:"game"`
	Reward      *decimal.Decimal     `json:"reward,omitempty"`
	Transaction epicvibe.RewardEvent `json:"transaction"`
}

// ShareRequest is the body of POST /api/games/{id}/share.
type ShareRequest struct {
	Platform string `json:"platform"`
}

type StyleItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Background  string   `json:"background"`
}

type TypeItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Mechanics   []string `json:"mechanics"`
}

type StylesResponse struct {
	Styles []StyleItem `json:"styles"`
}

type TypesResponse struct {
	Types []TypeItem `json:"types"`
}

// writeGameError renders the not-found and permission messages for a game
// operation; action is the verb used in the permission message.
func writeGameError(w http.ResponseWriter, r *http.Request, err error, id, action string) {
	switch {
	case errors.Is(err, epicvibe.ErrNotFound):
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("Game with ID %s not found", id), nil)
	case errors.Is(err, epicvibe.ErrForbidden):
		writeError(w, r, http.StatusForbidden, fmt.Sprintf("You do not have permission to %s this game", action), nil)
	default:
		writeFailure(w, r, err, fmt.Sprintf("Failed to %s game", action))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", key, epicvibe.ErrValidation)
	}
	return n, nil
}

func nonNil(games []epicvibe.Game) []epicvibe.Game {
	if games == nil {
		return []epicvibe.Game{}
	}
	return games
}

func handleListGames(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(r, "limit", 20)
		if err != nil {
			writeFailure(w, r, err, "")
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeFailure(w, r, err, "")
			return
		}
		sort, ok := catalog.ParseSort(q.Get("sort"))
		if !ok {
			writeError(w, r, http.StatusBadRequest, "Sort must be recent, popular, or trending", nil)
			return
		}

		games, total, err := svc.List(r.Context(), catalog.ListOptions{
			Filter: catalog.Filter{
				Type:    q.Get("type"),
				Style:   q.Get("style"),
				Creator: q.Get("creator"),
			},
			Sort:   sort,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeFailure(w, r, err, "Failed to get games")
			return
		}
		// The catalog reads Limit 0 as uncapped; limit=0 on the wire asks for
		// an empty page with the total.
		if limit == 0 {
			games = nil
		}

		writeData(w, http.StatusOK, GameListResponse{
			Games:  nonNil(games),
			Total:  total,
			Limit:  limit,
			Offset: offset,
		}, "")
	}
}

func handleGetGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		g, err := svc.Get(r.Context(), id)
		if err != nil {
			writeGameError(w, r, err, id, "get")
			return
		}
		writeData(w, http.StatusOK, GameResponse{Game: g}, "")
	}
}

func handleGenerateGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.GenerateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		g, err := svc.Generate(r.Context(), userFrom(r), req)
		if err != nil {
			writeFailure(w, r, err, "Failed to generate game")
			return
		}
		writeData(w, http.StatusCreated, GameResponse{Game: g}, "")
	}
}

func handlePublishGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublishRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.GameID == "" {
			writeError(w, r, http.StatusBadRequest, "Game ID is required", nil)
			return
		}

		res, err := svc.Publish(r.Context(), userFrom(r), req.GameID)
		if err != nil {
			writeGameError(w, r, err, req.GameID, "save")
			return
		}

		msg := "Game published successfully"
		if res.Transaction != nil {
			msg = fmt.Sprintf("Game published successfully and earned %s $EPIC tokens!", game.CreationReward)
		}
		writeData(w, http.StatusOK, PublishResponse{Game: res.Game, Transaction: res.Transaction}, msg)
	}
}

func handleUpdateGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch catalog.Patch
		if err := readJSON(r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		g, err := svc.Update(r.Context(), userFrom(r), id, patch)
		if err != nil {
			writeGameError(w, r, err, id, "update")
			return
		}
		writeData(w, http.StatusOK, GameResponse{Game: g}, "Game updated successfully")
	}
}

func handleDeleteGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		g, err := svc.Delete(r.Context(), userFrom(r), id)
		if err != nil {
			writeGameError(w, r, err, id, "delete")
			return
		}
		writeData(w, http.StatusOK, GameResponse{Game: g}, "Game deleted successfully")
	}
}

func handlePlayGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := svc.Play(r.Context(), userFrom(r), id)
		if err != nil {
			writeGameError(w, r, err, id, "play")
			return
		}
		writeData(w, http.StatusOK, RewardResponse{Game: res.Game, Reward: &res.Reward, Transaction: res.Transaction},
			fmt.Sprintf("Earned %s $EPIC tokens for playing!", res.Reward))
	}
}

func handleLikeGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := svc.Like(r.Context(), userFrom(r), id)
		if err != nil {
			writeGameError(w, r, err, id, "like")
			return
		}
		writeData(w, http.StatusOK, RewardResponse{Game: res.Game, Transaction: res.Transaction},
			fmt.Sprintf("You liked the game! Creator earned %s $EPIC tokens.", res.Reward))
	}
}

func handleShareGame(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		// The body is optional.
		var req ShareRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		res, err := svc.Share(r.Context(), userFrom(r), id, req.Platform)
		if err != nil {
			writeGameError(w, r, err, id, "share")
			return
		}
		writeData(w, http.StatusOK, RewardResponse{Game: res.Game, Reward: &res.Reward, Transaction: res.Transaction},
			fmt.Sprintf("Earned %s $EPIC tokens for sharing!", res.Reward))
	}
}

func handleUserGames(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := svc.ListUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeFailure(w, r, err, "Failed to get user games")
			return
		}
		writeData(w, http.StatusOK, GameCollectionResponse{Games: nonNil(games), Total: len(games)}, "")
	}
}

func handleTrendingGames(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", game.DefaultTrendingSize)
		if err != nil {
			writeFailure(w, r, err, "")
			return
		}
		games, err := svc.Trending(r.Context(), limit)
		if err != nil {
			writeFailure(w, r, err, "Failed to get trending games")
			return
		}
		writeData(w, http.StatusOK, GameCollectionResponse{Games: nonNil(games), Total: len(games)}, "")
	}
}

func handleGameStyles(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []StyleItem
		for _, s := range svc.Styles() {
			items = append(items, styleItem(s))
		}
		writeData(w, http.StatusOK, StylesResponse{Styles: items}, "")
	}
}

func handleGameTypes(svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []TypeItem
		for _, t := range svc.Types() {
			items = append(items, TypeItem{
				ID:          t.Type,
				Name:        t.Type,
				Description: t.Description,
				Difficulty:  t.Difficulty,
				Mechanics:   t.Mechanics,
			})
		}
		writeData(w, http.StatusOK, TypesResponse{Types: items}, "")
	}
}

func styleItem(s generate.StyleTemplate) StyleItem {
	return StyleItem{
		ID:          s.Style,
		Name:        s.Style,
		Description: s.Description,
		Colors:      s.Colors,
		Background:  s.Background,
	}
}
