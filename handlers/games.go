// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/votechess/middleware"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/store"
)

// MaxGamesLimit caps ?limit on GET /games
const MaxGamesLimit = 100

// GameLister reads played games
type GameLister interface {
	Game(ctx context.Context, gameID string) (models.GameRecord, error)
	RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error)
}

type GamesHandler struct {
	games GameLister
}

func NewGamesHandler(games GameLister) *GamesHandler {
	return &GamesHandler{games: games}
}

// ListGames handles GET /games?limit=N
// Returns the most recent games first
func (h *GamesHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxGamesLimit)
	}

	games, err := h.games.RecentGames(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list games", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GamesResponse{Games: games})
}

// GetGame handles GET /games/{id}
func (h *GamesHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if gameID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	rec, err := h.games.Game(r.Context(), gameID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to load game", "game_id", gameID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, rec)
}
