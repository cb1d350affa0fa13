// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votechess/middleware"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/orchestrator"
)

// StatusSource reports the live game and round
type StatusSource interface {
	Status(ctx context.Context) (models.StateResponse, error)
}

type StateHandler struct {
	src StatusSource
}

func NewStateHandler(src StatusSource) *StateHandler {
	return &StateHandler{src: src}
}

// GetState handles GET /state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.src.Status(r.Context())
	if errors.Is(err, orchestrator.ErrStopped) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Bot is shutting down")
		return
	}
	if err != nil {
		slog.Error("failed to read state", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "State unavailable")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, st)
}
