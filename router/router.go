// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/votechess/handlers"
	"github.com/danielhkuo/votechess/middleware"
)

// Deps are the pieces the routes are served from
type Deps struct {
	State    handlers.StatusSource
	Games    handlers.GameLister
	Gateway  http.Handler
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	stateHandler := handlers.NewStateHandler(deps.State)
	gamesHandler := handlers.NewGamesHandler(deps.Games)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voting connections
	mux.HandleFunc("GET /websocket", middleware.WithLogging(deps.Gateway.ServeHTTP))

	// Read-only state
	mux.HandleFunc("GET /state", middleware.WithLogging(stateHandler.GetState))
	mux.HandleFunc("GET /games", middleware.WithLogging(gamesHandler.ListGames))
	mux.HandleFunc("GET /games/{id}", middleware.WithLogging(gamesHandler.GetGame))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votechess API v1"))
	})

	return mux
}
