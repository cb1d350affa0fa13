// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the votechess server.

# Route Registration

NewRouter creates a configured http.ServeMux from its dependencies:

	mux := router.NewRouter(router.Deps{
		State:    orch,
		Games:    store.New(db),
		Gateway:  hub,
		Gatherer: reg,
	})

# Endpoints

	GET /health      - Liveness
	GET /            - API banner
	GET /websocket   - Voting connection (see package gateway)
	GET /state       - Live game, round and queued challenges
	GET /games       - Recent games, newest first
	GET /games/{id}  - One game record
	GET /metrics     - Prometheus metrics

Everything except /health, / and /metrics is wrapped in request logging.
*/
package router
