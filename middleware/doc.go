// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /state", middleware.WithLogging(handler))

Logs completion with method, path, status and duration_ms. The wrapped
writer can still be hijacked, so websocket upgrades pass through.

# CORS

Cross-origin reads are allowed from the configured origins:

	handler := middleware.CORS(cfg.AllowedOrigins)(mux)

An empty list allows any origin.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "message")

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used to key votes by address when connections are not trusted as voters.
*/
package middleware
