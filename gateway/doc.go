// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package gateway is the websocket endpoint voters connect to.

	hub := gateway.New(gateway.Options{Voter: orch, AllowedOrigins: origins})
	mux.Handle("GET /websocket", hub)

The Hub is also the orchestrator's Listener, so round updates reach every
open connection.

# Protocol

Server to client:

	{"type":"on-connect","data":{"clock":..., "state":..., "playing":..., "vote":..., "voteResults":...}}
	{"type":"vote-timer","data":<ms remaining>}
	{"type":"vote-results","data":{"votes":[...],"drawResults":{...}}}
	{"type":"game-ended"}

Client to server:

	{"type":"vote-cast","move":{"from":"e2","to":"e4"},"draw":false,"resign":false}

Malformed and illegal votes are dropped without a reply.

# Identity

Each connection votes as itself unless IdentifyByIP is set, in which case
every connection from one address shares a salted hash identity.

# Slow Clients

Every connection has a small send buffer. A broadcast that finds it full
skips that client and counts the drop.
*/
package gateway
