// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exports prometheus counters for rounds, votes, challenges,
finished games, failed server calls, and websocket connections.

	m, err := metrics.New(prometheus.DefaultRegisterer)
	m.Round(metrics.RoundEmpty)

All names are prefixed with "votechess_". The router serves them at
/metrics.
*/
package metrics
