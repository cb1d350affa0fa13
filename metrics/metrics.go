// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "votechess"

// Label values
const (
	RoundWinner = "winner"
	RoundResign = "resign"
	RoundEmpty  = "empty"
	RoundTie    = "tie"

	VoteAccepted = "accepted"
	VoteClosed   = "closed"
	VoteIllegal  = "illegal"

	ChallengeAccepted = "accepted"
	ChallengeDeclined = "declined"
	ChallengeQueued   = "queued"
	ChallengeCanceled = "canceled"
	ChallengeFailed   = "failed"
)

// Metrics holds every collector the bot exports
type Metrics struct {
	rounds       *prometheus.CounterVec
	votes        *prometheus.CounterVec
	challenges   *prometheus.CounterVec
	games        *prometheus.CounterVec
	remoteErrors *prometheus.CounterVec
	connections  prometheus.Gauge
	dropped      prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_total",
				Help:      "number of voting rounds resolved, by result",
			},
			[]string{"result"},
		),
		votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "number of vote submissions, by outcome",
			},
			[]string{"outcome"},
		),
		challenges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "challenges_total",
				Help:      "number of challenges handled, by action",
			},
			[]string{"action"},
		),
		games: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_finished_total",
				Help:      "number of games finished, by final status",
			},
			[]string{"status"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "number of failed calls to the game server, by operation",
			},
			[]string{"op"},
		),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_connections",
			Help:      "number of open websocket connections",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_dropped_messages_total",
			Help:      "number of messages dropped for slow websocket clients",
		}),
	}

	err := errors.Join(
		reg.Register(m.rounds),
		reg.Register(m.votes),
		reg.Register(m.challenges),
		reg.Register(m.games),
		reg.Register(m.remoteErrors),
		reg.Register(m.connections),
		reg.Register(m.dropped),
	)
	return m, err
}

// NewUnregistered is for tests and callers that do not export metrics
func NewUnregistered() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}

func (m *Metrics) Round(result string) {
	m.rounds.WithLabelValues(result).Inc()
}

func (m *Metrics) Vote(outcome string) {
	m.votes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Challenge(action string) {
	m.challenges.WithLabelValues(action).Inc()
}

func (m *Metrics) GameFinished(status string) {
	m.games.WithLabelValues(status).Inc()
}

func (m *Metrics) RemoteError(op string) {
	m.remoteErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }

func (m *Metrics) ConnectionClosed() { m.connections.Dec() }

func (m *Metrics) MessageDropped() { m.dropped.Inc() }
