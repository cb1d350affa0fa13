// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/votechess/auth"
	"github.com/danielhkuo/votechess/metrics"
	"github.com/danielhkuo/votechess/middleware"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/orchestrator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 32
	submitTimeout  = 5 * time.Second
)

// Voter is the part of the orchestrator the gateway talks to
type Voter interface {
	Snapshot(ctx context.Context, identity string) (models.OnConnect, error)
	SubmitVote(ctx context.Context, identity string, sub orchestrator.Submission) (models.VoteResults, error)
}

type Options struct {
	Voter   Voter
	Metrics *metrics.Metrics

	// AllowedOrigins restricts browser connections; empty allows any
	AllowedOrigins []string

	// IdentifyByIP keys votes by a salted hash of the client address
	// instead of by connection
	IdentifyByIP bool
	IdentitySalt string
}

// Hub holds the open connections and fans round updates out to them.
// It keeps no game or vote state.
type Hub struct {
	voter    Voter
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	identify func(r *http.Request) string

	mu      sync.Mutex
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	identity string
}

func New(opts Options) *Hub {
	h := &Hub{
		voter:   opts.Voter,
		metrics: opts.Metrics,
		clients: map[*client]struct{}{},
	}
	if h.metrics == nil {
		h.metrics = metrics.NewUnregistered()
	}

	origins := opts.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(origins) == 0 || origin == "" || slices.ContainsFunc(origins, func(o string) bool {
				return strings.EqualFold(o, origin)
			})
		},
	}

	if opts.IdentifyByIP {
		salt := opts.IdentitySalt
		h.identify = func(r *http.Request) string {
			return auth.IPIdentity(middleware.GetClientIP(r), salt)
		}
	} else {
		h.identify = func(*http.Request) string { return auth.ConnectionIdentity() }
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: h.identify(r),
	}
	log := slog.With("identity", c.identity)

	snap, err := h.voter.Snapshot(r.Context(), c.identity)
	if err != nil {
		log.Warn("failed to build snapshot", "error", err)
		conn.Close()
		return
	}
	if msg, err := encode(models.MsgOnConnect, snap); err == nil {
		c.send <- msg
	}

	h.register(c)
	log.Debug("client connected", "clients", h.Len())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()
	h.readPump(c)

	h.unregister(c)
	log.Debug("client disconnected", "clients", h.Len())
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.metrics.ConnectionOpened()
}

// unregister closes the send channel, which stops the writer
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ConnectionClosed()
}

// Len is the number of open connections
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their writers
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) readPump(c *client) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "identity", c.identity, "error", err)
			}
			return
		}
		h.handleMessage(c, data)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage forwards a vote. Anything malformed or illegal is dropped.
func (h *Hub) handleMessage(c *client, data []byte) {
	var in models.VoteCast
	if err := json.Unmarshal(data, &in); err != nil || in.Type != models.MsgVoteCast {
		slog.Debug("ignoring client message", "identity", c.identity)
		return
	}

	sub := orchestrator.Submission{Draw: in.Draw, Resign: in.Resign}
	if !in.Resign {
		if in.Move == nil {
			return
		}
		sub.Text = moveText(*in.Move)
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if _, err := h.voter.SubmitVote(ctx, c.identity, sub); err != nil {
		if !errors.Is(err, orchestrator.ErrVotingClosed) {
			slog.Debug("vote dropped", "identity", c.identity, "text", sub.Text, "error", err)
		}
	}
}

// moveText prefers coordinates, which are unambiguous
func moveText(m models.Move) string {
	if m.From != "" && m.To != "" {
		return strings.ToLower(m.From + m.To + m.Promotion)
	}
	return m.SAN
}

func encode(typ string, data any) ([]byte, error) {
	msg, err := json.Marshal(models.Message{Type: typ, Data: data})
	if err != nil {
		slog.Error("failed to encode gateway message", "type", typ, "error", err)
	}
	return msg, err
}

// broadcast never blocks; a client whose buffer is full misses the message
func (h *Hub) broadcast(typ string, data any) {
	msg, err := encode(typ, data)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.metrics.MessageDropped()
		}
	}
}

func (h *Hub) VoteTimer(ms int64) {
	h.broadcast(models.MsgVoteTimer, ms)
}

func (h *Hub) VoteResults(res models.VoteResults) {
	h.broadcast(models.MsgVoteResults, res)
}

func (h *Hub) GameEnded() {
	h.broadcast(models.MsgGameEnded, nil)
}
