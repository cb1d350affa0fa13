// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lichess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrStatus = errors.New("unexpected status from lichess")

// DefaultBaseURL is the public lichess API
const DefaultBaseURL = "https://lichess.org"

// reconnectDelay is the pause before the event stream is reopened
const reconnectDelay = 5 * time.Second

// maxLine bounds a single NDJSON line
const maxLine = 1 << 20

// Decline reasons understood by the server
const (
	DeclineGeneric     = "generic"
	DeclineCasual      = "casual"
	DeclineVariant     = "variant"
	DeclineTimeControl = "timeControl"
	DeclineLater       = "later"
)

// Client talks to the lichess bot API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client. httpClient may be nil; it must not set a
// Timeout because streams stay open for the whole game.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// StreamEvents reads the account event stream until it closes or ctx is done
func (c *Client) StreamEvents(ctx context.Context, fn func(Event)) error {
	return c.stream(ctx, "/api/stream/event", func(line []byte) {
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			slog.Warn("skipping malformed event", "error", err)
			return
		}
		fn(ev)
	})
}

// Listen keeps the account event stream open, reconnecting after it closes
func (c *Client) Listen(ctx context.Context, fn func(Event)) error {
	for {
		err := c.StreamEvents(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("event stream closed, reconnecting", "error", err, "delay", reconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// StreamGame reads a game stream until the game ends or ctx is done
func (c *Client) StreamGame(ctx context.Context, gameID string, fn func(GameEvent)) error {
	return c.stream(ctx, "/api/bot/game/stream/"+url.PathEscape(gameID), func(line []byte) {
		var ev GameEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			slog.Warn("skipping malformed game event", "game_id", gameID, "error", err)
			return
		}
		fn(ev)
	})
}

// AcceptChallenge reports whether the server took the acceptance.
// It fails when the challenger has already cancelled.
func (c *Client) AcceptChallenge(ctx context.Context, challengeID string) (bool, error) {
	err := c.post(ctx, "/api/challenge/"+url.PathEscape(challengeID)+"/accept", nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) DeclineChallenge(ctx context.Context, challengeID, reason string) error {
	form := url.Values{}
	if reason != "" {
		form.Set("reason", reason)
	}
	return c.post(ctx, "/api/challenge/"+url.PathEscape(challengeID)+"/decline", form)
}

func (c *Client) SendChat(ctx context.Context, gameID, room, text string) error {
	form := url.Values{}
	form.Set("room", room)
	form.Set("text", text)
	return c.post(ctx, "/api/bot/game/"+url.PathEscape(gameID)+"/chat", form)
}

// MakeMove plays a move given in coordinate form, optionally offering a draw with it
func (c *Client) MakeMove(ctx context.Context, gameID, uci string, offerDraw bool) error {
	path := "/api/bot/game/" + url.PathEscape(gameID) + "/move/" + url.PathEscape(uci)
	if offerDraw {
		path += "?offeringDraw=true"
	}
	return c.post(ctx, path, nil)
}

func (c *Client) Resign(ctx context.Context, gameID string) error {
	return c.post(ctx, "/api/bot/game/"+url.PathEscape(gameID)+"/resign", nil)
}

func (c *Client) Abort(ctx context.Context, gameID string) error {
	return c.post(ctx, "/api/bot/game/"+url.PathEscape(gameID)+"/abort", nil)
}

func (c *Client) stream(ctx context.Context, path string, fn func([]byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrStatus, path, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		// Empty lines are keep-alives
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream %s failed: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: POST %s returned %d", ErrStatus, path, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
