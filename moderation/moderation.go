// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRefresh is how often Watch reloads the lists
const DefaultRefresh = time.Minute

// ActionKind says what to do with a chat line
type ActionKind int

const (
	Ignore ActionKind = iota
	Vote
	Reply
)

// Action is the result of screening one chat line.
// For Vote, Text is the raw move text; for Reply, the chat message to send.
type Action struct {
	Kind ActionKind
	Text string
}

// List is the set of moderators and banned users, cached in memory and
// persisted in the database
type List struct {
	db *sql.DB

	mu     sync.RWMutex
	mods   map[string]bool
	banned map[string]bool
}

func New(db *sql.DB) *List {
	return &List{
		db:     db,
		mods:   map[string]bool{},
		banned: map[string]bool{},
	}
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Seed adds the configured moderators, keeping any already stored
func (l *List) Seed(ctx context.Context, mods []string) error {
	for _, m := range mods {
		if err := l.Promote(ctx, m, "config"); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the cache with the database contents
func (l *List) Load(ctx context.Context) error {
	mods, err := l.usernames(ctx, `SELECT username FROM moderator`)
	if err != nil {
		return fmt.Errorf("failed to load moderators: %w", err)
	}
	banned, err := l.usernames(ctx, `SELECT username FROM banned_user`)
	if err != nil {
		return fmt.Errorf("failed to load banned users: %w", err)
	}

	l.mu.Lock()
	l.mods = mods
	l.banned = banned
	l.mu.Unlock()

	slog.Debug("moderation lists loaded", "mods", len(mods), "banned", len(banned))
	return nil
}

func (l *List) usernames(ctx context.Context, query string) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// Watch reloads the lists every interval so edits made directly in the
// database are picked up. It returns when ctx is done.
func (l *List) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.Load(ctx); err != nil && ctx.Err() == nil {
				slog.Error("failed to refresh moderation lists", "error", err)
			}
		}
	}
}

func (l *List) IsMod(username string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mods[normalize(username)]
}

func (l *List) IsBanned(username string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.banned[normalize(username)]
}

func (l *List) Ban(ctx context.Context, username, by string) error {
	name := normalize(username)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO banned_user (username, banned_by, banned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`, name, normalize(by), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to ban %s: %w", name, err)
	}

	l.mu.Lock()
	l.banned[name] = true
	l.mu.Unlock()
	return nil
}

func (l *List) Unban(ctx context.Context, username string) error {
	name := normalize(username)
	_, err := l.db.ExecContext(ctx, `DELETE FROM banned_user WHERE username = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to unban %s: %w", name, err)
	}

	l.mu.Lock()
	delete(l.banned, name)
	l.mu.Unlock()
	return nil
}

// Promote makes username a moderator
func (l *List) Promote(ctx context.Context, username, by string) error {
	name := normalize(username)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO moderator (username, added_by, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`, name, normalize(by), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to promote %s: %w", name, err)
	}

	l.mu.Lock()
	l.mods[name] = true
	l.mu.Unlock()
	return nil
}

// HandleChat screens a spectator chat line. Banned users are ignored,
// moderator commands are executed here, and anything else starting with
// "/" becomes a vote for the word that follows it.
func (l *List) HandleChat(ctx context.Context, username, text string) Action {
	if l.IsBanned(username) {
		slog.Debug("ignoring chat from banned user", "username", username)
		return Action{Kind: Ignore}
	}

	cmd, arg, ok := ParseCommand(text)
	if !ok {
		return Action{Kind: Ignore}
	}

	switch cmd {
	case "ban", "unban", "mod":
		if !l.IsMod(username) || arg == "" {
			return Action{Kind: Ignore}
		}
		return l.runCommand(ctx, username, cmd, arg)
	}
	return Action{Kind: Vote, Text: cmd}
}

func (l *List) runCommand(ctx context.Context, by, cmd, target string) Action {
	var err error
	var reply string

	switch cmd {
	case "ban":
		err = l.Ban(ctx, target, by)
		reply = fmt.Sprintf("Banned %s.", target)
	case "unban":
		err = l.Unban(ctx, target)
		reply = fmt.Sprintf("Unbanned %s.", target)
	case "mod":
		err = l.Promote(ctx, target, by)
		reply = fmt.Sprintf("Promoted %s to mod.", target)
	}
	if err != nil {
		slog.Error("moderation command failed", "command", cmd, "target", target, "by", by, "error", err)
		return Action{Kind: Ignore}
	}

	slog.Info("moderation command", "command", cmd, "target", target, "by", by)
	return Action{Kind: Reply, Text: reply}
}

// ParseCommand splits "/word arg ..." into its first two words.
// Lines without the leading slash are not commands.
func ParseCommand(text string) (cmd, arg string, ok bool) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "/") {
		return "", "", false
	}
	fields := strings.Fields(s[1:])
	if len(fields) == 0 {
		return "", "", false
	}
	cmd = fields[0]
	if lower := strings.ToLower(cmd); lower == "ban" || lower == "unban" || lower == "mod" {
		cmd = lower
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg, true
}
