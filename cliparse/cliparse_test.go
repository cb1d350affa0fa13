// cliparse/cliparse_test.go
package cliparse

import (
	"reflect"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LICHESS_TOKEN", "lip_test")
	t.Setenv("VOTE_SECONDS", "15")
	t.Setenv("BOT_ID", "CrowdBot")
	t.Setenv("MODS", "Alice, bob,,")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.VoteSeconds != 15 || cfg.VoteDuration() != 15*time.Second {
		t.Errorf("expected 15 vote seconds, got %d", cfg.VoteSeconds)
	}
	if cfg.BotID != "crowdbot" {
		t.Errorf("expected lower-cased bot id, got %s", cfg.BotID)
	}
	if !reflect.DeepEqual(cfg.Mods, []string{"alice", "bob"}) {
		t.Errorf("unexpected mods: %v", cfg.Mods)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("LICHESS_TOKEN", "lip_test")

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" || cfg.DatabaseURL != "file:votechess.db" {
		t.Errorf("expected default sqlite database, got %s %s", cfg.DatabaseType, cfg.DatabaseURL)
	}
	if cfg.LichessURL != "https://lichess.org" {
		t.Errorf("unexpected lichess URL %s", cfg.LichessURL)
	}
	if cfg.BotID != "votechess" {
		t.Errorf("expected bot id votechess, got %s", cfg.BotID)
	}
	if cfg.VoteSeconds != 30 {
		t.Errorf("expected 30 vote seconds, got %d", cfg.VoteSeconds)
	}
	if cfg.AbortDelay != 60*time.Second || cfg.DrainDelay != time.Second {
		t.Errorf("unexpected delays: abort %v drain %v", cfg.AbortDelay, cfg.DrainDelay)
	}
	if cfg.IdentityMode != IdentityConnection {
		t.Errorf("expected connection identities, got %s", cfg.IdentityMode)
	}
	if cfg.TieBreakSeed != 0 {
		t.Errorf("expected clock seeded tie-break, got %d", cfg.TieBreakSeed)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VOTE_SECONDS", "15")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-token", "lip_cli", "-vote-seconds", "20", "-seed", "42", "-abort-delay", "90s"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.VoteSeconds != 20 {
		t.Errorf("CLI should override env: expected 20, got %d", cfg.VoteSeconds)
	}
	if cfg.TieBreakSeed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.TieBreakSeed)
	}
	if cfg.AbortDelay != 90*time.Second {
		t.Errorf("expected abort delay 90s, got %v", cfg.AbortDelay)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing token", nil, nil},
		{"bad port", map[string]string{"PORT": "abc", "LICHESS_TOKEN": "x"}, nil},
		{"bad vote seconds", map[string]string{"VOTE_SECONDS": "soon", "LICHESS_TOKEN": "x"}, nil},
		{"negative vote seconds", map[string]string{"LICHESS_TOKEN": "x"}, []string{"-vote-seconds", "-5"}},
		{"unknown identity", map[string]string{"LICHESS_TOKEN": "x", "VOTE_IDENTITY": "cookie"}, nil},
		{"ip identity without salt", map[string]string{"LICHESS_TOKEN": "x", "VOTE_IDENTITY": "ip"}, nil},
		{"postgres without url", map[string]string{"LICHESS_TOKEN": "x", "DATABASE_TYPE": "postgres"}, nil},
		{"bad seed", map[string]string{"LICHESS_TOKEN": "x", "TIEBREAK_SEED": "-1"}, nil},
		{"bad abort delay", map[string]string{"LICHESS_TOKEN": "x", "ABORT_DELAY": "a minute"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LICHESS_TOKEN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags_IPIdentity(t *testing.T) {
	t.Setenv("LICHESS_TOKEN", "x")
	t.Setenv("IDENTITY_SALT", "pepper")

	cfg, err := ParseFlags([]string{"-identity", "ip", "-origins", "https://a.example, https://b.example"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IdentityMode != IdentityIP || cfg.IdentitySalt != "pepper" {
		t.Errorf("unexpected identity config: %s %s", cfg.IdentityMode, cfg.IdentitySalt)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}
