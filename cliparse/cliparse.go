package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Vote identity modes
const (
	IdentityConnection = "connection"
	IdentityIP         = "ip"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	LichessURL   string
	LichessToken string
	BotID        string

	VoteSeconds int
	AbortDelay  time.Duration
	DrainDelay  time.Duration

	IdentityMode   string
	IdentitySalt   string
	TieBreakSeed   uint64
	AllowedOrigins []string
	Mods           []string
}

// VoteDuration is VoteSeconds as a duration
func (c Config) VoteDuration() time.Duration {
	return time.Duration(c.VoteSeconds) * time.Second
}

// ParseFlags validates flags and fills in defaults
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var origins, mods, seed string

	fs := flag.NewFlagSet("votechess", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.LichessURL, "lichess-url", "", "Lichess base URL")
	fs.StringVar(&origins, "origins", "", "Comma separated allowed origins")

	// Game settings
	fs.StringVar(&cfg.BotID, "bot", "", "Bot account id")
	fs.IntVar(&cfg.VoteSeconds, "vote-seconds", 0, "Length of a voting round in seconds")
	fs.DurationVar(&cfg.AbortDelay, "abort-delay", 0, "Abort an unplayed game after this long")
	fs.DurationVar(&cfg.DrainDelay, "drain-delay", 0, "Wait before accepting a queued challenge")
	fs.StringVar(&cfg.IdentityMode, "identity", "", "Vote identity: connection or ip")
	fs.StringVar(&seed, "seed", "", "Tie-break seed (0 seeds from the clock)")
	fs.StringVar(&mods, "mods", "", "Comma separated initial chat moderators")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.LichessToken, "token", "", "Lichess API token (prefer env)")
	fs.StringVar(&cfg.IdentitySalt, "identity-salt", "", "Salt for hashed IP identities (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType != "sqlite" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "file:votechess.db"
	}

	if cfg.LichessURL == "" {
		cfg.LichessURL = envOr("LICHESS_URL", "https://lichess.org")
	}
	if cfg.BotID == "" {
		cfg.BotID = envOr("BOT_ID", "votechess")
	}
	cfg.BotID = strings.ToLower(cfg.BotID)

	if cfg.VoteSeconds == 0 {
		if s := os.Getenv("VOTE_SECONDS"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, errors.New("invalid VOTE_SECONDS env variable")
			}
			cfg.VoteSeconds = n
		} else {
			cfg.VoteSeconds = 30
		}
	}
	if cfg.VoteSeconds <= 0 {
		return Config{}, errors.New("vote seconds must be positive")
	}

	if cfg.AbortDelay == 0 {
		d, err := envDuration("ABORT_DELAY", 60*time.Second)
		if err != nil {
			return Config{}, err
		}
		cfg.AbortDelay = d
	}
	if cfg.DrainDelay == 0 {
		d, err := envDuration("DRAIN_DELAY", time.Second)
		if err != nil {
			return Config{}, err
		}
		cfg.DrainDelay = d
	}

	if cfg.IdentityMode == "" {
		cfg.IdentityMode = envOr("VOTE_IDENTITY", IdentityConnection)
	}
	if cfg.IdentityMode != IdentityConnection && cfg.IdentityMode != IdentityIP {
		return Config{}, errors.New("vote identity must be connection or ip")
	}

	if seed == "" {
		seed = os.Getenv("TIEBREAK_SEED")
	}
	if seed != "" {
		n, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return Config{}, errors.New("invalid tie-break seed")
		}
		cfg.TieBreakSeed = n
	}

	if origins == "" {
		origins = os.Getenv("ALLOWED_ORIGINS")
	}
	cfg.AllowedOrigins = splitList(origins)

	if mods == "" {
		mods = os.Getenv("MODS")
	}
	cfg.Mods = splitList(strings.ToLower(mods))

	// Secrets - MUST be provided
	if cfg.LichessToken == "" {
		cfg.LichessToken = os.Getenv("LICHESS_TOKEN")
	}
	if cfg.LichessToken == "" {
		return Config{}, errors.New("LICHESS_TOKEN required")
	}

	if cfg.IdentitySalt == "" {
		cfg.IdentitySalt = os.Getenv("IDENTITY_SALT")
	}
	if cfg.IdentityMode == IdentityIP && cfg.IdentitySalt == "" {
		return Config{}, errors.New("IDENTITY_SALT required for ip identities")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.New("invalid " + key + " env variable")
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
