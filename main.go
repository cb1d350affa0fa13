package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/votechess/cliparse"
	"github.com/danielhkuo/votechess/db"
	"github.com/danielhkuo/votechess/gateway"
	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/metrics"
	"github.com/danielhkuo/votechess/middleware"
	"github.com/danielhkuo/votechess/moderation"
	"github.com/danielhkuo/votechess/orchestrator"
	"github.com/danielhkuo/votechess/router"
	"github.com/danielhkuo/votechess/store"
)

func main() {
	// A missing .env is fine; real env vars and flags still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mods := moderation.New(dbConn)
	if err := mods.Seed(ctx, cfg.Mods); err != nil {
		slog.Error("failed to seed moderators", "error", err)
		os.Exit(1)
	}
	if err := mods.Load(ctx); err != nil {
		slog.Error("failed to load moderation lists", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	seed := cfg.TieBreakSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	client := lichess.NewClient(cfg.LichessURL, cfg.LichessToken, nil)
	games := store.New(dbConn)

	orch := orchestrator.New(orchestrator.Options{
		BotID:        cfg.BotID,
		VoteDuration: cfg.VoteDuration(),
		AbortDelay:   cfg.AbortDelay,
		DrainDelay:   cfg.DrainDelay,
		Rand:         rand.New(rand.NewPCG(seed, seed>>1)),
		Remote:       client,
		Recorder:     games,
		Moderator:    mods,
		Metrics:      m,
	})
	hub := gateway.New(gateway.Options{
		Voter:          orch,
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		IdentifyByIP:   cfg.IdentityMode == cliparse.IdentityIP,
		IdentitySalt:   cfg.IdentitySalt,
	})
	orch.SetListener(hub)

	// Create router
	mux := router.NewRouter(router.Deps{
		State:    orch,
		Games:    games,
		Gateway:  hub,
		Gatherer: reg,
	})

	// Create server
	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return client.Listen(ctx, orch.HandleEvent) })
	g.Go(func() error { return mods.Watch(ctx, moderation.DefaultRefresh) })
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port, "bot_id", cfg.BotID)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Wait for Ctrl-C or a failed component
		<-ctx.Done()
		hub.Close()
		return server.Close()
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}
