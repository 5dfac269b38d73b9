// Arena server — hosts bot-vs-bot RTS matches: skill-banded matchmaking,
// per-match sessions with fog-of-war enforcement and order validation, and
// Elo rating updates on completion.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jediswimmer/ironcurtain/pkg/api"
	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/events"
	"github.com/jediswimmer/ironcurtain/pkg/matchmaker"
	"github.com/jediswimmer/ironcurtain/pkg/metrics"
	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/rating"
	"github.com/jediswimmer/ironcurtain/pkg/registry"
	"github.com/jediswimmer/ironcurtain/pkg/session"
	"github.com/jediswimmer/ironcurtain/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting arena server",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Agent directory: Postgres when a DSN is configured, otherwise the
	// static directory seeded from configuration.
	var directory registry.Directory
	if cfg.Registry.DSN != "" {
		pg, err := registry.NewPostgresDirectory(ctx, cfg.Registry.DSN)
		if err != nil {
			slog.Error("Failed to connect to agent directory", "error", err)
			os.Exit(1)
		}
		directory = pg
		slog.Info("Connected to Postgres agent directory")
	} else {
		directory = registry.NewStaticDirectory(cfg.Registry.Agents)
		slog.Info("Using static agent directory", "agents", len(cfg.Registry.Agents))
	}
	defer directory.Close()

	// 3. Metrics
	m := metrics.New()

	// 4. Match event publisher: Kafka when enabled, log-only otherwise.
	var publisher events.Publisher
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.MatchTopic, cfg.Events.TickTopic, m)
		slog.Info("Kafka event publisher initialized",
			"brokers", cfg.Events.Brokers, "match_topic", cfg.Events.MatchTopic)
	} else {
		publisher = events.NewLogPublisher()
		slog.Info("Event publishing disabled, logging match records only")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("Error closing event publisher", "error", err)
		}
	}()

	// 5. Rating engine and session manager
	engine := rating.NewEngine(cfg.Rating)
	manager := session.NewManager(cfg, engine, publisher, m)

	// 6. Matchmaker, feeding the session manager
	mm := matchmaker.New(cfg, m)
	mm.SetTimeoutFunc(func(entry *models.QueueEntry) {
		slog.Info("Queue wait timeout",
			"agent_id", entry.AgentID, "mode", entry.Mode, "rating", entry.Rating)
	})
	manager.Start(mm.Pairings())
	mm.Start()

	// 7. HTTP server, blocking until the shutdown signal
	httpServer := api.NewServer(cfg, directory, mm, manager, m)
	slog.Info("Arena server started", "addr", ":"+httpPort)

	if err := httpServer.Run(ctx, ":"+httpPort); err != nil {
		slog.Error("HTTP server error", "error", err)
	}

	// 8. Staged shutdown: stop producing pairings, then stop intake. Live
	// sessions finish on their own timers.
	mm.Stop()
	manager.Stop()

	slog.Info("Shutdown complete")
}
