// Command marketd serves the simulation control plane: it stores run
// history in SQLite and launches new runs over the HTTP API.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/talgya/commodity-market/internal/api"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/llm"
	"github.com/talgya/commodity-market/internal/persistence"
)

func main() {
	_ = godotenv.Load()
	setupLogging()

	dbPath := envOrDefault("MARKETD_DB", "data/market.db")
	port := envIntOrDefault("MARKETD_PORT", 8080)
	adminKey := os.Getenv("MARKETD_ADMIN_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	decisionTimeout := time.Duration(envIntOrDefault("MARKETD_DECISION_TIMEOUT", 60)) * time.Second

	if adminKey == "" {
		slog.Warn("MARKETD_ADMIN_KEY not set, launch endpoint disabled")
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	newProvider := func() decision.Provider {
		if anthropicKey != "" {
			client := llm.NewClient(anthropicKey)
			if provider, err := llm.NewProvider(client); err == nil {
				return decision.WithTimeout(provider, decisionTimeout)
			}
		}
		return decision.WithTimeout(decision.RuleBased{}, decisionTimeout)
	}
	if anthropicKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set, runs will use the rule-based provider")
	}

	server := &api.Server{
		DB:       db,
		Jobs:     api.NewJobManager(db, newProvider),
		Port:     port,
		AdminKey: adminKey,
	}

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}

func setupLogging() {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
