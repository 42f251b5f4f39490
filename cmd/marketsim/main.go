// Command marketsim runs one commodity market simulation from the
// command line and prints the run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/engine"
	"github.com/talgya/commodity-market/internal/llm"
	"github.com/talgya/commodity-market/internal/persistence"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "path to a JSON config (defaults apply when omitted)")
		seed       = flag.Int64("seed", 0, "override the config seed (0 keeps the config value)")
		days       = flag.Int("days", 0, "override num_days (0 keeps the config value)")
		dbPath     = flag.String("db", "", "SQLite path for storing the run (empty = no persistence)")
		useLLM     = flag.Bool("llm", false, "use the LLM decision provider (requires ANTHROPIC_API_KEY)")
		timeout    = flag.Duration("decision-timeout", 60*time.Second, "per-decision timeout")
	)
	flag.Parse()

	setupLogging()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *days != 0 {
		cfg.NumDays = *days
	}

	provider, err := buildProvider(*useLLM, *timeout)
	if err != nil {
		slog.Error("provider setup failed", "error", err)
		os.Exit(1)
	}

	sim, err := engine.New(cfg, provider)
	if err != nil {
		slog.Error("simulation setup failed", "error", err)
		os.Exit(1)
	}

	var db *persistence.DB
	runID := uuid.NewString()
	if *dbPath != "" {
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.CreateRun(runID, cfg); err != nil {
			slog.Error("failed to register run", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		slog.Error("run failed", "error", err)
		if db != nil {
			_ = db.FinishRun(runID, persistence.StatusFailed, nil)
		}
		os.Exit(1)
	}

	summary := sim.Summarize()
	if db != nil {
		if err := db.SaveRunResults(runID, sim); err != nil {
			slog.Error("failed to save run results", "error", err)
		}
		if err := db.FinishRun(runID, persistence.StatusFinished, &summary); err != nil {
			slog.Error("failed to finish run", "error", err)
		}
		slog.Info("run saved", "run", runID, "db", *dbPath)
	}

	printSummary(summary)
}

// setupLogging writes human-readable logs on a terminal and JSON
// otherwise, respecting LOG_LEVEL.
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

func buildProvider(useLLM bool, timeout time.Duration) (decision.Provider, error) {
	if !useLLM {
		slog.Info("using rule-based decision provider")
		return decision.WithTimeout(decision.RuleBased{}, timeout), nil
	}

	client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY"))
	provider, err := llm.NewProvider(client)
	if err != nil {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY required for -llm: %w", err)
	}
	slog.Info("using LLM decision provider")
	return decision.WithTimeout(provider, timeout), nil
}

func printSummary(sum engine.Summary) {
	fmt.Printf("\n=== %s: %d days (seed %d) ===\n", sum.Name, sum.NumDays, sum.Seed)
	fmt.Printf("Wholesale: %d trades, %s units, avg $%.2f/unit\n",
		sum.WholesaleTrades, humanize.Comma(int64(sum.WholesaleVolume)), sum.AvgWholesalePrice)
	fmt.Printf("Retail:    %s units, avg $%.2f/unit\n",
		humanize.Comma(int64(sum.RetailVolume)), sum.AvgRetailPrice)
	fmt.Printf("Unmet demand: %s units\n", humanize.Comma(int64(sum.TotalUnmetDemand)))
	if sum.NegotiationNoDeal > 0 || sum.NegotiationAborted > 0 {
		fmt.Printf("Failed negotiations: %d no-deal, %d aborted\n",
			sum.NegotiationNoDeal, sum.NegotiationAborted)
	}

	fmt.Println("\nAgent performance:")
	for _, a := range sum.Agents {
		fmt.Printf("  %-12s cash $%s, inventory %s, sold %s, ROI %.1f%%\n",
			a.Agent,
			humanize.CommafWithDigits(a.FinalCash, 0),
			humanize.Comma(int64(a.FinalInventory)),
			humanize.Comma(int64(a.UnitsSold)),
			a.Metrics.ROI*100)
	}
}
