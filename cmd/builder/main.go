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

	"github.com/addrindex/addrindex/internal/address"
	"github.com/addrindex/addrindex/internal/source"
	"github.com/addrindex/addrindex/internal/world"
	"github.com/addrindex/addrindex/pkg/config"
	"github.com/addrindex/addrindex/pkg/logger"
	"github.com/addrindex/addrindex/pkg/metrics"
	"github.com/addrindex/addrindex/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	sourceName := flag.String("source", "", "record source: jsonl, postgres, or kafka (overrides config)")
	input := flag.String("input", "", "input file for the jsonl source, '-' for stdin (overrides config)")
	output := flag.String("output", "", "output world file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *sourceName != "" {
		cfg.Builder.Source = *sourceName
	}
	if *input != "" {
		cfg.Builder.Input = *input
	}
	if *output != "" {
		cfg.Builder.Output = *output
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting world build",
		"source", cfg.Builder.Source,
		"output", cfg.Builder.Output,
		"compression", cfg.Builder.Compression,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := stopMetrics(sctx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
		slog.Info("metrics server listening", "port", cfg.Metrics.Port)
	}
	start := time.Now()

	builder := world.NewBuilder(cfg.Builder.Parallelism)
	emit := func(rec address.Record) error {
		m.RecordsReadTotal.WithLabelValues("accepted").Inc()
		return builder.Add(rec)
	}

	switch cfg.Builder.Source {
	case "jsonl":
		err = drainJSONL(ctx, cfg, m, emit)
	case "postgres":
		err = drainPostgres(ctx, cfg, emit)
	case "kafka":
		err = source.DrainKafka(ctx, cfg.Kafka, emit)
	default:
		slog.Error("unknown record source", "source", cfg.Builder.Source)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("record ingestion failed", "source", cfg.Builder.Source, "error", err)
		os.Exit(1)
	}
	slog.Info("records ingested", "count", builder.Len(), "elapsed", time.Since(start))

	w, err := builder.Finalize(ctx)
	if err != nil {
		slog.Error("world build failed", "error", err)
		os.Exit(1)
	}

	if err := world.WriteFile(cfg.Builder.Output, w, cfg.Builder.Compression); err != nil {
		slog.Error("failed to write world file", "file", cfg.Builder.Output, "error", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	m.WorldBuildSeconds.Set(elapsed.Seconds())
	m.WorldCountries.Set(float64(w.CountryCount()))

	stats := w.Stats()
	slog.Info("world build complete",
		"file", cfg.Builder.Output,
		"countries", stats.Countries,
		"street_names", stats.StreetNames,
		"housenumber_pool", stats.HousenumberPool,
		"elapsed", elapsed,
	)
}

func drainJSONL(ctx context.Context, cfg *config.Config, m *metrics.Metrics, emit func(address.Record) error) error {
	in := os.Stdin
	if cfg.Builder.Input != "-" && cfg.Builder.Input != "" {
		f, err := os.Open(cfg.Builder.Input)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}
	src := source.NewJSONL(in)
	err := source.Drain(ctx, src, emit)
	accepted, skipped, malformed := src.Counts()
	m.RecordsReadTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.RecordsReadTotal.WithLabelValues("malformed").Add(float64(malformed))
	slog.Info("jsonl source drained", "accepted", accepted, "skipped", skipped, "malformed", malformed)
	return err
}

func drainPostgres(ctx context.Context, cfg *config.Config, emit func(address.Record) error) error {
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer client.Close()

	src, err := source.NewPostgres(ctx, client, cfg.Postgres)
	if err != nil {
		return err
	}
	defer src.Close()
	return source.Drain(ctx, src, emit)
}
