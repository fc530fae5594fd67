package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/runlog"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/resilience"
)

type buildOptions struct {
	input       string
	source      string
	idleTimeout time.Duration
}

func newBuildCmd(a *app) *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index from JSON-lines records",
		Long: `Build reads records from --input (stdin when omitted) or, with --source kafka,
from the document-ingest topic until it stays idle for --idle-timeout.

Records without an html_content field are skipped without consuming a
document id; a missing url is stored as empty. The finished build is recorded in Postgres and
announced on the index-complete topic when those are configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, a, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON-lines input file (default stdin)")
	cmd.Flags().StringVar(&opts.source, "source", "lines", "record source: lines or kafka")
	cmd.Flags().DurationVar(&opts.idleTimeout, "idle-timeout", 30*time.Second, "stop consuming kafka after this long without records")
	return cmd
}

func runBuild(ctx context.Context, a *app, opts buildOptions, stdin io.Reader, out io.Writer) error {
	cfg := a.cfg

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		srv, err := metrics.Listen(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())
	}

	src, closeSrc, err := openSource(cfg, opts, stdin)
	if err != nil {
		return err
	}
	defer closeSrc()

	engine := indexer.NewEngine(cfg.Indexer, m)
	slog.Info("ingestion started", "source", opts.source, "data_dir", cfg.Indexer.DataDir)
	if err := engine.Ingest(ctx, src); err != nil {
		return fmt.Errorf("ingesting records: %w", err)
	}

	summary, err := engine.Persist(ctx)
	if err != nil {
		return err
	}
	printSummary(out, summary)

	// Persisted index files are the build's result; history and
	// announcement failures are reported but do not fail it.
	if cfg.Postgres.Host != "" {
		if err := recordRun(ctx, a, summary); err != nil {
			slog.Error("recording build run failed", "error", err)
		}
	}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		if err := indexer.Announce(ctx, producer, summary); err != nil {
			slog.Error("announcing build failed", "error", err)
		}
	}
	return nil
}

func openSource(cfg *config.Config, opts buildOptions, stdin io.Reader) (ingestion.Source, func(), error) {
	switch opts.source {
	case "lines":
		if opts.input == "" || opts.input == "-" {
			return ingestion.NewLineSource(stdin, cfg.Indexer.MaxLineBytes), func() {}, nil
		}
		f, err := os.Open(opts.input)
		if err != nil {
			return nil, nil, fmt.Errorf("opening input: %w", err)
		}
		return ingestion.NewLineSource(f, cfg.Indexer.MaxLineBytes), func() { f.Close() }, nil
	case "kafka":
		if !cfg.Kafka.Enabled() {
			return nil, nil, fmt.Errorf("--source kafka needs kafka.brokers or BS_KAFKA_BROKERS")
		}
		return ingestion.NewKafkaSource(cfg.Kafka, opts.idleTimeout), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q, want lines or kafka", opts.source)
	}
}

func recordRun(ctx context.Context, a *app, summary indexer.BuildSummary) error {
	db, err := postgres.New(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	store := runlog.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return resilience.Retry(ctx, "record-run", resilience.RetryConfig{}, func() error {
		id, err := store.Record(ctx, summary)
		if err == nil {
			slog.Info("build run recorded", "run_id", id)
		}
		return err
	})
}

func printSummary(out io.Writer, s indexer.BuildSummary) {
	st := s.Stats
	fmt.Fprintf(out, "Documents: %s (skipped %s)\n", humanize.Comma(int64(st.Documents)), humanize.Comma(int64(st.Skipped)))
	fmt.Fprintf(out, "Unique terms: %s\n", humanize.Comma(int64(st.UniqueTerms)))
	fmt.Fprintf(out, "Tokens: %s, average length %.2f\n", humanize.Comma(st.Tokens), st.AvgTokenLength())
	fmt.Fprintf(out, "Input: %s in %v (%.1f KB/s)\n",
		humanize.IBytes(uint64(st.InputBytes)), s.Elapsed.Round(time.Millisecond), s.KBPerSecond())
	fmt.Fprintf(out, "Index written to %s\n", s.DataDir)
}
