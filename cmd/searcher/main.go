// Command searcher answers boolean queries against the index built by
// indexer, from the command line or over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/console"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	dataDir    string
	limit      int
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "searcher [query...]",
		Short: "Query the boolean search index",
		Long: `With arguments, searcher joins them with spaces into one query, prints the
result and exits. Without arguments it reads one query per line until an
empty line or end of input.

A query without any of & | ! ( ) looks up a single term exactly as typed.
Anything else is a boolean expression over terms with && || ! and
parentheses; && and || have equal precedence and apply left to right.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runQuery(ctx, cmd, a, args)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "index directory (overrides indexer.dataDir)")
	cmd.Flags().IntVarP(&a.limit, "limit", "n", 0, "documents to list per query (default search.displayLimit)")

	cmd.AddCommand(newServeCmd(a))
	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.dataDir != "" {
		cfg.Indexer.DataDir = a.dataDir
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

// openExecutor loads the index from the data directory.
func (a *app) openExecutor(ctx context.Context, m *metrics.Metrics) (*executor.Executor, error) {
	ix, err := segment.Load(ctx, a.cfg.Indexer.DataDir)
	if err != nil {
		return nil, fmt.Errorf("loading index from %s: %w", a.cfg.Indexer.DataDir, err)
	}
	slog.Info("index loaded", "data_dir", a.cfg.Indexer.DataDir, "documents", ix.DocCount(), "terms", ix.TermCount())
	return executor.New(ix, m), nil
}

func runQuery(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	exec, err := a.openExecutor(ctx, nil)
	if err != nil {
		return err
	}
	limit := a.limit
	if limit <= 0 {
		limit = a.cfg.Search.DisplayLimit
	}

	out := cmd.OutOrStdout()
	r := &console.Renderer{Out: out, Styled: isTerminal(out)}

	if len(args) > 0 {
		res, err := exec.Execute(ctx, strings.Join(args, " "), limit)
		r.Result(res, err)
		return nil
	}

	interactive := isTerminal(cmd.InOrStdin())
	if interactive {
		ix := exec.Index()
		r.Banner(ix.DocCount(), ix.TermCount())
	}
	return r.Loop(ctx, cmd.InOrStdin(), exec, limit, interactive)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
