// Command indexer builds the on-disk index from JSON-lines records and
// inspects what a build produced.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	dataDir    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Build and inspect the boolean search index",
		Long: `indexer reads one JSON record per line ({"url": ..., "html_content": ...}),
tokenizes and stems the HTML text and writes forward.idx, inverted.idx and
zipf.csv into the data directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "index directory (overrides indexer.dataDir)")

	cmd.AddCommand(newBuildCmd(a), newPublishCmd(a), newZipfCmd(a), newRunsCmd(a))
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
