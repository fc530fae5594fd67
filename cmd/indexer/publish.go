package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	opts := buildOptions{source: "lines"}
	var batchSize int
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send JSON-lines records to the document-ingest topic",
		Long: `Publish validates records from --input (stdin when omitted) and sends the
acceptable ones to the document-ingest topic, where
'indexer build --source kafka' picks them up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if !cfg.Kafka.Enabled() {
				return fmt.Errorf("publishing needs kafka.brokers or BS_KAFKA_BROKERS")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, closeSrc, err := openSource(cfg, opts, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeSrc()

			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
			defer producer.Close()

			stats, err := publisher.New(producer, batchSize).Publish(ctx, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d records to %s (rejected %d)\n",
				stats.Published, cfg.Kafka.Topics.DocumentIngest, stats.Rejected)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON-lines input file (default stdin)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "records per kafka write")
	return cmd
}
