// Package consumer listens for index-complete events so a running searcher
// can pick up a freshly built index without a restart.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
)

// Reloader swaps in the index described by ev.
type Reloader func(ctx context.Context, ev indexer.IndexCompleteEvent) error

// New creates a consumer on the index-complete topic. Every searcher
// instance needs every event, so instance becomes part of the group id.
func New(cfg config.KafkaConfig, instance, dataDir string, reload Reloader) *kafka.Consumer {
	return kafka.NewConsumer(cfg, cfg.Topics.IndexComplete,
		HandleIndexComplete(dataDir, reload),
		kafka.ConsumerOptions{GroupID: cfg.ConsumerGroup + "-searcher-" + instance},
	)
}

// HandleIndexComplete returns a MessageHandler that calls reload for events
// about dataDir. Undecodable events and events for other directories are
// dropped; a failed reload is returned so the message is not committed.
func HandleIndexComplete(dataDir string, reload Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	want := cleanDir(dataDir)
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[indexer.IndexCompleteEvent](value)
		if err != nil {
			logger.Error("failed to decode index-complete event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if cleanDir(ev.DataDir) != want {
			logger.Debug("ignoring event for another data directory", "data_dir", ev.DataDir)
			return nil
		}
		if err := reload(ctx, ev); err != nil {
			return fmt.Errorf("reloading index from %s: %w", ev.DataDir, err)
		}
		logger.Info("index reloaded",
			"data_dir", ev.DataDir,
			"documents", ev.Documents,
			"unique_terms", ev.UniqueTerms,
			"built_at", ev.BuiltAt,
		)
		return nil
	}
}

func cleanDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
