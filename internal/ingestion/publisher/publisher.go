// Package publisher feeds ingestion records into the document-ingest topic
// so that a later `indexer build --source kafka` can consume them.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/resilience"
)

const defaultBatchSize = 100

// Writer is the part of kafka.Producer the publisher needs.
type Writer interface {
	PublishRaw(ctx context.Context, msgs ...kafka.Message) error
}

// Stats counts what one Publish call did.
type Stats struct {
	Published int `json:"published"`
	Rejected  int `json:"rejected"`
}

type Publisher struct {
	w         Writer
	batchSize int
	logger    *slog.Logger
}

// New creates a Publisher sending batches of batchSize records; a
// non-positive size selects 100.
func New(w Writer, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Publisher{
		w:         w,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "publisher"),
	}
}

// Publish forwards every record of src that the indexer would accept, keyed
// by its url, preserving input order. Rejected records are counted and
// dropped here so they never reach the topic.
func (p *Publisher) Publish(ctx context.Context, src ingestion.Source) (Stats, error) {
	var (
		stats Stats
		batch = make([]kafka.Message, 0, p.batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := resilience.Retry(ctx, "publish-records", resilience.RetryConfig{}, func() error {
			return p.w.PublishRaw(ctx, batch...)
		})
		if err != nil {
			return err
		}
		stats.Published += len(batch)
		batch = batch[:0]
		return nil
	}

	err := src.Run(ctx, func(line []byte) error {
		rec := ingestion.ParseRecord(string(line))
		if err := validator.ValidateRecord(&rec); err != nil {
			stats.Rejected++
			p.logger.Debug("rejecting record", "reason", err)
			return nil
		}
		// The source may reuse its buffer for the next line.
		value := append([]byte(nil), line...)
		batch = append(batch, kafka.Message{Key: rec.URL, Value: value})
		if len(batch) >= p.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("publishing records: %w", err)
	}
	if err := flush(); err != nil {
		return stats, fmt.Errorf("publishing records: %w", err)
	}
	p.logger.Info("records published", "published", stats.Published, "rejected", stats.Rejected)
	return stats, nil
}
