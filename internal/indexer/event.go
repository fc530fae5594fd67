package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/resilience"
)

// IndexCompleteEvent is published on the index-complete topic after a build
// has been persisted. Searchers serving DataDir reload on receipt.
type IndexCompleteEvent struct {
	DataDir     string    `json:"data_dir"`
	Documents   int       `json:"documents"`
	UniqueTerms int       `json:"unique_terms"`
	Tokens      int64     `json:"tokens"`
	BuiltAt     time.Time `json:"built_at"`
}

// NewIndexCompleteEvent describes summary as an event.
func NewIndexCompleteEvent(summary BuildSummary) IndexCompleteEvent {
	return IndexCompleteEvent{
		DataDir:     summary.DataDir,
		Documents:   summary.Stats.Documents,
		UniqueTerms: summary.Stats.UniqueTerms,
		Tokens:      summary.Stats.Tokens,
		BuiltAt:     summary.FinishedAt.UTC(),
	}
}

// Publisher is the part of kafka.Producer used to announce builds.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Announce publishes the index-complete event for summary, retrying
// transient broker failures.
func Announce(ctx context.Context, p Publisher, summary BuildSummary) error {
	ev := NewIndexCompleteEvent(summary)
	err := resilience.Retry(ctx, "announce-index", resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
	}, func() error {
		return p.Publish(ctx, kafka.Event{Key: ev.DataDir, Value: ev})
	})
	if err != nil {
		return fmt.Errorf("announcing index: %w", err)
	}
	return nil
}
