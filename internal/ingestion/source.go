package ingestion

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
)

// Source delivers input records to a handler one at a time, in order,
// until the input is exhausted, ctx is cancelled or handle fails.
type Source interface {
	Run(ctx context.Context, handle LineHandler) error
}

// LineSource reads newline-delimited records from a stream.
type LineSource struct {
	r       io.Reader
	maxLine int
}

func NewLineSource(r io.Reader, maxLine int) *LineSource {
	return &LineSource{r: r, maxLine: maxLine}
}

func (s *LineSource) Run(ctx context.Context, handle LineHandler) error {
	return ReadLines(ctx, s.r, s.maxLine, handle)
}

// KafkaSource consumes records from the document-ingest topic, one message
// per record. It returns once the topic has been quiet for the idle
// timeout, which marks the end of a batch build.
//
// Every run joins a fresh consumer group and commits nothing, so each build
// reads the topic from its oldest retained record and rebuilds the whole
// index.
type KafkaSource struct {
	cfg         config.KafkaConfig
	idleTimeout time.Duration
	newRunID    func() string
}

func NewKafkaSource(cfg config.KafkaConfig, idleTimeout time.Duration) *KafkaSource {
	return &KafkaSource{cfg: cfg, idleTimeout: idleTimeout, newRunID: uuid.NewString}
}

func (s *KafkaSource) consumerOptions() kafka.ConsumerOptions {
	return kafka.ConsumerOptions{
		GroupID:       s.cfg.ConsumerGroup + "-indexer-" + s.newRunID(),
		FromBeginning: true,
		IdleTimeout:   s.idleTimeout,
		NoCommit:      true,
	}
}

func (s *KafkaSource) Run(ctx context.Context, handle LineHandler) error {
	consumer := kafka.NewConsumer(s.cfg, s.cfg.Topics.DocumentIngest,
		func(_ context.Context, _ []byte, value []byte) error {
			if len(value) == 0 {
				return nil
			}
			if err := handle(value); err != nil {
				return fmt.Errorf("%w: %w", kafka.ErrStop, err)
			}
			return nil
		},
		s.consumerOptions(),
	)
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	return ctx.Err()
}
