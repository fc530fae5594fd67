// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON or forwards raw
// records, while the consumer hands raw message values to a MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
)

// fetchBackoff spaces out fetch attempts while the brokers are unreachable.
const fetchBackoff = time.Second

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ErrStop may be returned (wrapped) by a MessageHandler to end the consume
// loop. The message that produced it is not committed.
var ErrStop = errors.New("stop consuming")

// ConsumerOptions tunes a Consumer beyond the shared broker settings.
type ConsumerOptions struct {
	// GroupID overrides KafkaConfig.ConsumerGroup.
	GroupID string
	// FromBeginning starts a new group at the oldest retained offset
	// instead of the newest.
	FromBeginning bool
	// IdleTimeout ends Start once no message arrived for this long.
	// Zero means wait forever.
	IdleTimeout time.Duration
	// NoCommit leaves the group offsets untouched, for readers that must
	// see the whole topic again on their next run.
	NoCommit bool
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	idle    time.Duration
	commit  bool
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ConsumerOptions) *Consumer {
	group := cfg.ConsumerGroup
	if opts.GroupID != "" {
		group = opts.GroupID
	}
	start := kafka.LastOffset
	if opts.FromBeginning {
		start = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: start,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
		idle:    opts.IdleTimeout,
		commit:  !opts.NoCommit,
	}
}

// Start enters the consume loop. Messages are handled one at a time, in
// partition order, and committed after their handler succeeds unless
// NoCommit was set. It returns nil when ctx is cancelled or the idle
// timeout fires, and the handler's error when it wraps ErrStop.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var idled atomic.Bool
	var activity chan struct{}
	if c.idle > 0 {
		activity = make(chan struct{}, 1)
		go c.watchIdle(loopCtx, activity, func() {
			idled.Store(true)
			cancel()
		})
	}

	for {
		msg, err := c.reader.FetchMessage(loopCtx)
		if err != nil {
			if loopCtx.Err() != nil {
				if idled.Load() {
					c.logger.Info("consumer idle, stopping", "idle_timeout", c.idle)
				} else {
					c.logger.Info("consumer stopping", "reason", ctx.Err())
				}
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-loopCtx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}
		if activity != nil {
			select {
			case activity <- struct{}{}:
			default:
			}
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(loopCtx, msg.Key, msg.Value); err != nil {
			if errors.Is(err, ErrStop) {
				return err
			}
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if !c.commit {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) watchIdle(ctx context.Context, activity <-chan struct{}, onIdle func()) {
	timer := time.NewTimer(c.idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-activity:
			timer.Reset(c.idle)
		case <-timer.C:
			onIdle()
			return
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
