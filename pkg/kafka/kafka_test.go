package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
)

func TestDecodeJSON(t *testing.T) {
	type event struct {
		DataDir string `json:"data_dir"`
	}
	ev, err := DecodeJSON[event]([]byte(`{"data_dir": "/srv/index"}`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/index", ev.DataDir)

	_, err = DecodeJSON[event]([]byte(`not json`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestWatchIdle_FiresAfterQuietPeriod(t *testing.T) {
	c := &Consumer{idle: 30 * time.Millisecond}
	activity := make(chan struct{})
	fired := make(chan struct{})
	go c.watchIdle(context.Background(), activity, func() { close(fired) })

	for range 3 {
		time.Sleep(10 * time.Millisecond)
		activity <- struct{}{}
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle callback did not fire")
	}
}

func TestWatchIdle_StopsWithContext(t *testing.T) {
	c := &Consumer{idle: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.watchIdle(ctx, make(chan struct{}), func() { t.Error("unexpected idle") })
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPublishRawEmpty(t *testing.T) {
	p := &Producer{}
	assert.NoError(t, p.PublishRaw(context.Background()))
}

func TestNewConsumer_CommitOption(t *testing.T) {
	cfg := config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, ConsumerGroup: "bs"}
	noop := func(context.Context, []byte, []byte) error { return nil }

	committing := NewConsumer(cfg, "docs", noop, ConsumerOptions{})
	defer committing.Close()
	assert.True(t, committing.commit)

	readOnly := NewConsumer(cfg, "docs", noop, ConsumerOptions{GroupID: "bs-indexer-1", FromBeginning: true, NoCommit: true})
	defer readOnly.Close()
	assert.False(t, readOnly.commit)
	assert.Equal(t, "bs-indexer-1", readOnly.reader.Config().GroupID)
}
