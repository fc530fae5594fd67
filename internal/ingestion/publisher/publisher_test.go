package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
)

type fakeWriter struct {
	batches [][]kafka.Message
	fail    int
}

func (f *fakeWriter) PublishRaw(_ context.Context, msgs ...kafka.Message) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

const input = `{"url": "http://a", "html_content": "one"}
garbage
{"url": "http://b", "html_content": "two"}
{"url": "http://c", "html_content": "three"}
`

func TestPublish_BatchesValidRecords(t *testing.T) {
	w := &fakeWriter{}
	p := New(w, 2)

	stats, err := p.Publish(context.Background(), ingestion.NewLineSource(strings.NewReader(input), 1024))
	require.NoError(t, err)
	assert.Equal(t, Stats{Published: 3, Rejected: 1}, stats)

	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 2)
	assert.Equal(t, "http://a", w.batches[0][0].Key)
	assert.Equal(t, `{"url": "http://a", "html_content": "one"}`, string(w.batches[0][0].Value))
	assert.Equal(t, "http://c", w.batches[1][0].Key)
}

func TestPublish_RetriesTransientFailure(t *testing.T) {
	w := &fakeWriter{fail: 1}
	stats, err := New(w, 0).Publish(context.Background(), ingestion.NewLineSource(strings.NewReader(input), 1024))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Published)
	assert.Len(t, w.batches, 1)
}

func TestPublish_GivesUp(t *testing.T) {
	w := &fakeWriter{fail: 100}
	stats, err := New(w, 0).Publish(context.Background(), ingestion.NewLineSource(strings.NewReader(input), 1024))
	assert.ErrorContains(t, err, "broker unavailable")
	assert.Zero(t, stats.Published)
}
