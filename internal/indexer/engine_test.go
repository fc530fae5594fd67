package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/zipf"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
)

const corpus = `{"_id": {"$oid": "a1"}, "url": "http://x/0", "html_content": "<p>red car</p>"}
{"url": "http://x/skipped"}
{"_id": {"$oid": "a2"}, "url": "http://x/1", "html_content": "blue bike"}

{"_id": {"$oid": "a3"}, "url": "http://x/2", "html_content": "red <b>bike</b> red"}
`

func testConfig(t *testing.T) config.IndexerConfig {
	t.Helper()
	cfg := config.Default().Indexer
	cfg.DataDir = t.TempDir()
	cfg.LockTimeout = time.Second
	return cfg
}

func TestEngine_IngestAndPersist(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.New(prometheus.NewRegistry())
	e := NewEngine(cfg, m)

	require.NoError(t, e.Ingest(context.Background(), ingestion.NewLineSource(strings.NewReader(corpus), 0)))

	st := e.Stats()
	assert.Equal(t, 3, st.Documents)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 4, st.UniqueTerms)
	assert.Equal(t, int64(7), st.Tokens)

	summary, err := e.Persist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.DataDir, summary.DataDir)
	assert.Equal(t, st, summary.Stats)

	ix, err := segment.Load(context.Background(), cfg.DataDir)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.DocCount())
	doc, ok := ix.Document(1)
	require.True(t, ok)
	assert.Equal(t, "http://x/1", doc.URL)
	assert.Equal(t, "a2", doc.ExternalID)
	assert.Equal(t, "Document 1", doc.Title)

	red, ok := ix.Lookup("red")
	require.True(t, ok)
	assert.Equal(t, int64(3), red.TotalFrequency)
	assert.Equal(t, []int32{0, 2}, red.DocIDs())

	f, err := os.Open(filepath.Join(cfg.DataDir, zipf.File))
	require.NoError(t, err)
	defer f.Close()
	rows, err := zipf.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, zipf.Row{Rank: 1, Term: "red", Frequency: 3}, rows[0])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsSkippedTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.TokensTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IndexTerms))
}

func TestEngine_IndexRecordSkipsWithoutConsumingID(t *testing.T) {
	e := NewEngine(testConfig(t), nil)

	_, ok, err := e.IndexRecord([]byte(`{"url": "u"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	id, ok, err := e.IndexRecord([]byte(`{"html_content": "x"}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), id)
}

func TestEngine_IndexRecordKeepsOddURLs(t *testing.T) {
	cfg := testConfig(t)
	e := NewEngine(cfg, nil)

	longURL := "http://x/" + strings.Repeat("a", 9000)
	for i, line := range []string{
		`{"url":"` + longURL + `","html_content":"red car"}`,
		"{\"url\":\"http://x/\xff\xfe\",\"html_content\":\"red bike\"}",
	} {
		id, ok, err := e.IndexRecord([]byte(line))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int32(i), id)
	}

	_, err := e.Persist(context.Background())
	require.NoError(t, err)
	ix, err := segment.Load(context.Background(), cfg.DataDir)
	require.NoError(t, err)
	require.Equal(t, 2, ix.DocCount())

	doc, ok := ix.Document(0)
	require.True(t, ok)
	assert.Equal(t, longURL, doc.URL)
	doc, ok = ix.Document(1)
	require.True(t, ok)
	assert.Equal(t, "http://x/\xff\xfe", doc.URL)

	red, ok := ix.Lookup("red")
	require.True(t, ok)
	assert.Equal(t, 2, red.DocCount())
}

func TestEngine_IndexMatchesPersisted(t *testing.T) {
	cfg := testConfig(t)
	e := NewEngine(cfg, nil)
	require.NoError(t, e.Ingest(context.Background(), ingestion.NewLineSource(strings.NewReader(corpus), 0)))

	mem := e.Index()
	_, err := e.Persist(context.Background())
	require.NoError(t, err)
	disk, err := segment.Load(context.Background(), cfg.DataDir)
	require.NoError(t, err)

	assert.Equal(t, mem.DocCount(), disk.DocCount())
	assert.Equal(t, mem.TermCount(), disk.TermCount())
	for _, term := range []string{"red", "car", "blue", "bike"} {
		a, _ := mem.Lookup(term)
		b, _ := disk.Lookup(term)
		assert.Equal(t, a.DocIDs(), b.DocIDs(), term)
		assert.Equal(t, a.TotalFrequency, b.TotalFrequency, term)
	}
}

func TestEngine_PersistEmptyCorpus(t *testing.T) {
	cfg := testConfig(t)
	e := NewEngine(cfg, nil)
	require.NoError(t, e.Ingest(context.Background(), ingestion.NewLineSource(strings.NewReader(""), 0)))

	_, err := e.Persist(context.Background())
	require.NoError(t, err)
	ix, err := segment.Load(context.Background(), cfg.DataDir)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.DocCount())
	assert.Equal(t, 0, ix.TermCount())
}

func TestEngine_PersistFailsWhileLocked(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockTimeout = 200 * time.Millisecond
	held := segment.NewDirLock(cfg.DataDir)
	require.NoError(t, held.Lock(context.Background(), time.Second))
	defer held.Unlock()

	e := NewEngine(cfg, nil)
	_, err := e.Persist(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(cfg.DataDir, segment.ForwardFile))
	assert.True(t, os.IsNotExist(statErr))
}

type fakePublisher struct {
	failures int
	events   []kafka.Event
}

func (p *fakePublisher) Publish(_ context.Context, ev kafka.Event) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

func TestAnnounce_RetriesAndPublishes(t *testing.T) {
	p := &fakePublisher{failures: 1}
	summary := BuildSummary{DataDir: "/data"}
	summary.Stats.Documents = 5

	require.NoError(t, Announce(context.Background(), p, summary))
	require.Len(t, p.events, 1)
	assert.Equal(t, "/data", p.events[0].Key)
	ev, ok := p.events[0].Value.(IndexCompleteEvent)
	require.True(t, ok)
	assert.Equal(t, 5, ev.Documents)
}

func TestBuildSummary_KBPerSecond(t *testing.T) {
	s := BuildSummary{Elapsed: 2 * time.Second}
	s.Stats.InputBytes = 4096
	assert.InDelta(t, 2.0, s.KBPerSecond(), 1e-9)
	assert.Zero(t, BuildSummary{}.KBPerSecond())
}
