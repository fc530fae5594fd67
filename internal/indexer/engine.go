// Package indexer drives a full index build: it pulls records from an
// ingestion source, folds them into an in-memory builder and persists the
// forward index, inverted index and frequency report into a data directory.
package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/zipf"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
)

// Engine owns one build. It is single-threaded: records are indexed in the
// order the source delivers them and doc ids follow that order.
type Engine struct {
	builder *index.Builder
	cfg     config.IndexerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	started time.Time
}

// BuildSummary describes a persisted build.
type BuildSummary struct {
	DataDir    string        `json:"data_dir"`
	Stats      index.Stats   `json:"stats"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// KBPerSecond is the input throughput of the build.
func (s BuildSummary) KBPerSecond() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Stats.InputBytes) / 1024 / secs
}

// NewEngine creates an engine with an empty builder. m may be nil.
func NewEngine(cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	return &Engine{
		builder: index.NewBuilder(cfg.MaxTokenLen),
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
		started: time.Now(),
	}
}

// IndexRecord parses one input record and adds it as a document. Records
// without html_content are counted as skipped and consume no doc id; the
// returned bool reports whether a document was added.
func (e *Engine) IndexRecord(line []byte) (int32, bool, error) {
	rec := ingestion.ParseRecord(string(line))
	if err := validator.ValidateRecord(&rec); err != nil {
		e.builder.Skip()
		if e.metrics != nil {
			e.metrics.RecordsSkippedTotal.Inc()
		}
		e.logger.Debug("skipping record", "reason", err)
		return 0, false, nil
	}

	before := e.builder.Stats().Tokens
	docID, err := e.builder.AddDocument(rec.URL, rec.ExternalID, rec.HTML)
	if err != nil {
		return 0, false, fmt.Errorf("adding document: %w", err)
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.TokensTotal.Add(float64(e.builder.Stats().Tokens - before))
	}
	if docID > 0 && docID%10000 == 0 {
		st := e.builder.Stats()
		e.logger.Info("ingestion progress",
			"documents", st.Documents,
			"unique_terms", st.UniqueTerms,
			"tokens", st.Tokens,
		)
	}
	return docID, true, nil
}

// Ingest feeds every record of src through IndexRecord.
func (e *Engine) Ingest(ctx context.Context, src ingestion.Source) error {
	err := src.Run(ctx, func(line []byte) error {
		_, _, err := e.IndexRecord(line)
		return err
	})
	if err != nil {
		return fmt.Errorf("ingesting records: %w", err)
	}
	st := e.builder.Stats()
	e.logger.Info("ingestion finished",
		"documents", st.Documents,
		"skipped", st.Skipped,
		"unique_terms", st.UniqueTerms,
	)
	return nil
}

// Stats returns the statistics gathered so far.
func (e *Engine) Stats() index.Stats {
	return e.builder.Stats()
}

// Index exposes the built index for querying without a round trip through
// disk. It shares memory with the builder, so ingestion must be finished.
func (e *Engine) Index() *segment.Index {
	return segment.NewIndex(e.builder.Documents(), e.builder.Terms())
}

// Persist writes forward.idx, inverted.idx and zipf.csv into the data
// directory while holding its build lock.
func (e *Engine) Persist(ctx context.Context) (BuildSummary, error) {
	dir := e.cfg.DataDir
	lock := segment.NewDirLock(dir)
	if err := lock.Lock(ctx, e.cfg.LockTimeout); err != nil {
		return BuildSummary{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Error("releasing build lock", "error", err)
		}
	}()

	entries := e.builder.Entries()
	if err := segment.Persist(dir, e.builder.Documents(), entries); err != nil {
		return BuildSummary{}, fmt.Errorf("persisting index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return BuildSummary{}, err
	}
	rows := zipf.Rank(entries)
	if err := segment.WriteAtomic(filepath.Join(dir, zipf.File), func(w io.Writer) error {
		return zipf.WriteCSV(w, rows)
	}); err != nil {
		return BuildSummary{}, fmt.Errorf("writing frequency report: %w", err)
	}

	finished := time.Now()
	summary := BuildSummary{
		DataDir:    dir,
		Stats:      e.builder.Stats(),
		StartedAt:  e.started,
		FinishedAt: finished,
		Elapsed:    finished.Sub(e.started),
	}
	if e.metrics != nil {
		e.metrics.IndexBuildDuration.Observe(summary.Elapsed.Seconds())
		e.metrics.IndexDocuments.Set(float64(summary.Stats.Documents))
		e.metrics.IndexTerms.Set(float64(summary.Stats.UniqueTerms))
	}
	e.logger.Info("index persisted",
		"data_dir", dir,
		"documents", summary.Stats.Documents,
		"skipped", summary.Stats.Skipped,
		"unique_terms", summary.Stats.UniqueTerms,
		"tokens", summary.Stats.Tokens,
		"avg_token_length", fmt.Sprintf("%.2f", summary.Stats.AvgTokenLength()),
		"input_kb", summary.Stats.InputBytes/1024,
		"elapsed", summary.Elapsed.Round(time.Millisecond),
		"kb_per_sec", fmt.Sprintf("%.1f", summary.KBPerSecond()),
	)
	return summary, nil
}
