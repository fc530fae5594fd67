// Package executor answers queries against a loaded index: single-term
// lookups for plain queries and set algebra over postings for boolean ones.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
)

// Mode says how a query was answered.
type Mode string

const (
	ModeTerm    Mode = "term"
	ModeBoolean Mode = "boolean"
)

// TermInfo carries the statistics of a single-term lookup.
type TermInfo struct {
	Term           string `json:"term"`
	Found          bool   `json:"found"`
	TotalFrequency int64  `json:"total_frequency"`
	DocCount       int    `json:"doc_count"`
}

// Hit is one matching document.
type Hit struct {
	DocID int32  `json:"doc_id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SearchResult holds the matches of one query. Results is the first page
// in ascending doc id order; Total counts every match.
type SearchResult struct {
	Query   string    `json:"query"`
	Mode    Mode      `json:"mode"`
	Total   int       `json:"total"`
	Results []Hit     `json:"results"`
	Term    *TermInfo `json:"term,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// More is the number of matches beyond Results.
func (r *SearchResult) More() int {
	return r.Total - len(r.Results)
}

// Executor evaluates queries against the current index. The index can be
// replaced at any time; a query in flight keeps the index it started with.
type Executor struct {
	index   atomic.Pointer[segment.Index]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an executor serving ix. m may be nil.
func New(ix *segment.Index, m *metrics.Metrics) *Executor {
	e := &Executor{
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
	e.index.Store(ix)
	if m != nil {
		m.IndexDocuments.Set(float64(ix.DocCount()))
		m.IndexTerms.Set(float64(ix.TermCount()))
	}
	return e
}

// Index returns the index currently being served.
func (e *Executor) Index() *segment.Index {
	return e.index.Load()
}

// Swap replaces the served index and returns the previous one.
func (e *Executor) Swap(ix *segment.Index) *segment.Index {
	old := e.index.Swap(ix)
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(ix.DocCount()))
		e.metrics.IndexTerms.Set(float64(ix.TermCount()))
	}
	e.logger.Info("index swapped",
		"documents", ix.DocCount(),
		"terms", ix.TermCount(),
		"previous_documents", old.DocCount(),
	)
	return old
}

// LookupTerm returns the statistics and postings of term. The lookup is
// exact: no case folding and no stemming.
func LookupTerm(ix *segment.Index, term string) (TermInfo, *roaring.Bitmap) {
	info := TermInfo{Term: term}
	entry, ok := ix.Lookup(term)
	if !ok {
		return info, roaring.New()
	}
	info.Found = true
	info.TotalFrequency = entry.TotalFrequency
	info.DocCount = entry.DocCount()
	return info, entry.Postings
}

// Execute answers query, returning at most limit hits. Queries without any
// of & | ! ( ) are single-term lookups of the query exactly as given,
// surrounding spaces included; everything else
// is parsed and evaluated. A malformed boolean query yields an empty result
// together with an error wrapping ErrSyntax.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	ix := e.index.Load()
	result := &SearchResult{Query: query, Results: []Hit{}}

	var (
		matches *roaring.Bitmap
		err     error
	)
	if parser.IsBoolean(query) {
		result.Mode = ModeBoolean
		matches, err = e.evaluate(ctx, query, ix)
	} else {
		result.Mode = ModeTerm
		var info TermInfo
		info, matches = LookupTerm(ix, query)
		result.Term = &info
	}

	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, apperrors.ErrSyntax):
			outcome = "syntax_error"
			result.Error = err.Error()
		case errors.Is(err, context.DeadlineExceeded):
			err = apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "query exceeded its deadline")
		}
		e.observe(result.Mode, outcome, start, 0)
		logger.FromContext(ctx).Warn("query failed", "query", query, "mode", result.Mode, "error", err)
		return result, err
	}

	result.Total = int(matches.GetCardinality())
	result.Results = e.page(ix, matches, limit)
	outcome := "hit"
	if result.Total == 0 {
		outcome = "zero_result"
	}
	e.observe(result.Mode, outcome, start, result.Total)
	logger.FromContext(ctx).Debug("query executed",
		"query", query,
		"mode", result.Mode,
		"total", result.Total,
		"returned", len(result.Results),
		"latency", time.Since(start),
	)
	return result, nil
}

func (e *Executor) evaluate(ctx context.Context, query string, ix *segment.Index) (*roaring.Bitmap, error) {
	node, err := parser.Parse(query)
	if err != nil {
		return roaring.New(), err
	}
	return Evaluate(ctx, node, ix)
}

func (e *Executor) page(ix *segment.Index, matches *roaring.Bitmap, limit int) []Hit {
	n := int(matches.GetCardinality())
	if limit >= 0 && limit < n {
		n = limit
	}
	hits := make([]Hit, 0, n)
	it := matches.Iterator()
	for it.HasNext() && len(hits) < n {
		id := int32(it.Next())
		doc, ok := ix.Document(id)
		if !ok {
			continue
		}
		hits = append(hits, Hit{DocID: doc.DocID, Title: doc.Title, URL: doc.URL})
	}
	return hits
}

func (e *Executor) observe(mode Mode, outcome string, start time.Time, total int) {
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(string(mode), outcome).Inc()
	e.metrics.QueryLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	e.metrics.QueryResultsCount.Observe(float64(total))
}
