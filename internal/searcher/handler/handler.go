// Package handler serves the search front end over HTTP: a JSON API and
// the HTML search page.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/console"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/resilience"
)

// SearchExecutor answers queries against the served index.
type SearchExecutor interface {
	Execute(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	Index() *segment.Index
}

type Handler struct {
	executor     SearchExecutor
	cache        *cache.QueryCache
	displayLimit int
	maxResults   int
	queryTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Handler. queryCache may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		displayLimit: cfg.DisplayLimit,
		maxResults:   cfg.MaxResults,
		queryTimeout: cfg.QueryTimeout,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// run executes query through the cache with the configured deadline. The
// returned result is shared with the cache and must not be modified.
func (h *Handler) run(ctx context.Context, query string, limit int) (*executor.SearchResult, bool, error) {
	var (
		mu       sync.Mutex
		result   *executor.SearchResult
		cacheHit bool
	)
	err := resilience.WithTimeout(ctx, h.queryTimeout, "search", func(ctx context.Context) error {
		var (
			res     *executor.SearchResult
			partial *executor.SearchResult
			hit     bool
			err     error
		)
		if h.cache != nil {
			res, hit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*executor.SearchResult, error) {
				r, err := h.executor.Execute(ctx, query, limit)
				if err != nil {
					partial = r
				}
				return r, err
			})
			if err != nil && partial == nil && apperrors.Is(err, apperrors.ErrSyntax) {
				// The failing computation ran for another caller.
				partial, _ = h.executor.Execute(ctx, query, limit)
			}
			if err != nil {
				res = partial
			}
		} else {
			res, err = h.executor.Execute(ctx, query, limit)
		}
		mu.Lock()
		result, cacheHit = res, hit
		mu.Unlock()
		return err
	})
	if err != nil && !apperrors.Is(err, apperrors.ErrTimeout) && errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "query exceeded its deadline")
	}
	mu.Lock()
	defer mu.Unlock()
	return result, cacheHit, err
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.displayLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(parsed, h.maxResults)
	}

	result, cacheHit, err := h.run(ctx, query, limit)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Warn("search failed", "query", query, "status", status, "error", err)
		if apperrors.Is(err, apperrors.ErrSyntax) && result != nil {
			resp := *result
			resp.Query = query
			h.writeJSON(w, status, &resp)
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	resp := *result
	resp.Query = query
	log.Info("search completed",
		"query", query,
		"mode", resp.Mode,
		"total", resp.Total,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, &resp)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Поиск</title></head><body>
<h1>Поиск</h1>
<form method="get" action="/">
    <input name="q" size="50" value="{{.Query}}">
    <input type="submit" value="Искать">
</form>
<hr>
{{- if .Query}}
<h3>Результаты для '{{.Query}}':</h3>
<pre>{{.Output}}</pre>
{{- end}}
</body></html>
`))

// Page serves the HTML search form and, when q is set, its results in the
// same layout as the command-line tool.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := struct {
		Query  string
		Output string
	}{Query: query}

	if query != "" {
		var buf bytes.Buffer
		result, _, err := h.run(r.Context(), query, h.displayLimit)
		(&console.Renderer{Out: &buf}).Result(result, err)
		data.Output = buf.String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

// Stats reports the size of the served index and cache effectiveness.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ix := h.executor.Index()
	resp := map[string]any{
		"documents":    ix.DocCount(),
		"unique_terms": ix.TermCount(),
	}
	if h.cache != nil {
		resp["cache"] = h.cache.Stats()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
