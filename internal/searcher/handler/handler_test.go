package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
)

func newServer(t *testing.T, withCache bool, texts ...string) *http.ServeMux {
	t.Helper()
	b := index.NewBuilder(0)
	for i, text := range texts {
		_, err := b.AddDocument(fmt.Sprintf("http://doc/%d", i), "", text)
		require.NoError(t, err)
	}
	exec := executor.New(segment.NewIndex(b.Documents(), b.Terms()), nil)

	var qc *cache.QueryCache
	if withCache {
		var err error
		qc, err = cache.New(config.CacheConfig{LocalSize: 16}, nil, time.Minute, nil)
		require.NoError(t, err)
	}

	mux := http.NewServeMux()
	New(exec, qc, config.SearchConfig{DisplayLimit: 2, MaxResults: 10, QueryTimeout: time.Second}).Routes(mux)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) executor.SearchResult {
	t.Helper()
	var res executor.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestSearch_Boolean(t *testing.T) {
	mux := newServer(t, true, "red car", "red bike", "blue car")

	rec := get(t, mux, "/api/v1/search?q=car+%26%26+!blue")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	res := decode(t, rec)
	assert.Equal(t, "car && !blue", res.Query)
	assert.Equal(t, executor.ModeBoolean, res.Mode)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "http://doc/0", res.Results[0].URL)
	assert.Equal(t, "Document 0", res.Results[0].Title)
}

func TestSearch_CachedResultKeepsCallerQuery(t *testing.T) {
	mux := newServer(t, true, "red car", "blue car")

	first := decode(t, get(t, mux, "/api/v1/search?q=red%26%26car"))
	second := decode(t, get(t, mux, "/api/v1/search?q=red+%26%26+car"))
	assert.Equal(t, "red&&car", first.Query)
	assert.Equal(t, "red && car", second.Query)
	assert.Equal(t, first.Results, second.Results)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(get(t, mux, "/api/v1/cache/stats").Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.LocalHits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSearch_TermAndLimits(t *testing.T) {
	mux := newServer(t, false, "word", "word word", "word", "other")

	res := decode(t, get(t, mux, "/api/v1/search?q=word"))
	assert.Equal(t, executor.ModeTerm, res.Mode)
	require.NotNil(t, res.Term)
	assert.Equal(t, int64(4), res.Term.TotalFrequency)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Results, 2)

	res = decode(t, get(t, mux, "/api/v1/search?q=word&limit=100"))
	assert.Len(t, res.Results, 3)

	rec := get(t, mux, "/api/v1/search?q=word&limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_MissingQuery(t *testing.T) {
	mux := newServer(t, false, "red")
	rec := get(t, mux, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'q' is required")
}

func TestSearch_SyntaxError(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		t.Run(fmt.Sprintf("cache=%v", withCache), func(t *testing.T) {
			mux := newServer(t, withCache, "red car")
			rec := get(t, mux, "/api/v1/search?q=%28red")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			res := decode(t, rec)
			assert.Equal(t, "(red", res.Query)
			assert.Equal(t, 0, res.Total)
			assert.Contains(t, res.Error, "expected ')'")
		})
	}
}

func TestPage(t *testing.T) {
	mux := newServer(t, false, "red car", "blue car")

	rec := get(t, mux, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Поиск</h1>")
	assert.NotContains(t, rec.Body.String(), "<pre>")

	rec = get(t, mux, "/?q=car+%26%26+%21red")
	body := rec.Body.String()
	assert.Contains(t, body, "Результаты для &#39;car &amp;&amp; !red&#39;:")
	assert.Contains(t, body, "<pre>Found 1 documents:\n- http://doc/1\n</pre>")
}

func TestPage_EscapesInput(t *testing.T) {
	mux := newServer(t, false, "red")
	body := get(t, mux, "/?q=%3Cscript%3E").Body.String()
	assert.NotContains(t, body, "<script>")
	assert.True(t, strings.Contains(body, "&lt;script&gt;"))
}

func TestStats(t *testing.T) {
	mux := newServer(t, true, "red car", "blue car")
	var stats map[string]any
	require.NoError(t, json.Unmarshal(get(t, mux, "/api/v1/stats").Body.Bytes(), &stats))
	assert.Equal(t, 2.0, stats["documents"])
	assert.Equal(t, 3.0, stats["unique_terms"])
	assert.Contains(t, stats, "cache")
}

func TestCacheInvalidate(t *testing.T) {
	mux := newServer(t, true, "red")
	get(t, mux, "/api/v1/search?q=red")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(get(t, mux, "/api/v1/cache/stats").Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.LocalEntries)
}

func TestCacheInvalidate_Disabled(t *testing.T) {
	mux := newServer(t, false, "red")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
