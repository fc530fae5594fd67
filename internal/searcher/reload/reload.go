// Package reload replaces the index a running searcher serves once the
// indexer has rebuilt it, either on an index-complete event or by watching
// the data directory.
package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
)

// Swapper installs a new index. *executor.Executor implements it.
type Swapper interface {
	Swap(ix *segment.Index) *segment.Index
}

// Invalidator drops results computed against the previous index.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Reloader loads dataDir and hands the result to a Swapper.
type Reloader struct {
	dataDir     string
	swapper     Swapper
	invalidator Invalidator
	lockTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu sync.Mutex
}

// New creates a Reloader. invalidator and m may be nil.
func New(dataDir string, swapper Swapper, invalidator Invalidator, lockTimeout time.Duration, m *metrics.Metrics) *Reloader {
	return &Reloader{
		dataDir:     dataDir,
		swapper:     swapper,
		invalidator: invalidator,
		lockTimeout: lockTimeout,
		metrics:     m,
		logger:      slog.Default().With("component", "index-reloader", "data_dir", dataDir),
	}
}

// Reload reads both index files while holding the build lock, so a build in
// progress is never loaded half-written. On failure the served index stays
// in place.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	ix, err := r.load(ctx)
	if err != nil {
		r.observe("failure")
		return fmt.Errorf("reloading %s: %w", r.dataDir, err)
	}

	r.swapper.Swap(ix)
	if r.invalidator != nil {
		if err := r.invalidator.Invalidate(ctx); err != nil {
			r.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	r.observe("success")
	r.logger.Info("index reloaded",
		"documents", ix.DocCount(),
		"terms", ix.TermCount(),
		"elapsed", time.Since(start),
	)
	return nil
}

// OnIndexComplete adapts Reload to the index-complete consumer.
func (r *Reloader) OnIndexComplete(ctx context.Context, ev indexer.IndexCompleteEvent) error {
	r.logger.Info("index-complete event received", "documents", ev.Documents, "built_at", ev.BuiltAt)
	return r.Reload(ctx)
}

func (r *Reloader) load(ctx context.Context) (*segment.Index, error) {
	lock := segment.NewDirLock(r.dataDir)
	switch err := lock.Lock(ctx, r.lockTimeout); {
	case err == nil:
		defer lock.Unlock()
	case errors.Is(err, apperrors.ErrIndexLocked), ctx.Err() != nil:
		return nil, err
	default:
		// A read-only data directory cannot hold the lock file.
		r.logger.Warn("loading without build lock", "error", err)
	}
	return segment.Load(ctx, r.dataDir)
}

func (r *Reloader) observe(status string) {
	if r.metrics != nil {
		r.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}

// Watch reloads whenever forward.idx or inverted.idx in the data directory
// is replaced, after debounce has passed without further changes. It
// returns when ctx is done.
func (r *Reloader) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(r.dataDir); err != nil {
		return fmt.Errorf("watching %s: %w", r.dataDir, err)
	}
	r.logger.Info("watching data directory", "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isIndexChange(ev) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("reload failed, keeping current index", "error", err)
			}
		}
	}
}

func isIndexChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Base(ev.Name) {
	case segment.ForwardFile, segment.InvertedFile:
		return true
	}
	return false
}
