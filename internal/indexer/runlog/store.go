// Package runlog keeps a history of index builds in PostgreSQL so the
// statistics of past runs can be compared.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_runs (
    id          BIGSERIAL PRIMARY KEY,
    data_dir    TEXT NOT NULL,
    documents   INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    unique_terms INTEGER NOT NULL,
    tokens      BIGINT NOT NULL,
    input_bytes BIGINT NOT NULL,
    stats       JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
)`

// Run is one recorded build.
type Run struct {
	ID         int64       `json:"id"`
	DataDir    string      `json:"data_dir"`
	Stats      index.Stats `json:"stats"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Elapsed is the wall time of the build.
func (r Run) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists build runs in the index_runs table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "runlog"),
	}
}

// EnsureSchema creates index_runs if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index_runs table: %w", err)
	}
	return nil
}

// Record inserts summary and returns the new run id.
func (s *Store) Record(ctx context.Context, summary indexer.BuildSummary) (int64, error) {
	stats, err := json.Marshal(summary.Stats)
	if err != nil {
		return 0, fmt.Errorf("marshaling build stats: %w", err)
	}
	var id int64
	err = s.db.DB.QueryRowContext(ctx,
		`INSERT INTO index_runs
		   (data_dir, documents, skipped, unique_terms, tokens, input_bytes, stats, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		summary.DataDir,
		summary.Stats.Documents,
		summary.Stats.Skipped,
		summary.Stats.UniqueTerms,
		summary.Stats.Tokens,
		summary.Stats.InputBytes,
		stats,
		summary.StartedAt.UTC(),
		summary.FinishedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording index run: %w", err)
	}
	s.logger.Info("index run recorded", "run_id", id, "documents", summary.Stats.Documents)
	return id, nil
}

// Recent returns the last limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, data_dir, stats, started_at, finished_at
		   FROM index_runs ORDER BY finished_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r    Run
			data []byte
		)
		if err := rows.Scan(&r.ID, &r.DataDir, &data, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning index run: %w", err)
		}
		if err := json.Unmarshal(data, &r.Stats); err != nil {
			s.logger.Warn("skipping run with corrupt stats", "run_id", r.ID, "error", err)
			continue
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
