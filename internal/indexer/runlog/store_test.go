package runlog

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "booleansearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "booleansearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_RecordAndRecent(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(ctx))

	dir := t.TempDir()
	started := time.Now().Add(-time.Second).UTC().Truncate(time.Millisecond)
	summary := indexer.BuildSummary{
		DataDir:    dir,
		Stats:      index.Stats{Documents: 3, Skipped: 1, UniqueTerms: 4, Tokens: 7, TokenRunes: 24, InputBytes: 80},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	id, err := store.Record(ctx, summary)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), `DELETE FROM index_runs WHERE id = $1`, id)
	})

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	var found *Run
	for i := range runs {
		if runs[i].ID == id {
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, dir, found.DataDir)
	assert.Equal(t, summary.Stats, found.Stats)
	assert.Equal(t, time.Second, found.Elapsed())
}

func TestRun_Elapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Run{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, r.Elapsed())
}
