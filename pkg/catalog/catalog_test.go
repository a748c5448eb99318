package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/retry"
)

// openTestDB returns a migrated SQLite database in a temp directory
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		Name:            filepath.Join(t.TempDir(), "catalog.db"),
		ConnectAttempts: 1,
	}
	db, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, GooseDialect(cfg.Driver), nil))
	return db
}

func insertRows(t *testing.T, db *sql.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := db.Exec("INSERT INTO images (id, ref_id, image_path) VALUES (?, ?, ?)",
			id, fmt.Sprintf("ref-%d", id), fmt.Sprintf("/files/%d.jpg", id))
		require.NoError(t, err)
	}
}

func TestSQLQuerierQueryRows(t *testing.T) {
	db := openTestDB(t)
	// Inserted out of order with a gap
	insertRows(t, db, 5, 1, 3, 2, 8, 4)

	q, err := NewSQLQuerier(db, "images")
	require.NoError(t, err)
	ctx := context.Background()

	rows, err := q.QueryRows(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{1, 2, 3}, ids(rows))
	assert.Equal(t, "ref-1", rows[0].RefID)
	assert.Equal(t, "/files/1.jpg", rows[0].ImagePath)

	rows, err = q.QueryRows(ctx, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 8}, ids(rows))

	rows, err = q.QueryRows(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLQuerierNullableColumns(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE legacy_images (id INTEGER PRIMARY KEY, ref_id TEXT NULL, image_path TEXT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO legacy_images (id, ref_id, image_path) VALUES (1, 'a', '/a.jpg'), (2, NULL, '/b.jpg'), (3, 'c', NULL)`)
	require.NoError(t, err)

	q, err := NewSQLQuerier(db, "legacy_images")
	require.NoError(t, err)
	f := NewFetcher(q, config.ScanConfig{FetchAttempts: 1}, nil)

	rows, err := f.Fetch(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].RefID)
	assert.Equal(t, NullRefID, rows[1].RefID)
	assert.Equal(t, "/b.jpg", rows[1].ImagePath)
	assert.Equal(t, "c", rows[2].RefID)
	assert.Equal(t, "", rows[2].ImagePath)
}

func TestSQLQuerierIsDeterministic(t *testing.T) {
	db := openTestDB(t)
	insertRows(t, db, 10, 20, 30, 40)

	q, err := NewSQLQuerier(db, "images")
	require.NoError(t, err)

	first, err := q.QueryRows(context.Background(), 15, 2)
	require.NoError(t, err)
	second, err := q.QueryRows(context.Background(), 15, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []int64{20, 30}, ids(first))
}

func TestSQLQuerierQueryMaxID(t *testing.T) {
	db := openTestDB(t)
	q, err := NewSQLQuerier(db, "images")
	require.NoError(t, err)
	ctx := context.Background()

	maxID, err := q.QueryMaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxID, "empty table reads as zero")

	insertRows(t, db, 3, 17, 9)
	maxID, err = q.QueryMaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17), maxID)
}

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"images", "Images_2024", "audit.images", "_tmp"} {
		assert.NoError(t, ValidateTableName(name), name)
	}
	for _, name := range []string{"", "1images", "images; DROP TABLE x", "img-tbl", "`images`"} {
		err := ValidateTableName(name)
		assert.Error(t, err, name)
		assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
	}
}

func TestDataSourceName(t *testing.T) {
	driver, dsn, err := DataSourceName(config.DatabaseConfig{
		Driver:   "mysql",
		Host:     "db.internal",
		Port:     3307,
		User:     "auditor",
		Password: "s3cret",
		Name:     "land",
	})
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)
	assert.True(t, strings.HasPrefix(dsn, "auditor:s3cret@tcp(db.internal:3307)/land"), dsn)

	_, dsn, err = DataSourceName(config.DatabaseConfig{Driver: "mysql", DSN: "u:p@/x"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@/x", dsn)

	_, _, err = DataSourceName(config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, _, err = DataSourceName(config.DatabaseConfig{Driver: "oracle"})
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
}

// flakyQuerier fails a fixed number of times before answering
type flakyQuerier struct {
	failures int
	calls    int
	rows     []Row
	maxID    int64
}

func (f *flakyQuerier) QueryRows(ctx context.Context, startID int64, limit int) ([]Row, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.rows, nil
}

func (f *flakyQuerier) QueryMaxID(ctx context.Context) (int64, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("connection reset")
	}
	return f.maxID, nil
}

func TestFetcherRetriesTransientFailures(t *testing.T) {
	q := &flakyQuerier{failures: 2, rows: []Row{{ID: 1}, {ID: 2}}}
	f := NewFetcher(q, config.ScanConfig{FetchAttempts: 5, FetchDelay: time.Millisecond}, nil)

	rows, err := f.Fetch(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 3, q.calls)
}

func TestFetcherExhaustion(t *testing.T) {
	q := &flakyQuerier{failures: 100}
	f := NewFetcher(q, config.ScanConfig{FetchAttempts: 5, FetchDelay: time.Millisecond}, nil)

	_, err := f.Fetch(context.Background(), 1, 10)
	require.Error(t, err)
	assert.Equal(t, 5, q.calls)
	assert.Equal(t, errs.ErrorTypeDatabase, errs.TypeOf(err))
	assert.ErrorIs(t, err, retry.ErrExhausted)

	q.calls = 0
	_, err = f.MaxID(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, q.calls)
	assert.Equal(t, errs.ErrorTypeDatabase, errs.TypeOf(err))
}

func TestFetcherMaxID(t *testing.T) {
	q := &flakyQuerier{failures: 1, maxID: 25}
	f := NewFetcher(q, config.ScanConfig{FetchAttempts: 3, FetchDelay: time.Millisecond}, nil)

	maxID, err := f.MaxID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25), maxID)
}

func TestFetcherCancelled(t *testing.T) {
	q := &flakyQuerier{failures: 100}
	f := NewFetcher(q, config.ScanConfig{FetchAttempts: 5, FetchDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, 1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func ids(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
