package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/apartmentlines/audio-processing/internal/config"
)

// Store manages recording persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Catalog.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Add inserts a recording into the catalog.
func (s *Store) Add(ctx context.Context, masterID int64, filename string, timestamp int64) (*Recording, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, errors.New("filename is required")
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO customer_recordings (master_id, filename, timestamp) VALUES (?, ?, ?)`,
		masterID, filename, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a recording by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Recording, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, master_id, filename, timestamp, eaf_complete, processed_at
         FROM customer_recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recording %d: %w", id, err)
	}
	return rec, nil
}

// List returns recordings in insertion order, fetching in batches of
// batchSize. A limit of zero returns every recording.
func (s *Store) List(ctx context.Context, batchSize, limit int) ([]Recording, error) {
	return s.list(ctx, batchSize, limit, false)
}

// PendingEAF returns recordings whose EAF annotation work is incomplete.
func (s *Store) PendingEAF(ctx context.Context, batchSize, limit int) ([]Recording, error) {
	return s.list(ctx, batchSize, limit, true)
}

func (s *Store) list(ctx context.Context, batchSize, limit int, pendingOnly bool) ([]Recording, error) {
	ctx = ensureContext(ctx)
	if batchSize <= 0 {
		batchSize = 100
	}

	query := `SELECT id, master_id, filename, timestamp, eaf_complete, processed_at
        FROM customer_recordings`
	if pendingOnly {
		query += ` WHERE eaf_complete = 0`
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`

	offset := 0
	var recordings []Recording
	for {
		batch, err := s.queryBatch(ctx, query, batchSize, offset)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		recordings = append(recordings, batch...)
		offset += batchSize

		if limit > 0 && len(recordings) >= limit {
			recordings = recordings[:limit]
			break
		}
		if len(batch) < batchSize {
			break
		}
	}
	return recordings, nil
}

func (s *Store) queryBatch(ctx context.Context, query string, batchSize, offset int) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, query, batchSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var batch []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		batch = append(batch, *rec)
	}
	return batch, rows.Err()
}

// MarkProcessed stamps the recording with the normalization completion time.
func (s *Store) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE customer_recordings SET processed_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return requireRow(res, id)
}

// MarkEAFComplete records that annotation output exists for the recording.
func (s *Store) MarkEAFComplete(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE customer_recordings SET eaf_complete = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("mark eaf complete: %w", err)
	}
	return requireRow(res, id)
}

// Stats returns aggregate catalog counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN processed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(eaf_complete), 0)
        FROM customer_recordings`)
	if err := row.Scan(&stats.Total, &stats.Processed, &stats.EAFComplete); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return stats, nil
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recording %d not found", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecording(row scannable) (*Recording, error) {
	var rec Recording
	var eaf int
	var processedAt sql.NullString
	if err := row.Scan(&rec.ID, &rec.MasterID, &rec.Filename, &rec.Timestamp, &eaf, &processedAt); err != nil {
		return nil, err
	}
	rec.EAFComplete = eaf != 0
	if processedAt.Valid && strings.TrimSpace(processedAt.String) != "" {
		ts, err := time.Parse(time.RFC3339Nano, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse processed_at: %w", err)
		}
		rec.ProcessedAt = &ts
	}
	return &rec, nil
}
