package mrzworker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no result is stored for a request id.
var ErrNotFound = errors.New("not found")

// ResultStorage keeps the responses of deferred requests in SQLite.
type ResultStorage struct {
	db *sql.DB
	// sqlite allows a single writer
	writeMu deadlock.Mutex
}

var storageMigrations = []string{
	`CREATE TABLE IF NOT EXISTS mrz_results (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		result TEXT,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mrz_results_updated_at ON mrz_results(updated_at)`,
}

// NewResultStorage opens the database at dbPath and creates the schema.
func NewResultStorage(dbPath string) (*ResultStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	s := &ResultStorage{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return s, nil
}

func (s *ResultStorage) runMigrations() error {
	for _, m := range storageMigrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *ResultStorage) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the response stored under resp.ID.
func (s *ResultStorage) Put(resp MrzResponse) error {
	if resp.ID == "" {
		return errors.New("response has no id")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UnixNano()
	var result sql.NullString
	if len(resp.Result) > 0 {
		result = sql.NullString{String: string(resp.Result), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO mrz_results (id, status, result, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   result = excluded.result,
		   error = excluded.error,
		   updated_at = excluded.updated_at`,
		resp.ID, resp.Status, result, resp.Error, now, now,
	)
	return err
}

// Get returns the response stored under id.
func (s *ResultStorage) Get(id string) (MrzResponse, error) {
	var (
		resp   MrzResponse
		result sql.NullString
		errMsg sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, status, result, error FROM mrz_results WHERE id = ?`, id,
	).Scan(&resp.ID, &resp.Status, &result, &errMsg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MrzResponse{}, ErrNotFound
		}
		return MrzResponse{}, err
	}
	if result.Valid {
		resp.Result = json.RawMessage(result.String)
	}
	resp.Error = errMsg.String
	return resp, nil
}

// DeleteOlderThan removes the results not updated since cutoff.
func (s *ResultStorage) DeleteOlderThan(cutoff time.Time) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.Exec(`DELETE FROM mrz_results WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunJanitor removes results older than maxAge every interval until ctx is done.
func (s *ResultStorage) RunJanitor(ctx context.Context, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteOlderThan(time.Now().Add(-maxAge))
			if err != nil {
				log.Error().Err(err).Str("component", "MRZ_STORAGE").Msg("could not delete old results")
				continue
			}
			if n > 0 {
				log.Info().Str("component", "MRZ_STORAGE").Int64("deleted", n).Msg("old results deleted")
			}
		}
	}
}
