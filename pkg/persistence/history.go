package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// DefaultHistoryLimit bounds Query when no limit is given.
const DefaultHistoryLimit = 100

// Entry is one recorded change of value.
type Entry struct {
	ID           int64           `json:"id"`
	Object       bacnet.ObjectID `json:"object"`
	Value        string          `json:"value"`
	Numeric      float64         `json:"numeric"`
	OutOfService bool            `json:"out_of_service"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// HistoryStore records present value changes in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database. Use ":memory:" for a
// throwaway store.
func OpenHistory(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &HistoryStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	_, err := s.db.Exec(`
	PRAGMA journal_mode = WAL;

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		object_type INTEGER NOT NULL,
		instance INTEGER NOT NULL,
		value TEXT NOT NULL,
		numeric REAL NOT NULL,
		out_of_service INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_object ON history(object_type, instance, recorded_at);
	`)
	return err
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Record stores an entry and fills in its ID.
func (s *HistoryStore) Record(ctx context.Context, e *Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (object_type, instance, value, numeric, out_of_service, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uint16(e.Object.Type), e.Object.Instance, e.Value, e.Numeric, e.OutOfService, e.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Object, err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// Query returns the newest entries of an object recorded at or after
// since, newest first. A zero since returns everything; limit <= 0 uses
// DefaultHistoryLimit.
func (s *HistoryStore) Query(ctx context.Context, object bacnet.ObjectID, since time.Time, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, value, numeric, out_of_service, recorded_at
		FROM history
		WHERE object_type = ? AND instance = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, uint16(object.Type), object.Instance, from, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", object, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{Object: object}
		var ts int64
		if err := rows.Scan(&e.ID, &e.Value, &e.Numeric, &e.OutOfService, &ts); err != nil {
			return nil, err
		}
		e.RecordedAt = time.Unix(0, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteObject removes the history of an object.
func (s *HistoryStore) DeleteObject(ctx context.Context, object bacnet.ObjectID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE object_type = ? AND instance = ?`,
		uint16(object.Type), object.Instance)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Prune removes entries recorded before cutoff.
func (s *HistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
