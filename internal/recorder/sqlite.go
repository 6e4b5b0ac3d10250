package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists quiz attempts to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] attempt recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			asset     TEXT NOT NULL,
			score     INTEGER NOT NULL,
			total     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ts ON quiz_attempts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_asset ON quiz_attempts(asset)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAttempt(a *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(
		`INSERT INTO quiz_attempts (timestamp, asset, score, total) VALUES (?,?,?,?)`,
		time.Now().Unix(), a.Asset, a.Score, a.Total,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing attempt recorder")
	return r.db.Close()
}
