// Package sqlite keeps the local LLM audit log in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"adaptive-quiz-service/internal/llm"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS llm_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    TEXT    NOT NULL,
	purpose       TEXT    NOT NULL,
	model         TEXT    NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL,
	error_message TEXT    NOT NULL DEFAULT '',
	request_body  TEXT    NOT NULL DEFAULT '',
	response_body TEXT    NOT NULL DEFAULT ''
)`

// AuditStore implements llm.AuditSink.
type AuditStore struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and ensures the schema.
func Open(path string) (*AuditStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create llm_requests: %w", err)
	}
	return &AuditStore{db: db}, nil
}

func (s *AuditStore) Close() error {
	return s.db.Close()
}

func (s *AuditStore) RecordLLMRequest(ctx context.Context, rec llm.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_requests
		 (created_at, purpose, model, input_tokens, output_tokens, latency_ms, success, error_message, request_body, response_body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Purpose, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.LatencyMs, rec.Success,
		rec.ErrorMessage, rec.RequestBody, rec.ResponseBody)
	if err != nil {
		return fmt.Errorf("insert llm request: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]llm.AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, purpose, model, input_tokens, output_tokens, latency_ms, success, error_message, request_body, response_body
		 FROM llm_requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query llm requests: %w", err)
	}
	defer rows.Close()

	var out []llm.AuditRecord
	for rows.Next() {
		var (
			rec     llm.AuditRecord
			created string
		)
		if err := rows.Scan(&created, &rec.Purpose, &rec.Model, &rec.InputTokens, &rec.OutputTokens,
			&rec.LatencyMs, &rec.Success, &rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody); err != nil {
			return nil, fmt.Errorf("scan llm request: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
