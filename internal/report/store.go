// Package report persists batch run outcomes to a sqlite store so
// long-running deobfuscation campaigns can track per-method status
// across builds.
package report

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/unvirt/unvirt/internal/pipeline"
)

// Store is the sqlite-backed run archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and on first use bootstraps) a report store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening report store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		profile TEXT NOT NULL,
		started_at TEXT NOT NULL,
		methods INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS method_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		token INTEGER NOT NULL,
		status TEXT NOT NULL,
		rule_hits INTEGER NOT NULL,
		emitted INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun archives one finished pipeline context and returns the run
// id assigned to it.
func (s *Store) RecordRun(profileName string, ctx *pipeline.Context) (string, error) {
	runID := uuid.New().String()

	failed := 0
	for _, m := range ctx.Methods {
		if m.Failed {
			failed++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, module, profile, started_at, methods, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, ctx.Module, profileName, time.Now().UTC().Format(time.RFC3339), len(ctx.Methods), failed,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, m := range ctx.Methods {
		status := "ok"
		if m.Failed {
			status = "failed"
		}
		hits := 0
		for _, n := range m.RuleHits {
			hits += n
		}
		_, err = tx.Exec(
			`INSERT INTO method_results (run_id, name, token, status, rule_hits, emitted) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, m.Name, m.Token, status, hits, len(m.Output),
		)
		if err != nil {
			return "", fmt.Errorf("inserting method result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// RunSummary is one archived run.
type RunSummary struct {
	ID      string
	Module  string
	Profile string
	Methods int
	Failed  int
}

// Runs lists archived runs, newest first.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT id, module, profile, methods, failed FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Module, &r.Profile, &r.Methods, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
