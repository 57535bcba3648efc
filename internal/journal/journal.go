// Package journal keeps a local history of deploy runs in a SQLite
// database. Every attempt is appended, successful or not, so the
// history command can show what happened and the status command can
// report when the site last went live.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is a SQLite-backed log of deploy attempts.
type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens the journal database at path, creating it and its schema
// when missing. Use ":memory:" for an ephemeral journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deploys (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		failed_stage TEXT NOT NULL DEFAULT '',
		stage_durations TEXT,
		commit_hash TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		files_changed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_deploys_started ON deploys(started);
	CREATE INDEX IF NOT EXISTS idx_deploys_outcome ON deploys(outcome);
	`
	_, err := j.db.Exec(schema)
	return err
}

const selectRecord = `SELECT id, started, finished, outcome, failed_stage,
	stage_durations, commit_hash, message, files_changed, error FROM deploys`

// Append stores one deploy record. The record's ID must be set; the
// deploy orchestrator assigns one per run.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.ID == "" {
		return errors.New("deploy record has no id")
	}

	var durationsJSON []byte
	if rec.StageDurations != nil {
		var err error
		durationsJSON, err = json.Marshal(rec.StageDurations)
		if err != nil {
			return fmt.Errorf("marshal stage durations: %w", err)
		}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO deploys (id, started, finished, outcome, failed_stage,
			stage_durations, commit_hash, message, files_changed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Started.Unix(), rec.Finished.Unix(), string(rec.Outcome),
		rec.FailedStage, durationsJSON, rec.CommitHash, rec.Message,
		rec.FilesChanged, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert deploy record: %w", err)
	}

	return nil
}

// Recent returns the latest n deploy records, newest first. n <= 0
// returns every record.
func (j *Journal) Recent(ctx context.Context, n int) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 {
		n = -1 // sqlite treats a negative LIMIT as no limit
	}

	rows, err := j.db.QueryContext(ctx, selectRecord+" ORDER BY seq DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query deploy records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LastSuccess returns the most recent deploy that pushed a new commit,
// or nil when nothing has been published yet. Runs that finished with
// nothing to push do not count.
func (j *Journal) LastSuccess(ctx context.Context) (*Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		selectRecord+" WHERE outcome = ? ORDER BY seq DESC LIMIT 1",
		string(OutcomeSuccess),
	)
	if err != nil {
		return nil, fmt.Errorf("query deploy records: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var (
			rec           Record
			started       int64
			finished      int64
			outcome       string
			durationsJSON []byte
		)

		err := rows.Scan(&rec.ID, &started, &finished, &outcome, &rec.FailedStage,
			&durationsJSON, &rec.CommitHash, &rec.Message, &rec.FilesChanged, &rec.Error)
		if err != nil {
			return nil, fmt.Errorf("scan deploy record: %w", err)
		}

		rec.Started = time.Unix(started, 0)
		rec.Finished = time.Unix(finished, 0)
		rec.Outcome = Outcome(outcome)

		if len(durationsJSON) > 0 {
			if err := json.Unmarshal(durationsJSON, &rec.StageDurations); err != nil {
				return nil, fmt.Errorf("unmarshal stage durations: %w", err)
			}
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deploy records: %w", err)
	}

	return recs, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
