package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kurtosis-tech/stacktrace"
)

// Run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a row in the runs table: one composition or install.
type Run struct {
	ID        string
	ShortID   string
	Command   string // "compose", "install", or "watch"
	Stacks    []string
	Profile   string
	Target    string
	Status    string
	Error     string
	CreatedAt time.Time
}

// RecordRun inserts a new run and returns it. The error string is empty for
// completed runs.
func (db *DB) RecordRun(command string, stacks []string, profileName string, target string, status string, runError string) (*Run, error) {
	id := uuid.New().String()
	shortID := ShortID(id)
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := db.conn.Exec(
		"INSERT INTO runs (id, short_id, command, stacks, profile, target, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, shortID, command, strings.Join(stacks, ","), profileName, target, status, runError, now,
	)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to insert run")
	}

	return &Run{
		ID:        id,
		ShortID:   shortID,
		Command:   command,
		Stacks:    stacks,
		Profile:   profileName,
		Target:    target,
		Status:    status,
		Error:     runError,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ListRuns returns runs ordered newest first. A limit of zero or less
// returns all runs. Watch mode can record several runs within the same
// second, so rowid breaks created_at ties in insertion order.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := "SELECT id, short_id, command, stacks, profile, target, status, error, created_at FROM runs ORDER BY created_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to query runs")
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var r Run
		var stacks, createdAt string
		if err := rows.Scan(&r.ID, &r.ShortID, &r.Command, &stacks, &r.Profile, &r.Target, &r.Status, &r.Error, &createdAt); err != nil {
			return nil, stacktrace.Propagate(err, "failed to scan run row")
		}
		if stacks != "" {
			r.Stacks = strings.Split(stacks, ",")
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, stacktrace.Propagate(err, "error iterating run rows")
	}
	return runs, nil
}
