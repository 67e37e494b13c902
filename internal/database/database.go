package database

import (
	"database/sql"

	"github.com/kurtosis-tech/stacktrace"

	_ "modernc.org/sqlite"
)

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	short_id TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL DEFAULT '',
	stacks TEXT NOT NULL DEFAULT '',
	profile TEXT NOT NULL DEFAULT '',
	target TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

const createRunsShortIDIndexSQL = `CREATE INDEX IF NOT EXISTS idx_runs_short_id ON runs(short_id);`

// DB wraps a sql.DB connection to the strata SQLite database.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the SQLite database at the given filepath and runs
// auto-migration.
func Open(dbFilepath string) (*DB, error) {
	dsn := dbFilepath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to open database at '%s'", dbFilepath)
	}

	// SQLite only supports a single writer, so limit the pool to one
	// connection to avoid contention between connections in the same process.
	conn.SetMaxOpenConns(1)

	migrations := []string{createRunsTableSQL, createRunsShortIDIndexSQL}
	for _, migrationSQL := range migrations {
		if _, err := conn.Exec(migrationSQL); err != nil {
			conn.Close()
			return nil, stacktrace.Propagate(err, "failed to auto-migrate database")
		}
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ShortID returns the first 8 characters of a run UUID.
func ShortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
