// Package sqlite mirrors internal/repository's aggregate-per-file
// repositories against an embedded SQLite file instead of Postgres, for
// schedulerctl's offline/local runs (spec §2 row 14). Grounded in
// javiermolinar-sancho's internal/db: raw CREATE TABLE IF NOT EXISTS
// migrations run once at open, database/sql over modernc.org/sqlite.
package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	exam_date DATETIME NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS source_files (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	file_id TEXT,
	input_hash TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	result TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	course_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	topic_key TEXT NOT NULL,
	title TEXT NOT NULL,
	difficulty_weight INTEGER NOT NULL,
	exam_importance INTEGER NOT NULL,
	estimated_hours REAL NOT NULL,
	confidence_level TEXT NOT NULL,
	notes TEXT,
	source_page INTEGER,
	source_quote TEXT,
	prerequisites TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	extraction_run_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_schedule_preferences (
	user_id TEXT PRIMARY KEY,
	daily_capacity REAL NOT NULL,
	weekly_off_days TEXT NOT NULL DEFAULT '[]',
	blackout_dates TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS study_plans (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	plan_version INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS study_plan_days (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	plan_version INTEGER NOT NULL,
	date DATETIME NOT NULL,
	total_hours REAL NOT NULL,
	is_off_day INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS study_plan_items (
	id TEXT PRIMARY KEY,
	day_id TEXT NOT NULL,
	topic_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	allocated_hours REAL NOT NULL,
	sequence_order INTEGER NOT NULL,
	is_review INTEGER NOT NULL DEFAULT 0
);
`

// Open creates/migrates the SQLite file at path and returns a handle shared
// by every per-aggregate repository schedulerctl constructs over it.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to sqlite store: %w", err)
	}
	// modernc.org/sqlite serializes writers at the connection level; WAL plus
	// a single connection avoids "database is locked" under the bulk
	// runner's concurrent workers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrating sqlite store: %w", err)
	}
	return db, nil
}

// jsonStrings persists a []string as a JSON array column, the SQLite
// stand-in for pq.StringArray used throughout internal/repository.
type jsonStrings []string

func (j jsonStrings) Value() (driver.Value, error) {
	if j == nil {
		j = jsonStrings{}
	}
	b, err := json.Marshal([]string(j))
	return string(b), err
}

func (j *jsonStrings) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported scan type %T for jsonStrings", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*j = jsonStrings(out)
	return nil
}
