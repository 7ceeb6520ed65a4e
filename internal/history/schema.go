package history

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS sessions (
	       seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	       id                   TEXT NOT NULL UNIQUE,
	       exercise             TEXT NOT NULL,
	       exercise_name        TEXT NOT NULL,
	       started_at           INTEGER NOT NULL,
	       date                 TEXT NOT NULL,
	       duration_minutes     INTEGER NOT NULL CHECK (duration_minutes >= 0),
	       reps                 INTEGER NOT NULL CHECK (reps >= 0),
	       performance          INTEGER CHECK (performance BETWEEN 0 AND 100),
	       most_common_feedback TEXT NOT NULL,
	       angles               TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS feedback_counts (
	       session_id TEXT NOT NULL,
	       position   INTEGER NOT NULL,
	       code       TEXT NOT NULL,
	       count      INTEGER NOT NULL CHECK (count > 0),
	       PRIMARY KEY (session_id, code)
	   );`

	insertSessionSQL = `
    INSERT INTO sessions (
        id, exercise, exercise_name, started_at, date,
        duration_minutes, reps, performance, most_common_feedback, angles
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertFeedbackSQL = `
    INSERT INTO feedback_counts (session_id, position, code, count)
    VALUES (?, ?, ?, ?)`

	pruneSessionsSQL = `
    DELETE FROM sessions
    WHERE seq NOT IN (SELECT seq FROM sessions ORDER BY seq DESC LIMIT ?)`

	pruneFeedbackSQL = `
    DELETE FROM feedback_counts
    WHERE session_id NOT IN (SELECT id FROM sessions)`

	selectSessionsSQL = `
    SELECT id, exercise, exercise_name, started_at, date,
           duration_minutes, reps, performance, most_common_feedback, angles
    FROM sessions
    ORDER BY seq DESC
    LIMIT ?`

	selectFeedbackSQL = `
    SELECT code, count
    FROM feedback_counts
    WHERE session_id = ?
    ORDER BY position`

	selectProgressSQL = `
    SELECT exercise, MAX(exercise_name), COUNT(*), SUM(reps), SUM(duration_minutes),
           AVG(performance), MAX(performance), MAX(date)
    FROM sessions
    GROUP BY exercise
    ORDER BY MIN(seq)`
)

// InitSchema creates the tables and records SchemaVersion.
func InitSchema(db *sql.DB, log logger.Logger) error {
	err := inTx(context.Background(), db, log, ErrSchemaInitFailed, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return errors.New().WithData(ErrSchemaInitFailed, errors.Failed("create_tables", err))
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`,
			SchemaVersion,
		); err != nil {
			return errors.New().WithData(ErrSchemaInitFailed, errors.Failed("record_version", err))
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("version", SchemaVersion).
		Msg("History schema initialized")

	return nil
}

// GetSchemaVersion returns the newest recorded schema version, or 0 for a
// database without one.
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_versions`).Scan(&version); err != nil {
		return 0, errors.New().WithData(ErrSchemaValidationFailed, errors.Failed("get_version", err))
	}

	return int(version.Int64), nil
}

// TableExists reports whether db has a table called name.
func TableExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, errors.Failed("check_table_exists", err).On(name))
	}

	return exists, nil
}
