package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/logger"
)

// historyTables lists the tables in drop order.
var historyTables = []string{"feedback_counts", "sessions", "schema_versions"}

// backupDatabase copies db to a versioned, timestamped file in dir.
func backupDatabase(db *sql.DB, dir string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, errors.Failed("create_backup_dir", err).On(dir))
	}

	name := fmt.Sprintf("history_v%d_%s.db", version, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)

	// VACUUM INTO takes a literal and must run outside a transaction
	literal := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := db.Exec("VACUUM INTO " + literal); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, errors.Failed("create_backup", err).On(path))
	}

	log.Info().
		Str("path", path).
		Int("version", version).
		Msg("Database backup created")

	return path, nil
}

// ValidateAndUpdateSchema brings db to SchemaVersion. A database written by
// another schema version is copied to backupDir, then rebuilt empty.
func ValidateAndUpdateSchema(db *sql.DB, backupDir string, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return errors.New().Wrap(ErrSchemaValidationFailed, err)
	}

	switch version {
	case SchemaVersion:
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	case 0:
		log.Debug().Msg("No schema found")
	default:
		log.Warn().
			Int("found", version).
			Int("expected", SchemaVersion).
			Msg("Schema version mismatch, rebuilding history")

		if _, err := backupDatabase(db, backupDir, version, log); err != nil {
			return err
		}
	}

	if err := dropTables(db, log); err != nil {
		return err
	}

	return InitSchema(db, log)
}

func dropTables(db *sql.DB, log logger.Logger) error {
	return inTx(context.Background(), db, log, ErrSchemaMigrationFailed, func(tx *sql.Tx) error {
		for _, table := range historyTables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.New().WithData(ErrSchemaMigrationFailed, errors.Failed("drop_table", err).On(table))
			}
		}
		return nil
	})
}

// inTx runs fn in a transaction, committing when fn succeeds.
func inTx(ctx context.Context, db *sql.DB, log logger.Logger, code errors.ErrorCode, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New().WithData(code, errors.Failed("begin", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New().WithData(code, errors.Failed("commit", err))
	}

	return nil
}
