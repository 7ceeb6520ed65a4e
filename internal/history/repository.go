package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/session"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
}

// NewRepository opens, and if needed creates or migrates, the sqlite
// history database at cfg.DBPath.
func NewRepository(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, errors.Failed("create_directory", err).On(cfg.DBPath))
	}

	dsn := "file:" + cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, errors.Failed("open_database", err).On(cfg.DBPath))
	}

	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}

	if err := ValidateAndUpdateSchema(db, backupDir, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("retain", cfg.Retain).
		Msg("History repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Save(ctx context.Context, rec *session.Record) error {
	errFactory := errors.New()

	if rec == nil {
		return errFactory.New(ErrInvalidRecord)
	}
	if rec.Empty() {
		return errFactory.New(ErrEmptySession)
	}

	angles, err := json.Marshal(rec.Angles)
	if err != nil {
		return errFactory.Wrap(ErrInvalidRecord, err)
	}

	var pruned int64
	err = inTx(ctx, r.db, r.logger, ErrTransactionFailed, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertSessionSQL,
			rec.ID.String(),
			rec.Exercise,
			rec.ExerciseName,
			rec.StartedAt.Unix(),
			rec.Date,
			rec.DurationMinutes,
			rec.Reps,
			*rec.Performance,
			string(rec.MostCommonFeedback),
			string(angles),
		); err != nil {
			return errFactory.WithData(ErrTransactionFailed, errors.Failed("insert_session", err).On(rec.ID.String()))
		}

		if rec.Feedback != nil {
			position := 0
			for pair := rec.Feedback.Oldest(); pair != nil; pair = pair.Next() {
				if _, err := tx.ExecContext(ctx, insertFeedbackSQL,
					rec.ID.String(), position, string(pair.Key), pair.Value); err != nil {
					return errFactory.WithData(ErrTransactionFailed, errors.Failed("insert_feedback", err).On(string(pair.Key)))
				}
				position++
			}
		}

		res, err := tx.ExecContext(ctx, pruneSessionsSQL, r.cfg.Retain)
		if err != nil {
			return errFactory.WithData(ErrTransactionFailed, errors.Failed("prune_sessions", err))
		}
		pruned, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, pruneFeedbackSQL); err != nil {
			return errFactory.WithData(ErrTransactionFailed, errors.Failed("prune_feedback", err))
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug().
		Str("id", rec.ID.String()).
		Int64("pruned", pruned).
		Msg("Saved session")

	return nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]*session.Record, error) {
	errFactory := errors.New()

	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, selectSessionsSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var records []*session.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	rows.Close()

	for _, rec := range records {
		if err := r.loadFeedback(ctx, rec); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (*session.Record, error) {
	var (
		rec         session.Record
		id          string
		startedAt   int64
		performance sql.NullInt64
		mostCommon  string
		angles      string
	)

	if err := rows.Scan(
		&id,
		&rec.Exercise,
		&rec.ExerciseName,
		&startedAt,
		&rec.Date,
		&rec.DurationMinutes,
		&rec.Reps,
		&performance,
		&mostCommon,
		&angles,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	rec.ID = parsed
	rec.StartedAt = time.Unix(startedAt, 0)
	rec.MostCommonFeedback = exercise.FeedbackCode(mostCommon)
	if performance.Valid {
		score := int(performance.Int64)
		rec.Performance = &score
	}
	if err := json.Unmarshal([]byte(angles), &rec.Angles); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *repository) loadFeedback(ctx context.Context, rec *session.Record) error {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectFeedbackSQL, rec.ID.String())
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	rec.Feedback = session.NewHistogram()
	for rows.Next() {
		var (
			code  string
			count int
		)
		if err := rows.Scan(&code, &count); err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
		rec.Feedback.Set(exercise.FeedbackCode(code), count)
	}

	if err := rows.Err(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) Progress(ctx context.Context) ([]Progress, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectProgressSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var progress []Progress
	for rows.Next() {
		var (
			p       Progress
			average sql.NullFloat64
			best    sql.NullInt64
		)
		if err := rows.Scan(
			&p.Exercise,
			&p.ExerciseName,
			&p.Sessions,
			&p.TotalReps,
			&p.TotalMinutes,
			&average,
			&best,
			&p.LastDate,
		); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}

		if average.Valid {
			avg := average.Float64
			p.AveragePerformance = &avg
		}
		if best.Valid {
			b := int(best.Int64)
			p.BestPerformance = &b
		}

		progress = append(progress, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return progress, nil
}

func (r *repository) Export(ctx context.Context, w io.Writer) error {
	records, err := r.Recent(ctx, 0)
	if err != nil {
		return err
	}

	oldestFirst := make([]*session.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		oldestFirst = append(oldestFirst, records[i])
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(oldestFirst); err != nil {
		return errors.New().Wrap(ErrExportFailed, err)
	}

	return nil
}

func (r *repository) Clear(ctx context.Context) error {
	err := inTx(ctx, r.db, r.logger, ErrTransactionFailed, func(tx *sql.Tx) error {
		for _, table := range historyTables[:2] {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return errors.New().WithData(ErrTransactionFailed, errors.Failed("clear", err).On(table))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info().Msg("Session history cleared")

	return nil
}

func (r *repository) Close() error {
	var err error

	if _, cerr := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil {
		err = multierr.Append(err, errors.New().WithData(ErrStorageClose, errors.Failed("checkpoint_wal", cerr)))
	}

	if cerr := r.db.Close(); cerr != nil {
		err = multierr.Append(err, errors.New().WithData(ErrStorageClose, errors.Failed("close_database", cerr)))
	}

	if err == nil {
		r.logger.Debug().Msg("History repository closed")
	}

	return err
}
