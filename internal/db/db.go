package db

import (
	"context"
	"fmt"

	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/fixtures"
	"mednotes/internal/jobs"
	"mednotes/internal/progress"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func Connect(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&catalog.Note{},
		&auth.User{},
		&bookmark.Bookmark{},
		&progress.Progress{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	stmts := []string{
		// listing sorts
		`create index if not exists idx_notes_created on notes(created_at desc, id desc);`,
		`create index if not exists idx_notes_views on notes(view_count desc);`,
		`create index if not exists idx_bookmarks_viewer on bookmarks(viewer_id, timestamp desc);`,
		`create index if not exists idx_progress_owner on progress(owner, updated_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}
	return nil
}

// Seed loads the demo fixtures. Rows that already exist are left alone, so
// running it twice is harmless.
func Seed(ctx context.Context, gdb *gorm.DB) error {
	notes, err := fixtures.Notes()
	if err != nil {
		return err
	}
	users, err := fixtures.Users()
	if err != nil {
		return err
	}
	marks, err := fixtures.Bookmarks()
	if err != nil {
		return err
	}
	prog, err := fixtures.Progress()
	if err != nil {
		return err
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip := tx.Clauses(clause.OnConflict{DoNothing: true})
		for _, batch := range []struct {
			table string
			rows  any
		}{
			{"notes", &notes},
			{"users", &users},
			{"bookmarks", &marks},
			{"progress", &prog},
		} {
			if err := skip.Create(batch.rows).Error; err != nil {
				return errors.Wrapf(err, "seed %s", batch.table)
			}
			// fixtures carry explicit ids; move the sequence past them
			if err := tx.Exec(fmt.Sprintf(
				`select setval(pg_get_serial_sequence('%[1]s', 'id'), coalesce((select max(id) from %[1]s), 1))`,
				batch.table,
			)).Error; err != nil {
				return errors.Wrapf(err, "reset %s sequence", batch.table)
			}
		}
		return nil
	})
}
