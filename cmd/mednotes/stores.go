package main

import (
	"context"
	"io"

	"mednotes/internal/analytics"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/config"
	"mednotes/internal/db"
	"mednotes/internal/fixtures"
	"mednotes/internal/jobs"
	"mednotes/internal/progress"
	"mednotes/internal/session"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type stores struct {
	catalog   catalog.Store
	users     auth.UserStore
	bookmarks bookmark.Store
	progress  progress.Store
	queue     jobs.Queue
	slot      session.Slot
	analytics *analytics.Service

	closers []io.Closer
}

func (s *stores) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openStores picks the memory or Postgres backend and the session slot.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}
	var err error
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		err = s.openPostgres(ctx, cfg)
	default:
		err = s.openMemory(cfg)
	}
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.slot = session.NewMemorySlot()
	if cfg.RedisAddr != "" {
		rs, err := session.NewRedisSlot(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "connect redis")
		}
		s.slot = rs
		s.closers = append(s.closers, rs.Client)
		zap.L().Info("sessions stored in redis", zap.String("addr", cfg.RedisAddr))
	}

	activity, err := fixtures.ActivitySample()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	trend, err := fixtures.EngagementTrend()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.analytics = analytics.NewService(s.catalog, s.progress, activity, trend)
	return s, nil
}

func (s *stores) openMemory(cfg config.Config) error {
	notes := catalog.NewMemoryStore(cfg.SimulatedLatency)
	users := auth.NewMemoryUserStore(cfg.SimulatedLatency)
	marks := bookmark.NewMemoryStore(cfg.SimulatedLatency)
	prog := progress.NewMemoryStore(cfg.SimulatedLatency)

	if cfg.SeedFixtures {
		if err := seedMemory(notes, users, marks, prog); err != nil {
			return errors.Wrap(err, "seed fixtures")
		}
	}

	s.catalog, s.users, s.bookmarks, s.progress = notes, users, marks, prog
	s.queue = jobs.NewMemoryQueue()
	return nil
}

func seedMemory(notes *catalog.MemoryStore, users *auth.MemoryUserStore, marks *bookmark.MemoryStore, prog *progress.MemoryStore) error {
	n, err := fixtures.Notes()
	if err != nil {
		return err
	}
	u, err := fixtures.Users()
	if err != nil {
		return err
	}
	b, err := fixtures.Bookmarks()
	if err != nil {
		return err
	}
	p, err := fixtures.Progress()
	if err != nil {
		return err
	}
	notes.Seed(n)
	users.Seed(u)
	marks.Seed(b)
	prog.Seed(p)
	return nil
}

func (s *stores) openPostgres(ctx context.Context, cfg config.Config) error {
	gdb, err := db.Connect(cfg.DatabaseURL, cfg.Env != "production")
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	s.closers = append(s.closers, sqlDB)

	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return errors.Wrap(err, "migrate")
	}
	if cfg.SeedFixtures {
		if err := db.Seed(ctx, gdb); err != nil {
			return err
		}
	}

	s.catalog = &catalog.GormStore{DB: gdb}
	s.users = &auth.GormUserStore{DB: gdb}
	s.bookmarks = &bookmark.GormStore{DB: gdb}
	s.progress = &progress.GormStore{DB: gdb}
	s.queue = &jobs.Repo{DB: gdb}
	return nil
}
