package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/dbpool"
	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
)

// newUoW builds a unit of work over a pooled file-backed SQLite database,
// the same wiring the local fallback uses in production.
func newUoW(t *testing.T) *repo.UnitOfWork {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services_test.db")

	boot, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(boot); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := boot.DB(); err == nil {
		_ = sqlDB.Close()
	}

	pool := dbpool.New(repo.NewSQLiteFactory(path), dbpool.Options{Capacity: 2}, zerolog.Nop())
	t.Cleanup(func() { _ = pool.Close() })
	return repo.NewUnitOfWork(pool, zerolog.Nop())
}

func mustUser(t *testing.T, uow *repo.UnitOfWork, phone string) *domain.User {
	t.Helper()
	var u *domain.User
	err := uow.Do(context.Background(), func(tx *gorm.DB) error {
		var err error
		u, err = repo.CreateUser(context.Background(), tx, "Ada", "Lovelace", phone, "", "")
		return err
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func mustEvent(t *testing.T, uow *repo.UnitOfWork, ev *domain.Event) *domain.Event {
	t.Helper()
	err := uow.Do(context.Background(), func(tx *gorm.DB) error {
		_, err := repo.CreateEvent(context.Background(), tx, ev)
		return err
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func mustInstance(t *testing.T, uow *repo.UnitOfWork, userID, parentID uint, at time.Time) *domain.Event {
	t.Helper()
	return mustEvent(t, uow, &domain.Event{
		Description:   "dentist",
		EventTime:     at,
		UserID:        userID,
		ParentEventID: &parentID,
	})
}
