package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lugf027/mywebsite/config"
	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
	"github.com/lugf027/mywebsite/services"
)

func newEventStore(t *testing.T) repository.EventStore {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   "silent",
	}, models.All()...)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewEventStore(db)
}

func TestRetentionJobPrunesOldEvents(t *testing.T) {
	store := newEventStore(t)
	now := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	clock := services.NewManualClock(now)
	ctx := context.Background()

	for _, age := range []time.Duration{time.Hour, 89 * 24 * time.Hour, 91 * 24 * time.Hour, 400 * 24 * time.Hour} {
		e := &models.AccessEvent{Path: "/", Method: "GET", ClientIP: "a", OccurredAt: now.Add(-age)}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	job := NewRetentionJob(store, clock, 90, nil)
	if want := now.AddDate(0, 0, -90); !job.Cutoff().Equal(want) {
		t.Fatalf("Cutoff = %v, want %v", job.Cutoff(), want)
	}
	n, err := job.Prune(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v; want 2", n, err)
	}

	// a second run at the same instant has nothing left to do
	job.Run()
	left, err := store.Count(ctx, repository.EventFilter{})
	if err != nil || left != 2 {
		t.Fatalf("Count = %d, %v; want 2", left, err)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Register("bad", "not a cron spec", NewRetentionJob(newEventStore(t), services.NewManualClock(time.Now()), 1, nil)); err == nil {
		t.Fatalf("expected an error for an invalid spec")
	}
	if err := s.Register("daily", "@daily", NewRetentionJob(newEventStore(t), services.NewManualClock(time.Now()), 1, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.Start()
	s.Stop()
}
