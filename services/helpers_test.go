package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lugf027/mywebsite/config"
	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
	"github.com/lugf027/mywebsite/utils"
)

var errStorage = errors.New("storage unavailable")

func init() {
	utils.BcryptCost = bcrypt.MinCost
}

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func strPtr(s string) *string { return &s }

func mustAppend(t *testing.T, store repository.EventStore, ip string, at time.Time, mutate ...func(*models.AccessEvent)) {
	t.Helper()
	e := &models.AccessEvent{Path: "/api/v1/blogs", Method: "GET", ClientIP: ip, StatusCode: 200, OccurredAt: at}
	for _, m := range mutate {
		m(e)
	}
	if err := store.Append(context.Background(), e); err != nil {
		t.Fatalf("append event: %v", err)
	}
}

func mustCreateUser(t *testing.T, users repository.UserStore, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// fakeEventStore is an in-memory EventStore whose calls can be made to fail or block.
type fakeEventStore struct {
	mu       sync.Mutex
	events   []models.AccessEvent
	err      error
	failPath string
	started  chan struct{}
	block    chan struct{}
}

func (f *fakeEventStore) Append(ctx context.Context, e *models.AccessEvent) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil || (f.failPath != "" && e.Path == f.failPath) {
		return errStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEventStore) stored() []models.AccessEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AccessEvent(nil), f.events...)
}

func (f *fakeEventStore) Count(context.Context, repository.EventFilter) (int64, error) {
	return int64(len(f.stored())), f.err
}

func (f *fakeEventStore) CountDistinct(context.Context, repository.EventField, repository.EventFilter) (int64, error) {
	return 0, f.err
}

func (f *fakeEventStore) Scan(context.Context, time.Time, time.Time) ([]models.AccessEvent, error) {
	return f.stored(), f.err
}

func (f *fakeEventStore) TopBy(context.Context, repository.EventField, repository.EventFilter, int) ([]repository.KeyCount, error) {
	return nil, f.err
}

func (f *fakeEventStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, f.err
}
