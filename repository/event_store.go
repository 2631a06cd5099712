package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lugf027/mywebsite/models"
)

// ErrNotFound is returned when a lookup by id or key matches no row.
var ErrNotFound = errors.New("record not found")

// EventField names a groupable access_events column.
type EventField string

const (
	FieldClientIP  EventField = "client_ip"
	FieldReferer   EventField = "referer"
	FieldUserAgent EventField = "user_agent"
	FieldPath      EventField = "path"
)

func (f EventField) column() (string, error) {
	switch f {
	case FieldClientIP, FieldReferer, FieldUserAgent, FieldPath:
		return string(f), nil
	}
	return "", fmt.Errorf("unknown event field %q", string(f))
}

// EventFilter restricts an event query. Since is inclusive, Until exclusive.
type EventFilter struct {
	Since   *time.Time
	Until   *time.Time
	NotNull []EventField
}

// KeyCount is one row of a grouped count. Key is nil for the NULL group.
type KeyCount struct {
	Key   *string
	Count int64
}

// EventStore is the append-only access log.
type EventStore interface {
	Append(ctx context.Context, event *models.AccessEvent) error
	Count(ctx context.Context, filter EventFilter) (int64, error)
	CountDistinct(ctx context.Context, field EventField, filter EventFilter) (int64, error)
	Scan(ctx context.Context, from, to time.Time) ([]models.AccessEvent, error)
	TopBy(ctx context.Context, field EventField, filter EventFilter, limit int) ([]KeyCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormEventStore struct {
	db *gorm.DB
}

// NewEventStore returns an EventStore backed by the access_events table.
func NewEventStore(db *gorm.DB) EventStore {
	return &gormEventStore{db: db}
}

func (s *gormEventStore) Append(ctx context.Context, event *models.AccessEvent) error {
	event.OccurredAt = event.OccurredAt.UTC()
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append access event: %w", err)
	}
	return nil
}

func (s *gormEventStore) Count(ctx context.Context, filter EventFilter) (int64, error) {
	q, err := s.filtered(ctx, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count access events: %w", err)
	}
	return n, nil
}

func (s *gormEventStore) CountDistinct(ctx context.Context, field EventField, filter EventFilter) (int64, error) {
	col, err := field.column()
	if err != nil {
		return 0, err
	}
	q, err := s.filtered(ctx, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Distinct(col).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count distinct %s: %w", col, err)
	}
	return n, nil
}

func (s *gormEventStore) Scan(ctx context.Context, from, to time.Time) ([]models.AccessEvent, error) {
	var events []models.AccessEvent
	err := s.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at < ?", from.UTC(), to.UTC()).
		Order("occurred_at ASC").Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("scan access events: %w", err)
	}
	return events, nil
}

type keyCountRow struct {
	GroupKey *string
	Hits     int64
}

func (s *gormEventStore) TopBy(ctx context.Context, field EventField, filter EventFilter, limit int) ([]KeyCount, error) {
	col, err := field.column()
	if err != nil {
		return nil, err
	}
	q, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}
	q = q.Select(col + " AS group_key, COUNT(*) AS hits").
		Group(col).
		Order("hits DESC").Order("group_key ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []keyCountRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("group access events by %s: %w", col, err)
	}
	out := make([]KeyCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, KeyCount{Key: r.GroupKey, Count: r.Hits})
	}
	return out, nil
}

func (s *gormEventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("occurred_at < ?", cutoff.UTC()).Delete(&models.AccessEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete access events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormEventStore) filtered(ctx context.Context, filter EventFilter) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.AccessEvent{})
	if filter.Since != nil {
		q = q.Where("occurred_at >= ?", filter.Since.UTC())
	}
	if filter.Until != nil {
		q = q.Where("occurred_at < ?", filter.Until.UTC())
	}
	for _, f := range filter.NotNull {
		col, err := f.column()
		if err != nil {
			return nil, err
		}
		q = q.Where(col + " IS NOT NULL")
	}
	return q, nil
}
