package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/repository"
	"github.com/lugf027/mywebsite/services"
)

const retentionTimeout = 2 * time.Minute

// RetentionJob deletes access events older than a fixed number of days.
type RetentionJob struct {
	events repository.EventStore
	clock  services.Clock
	days   int
	log    *zap.Logger
}

// NewRetentionJob keeps the last days days of access events.
func NewRetentionJob(events repository.EventStore, clock services.Clock, days int, log *zap.Logger) *RetentionJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &RetentionJob{events: events, clock: clock, days: days, log: log}
}

// Cutoff is the oldest instant that survives a run started now.
func (j *RetentionJob) Cutoff() time.Time {
	return j.clock.Now().AddDate(0, 0, -j.days)
}

// Prune deletes events older than Cutoff and returns how many went.
func (j *RetentionJob) Prune(ctx context.Context) (int64, error) {
	n, err := j.events.DeleteOlderThan(ctx, j.Cutoff())
	if err != nil {
		return 0, err
	}
	services.RetentionDeletedTotal.Add(float64(n))
	return n, nil
}

// Run implements cron.Job.
func (j *RetentionJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), retentionTimeout)
	defer cancel()
	n, err := j.Prune(ctx)
	if err != nil {
		j.log.Error("access log retention failed", zap.Int("days", j.days), zap.Error(err))
		return
	}
	j.log.Info("access log retention finished", zap.Int("days", j.days), zap.Int64("deleted", n))
}
