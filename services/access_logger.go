package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

const (
	defaultAccessQueueSize = 1024
	defaultAccessWorkers   = 4
	accessWriteTimeout     = 5 * time.Second
)

// skipPrefixes are paths that never produce an access event.
var skipPrefixes = []string{"/health", "/favicon.ico", "/robots.txt", "/.well-known", "/metrics"}

// ShouldRecordPath reports whether a request to path is counted as traffic.
func ShouldRecordPath(path string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}

// AccessLogger persists access events off the request path. Record never blocks:
// a full queue drops the event, and write failures are logged and counted only.
type AccessLogger struct {
	events repository.EventStore
	log    *zap.Logger
	queue  chan *models.AccessEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAccessLogger starts workers goroutines draining a queue of queueSize events.
func NewAccessLogger(events repository.EventStore, log *zap.Logger, queueSize, workers int) *AccessLogger {
	if queueSize <= 0 {
		queueSize = defaultAccessQueueSize
	}
	if workers <= 0 {
		workers = defaultAccessWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &AccessLogger{
		events: events,
		log:    log,
		queue:  make(chan *models.AccessEvent, queueSize),
	}
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

// Record enqueues e and reports whether it was accepted.
func (l *AccessLogger) Record(e *models.AccessEvent) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		AccessEventsTotal.WithLabelValues(outcomeDropped).Inc()
		return false
	}
	// count before the send so a worker's Dec never runs first
	AccessQueueDepth.Inc()
	select {
	case l.queue <- e:
		return true
	default:
		AccessQueueDepth.Dec()
		AccessEventsTotal.WithLabelValues(outcomeDropped).Inc()
		l.log.Warn("access log queue full, event dropped", zap.String("path", e.Path))
		return false
	}
}

// Close stops accepting events and waits until queued ones are written.
func (l *AccessLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *AccessLogger) worker() {
	defer l.wg.Done()
	for e := range l.queue {
		AccessQueueDepth.Dec()
		l.write(e)
	}
}

func (l *AccessLogger) write(e *models.AccessEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), accessWriteTimeout)
	defer cancel()
	if err := l.events.Append(ctx, e); err != nil {
		AccessEventsTotal.WithLabelValues(outcomeFailed).Inc()
		l.log.Error("access event write failed",
			zap.String("path", e.Path),
			zap.String("ip", e.ClientIP),
			zap.Error(err),
		)
		return
	}
	AccessEventsTotal.WithLabelValues(outcomeStored).Inc()
}
