package activity

import (
	"context"
	"sync"
	"time"

	"kurir/internal/logger"
	"kurir/pkg/metrics"
)

const persistTimeout = 2 * time.Second

// Log is the bounded, newest-first record of dispatch attempts. The
// in-memory slice is the read path; the repository mirror is best-effort and
// never fails an append.
type Log struct {
	mu       sync.Mutex
	entries  []LogEntry
	capacity int
	repo     Repository
	logger   logger.Logger
}

func NewLog(capacity int, repo Repository, log logger.Logger) *Log {
	return &Log{
		entries:  make([]LogEntry, 0, capacity),
		capacity: capacity,
		repo:     repo,
		logger:   log,
	}
}

// Restore loads persisted entries at startup, replacing whatever the log
// currently holds.
func (l *Log) Restore(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}

	entries, err := l.repo.Load(ctx, l.capacity)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	metrics.SetActivityLogSize(len(entries))
	l.logger.InfowCtx(ctx, "Restored activity log",
		"entries", len(entries),
	)
	return nil
}

// Append inserts at the head and evicts the tail entry once the cap is
// exceeded. The dispatch must be able to record its outcome even when the
// caller has stopped waiting, so persistence runs on a detached context.
func (l *Log) Append(ctx context.Context, entry LogEntry) {
	l.mu.Lock()
	l.entries = append([]LogEntry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	size := len(l.entries)
	l.mu.Unlock()

	metrics.SetActivityLogSize(size)

	if l.repo == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := l.repo.Push(persistCtx, entry); err != nil {
		l.logger.WarnwCtx(ctx, "Failed to persist activity log entry",
			"error", err,
			"entry_id", entry.ID,
		)
	}
}

// List returns up to limit entries, newest first.
func (l *Log) List(limit int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}

	entries := make([]LogEntry, limit)
	copy(entries, l.entries[:limit])
	return entries
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
