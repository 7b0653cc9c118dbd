package activity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurir/internal/logger"
)

type fakeRepository struct {
	mu      sync.Mutex
	pushed  []LogEntry
	stored  []LogEntry
	loadErr error
}

func (r *fakeRepository) Push(_ context.Context, entry LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, entry)
	return nil
}

func (r *fakeRepository) Load(_ context.Context, limit int) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if limit > len(r.stored) {
		limit = len(r.stored)
	}
	return r.stored[:limit], nil
}

func entryWithID(id string) LogEntry {
	return LogEntry{
		ID:        id,
		Timestamp: time.Now(),
		Source:    "Grup A",
		Status:    StatusSuccess,
	}
}

func TestLogAppendNewestFirst(t *testing.T) {
	log := NewLog(100, nil, logger.NopLogger())
	ctx := context.Background()

	log.Append(ctx, entryWithID("first"))
	log.Append(ctx, entryWithID("second"))

	entries := log.List(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].ID)
	assert.Equal(t, "first", entries[1].ID)
}

func TestLogEvictsOldestBeyondCapacity(t *testing.T) {
	log := NewLog(100, nil, logger.NopLogger())
	ctx := context.Background()

	for i := 1; i <= 101; i++ {
		log.Append(ctx, entryWithID(fmt.Sprintf("entry-%d", i)))
	}

	assert.Equal(t, 100, log.Len())

	entries := log.List(0)
	require.Len(t, entries, 100)
	assert.Equal(t, "entry-101", entries[0].ID)
	assert.Equal(t, "entry-2", entries[99].ID)
}

func TestLogListLimit(t *testing.T) {
	log := NewLog(100, nil, logger.NopLogger())
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		log.Append(ctx, entryWithID(fmt.Sprintf("entry-%d", i)))
	}

	entries := log.List(3)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry-10", entries[0].ID)
	assert.Equal(t, "entry-8", entries[2].ID)

	assert.Len(t, log.List(50), 10)
	assert.Len(t, log.List(-1), 10)
}

func TestLogAppendPersistsToRepository(t *testing.T) {
	repo := &fakeRepository{}
	log := NewLog(100, repo, logger.NopLogger())

	log.Append(context.Background(), entryWithID("persisted"))

	require.Len(t, repo.pushed, 1)
	assert.Equal(t, "persisted", repo.pushed[0].ID)
}

func TestLogAppendPersistsAfterCallerGaveUp(t *testing.T) {
	repo := &fakeRepository{}
	log := NewLog(100, repo, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log.Append(ctx, entryWithID("late"))

	require.Len(t, repo.pushed, 1)
	assert.Equal(t, "late", repo.pushed[0].ID)
}

func TestLogRestore(t *testing.T) {
	repo := &fakeRepository{stored: []LogEntry{
		entryWithID("newest"),
		entryWithID("oldest"),
	}}
	log := NewLog(100, repo, logger.NopLogger())

	require.NoError(t, log.Restore(context.Background()))

	entries := log.List(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "newest", entries[0].ID)
}

func TestLogRestoreError(t *testing.T) {
	repo := &fakeRepository{loadErr: fmt.Errorf("redis unavailable")}
	log := NewLog(100, repo, logger.NopLogger())

	err := log.Restore(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, log.Len())
}
