package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"sunolegal/internal/models"
)

// maxFailedTasks bounds how many dead tasks stay inspectable in memory.
const maxFailedTasks = 1000

// MemoryTaskStore keeps sync tasks in process memory when SQLite is not configured.
// Completed tasks are dropped; failed ones are kept up to maxFailed, oldest evicted first.
type MemoryTaskStore struct {
	mu        sync.Mutex
	nextID    int64
	tasks     map[int64]*models.SyncTask
	failed    []int64
	maxFailed int
	now       func() time.Time
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks:     make(map[int64]*models.SyncTask),
		maxFailed: maxFailedTasks,
		now:       time.Now,
	}
}

func (s *MemoryTaskStore) CreateSyncTask(_ context.Context, task *models.SyncTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	task.ID = s.nextID
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	task.CreatedAt = s.now()
	stored := *task
	s.tasks[task.ID] = &stored
	return nil
}

func (s *MemoryTaskStore) GetPendingSyncTasks(_ context.Context, limit int) ([]models.SyncTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]models.SyncTask, 0)
	for _, t := range s.tasks {
		if t.Status != models.TaskStatusPending && t.Status != models.TaskStatusRetry {
			continue
		}
		if t.NextRetryAt != nil && t.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTaskStore) UpdateSyncTaskStatus(_ context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return errors.New("sync task not found")
	}
	t.Status = status
	t.NextRetryAt = nextRetryAt
	t.LastError = nil
	if errMsg != "" {
		t.LastError = &errMsg
	}
	switch status {
	case models.TaskStatusRetry:
		t.RetryCount++
	case models.TaskStatusCompleted:
		delete(s.tasks, id)
	case models.TaskStatusFailed:
		now := s.now()
		t.ProcessedAt = &now
		s.failed = append(s.failed, id)
		for len(s.failed) > s.maxFailed {
			delete(s.tasks, s.failed[0])
			s.failed = s.failed[1:]
		}
	}
	return nil
}

// Get returns a copy of a stored task.
func (s *MemoryTaskStore) Get(id int64) (models.SyncTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.SyncTask{}, false
	}
	return *t, true
}
