package store

import (
	"cactus/backend/models"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Transactions run on a copy
// of the maps that replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   uint
	progress map[string]models.UserProgress
	tasks    map[string]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress: make(map[string]models.UserProgress),
		tasks:    make(map[string]models.Task),
	}
}

func (s *MemoryStore) GetProgress(_ context.Context, userID string) (*models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) EnsureProgress(_ context.Context, userID, email string, now time.Time) (*models.UserProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.progress[userID]; ok {
		if email != "" {
			p.Email = email
			s.progress[userID] = p
		}
		return &p, false, nil
	}

	s.nextID++
	p := models.NewUserProgress(userID, email, now)
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.progress[userID] = p
	return &p, true, nil
}

func (s *MemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.progress))
	for id := range s.progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		progress: make(map[string]models.UserProgress, len(s.progress)),
		tasks:    make(map[string]models.Task, len(s.tasks)),
	}
	for k, v := range s.progress {
		tx.progress[k] = v
	}
	for k, v := range s.tasks {
		tx.tasks[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	s.progress = tx.progress
	s.tasks = tx.tasks
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context, userID string, includeArchived bool) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.Task
	for _, t := range s.tasks {
		if t.UserID != userID || (t.Archived && !includeArchived) {
			continue
		}
		tasks = append(tasks, t)
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *MemoryStore) CompleteTask(_ context.Context, userID, taskID string, at time.Time) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, ErrNotFound
	}
	if task.Archived {
		return nil, ErrArchived
	}
	if task.Completed {
		return &task, nil
	}
	p, ok := s.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}

	completedAt := at
	task.Completed = true
	task.CompletedAt = &completedAt
	p.AllTimeCompletedCount++
	p.MoodScore++
	s.tasks[task.ID] = task
	s.progress[userID] = p
	return &task, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	if task.Archived {
		return ErrArchived
	}
	delete(s.tasks, task.ID)
	return nil
}

func (s *MemoryStore) RecordMood(_ context.Context, userID string, mood models.Mood, limit int) (*models.UserProgress, error) {
	return s.mutateProgress(userID, func(p *models.UserProgress) error {
		return applyMood(p, mood, limit)
	})
}

func (s *MemoryStore) Lock(_ context.Context, userID string) (*models.UserProgress, error) {
	return s.mutateProgress(userID, func(p *models.UserProgress) error {
		p.IsLocked = true
		return nil
	})
}

func (s *MemoryStore) IncrementUsage(_ context.Context, userID string, kind UsageKind, limit int) (*models.UserProgress, error) {
	return s.mutateProgress(userID, func(p *models.UserProgress) error {
		return applyUsage(p, kind, limit)
	})
}

func (s *MemoryStore) TakePendingSummary(_ context.Context, userID string) (*models.CycleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	summary, err := p.PendingCycleSummary()
	if err != nil || summary == nil {
		return nil, err
	}
	p.PendingSummary = nil
	s.progress[userID] = p
	return summary, nil
}

func (s *MemoryStore) mutateProgress(userID string, fn func(p *models.UserProgress) error) (*models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.progress[userID] = p
	return &p, nil
}

type memoryTx struct {
	progress map[string]models.UserProgress
	tasks    map[string]models.Task
}

func (t *memoryTx) GetProgress(_ context.Context, userID string) (*models.UserProgress, error) {
	p, ok := t.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memoryTx) ClaimCycle(_ context.Context, userID string, expected, next time.Time) (bool, error) {
	p, ok := t.progress[userID]
	if !ok || !p.CycleStart.Equal(expected) {
		return false, nil
	}
	p.CycleStart = next
	t.progress[userID] = p
	return true, nil
}

func (t *memoryTx) SaveProgress(_ context.Context, p *models.UserProgress) error {
	if _, ok := t.progress[p.UserID]; !ok {
		return ErrNotFound
	}
	t.progress[p.UserID] = *p
	return nil
}

func (t *memoryTx) OpenTasks(_ context.Context, userID string, until time.Time) ([]models.Task, error) {
	var tasks []models.Task
	for _, task := range t.tasks {
		if task.UserID != userID || task.Archived || !task.CreatedAt.Before(until) {
			continue
		}
		tasks = append(tasks, task)
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *memoryTx) ArchiveTask(_ context.Context, id, title string) error {
	task, ok := t.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.Title = title
	task.Archived = true
	t.tasks[id] = task
	return nil
}

func (t *memoryTx) DeleteTasks(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(t.tasks, id)
	}
	return nil
}

func sortTasks(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
