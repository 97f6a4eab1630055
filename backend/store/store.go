// Package store is the data access layer over user progress, tasks and the
// cycle bookkeeping that goes with them.
package store

import (
	"cactus/backend/models"
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrArchived     = errors.New("store: task is archived")
	ErrLocked       = errors.New("store: cycle is locked")
	ErrLimitReached = errors.New("store: daily limit reached")
)

// UsageKind names a per-cycle usage counter.
type UsageKind string

const (
	UsageAISplit    UsageKind = "ai_split"
	UsageAISchedule UsageKind = "ai_schedule"
)

func (k UsageKind) IsValid() bool {
	return k == UsageAISplit || k == UsageAISchedule
}

// Tx is the view of the store inside one all-or-nothing unit of work.
type Tx interface {
	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	// ClaimCycle moves cycle_start from expected to next and reports whether
	// this caller won. A false result means another caller already moved it.
	ClaimCycle(ctx context.Context, userID string, expected, next time.Time) (bool, error)
	SaveProgress(ctx context.Context, p *models.UserProgress) error
	// OpenTasks returns the non-archived tasks with created_at < until. Tasks
	// of earlier cycles are archived or deleted by their reset, so this is the
	// closing cycle plus any task whose insert committed after the previous
	// reset had already read the cycle.
	OpenTasks(ctx context.Context, userID string, until time.Time) ([]models.Task, error)
	ArchiveTask(ctx context.Context, id, title string) error
	DeleteTasks(ctx context.Context, ids []string) error
}

type Store interface {
	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	// EnsureProgress returns the user's record, creating it with
	// CycleStart=now when absent. created is true only for the caller that
	// inserted the row.
	EnsureProgress(ctx context.Context, userID, email string, now time.Time) (p *models.UserProgress, created bool, err error)
	ListUserIDs(ctx context.Context) ([]string, error)
	// Transact runs fn atomically. Any error from fn discards every change
	// fn made.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	CreateTask(ctx context.Context, task *models.Task) error
	ListTasks(ctx context.Context, userID string, includeArchived bool) ([]models.Task, error)
	CompleteTask(ctx context.Context, userID, taskID string, at time.Time) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	RecordMood(ctx context.Context, userID string, mood models.Mood, limit int) (*models.UserProgress, error)
	Lock(ctx context.Context, userID string) (*models.UserProgress, error)
	IncrementUsage(ctx context.Context, userID string, kind UsageKind, limit int) (*models.UserProgress, error)
	TakePendingSummary(ctx context.Context, userID string) (*models.CycleSummary, error)
}

// applyMood and applyUsage hold the counter rules shared by both stores.
func applyMood(p *models.UserProgress, mood models.Mood, limit int) error {
	if p.IsLocked {
		return ErrLocked
	}
	if limit > 0 && p.DailyMoodChecks >= limit {
		return ErrLimitReached
	}
	m := mood
	p.CurrentMood = &m
	p.DailyMoodChecks++
	return nil
}

func applyUsage(p *models.UserProgress, kind UsageKind, limit int) error {
	counter := &p.DailyAISplits
	if kind == UsageAISchedule {
		counter = &p.AIScheduleUses
	}
	if limit > 0 && *counter >= limit {
		return ErrLimitReached
	}
	*counter++
	return nil
}
