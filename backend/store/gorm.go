package store

import (
	"cactus/backend/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps progress and tasks in a relational database. The cycle
// claim is a conditional UPDATE, so it is safe across processes.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return getProgress(s.DB.WithContext(ctx), userID)
}

func (s *GormStore) EnsureProgress(ctx context.Context, userID, email string, now time.Time) (*models.UserProgress, bool, error) {
	db := s.DB.WithContext(ctx)
	p := models.NewUserProgress(userID, email, now)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&p)
	if res.Error != nil {
		return nil, false, fmt.Errorf("progress create: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return &p, true, nil
	}

	existing, err := getProgress(db, userID)
	if err != nil {
		return nil, false, err
	}
	if email != "" && existing.Email != email {
		if err := db.Model(existing).Update("email", email).Error; err != nil {
			return nil, false, fmt.Errorf("progress email: %w", err)
		}
		existing.Email = email
	}
	return existing, false, nil
}

func (s *GormStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.UserProgress{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("progress list: %w", err)
	}
	return ids, nil
}

func (s *GormStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("task create: %w", err)
	}
	return nil
}

func (s *GormStore) ListTasks(ctx context.Context, userID string, includeArchived bool) ([]models.Task, error) {
	query := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	var tasks []models.Task
	if err := query.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	return tasks, nil
}

func (s *GormStore) CompleteTask(ctx context.Context, userID, taskID string, at time.Time) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findTask(tx, userID, taskID, &task); err != nil {
			return err
		}
		if task.Archived {
			return ErrArchived
		}
		if task.Completed {
			return nil
		}

		completedAt := at
		task.Completed = true
		task.CompletedAt = &completedAt
		if err := tx.Model(&task).Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": completedAt,
		}).Error; err != nil {
			return fmt.Errorf("task complete: %w", err)
		}

		res := tx.Model(&models.UserProgress{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"all_time_completed_count": gorm.Expr("all_time_completed_count + 1"),
				"mood_score":               gorm.Expr("mood_score + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("progress complete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *GormStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := findTask(tx, userID, taskID, &task); err != nil {
			return err
		}
		if task.Archived {
			return ErrArchived
		}
		if err := tx.Delete(&task).Error; err != nil {
			return fmt.Errorf("task delete: %w", err)
		}
		return nil
	})
}

func (s *GormStore) RecordMood(ctx context.Context, userID string, mood models.Mood, limit int) (*models.UserProgress, error) {
	return s.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		return applyMood(p, mood, limit)
	})
}

func (s *GormStore) Lock(ctx context.Context, userID string) (*models.UserProgress, error) {
	return s.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		p.IsLocked = true
		return nil
	})
}

func (s *GormStore) IncrementUsage(ctx context.Context, userID string, kind UsageKind, limit int) (*models.UserProgress, error) {
	return s.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		return applyUsage(p, kind, limit)
	})
}

func (s *GormStore) TakePendingSummary(ctx context.Context, userID string) (*models.CycleSummary, error) {
	var summary *models.CycleSummary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		summary, err = p.PendingCycleSummary()
		if err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		if summary == nil {
			return nil
		}
		return tx.Model(p).Update("pending_summary", nil).Error
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// mutateProgress applies fn to a row-locked copy of the record and saves it.
func (s *GormStore) mutateProgress(ctx context.Context, userID string, fn func(p *models.UserProgress) error) (*models.UserProgress, error) {
	var out *models.UserProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("progress save: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return lockProgress(t.db.WithContext(ctx), userID)
}

func (t *gormTx) ClaimCycle(ctx context.Context, userID string, expected, next time.Time) (bool, error) {
	res := t.db.WithContext(ctx).Model(&models.UserProgress{}).
		Where("user_id = ? AND cycle_start = ?", userID, expected).
		Update("cycle_start", next)
	if res.Error != nil {
		return false, fmt.Errorf("progress claim: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	if err := t.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("progress save: %w", err)
	}
	return nil
}

func (t *gormTx) OpenTasks(ctx context.Context, userID string, until time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND archived = ? AND created_at < ?", userID, false, until).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	return tasks, nil
}

func (t *gormTx) ArchiveTask(ctx context.Context, id, title string) error {
	res := t.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "archived": true})
	if res.Error != nil {
		return fmt.Errorf("task archive: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	return nil
}

func getProgress(db *gorm.DB, userID string) (*models.UserProgress, error) {
	var p models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("progress get: %w", err)
	}
	return &p, nil
}

// lockProgress reads the record with FOR UPDATE where the dialect supports it.
func lockProgress(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return getProgress(tx, userID)
}

func findTask(tx *gorm.DB, userID, taskID string, task *models.Task) error {
	if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("task get: %w", err)
	}
	return nil
}
