package notify

import (
	"cactus/backend/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormSendLog struct {
	DB *gorm.DB
}

func NewGormSendLog(db *gorm.DB) *GormSendLog {
	return &GormSendLog{DB: db}
}

func (l *GormSendLog) Append(ctx context.Context, entry models.NotificationLog) error {
	if entry.Ref == "" {
		entry.Ref = uuid.NewString()
	}
	if err := l.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("send log append: %w", err)
	}
	return nil
}

func (l *GormSendLog) Since(ctx context.Context, userID string, t time.Time) ([]models.NotificationLog, error) {
	var entries []models.NotificationLog
	err := l.DB.WithContext(ctx).
		Where("user_id = ? AND sent_at >= ?", userID, t.UTC()).
		Order("sent_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("send log since: %w", err)
	}
	return entries, nil
}

func (l *GormSendLog) Last(ctx context.Context, userID string) (*models.NotificationLog, error) {
	var entry models.NotificationLog
	err := l.DB.WithContext(ctx).Where("user_id = ?", userID).Order("sent_at DESC").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("send log last: %w", err)
	}
	return &entry, nil
}

// Reserve serializes per user with an advisory lock on postgres. On sqlite
// the pool holds a single connection, so transactions already run one at a
// time.
func (l *GormSendLog) Reserve(ctx context.Context, r Reservation) (bool, error) {
	reserved := false
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "notify:"+r.Entry.UserID).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.NotificationLog{}).
			Where("user_id = ? AND sent_at >= ?", r.Entry.UserID, r.DayStart.UTC()).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= r.Limit {
			return nil
		}

		var last []models.NotificationLog
		if err := tx.Where("user_id = ?", r.Entry.UserID).Order("sent_at DESC").Limit(1).Find(&last).Error; err != nil {
			return err
		}
		if len(last) > 0 && r.Entry.SentAt.Sub(last[0].SentAt) < r.MinGap {
			return nil
		}

		entry := r.Entry
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("send log reserve: %w", err)
	}
	return reserved, nil
}

func (l *GormSendLog) Cancel(ctx context.Context, entry models.NotificationLog) error {
	if entry.Ref == "" {
		return errors.New("send log cancel: entry has no ref")
	}
	if err := l.DB.WithContext(ctx).Where("ref = ?", entry.Ref).Delete(&models.NotificationLog{}).Error; err != nil {
		return fmt.Errorf("send log cancel: %w", err)
	}
	return nil
}
