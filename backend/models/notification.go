package models

import "time"

type NotificationKind string

const (
	NotificationSummary  NotificationKind = "summary"
	NotificationReminder NotificationKind = "reminder"
)

// NotificationLog is one entry of the append-only send log.
type NotificationLog struct {
	ID     uint             `gorm:"primaryKey"`
	UserID string           `gorm:"index:idx_notification_user_sent;not null"`
	Kind   NotificationKind `gorm:"size:32"`
	SentAt time.Time        `gorm:"index:idx_notification_user_sent"`
	// Ref identifies the entry across send log backends.
	Ref string `gorm:"size:36;uniqueIndex"`
}

// All lists every model that InitDB migrates.
func All() []interface{} {
	return []interface{}{
		&UserProgress{},
		&Task{},
		&NotificationLog{},
	}
}
