package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProgress is the per-user cycle record. Only the cycle coordinator moves
// CycleStart forward; feature code elsewhere bumps the counters.
type UserProgress struct {
	ID                    uint           `gorm:"primaryKey" json:"-"`
	UserID                string         `gorm:"uniqueIndex;not null" json:"user_id"`
	Email                 string         `json:"email,omitempty"`
	CycleStart            time.Time      `gorm:"not null;index" json:"cycle_start"`
	CurrentMood           *Mood          `json:"current_mood"`
	DailyMoodChecks       int            `gorm:"default:0" json:"daily_mood_checks"`
	DailyAISplits         int            `gorm:"column:daily_ai_splits;default:0" json:"daily_ai_splits"`
	AIScheduleUses        int            `gorm:"column:ai_schedule_uses;default:0" json:"ai_schedule_uses"`
	IsLocked              bool           `gorm:"default:false" json:"is_locked"`
	AllTimeCompletedCount int            `gorm:"default:0" json:"all_time_completed_count"`
	MoodScore             int            `gorm:"default:0" json:"mood_score"`
	CurrentStreakCount    int            `gorm:"default:0" json:"current_streak_count"`
	LongestStreakCount    int            `gorm:"default:0" json:"longest_streak_count"`
	LastResetAt           *time.Time     `json:"last_reset_at,omitempty"`
	PendingSummary        datatypes.JSON `json:"-"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// NewUserProgress returns the first-run record for a user whose cycle starts now.
func NewUserProgress(userID, email string, now time.Time) UserProgress {
	return UserProgress{
		UserID:     userID,
		Email:      email,
		CycleStart: now,
	}
}

// NextCycleStart is the moment the current cycle becomes eligible for reset.
func (p *UserProgress) NextCycleStart(length time.Duration) time.Time {
	return p.CycleStart.Add(length)
}

// ClearForNewCycle applies the per-cycle reset to the record.
func (p *UserProgress) ClearForNewCycle(start time.Time) {
	p.CycleStart = start
	p.CurrentMood = nil
	p.DailyMoodChecks = 0
	p.DailyAISplits = 0
	p.AIScheduleUses = 0
	p.IsLocked = false
	last := start
	p.LastResetAt = &last
}
