package models

import (
	"strings"
	"time"
)

// ArchivePrefix opens the marker written in front of an archived task title.
const ArchivePrefix = "[Archived "

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Archived    bool       `gorm:"default:false;index" json:"archived"`
}

// ArchivedTitle returns title tagged with the archive marker for the given
// cycle-close date. Existing markers are stripped first so they never stack.
func ArchivedTitle(title string, closedAt time.Time) string {
	return ArchivePrefix + closedAt.Format("2006-01-02") + "] " + StripArchiveMarker(title)
}

// StripArchiveMarker removes every leading archive marker from title.
func StripArchiveMarker(title string) string {
	for strings.HasPrefix(title, ArchivePrefix) {
		end := strings.Index(title, "] ")
		if end < 0 {
			break
		}
		title = title[end+2:]
	}
	return title
}

// HasArchiveMarker reports whether title carries an archive marker.
func HasArchiveMarker(title string) bool {
	if !strings.HasPrefix(title, ArchivePrefix) {
		return false
	}
	return strings.Contains(title, "] ")
}
