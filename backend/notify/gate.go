// Package notify rate-limits and delivers cycle summaries and reminders. It
// sits outside the reset transaction: nothing here can undo a reset.
package notify

import (
	"cactus/backend/cycle"
	"cactus/backend/models"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SendLog is the append-only per-user record of sent notifications.
type SendLog interface {
	Append(ctx context.Context, entry models.NotificationLog) error
	// Since returns the user's entries sent at or after t, oldest first.
	Since(ctx context.Context, userID string, t time.Time) ([]models.NotificationLog, error)
	// Last returns the most recent entry, or nil when there is none.
	Last(ctx context.Context, userID string) (*models.NotificationLog, error)
	// Reserve appends r.Entry only if the rules in r still hold, checking and
	// appending in one atomic step.
	Reserve(ctx context.Context, r Reservation) (bool, error)
	// Cancel removes an entry appended by Reserve, matched by Ref.
	Cancel(ctx context.Context, entry models.NotificationLog) error
}

// Reservation is a conditional append: fewer than Limit entries since
// DayStart, and the newest one at least MinGap before Entry.SentAt.
type Reservation struct {
	Entry    models.NotificationLog
	DayStart time.Time
	MinGap   time.Duration
	Limit    int
}

type GateOptions struct {
	MinGap     time.Duration
	DailyLimit int
	Location   *time.Location
}

// Gate denies a send when the previous one was under MinGap ago or the user
// already got DailyLimit notifications today in Location.
type Gate struct {
	log        SendLog
	clock      cycle.Clock
	minGap     time.Duration
	dailyLimit int
	loc        *time.Location
}

func NewGate(log SendLog, clock cycle.Clock, opts GateOptions) *Gate {
	if clock == nil {
		clock = cycle.SystemClock{}
	}
	if opts.MinGap == 0 {
		opts.MinGap = 2 * time.Hour
	}
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = 3
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Gate{
		log:        log,
		clock:      clock,
		minGap:     opts.MinGap,
		dailyLimit: opts.DailyLimit,
		loc:        opts.Location,
	}
}

// ShouldNotify previews the gate without taking a slot.
func (g *Gate) ShouldNotify(ctx context.Context, userID string) (bool, error) {
	now := g.clock.Now()

	sentToday, err := g.log.Since(ctx, userID, startOfDay(now, g.loc))
	if err != nil {
		return false, fmt.Errorf("notify gate: %w", err)
	}
	if len(sentToday) >= g.dailyLimit {
		return false, nil
	}

	last, err := g.log.Last(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("notify gate: %w", err)
	}
	if last != nil && now.Sub(last.SentAt) < g.minGap {
		return false, nil
	}
	return true, nil
}

func (g *Gate) RecordSent(ctx context.Context, userID string, kind models.NotificationKind) error {
	return g.log.Append(ctx, g.entry(userID, kind))
}

// Reserve claims a send slot for userID. It returns nil when the gate denies
// the send. Two callers racing for the last slot cannot both get it.
func (g *Gate) Reserve(ctx context.Context, userID string, kind models.NotificationKind) (*models.NotificationLog, error) {
	entry := g.entry(userID, kind)
	ok, err := g.log.Reserve(ctx, Reservation{
		Entry:    entry,
		DayStart: startOfDay(entry.SentAt, g.loc),
		MinGap:   g.minGap,
		Limit:    g.dailyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("notify gate: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Release gives back a slot taken by Reserve whose send failed.
func (g *Gate) Release(ctx context.Context, entry *models.NotificationLog) error {
	if entry == nil {
		return nil
	}
	return g.log.Cancel(ctx, *entry)
}

func (g *Gate) entry(userID string, kind models.NotificationKind) models.NotificationLog {
	return models.NotificationLog{
		UserID: userID,
		Kind:   kind,
		SentAt: g.clock.Now().UTC().Truncate(time.Millisecond),
		Ref:    uuid.NewString(),
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
