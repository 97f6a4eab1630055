// Package scheduler is the periodic safety net that closes due cycles even
// when users never open the app.
package scheduler

import (
	"cactus/backend/cycle"
	"cactus/backend/notify"
	"cactus/backend/store"
	"cactus/backend/utils"
	"context"
	"fmt"
	"log"
	"time"
)

type Options struct {
	Interval time.Duration
	// ReminderWindow is how close to the cycle end a reminder may go out.
	// Zero disables reminders.
	ReminderWindow time.Duration
	Logger         *log.Logger
}

type Scheduler struct {
	coord          *cycle.Coordinator
	notifier       *notify.Notifier
	store          store.Store
	interval       time.Duration
	reminderWindow time.Duration
	logger         *log.Logger
}

// Report counts what one tick did.
type Report struct {
	Resets    int `json:"resets"`
	Summaries int `json:"summaries"`
	Reminders int `json:"reminders"`
}

func New(coord *cycle.Coordinator, notifier *notify.Notifier, s store.Store, opts Options) (*Scheduler, error) {
	if coord == nil || notifier == nil || s == nil {
		return nil, fmt.Errorf("scheduler: coordinator, notifier and store are required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 6 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = utils.DiscardLogger()
	}
	return &Scheduler{
		coord:          coord,
		notifier:       notifier,
		store:          s,
		interval:       opts.Interval,
		reminderWindow: opts.ReminderWindow,
		logger:         opts.Logger,
	}, nil
}

// Run ticks once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		report := s.Tick(ctx)
		s.logger.Printf("sweep: %d reset(s), %d summary(ies), %d reminder(s)", report.Resets, report.Summaries, report.Reminders)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick closes every due cycle, mails the summaries and nudges users whose
// cycle ends soon.
func (s *Scheduler) Tick(ctx context.Context) Report {
	var report Report

	results, err := s.coord.Sweep(ctx)
	if err != nil {
		s.logger.Printf("sweep: %v", err)
	}
	reset := make(map[string]bool, len(results))
	for _, res := range results {
		report.Resets++
		reset[res.UserID] = true
		if s.notifier.DeliverSummary(ctx, res) {
			report.Summaries++
		}
	}

	if s.reminderWindow <= 0 {
		return report
	}
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.logger.Printf("sweep: list users: %v", err)
		return report
	}
	for _, id := range ids {
		if reset[id] || ctx.Err() != nil {
			continue
		}
		if s.remind(ctx, id) {
			report.Reminders++
		}
	}
	return report
}

func (s *Scheduler) remind(ctx context.Context, userID string) bool {
	status, err := s.coord.Status(ctx, userID)
	if err != nil {
		s.logger.Printf("sweep: status for %s: %v", userID, err)
		return false
	}
	if status.Due || time.Duration(status.HoursRemaining*float64(time.Hour)) > s.reminderWindow {
		return false
	}

	tasks, err := s.store.ListTasks(ctx, userID, false)
	if err != nil {
		s.logger.Printf("sweep: tasks for %s: %v", userID, err)
		return false
	}
	open := 0
	for _, t := range tasks {
		if !t.Completed {
			open++
		}
	}
	p, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return false
	}
	return s.notifier.Remind(ctx, userID, p.Email, status, open)
}
