// Package cycle runs the daily productivity cycle: deciding when a user's
// cycle has elapsed, closing it exactly once, and reporting what happened.
package cycle

import (
	"cactus/backend/models"
	"cactus/backend/store"
	"cactus/backend/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

const DefaultLength = 24 * time.Hour

var ErrTestResetDisabled = errors.New("cycle: test reset is disabled")

// Result is what a reset attempt reports back to its trigger.
type Result struct {
	UserID         string               `json:"user_id"`
	ResetPerformed bool                 `json:"reset_performed"`
	Summary        *models.CycleSummary `json:"summary,omitempty"`
	NextCycleStart time.Time            `json:"next_cycle_start"`
	Standing       *Standing            `json:"-"`
	Email          string               `json:"-"`
}

// Status answers "is a reset due, and how long until it is".
type Status struct {
	Due            bool            `json:"due"`
	HoursRemaining float64         `json:"hours_remaining"`
	CycleStart     time.Time       `json:"cycle_start"`
	NextCycleStart time.Time       `json:"next_cycle_start"`
	Streak         int             `json:"streak"`
	LongestStreak  int             `json:"longest_streak"`
	MoodScore      int             `json:"mood_score"`
	MoodTier       models.MoodTier `json:"mood_tier"`
	Face           string          `json:"face"`
	IsLocked       bool            `json:"is_locked"`
}

type Options struct {
	Length         time.Duration
	Tiers          Tiers
	AllowTestReset bool
	Logger         *log.Logger
}

// Coordinator is safe to run in any number of processes against one store;
// the store's cycle claim decides which caller closes a cycle.
type Coordinator struct {
	store          store.Store
	clock          Clock
	length         time.Duration
	tiers          Tiers
	allowTestReset bool
	logger         *log.Logger
}

func NewCoordinator(s store.Store, clock Clock, opts Options) *Coordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	if opts.Length <= 0 {
		opts.Length = DefaultLength
	}
	if opts.Tiers == (Tiers{}) {
		opts.Tiers = DefaultTiers
	}
	if opts.Logger == nil {
		opts.Logger = utils.DiscardLogger()
	}
	return &Coordinator{
		store:          s,
		clock:          clock,
		length:         opts.Length,
		tiers:          opts.Tiers,
		allowTestReset: opts.AllowTestReset,
		logger:         opts.Logger,
	}
}

func (c *Coordinator) Tiers() Tiers { return c.tiers }

// CheckAndReset closes the user's cycle if it has run its full length.
func (c *Coordinator) CheckAndReset(ctx context.Context, userID string) (Result, error) {
	return c.run(ctx, userID, "", false)
}

// CheckAndResetAs is CheckAndReset for an authenticated caller whose email
// should be kept on the record for summary delivery.
func (c *Coordinator) CheckAndResetAs(ctx context.Context, userID, email string) (Result, error) {
	return c.run(ctx, userID, email, false)
}

// ResetNow closes the current cycle regardless of its age. It goes through
// the same claim as CheckAndReset, so it still cannot double-close a cycle.
func (c *Coordinator) ResetNow(ctx context.Context, userID string) (Result, error) {
	if !c.allowTestReset {
		return Result{}, ErrTestResetDisabled
	}
	return c.run(ctx, userID, "", true)
}

func (c *Coordinator) Status(ctx context.Context, userID string) (Status, error) {
	now := c.now()
	p, _, err := c.store.EnsureProgress(ctx, userID, "", now)
	if err != nil {
		return Status{}, fmt.Errorf("cycle status: %w", err)
	}

	next := p.NextCycleStart(c.length)
	remaining := next.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	tier := c.tiers.TierFor(p.MoodScore)
	return Status{
		Due:            !now.Before(next),
		HoursRemaining: math.Round(remaining.Hours()*10) / 10,
		CycleStart:     p.CycleStart,
		NextCycleStart: next,
		Streak:         p.CurrentStreakCount,
		LongestStreak:  p.LongestStreakCount,
		MoodScore:      p.MoodScore,
		MoodTier:       tier,
		Face:           tier.Face(),
		IsLocked:       p.IsLocked,
	}, nil
}

// Sweep runs CheckAndReset for every known user and returns the resets it
// performed. A failing user is logged and skipped.
func (c *Coordinator) Sweep(ctx context.Context) ([]Result, error) {
	ids, err := c.store.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("cycle sweep: %w", err)
	}

	var performed []Result
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return performed, err
		}
		res, err := c.CheckAndReset(ctx, id)
		if err != nil {
			c.logger.Printf("sweep: reset failed for %s: %v", id, err)
			continue
		}
		if res.ResetPerformed {
			performed = append(performed, res)
		}
	}
	return performed, nil
}

func (c *Coordinator) now() time.Time {
	// Microseconds are what postgres keeps; the claim compares stored values.
	return c.clock.Now().UTC().Truncate(time.Microsecond)
}

func (c *Coordinator) run(ctx context.Context, userID, email string, force bool) (Result, error) {
	now := c.now()
	p, created, err := c.store.EnsureProgress(ctx, userID, email, now)
	if err != nil {
		return Result{UserID: userID}, fmt.Errorf("cycle check: %w", err)
	}

	notDue := Result{UserID: userID, NextCycleStart: p.NextCycleStart(c.length)}
	if created || now.Before(p.CycleStart) {
		return notDue, nil
	}
	if !force && now.Before(notDue.NextCycleStart) {
		return notDue, nil
	}

	res, err := c.reset(ctx, userID, p.CycleStart, now)
	if err != nil {
		c.logger.Printf("cycle reset aborted for %s: %v", userID, err)
		return notDue, err
	}
	return res, nil
}

// reset closes the cycle that started at expected. Claim, archive, evaluate
// and save happen in one transaction.
func (c *Coordinator) reset(ctx context.Context, userID string, expected, now time.Time) (Result, error) {
	var (
		res  Result
		lost bool
	)
	err := c.store.Transact(ctx, func(tx store.Tx) error {
		won, err := tx.ClaimCycle(ctx, userID, expected, now)
		if err != nil {
			return err
		}
		if !won {
			lost = true
			return nil
		}

		p, err := tx.GetProgress(ctx, userID)
		if err != nil {
			return err
		}

		part, err := Archive(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		standing := Evaluate(StandingOf(p, c.tiers), part.Outcome(), c.tiers)
		standing.apply(p)
		p.ClearForNewCycle(now)

		next := now.Add(c.length)
		summary := part.Summary(next)
		if err := p.SetPendingSummary(summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		if err := tx.SaveProgress(ctx, p); err != nil {
			return err
		}

		res = Result{
			UserID:         userID,
			ResetPerformed: true,
			Summary:        &summary,
			NextCycleStart: next,
			Standing:       &standing,
			Email:          p.Email,
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if lost {
		// Someone else closed this cycle; report their cycle instead.
		p, err := c.store.GetProgress(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		return Result{UserID: userID, NextCycleStart: p.NextCycleStart(c.length)}, nil
	}

	c.logger.Printf("cycle reset for %s: completed=%d incomplete=%d streak=%d mood=%d (%s)",
		userID, res.Summary.CompletedCount, res.Summary.IncompleteCount,
		res.Standing.Streak, res.Standing.MoodScore, res.Standing.MoodTier)
	return res, nil
}
