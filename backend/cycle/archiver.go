package cycle

import (
	"cactus/backend/models"
	"cactus/backend/store"
	"context"
	"fmt"
	"time"
)

// Partition splits a closing cycle's tasks. Titles are captured before any
// task is rewritten or deleted.
type Partition struct {
	Completed  []models.Task
	Incomplete []models.Task
}

func (p Partition) Outcome() Outcome {
	return Outcome{CompletedCount: len(p.Completed), IncompleteCount: len(p.Incomplete)}
}

// Summary builds the report for the cycle this partition closed.
func (p Partition) Summary(next time.Time) models.CycleSummary {
	s := models.CycleSummary{
		TotalTasks:       len(p.Completed) + len(p.Incomplete),
		CompletedCount:   len(p.Completed),
		IncompleteCount:  len(p.Incomplete),
		CompletedTitles:  make([]string, 0, len(p.Completed)),
		IncompleteTitles: make([]string, 0, len(p.Incomplete)),
		NextCycleStart:   next,
	}
	for _, t := range p.Completed {
		s.CompletedTitles = append(s.CompletedTitles, models.StripArchiveMarker(t.Title))
	}
	for _, t := range p.Incomplete {
		s.IncompleteTitles = append(s.IncompleteTitles, t.Title)
	}
	return s
}

// Archive closes the cycle ending at closedAt: every open task created before
// closedAt is taken, completed ones get the archive marker for closedAt and
// incomplete ones are deleted. A task created before the previous reset whose
// insert landed after that reset read the cycle is swept here as well.
func Archive(ctx context.Context, tx store.Tx, userID string, closedAt time.Time) (Partition, error) {
	tasks, err := tx.OpenTasks(ctx, userID, closedAt)
	if err != nil {
		return Partition{}, err
	}

	var part Partition
	for _, t := range tasks {
		if t.Completed {
			part.Completed = append(part.Completed, t)
		} else {
			part.Incomplete = append(part.Incomplete, t)
		}
	}

	for _, t := range part.Completed {
		if err := tx.ArchiveTask(ctx, t.ID, models.ArchivedTitle(t.Title, closedAt)); err != nil {
			return Partition{}, fmt.Errorf("archive %s: %w", t.ID, err)
		}
	}

	ids := make([]string, 0, len(part.Incomplete))
	for _, t := range part.Incomplete {
		ids = append(ids, t.ID)
	}
	if err := tx.DeleteTasks(ctx, ids); err != nil {
		return Partition{}, err
	}
	return part, nil
}
