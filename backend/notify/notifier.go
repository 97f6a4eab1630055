package notify

import (
	"cactus/backend/cycle"
	"cactus/backend/models"
	"cactus/backend/utils"
	"context"
	"fmt"
	"log"
	"strings"
)

// Notifier sends through a Channel when the Gate allows it. Delivery problems
// are logged and never returned.
type Notifier struct {
	gate    *Gate
	channel Channel
	logger  *log.Logger
}

func NewNotifier(gate *Gate, channel Channel, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &Notifier{gate: gate, channel: channel, logger: logger}
}

// DeliverSummary sends the summary of a performed reset and reports whether
// a message went out.
func (n *Notifier) DeliverSummary(ctx context.Context, res cycle.Result) bool {
	if !res.ResetPerformed || res.Summary == nil {
		return false
	}
	return n.deliver(ctx, SummaryMessage(res))
}

// Remind nudges a user whose cycle is about to close.
func (n *Notifier) Remind(ctx context.Context, userID, email string, status cycle.Status, openTasks int) bool {
	if openTasks == 0 {
		return false
	}
	return n.deliver(ctx, ReminderMessage(userID, email, status, openTasks))
}

func (n *Notifier) deliver(ctx context.Context, msg Message) bool {
	slot, err := n.gate.Reserve(ctx, msg.UserID, msg.Kind)
	if err != nil {
		n.logger.Printf("notify: gate check for %s failed: %v", msg.UserID, err)
		return false
	}
	if slot == nil {
		return false
	}

	if err := n.channel.Send(ctx, msg); err != nil {
		n.logger.Printf("notify: %s for %s not delivered: %v", msg.Kind, msg.UserID, err)
		if err := n.gate.Release(ctx, slot); err != nil {
			n.logger.Printf("notify: releasing %s slot for %s failed: %v", msg.Kind, msg.UserID, err)
		}
		return false
	}
	return true
}

func SummaryMessage(res cycle.Result) Message {
	s := res.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Your cactus closed yesterday's cycle: %d of %d tasks done.\n", s.CompletedCount, s.TotalTasks)
	if len(s.CompletedTitles) > 0 {
		b.WriteString("\nDone:\n")
		for _, t := range s.CompletedTitles {
			fmt.Fprintf(&b, "  + %s\n", t)
		}
	}
	if len(s.IncompleteTitles) > 0 {
		b.WriteString("\nLeft behind:\n")
		for _, t := range s.IncompleteTitles {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}
	if res.Standing != nil {
		fmt.Fprintf(&b, "\nStreak: %d day(s). Your cactus feels %s.\n", res.Standing.Streak, res.Standing.MoodTier.Face())
	}
	fmt.Fprintf(&b, "Next cycle closes %s.\n", s.NextCycleStart.Format("Jan 2 15:04 MST"))

	return Message{
		UserID:  res.UserID,
		To:      res.Email,
		Kind:    models.NotificationSummary,
		Subject: fmt.Sprintf("Cycle summary: %d/%d done", s.CompletedCount, s.TotalTasks),
		Body:    b.String(),
	}
}

func ReminderMessage(userID, email string, status cycle.Status, openTasks int) Message {
	return Message{
		UserID:  userID,
		To:      email,
		Kind:    models.NotificationReminder,
		Subject: fmt.Sprintf("%.0fh left in your cycle", status.HoursRemaining),
		Body: fmt.Sprintf("You have %d open task(s) and %.1f hours before the cycle closes. Your streak is %d.\n",
			openTasks, status.HoursRemaining, status.Streak),
	}
}
