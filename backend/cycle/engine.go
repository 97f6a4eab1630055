package cycle

import "cactus/backend/models"

// Tiers are the mood score thresholds for the mid and high tiers.
type Tiers struct {
	Mid  int
	High int
}

var DefaultTiers = Tiers{Mid: 5, High: 15}

// TierFor derives the mood tier from a score.
func (t Tiers) TierFor(score int) models.MoodTier {
	switch {
	case score >= t.High:
		return models.TierHigh
	case score >= t.Mid:
		return models.TierMid
	default:
		return models.TierLow
	}
}

// Standing is the streak and mood state carried from cycle to cycle.
type Standing struct {
	Streak        int
	LongestStreak int
	MoodScore     int
	MoodTier      models.MoodTier
}

// Outcome is how the closing cycle went.
type Outcome struct {
	CompletedCount  int
	IncompleteCount int
}

// Evaluate computes the standing after a cycle closes. It has no side effects.
func Evaluate(prev Standing, outcome Outcome, tiers Tiers) Standing {
	next := Standing{MoodScore: prev.MoodScore}

	if outcome.IncompleteCount > 0 {
		next.MoodScore -= outcome.IncompleteCount
		if next.MoodScore < 0 {
			next.MoodScore = 0
		}
	}
	next.MoodTier = tiers.TierFor(next.MoodScore)

	if outcome.CompletedCount >= 1 {
		next.Streak = prev.Streak + 1
	}
	next.LongestStreak = prev.LongestStreak
	if next.Streak > next.LongestStreak {
		next.LongestStreak = next.Streak
	}
	return next
}

// StandingOf reads the carried state off a progress record.
func StandingOf(p *models.UserProgress, tiers Tiers) Standing {
	return Standing{
		Streak:        p.CurrentStreakCount,
		LongestStreak: p.LongestStreakCount,
		MoodScore:     p.MoodScore,
		MoodTier:      tiers.TierFor(p.MoodScore),
	}
}

func (s Standing) apply(p *models.UserProgress) {
	p.CurrentStreakCount = s.Streak
	p.LongestStreakCount = s.LongestStreak
	p.MoodScore = s.MoodScore
}
