package models

import (
	"fmt"
	"strings"
)

type Mood string

const (
	MoodEnergized Mood = "energized"
	MoodFocused   Mood = "focused"
	MoodNeutral   Mood = "neutral"
	MoodTired     Mood = "tired"
	MoodStressed  Mood = "stressed"
)

func (m Mood) IsValid() bool {
	switch m {
	case MoodEnergized, MoodFocused, MoodNeutral, MoodTired, MoodStressed:
		return true
	default:
		return false
	}
}

func ParseMood(input string) (Mood, error) {
	m := Mood(strings.TrimSpace(strings.ToLower(input)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid mood: %q", input)
	}
	return m, nil
}

// MoodTier is the companion's three-level mood ladder.
type MoodTier string

const (
	TierLow  MoodTier = "low"
	TierMid  MoodTier = "mid"
	TierHigh MoodTier = "high"
)

// Face is how the UI shows the tier.
func (t MoodTier) Face() string {
	switch t {
	case TierHigh:
		return "happy"
	case TierMid:
		return "neutral"
	default:
		return "sad"
	}
}
