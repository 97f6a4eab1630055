package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules holds the tunable product numbers. Anything missing from the rules
// file keeps its default.
type Rules struct {
	Tiers         TierRules         `yaml:"tiers"`
	Notifications NotificationRules `yaml:"notifications"`
	Usage         UsageRules        `yaml:"usage"`
}

type TierRules struct {
	Mid  int `yaml:"mid"`
	High int `yaml:"high"`
}

type NotificationRules struct {
	MinGap     time.Duration `yaml:"min_gap"`
	DailyLimit int           `yaml:"daily_limit"`
}

type UsageRules struct {
	MoodChecksPerCycle  int `yaml:"mood_checks_per_cycle"`
	AISplitsPerCycle    int `yaml:"ai_splits_per_cycle"`
	AIScheduleUsesLimit int `yaml:"ai_schedule_uses_per_cycle"`
}

func DefaultRules() Rules {
	return Rules{
		Tiers: TierRules{Mid: 5, High: 15},
		Notifications: NotificationRules{
			MinGap:     2 * time.Hour,
			DailyLimit: 3,
		},
		Usage: UsageRules{
			MoodChecksPerCycle:  3,
			AISplitsPerCycle:    5,
			AIScheduleUsesLimit: 3,
		},
	}
}

// LoadRules reads a YAML rules file on top of DefaultRules.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("config: read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("config: parse rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}

func (r Rules) Validate() error {
	if r.Tiers.Mid < 0 || r.Tiers.High <= r.Tiers.Mid {
		return errors.New("config: tiers.high must be greater than tiers.mid")
	}
	if r.Notifications.DailyLimit < 1 {
		return errors.New("config: notifications.daily_limit must be at least 1")
	}
	if r.Notifications.MinGap < 0 {
		return errors.New("config: notifications.min_gap must not be negative")
	}
	return nil
}
