package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CycleSummary is what a reset reports about the cycle it closed.
type CycleSummary struct {
	TotalTasks       int       `json:"total_tasks"`
	CompletedCount   int       `json:"completed_count"`
	IncompleteCount  int       `json:"incomplete_count"`
	CompletedTitles  []string  `json:"completed_titles"`
	IncompleteTitles []string  `json:"incomplete_titles"`
	NextCycleStart   time.Time `json:"next_cycle_start"`
}

// SetPendingSummary caches s on the record until the UI collects it.
func (p *UserProgress) SetPendingSummary(s CycleSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	p.PendingSummary = datatypes.JSON(data)
	return nil
}

// PendingCycleSummary decodes the cached summary, nil when there is none.
func (p *UserProgress) PendingCycleSummary() (*CycleSummary, error) {
	if len(p.PendingSummary) == 0 {
		return nil, nil
	}
	var s CycleSummary
	if err := json.Unmarshal(p.PendingSummary, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
