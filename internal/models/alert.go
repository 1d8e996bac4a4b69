package models

import (
	"errors"
	"time"
)

// Alert is a persisted record of a swarm notification dispatch. The alert
// history feeds the dashboard; the cooldown dedup itself lives in the
// detector and is keyed by GroupKey.
type Alert struct {
	ID          string    `json:"id"` // UUID
	GroupKey    string    `json:"group_key"`
	Summary     string    `json:"summary"`
	Wallets     int       `json:"wallets"`
	TotalVolume float64   `json:"total_volume"`
	SentAt      time.Time `json:"sent_at"`
	Success     bool      `json:"success"`
}

// Validate checks that all alert fields are valid.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert ID must not be empty")
	}
	if a.GroupKey == "" {
		return errors.New("alert group key must not be empty")
	}
	if a.Wallets < 0 {
		return errors.New("alert wallet count must not be negative")
	}
	if a.TotalVolume < 0 {
		return errors.New("alert total volume must not be negative")
	}
	if a.SentAt.IsZero() {
		return errors.New("sent at must be set")
	}
	return nil
}
