// Package models defines the core domain entities for the swarm watcher.
// These models represent observed whale trades, detected swarms, and sent
// alerts. All persisted models include built-in validation to ensure data
// integrity throughout the application.
//
// Terminology:
//   - Whale: a tracked wallet address believed to belong to a profitable trader.
//   - Swarm: several whales independently taking the same position on the same
//     market within a short interval.
package models

import (
	"errors"
	"time"
)

// Trade is a single normalized whale trade observed on the indexer.
// It is a value record: once created by the fetcher it is never mutated,
// only appended to the trade window and eventually pruned by age.
type Trade struct {
	ID          string    `json:"id"`           // Indexer order ID, globally unique, dedup key
	Wallet      string    `json:"wallet"`       // Whale wallet address (opaque)
	MarketTitle string    `json:"market_title"` // Display title, truncated
	Outcome     string    `json:"outcome"`      // Side taken, e.g. "Yes"
	GroupKey    string    `json:"group_key"`    // conditionID + "-" + outcome
	WhaleAmount float64   `json:"whale_amount"` // Trade size in USDC
	CopyAmount  float64   `json:"copy_amount"`  // WhaleAmount × copy fraction
	ObservedAt  time.Time `json:"observed_at"`  // Source timestamp, not arrival time
	ActionLink  string    `json:"action_link"`  // Pre-filled Polymarket deep link (advisory)
}

// Validate checks that all trade fields are valid.
func (t *Trade) Validate() error {
	if t.ID == "" {
		return errors.New("trade ID must not be empty")
	}
	if t.Wallet == "" {
		return errors.New("trade wallet must not be empty")
	}
	if t.GroupKey == "" {
		return errors.New("trade group key must not be empty")
	}
	if t.WhaleAmount < 0 {
		return errors.New("whale amount must not be negative")
	}
	if t.CopyAmount < 0 {
		return errors.New("copy amount must not be negative")
	}
	if t.ObservedAt.IsZero() {
		return errors.New("observed at must be set")
	}
	return nil
}
