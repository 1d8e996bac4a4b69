package models

import "time"

// Swarm is a derived, ephemeral grouping of trades sharing a group key,
// recomputed from scratch on every detection pass. It has no identity beyond
// one pass; alert deduplication is keyed by GroupKey, not by Swarm.
//
// Representative display fields (market, outcome, link, copy amount) are
// taken from the most recent constituent trade.
type Swarm struct {
	GroupKey    string    `json:"group_key"`
	MarketTitle string    `json:"market_title"`
	Outcome     string    `json:"outcome"`
	Wallets     int       `json:"wallets"`      // Distinct wallet count
	TradeCount  int       `json:"trade_count"`  // Constituent trade count
	TotalVolume float64   `json:"total_volume"` // Sum of constituent WhaleAmount, USDC
	CopyAmount  float64   `json:"copy_amount"`  // Suggested copy size, from newest trade
	ActionLink  string    `json:"action_link"`
	Trades      []Trade   `json:"trades"`
	DetectedAt  time.Time `json:"detected_at"`
}
