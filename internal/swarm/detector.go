// Package swarm provides swarm detection over the trade window: grouping
// recent trades by market+outcome key and thresholding by participant count.
//
// A swarm is a derived, ephemeral grouping recomputed from scratch on every
// detection pass. Because the same swarm usually stays visible across several
// polling cycles, the Detector also tracks which group keys were already
// alerted on, so a still-active swarm is not re-announced until the cooldown
// expires.
package swarm

import (
	"sort"
	"sync"
	"time"

	"github.com/whalewatch/swarm/internal/models"
)

// Detector holds detection parameters and the already-alerted tracking used
// for cooldown deduplication.
type Detector struct {
	window          time.Duration
	minParticipants int
	distinctWallets bool
	cooldown        time.Duration

	mu      sync.Mutex
	alerted map[string]time.Time // group key -> last alert time
}

// New creates a new Detector. When distinctWallets is true the threshold
// counts distinct wallets per group; otherwise it counts raw trades, which
// reproduces the legacy rule a single busy wallet can trip.
func New(window time.Duration, minParticipants int, distinctWallets bool, cooldown time.Duration) *Detector {
	return &Detector{
		window:          window,
		minParticipants: minParticipants,
		distinctWallets: distinctWallets,
		cooldown:        cooldown,
		alerted:         make(map[string]time.Time),
	}
}

// Detect filters trades to those observed within the trailing window of now,
// groups them by group key, and keeps groups meeting the participant
// threshold. Deterministic for a fixed input set and now.
func Detect(trades []models.Trade, now time.Time, window time.Duration, minParticipants int, distinctWallets bool) map[string][]models.Trade {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		if now.Sub(t.ObservedAt) > window {
			continue
		}
		groups[t.GroupKey] = append(groups[t.GroupKey], t)
	}

	for key, group := range groups {
		if participantCount(group, distinctWallets) < minParticipants {
			delete(groups, key)
		}
	}
	return groups
}

func participantCount(group []models.Trade, distinctWallets bool) int {
	if !distinctWallets {
		return len(group)
	}
	wallets := make(map[string]struct{}, len(group))
	for _, t := range group {
		wallets[t.Wallet] = struct{}{}
	}
	return len(wallets)
}

// Summarize builds the display summary for one detected group. The
// representative fields come from the most recent constituent trade; the
// aggregate volume is the sum of constituent whale amounts.
func Summarize(key string, group []models.Trade, now time.Time) models.Swarm {
	newest := group[0]
	var totalVolume float64
	wallets := make(map[string]struct{}, len(group))

	for _, t := range group {
		totalVolume += t.WhaleAmount
		wallets[t.Wallet] = struct{}{}
		if t.ObservedAt.After(newest.ObservedAt) {
			newest = t
		}
	}

	return models.Swarm{
		GroupKey:    key,
		MarketTitle: newest.MarketTitle,
		Outcome:     newest.Outcome,
		Wallets:     len(wallets),
		TradeCount:  len(group),
		TotalVolume: totalVolume,
		CopyAmount:  newest.CopyAmount,
		ActionLink:  newest.ActionLink,
		Trades:      group,
		DetectedAt:  now,
	}
}

// Detect runs one detection pass with the detector's parameters and returns
// the summarized swarms sorted by total volume descending (ties break by
// group key for determinism).
func (d *Detector) Detect(trades []models.Trade, now time.Time) []models.Swarm {
	groups := Detect(trades, now, d.window, d.minParticipants, d.distinctWallets)

	swarms := make([]models.Swarm, 0, len(groups))
	for key, group := range groups {
		swarms = append(swarms, Summarize(key, group, now))
	}

	sort.Slice(swarms, func(i, j int) bool {
		if swarms[i].TotalVolume != swarms[j].TotalVolume {
			return swarms[i].TotalVolume > swarms[j].TotalVolume
		}
		return swarms[i].GroupKey < swarms[j].GroupKey
	})
	return swarms
}

// FilterAlerted drops swarms whose group key was already alerted on within
// the cooldown, and evicts expired entries so the tracking map stays bounded.
// Returns a non-nil slice.
func (d *Detector) FilterAlerted(swarms []models.Swarm, now time.Time) []models.Swarm {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, sentAt := range d.alerted {
		if now.Sub(sentAt) >= d.cooldown {
			delete(d.alerted, key)
		}
	}

	fresh := []models.Swarm{}
	for _, s := range swarms {
		if sentAt, ok := d.alerted[s.GroupKey]; ok && now.Sub(sentAt) < d.cooldown {
			continue
		}
		fresh = append(fresh, s)
	}
	return fresh
}

// MarkAlerted records the given swarms as alerted at now. Call this only
// after a successful dispatch so a failed send is retried next cycle.
func (d *Detector) MarkAlerted(swarms []models.Swarm, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range swarms {
		d.alerted[s.GroupKey] = now
	}
}
