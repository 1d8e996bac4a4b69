// Package fetcher retrieves recent whale trades from the indexer, normalizes
// raw order records into canonical trades, and filters out records already
// present in the dedup set. The dedup check here is read-only; the seen-ID
// set is committed by storage.InsertTrades together with the trades
// themselves, so records from a failed append are refetched next cycle.
//
// A failure on one wallet never aborts the batch: it is reported as a
// FetchError and iteration continues with the next wallet. Within one cycle
// wallets are queried strictly one at a time in configuration order.
package fetcher

import (
	"context"

	"github.com/whalewatch/swarm/internal/indexer"
	"github.com/whalewatch/swarm/internal/logger"
	"github.com/whalewatch/swarm/internal/models"
	"github.com/whalewatch/swarm/internal/storage"
)

// FetchError represents a per-wallet error during a fetch cycle
type FetchError struct {
	Wallet string
	Err    error
}

func (e FetchError) Error() string {
	return "fetch error for wallet " + e.Wallet + ": " + e.Err.Error()
}

// Fetcher pulls recent orders per tracked wallet and converts the unseen
// ones into canonical trades.
type Fetcher struct {
	client       *indexer.Client
	store        *storage.Storage
	lookback     int
	copyFraction float64
}

// New creates a new Fetcher
func New(client *indexer.Client, store *storage.Storage, lookback int, copyFraction float64) *Fetcher {
	return &Fetcher{
		client:       client,
		store:        store,
		lookback:     lookback,
		copyFraction: copyFraction,
	}
}

// FetchCycle queries each wallet in order for its most recent orders and
// returns the trades not previously persisted, plus per-wallet errors
// (non-fatal). IDs enter the dedup set only when the caller appends the
// returned trades, so a record from a cycle whose append failed is returned
// again until it lands.
func (f *Fetcher) FetchCycle(ctx context.Context, wallets []string) ([]models.Trade, []FetchError) {
	var trades []models.Trade
	var fetchErrors []FetchError
	batch := make(map[string]struct{})

	for _, wallet := range wallets {
		orders, err := f.client.FetchOrders(ctx, wallet, f.lookback)
		if err != nil {
			fetchErrors = append(fetchErrors, FetchError{Wallet: wallet, Err: err})
			continue
		}

		for _, order := range orders {
			trade, err := normalizeOrder(order, wallet, f.copyFraction)
			if err != nil {
				// Data-shape anomaly on one record; its siblings still process.
				logger.Warn("Skipping malformed order %s for wallet %s: %v", order.ID, wallet, err)
				continue
			}

			if _, dup := batch[trade.ID]; dup {
				continue
			}
			seen, err := f.store.Seen(trade.ID)
			if err != nil {
				fetchErrors = append(fetchErrors, FetchError{Wallet: wallet, Err: err})
				continue
			}
			if seen {
				continue
			}

			batch[trade.ID] = struct{}{}
			trades = append(trades, trade)
		}
	}

	return trades, fetchErrors
}
