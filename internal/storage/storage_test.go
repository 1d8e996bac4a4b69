package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/whalewatch/swarm/internal/models"
)

func mustStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTrade(id, wallet string, observedAt time.Time) models.Trade {
	return models.Trade{
		ID:          id,
		Wallet:      wallet,
		MarketTitle: "Will X happen?",
		Outcome:     "Yes",
		GroupKey:    "cond-1-Yes",
		WhaleAmount: 100,
		CopyAmount:  2,
		ObservedAt:  observedAt,
		ActionLink:  "https://polymarket.com/event/will-x-happen?amount=2.00&buy=Yes",
	}
}

func TestSeenTracksInsertedTrades(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	seen, err := s.Seen("order-1")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("Unknown ID should not be seen")
	}

	if err := s.InsertTrades([]models.Trade{testTrade("order-1", "0xaaa", now)}); err != nil {
		t.Fatalf("InsertTrades failed: %v", err)
	}

	seen, err = s.Seen("order-1")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("Inserted trade's ID should be seen")
	}
}

func TestFailedInsertLeavesIDsUnseen(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	// The invalid sibling rolls back the whole batch; the valid trade's ID
	// must not be stranded in the dedup set, or it would never be refetched.
	batch := []models.Trade{
		testTrade("good", "0xaaa", now),
		testTrade("", "0xbbb", now),
	}
	if err := s.InsertTrades(batch); err == nil {
		t.Fatal("Expected error for batch containing an invalid trade")
	}

	seen, err := s.Seen("good")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("ID from a failed append should not be marked seen")
	}

	window, err := s.RecentTrades(now, time.Hour)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(window) != 0 {
		t.Errorf("Failed append should leave the window empty, got %d trades", len(window))
	}
}

func TestRecentTradesOrderedMostRecentFirst(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	trades := []models.Trade{
		testTrade("t1", "0xaaa", now.Add(-30*time.Minute)),
		testTrade("t2", "0xbbb", now.Add(-5*time.Minute)),
		testTrade("t3", "0xccc", now.Add(-15*time.Minute)),
	}
	if err := s.InsertTrades(trades); err != nil {
		t.Fatalf("InsertTrades failed: %v", err)
	}

	window, err := s.RecentTrades(now, time.Hour)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(window))
	}
	if window[0].ID != "t2" || window[1].ID != "t3" || window[2].ID != "t1" {
		t.Errorf("Unexpected ordering: %s, %s, %s", window[0].ID, window[1].ID, window[2].ID)
	}
}

func TestPruneRemovesStaleTrades(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	trades := []models.Trade{
		testTrade("fresh", "0xaaa", now.Add(-10*time.Minute)),
		testTrade("stale", "0xbbb", now.Add(-2*time.Hour)),
	}
	if err := s.InsertTrades(trades); err != nil {
		t.Fatalf("InsertTrades failed: %v", err)
	}

	pruned, err := s.Prune(now, time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned trade, got %d", pruned)
	}

	window, err := s.RecentTrades(now, time.Hour)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(window) != 1 || window[0].ID != "fresh" {
		t.Errorf("Expected only the fresh trade, got %v", window)
	}
}

func TestPruneEvictsSeenIDsOnSameHorizon(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()
	stale := now.Add(-2 * time.Hour)

	if err := s.InsertTrades([]models.Trade{testTrade("old-order", "0xaaa", stale)}); err != nil {
		t.Fatalf("InsertTrades failed: %v", err)
	}
	if _, err := s.Prune(now, time.Hour); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	// Evicted ID is no longer seen, so a refetch would be re-admitted; its
	// trade would then be pruned again in the same append pass, so it can
	// never resurface in window output.
	seen, err := s.Seen("old-order")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("Evicted ID should not remain seen after horizon eviction")
	}
}

func TestInsertTradesIgnoresDuplicateID(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	trade := testTrade("t1", "0xaaa", now)
	if err := s.InsertTrades([]models.Trade{trade, trade}); err != nil {
		t.Fatalf("InsertTrades failed: %v", err)
	}

	window, err := s.RecentTrades(now, time.Hour)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(window) != 1 {
		t.Errorf("Expected 1 trade after duplicate insert, got %d", len(window))
	}
}

func TestInsertTradesRejectsInvalid(t *testing.T) {
	s := mustStorage(t)

	invalid := testTrade("", "0xaaa", time.Now())
	if err := s.InsertTrades([]models.Trade{invalid}); err == nil {
		t.Error("Expected error for trade with empty ID")
	}
}

func TestAlertHistory(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	for i, key := range []string{"k1-Yes", "k2-No"} {
		alert := models.Alert{
			ID:          uuid.New().String(),
			GroupKey:    key,
			Summary:     "SWARM (3 whales): test",
			Wallets:     3,
			TotalVolume: 750,
			SentAt:      now.Add(time.Duration(i) * time.Minute),
			Success:     true,
		}
		if err := s.RecordAlert(&alert); err != nil {
			t.Fatalf("RecordAlert failed: %v", err)
		}
	}

	alerts, err := s.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("Expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].GroupKey != "k2-No" {
		t.Errorf("Expected most recent alert first, got %s", alerts[0].GroupKey)
	}

	alerts, err = s.RecentAlerts(1)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("Expected limit to cap results, got %d", len(alerts))
	}
}

func TestPruneBoundsAlertHistory(t *testing.T) {
	s := mustStorage(t)
	now := time.Now()

	for key, sentAt := range map[string]time.Time{
		"fresh-Yes":   now.Add(-time.Hour),
		"ancient-Yes": now.Add(-8 * 24 * time.Hour),
	} {
		alert := models.Alert{
			ID:          uuid.New().String(),
			GroupKey:    key,
			Summary:     "SWARM (3 whales): test",
			Wallets:     3,
			TotalVolume: 750,
			SentAt:      sentAt,
			Success:     true,
		}
		if err := s.RecordAlert(&alert); err != nil {
			t.Fatalf("RecordAlert failed: %v", err)
		}
	}

	if _, err := s.Prune(now, time.Hour); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	alerts, err := s.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].GroupKey != "fresh-Yes" {
		t.Errorf("Expected only the recent alert to survive, got %v", alerts)
	}
}
