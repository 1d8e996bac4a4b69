// Package storage provides the shared state for the polling pipeline: the
// time-decaying trade window, the seen-ID dedup set, and the alert history.
// It is backed by SQLite so the dedup invariant survives anything short of
// losing the database file, and so the window stays bounded in a process
// that runs unattended indefinitely.
//
// The dedup set is committed in the same transaction as the trades it
// covers, so a failed append leaves the records eligible for refetch instead
// of silently dropped. It is evicted on the same retention horizon as the
// trade window: once a trade has been pruned by age, a refetch of its ID
// would be re-admitted but pruned again within the same append pass, so it
// can never resurface in window output while memory stays bounded.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whalewatch/swarm/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	wallet       TEXT NOT NULL,
	market_title TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	group_key    TEXT NOT NULL,
	whale_amount REAL NOT NULL,
	copy_amount  REAL NOT NULL,
	observed_at  INTEGER NOT NULL,
	action_link  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_observed_at ON trades(observed_at);

CREATE TABLE IF NOT EXISTS seen_ids (
	id          TEXT PRIMARY KEY,
	observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seen_observed_at ON seen_ids(observed_at);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	group_key    TEXT NOT NULL,
	summary      TEXT NOT NULL,
	wallets      INTEGER NOT NULL,
	total_volume REAL NOT NULL,
	sent_at      INTEGER NOT NULL,
	success      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_sent_at ON alerts(sent_at);
`

// alertRetention is the horizon for the alert history. Alerts are operator
// history rather than detection state, so they outlive the trade window, but
// the table still has to stay bounded in a process that runs unattended
// indefinitely.
const alertRetention = 7 * 24 * time.Hour

// Storage provides thread-safe access to the trade window, dedup set, and
// alert history.
type Storage struct {
	db *sql.DB
}

// New creates a Storage backed by the SQLite database at dbPath, creating
// the parent directory and schema as needed. Pass ":memory:" for an
// in-memory database (used by tests).
func New(dbPath string) (*Storage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// from silently splitting into one empty database per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Seen reports whether an order ID is already in the dedup set. The set is
// only written by InsertTrades, together with the trades it covers.
func (s *Storage) Seen(id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("order ID must not be empty")
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_ids WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query seen IDs: %w", err)
	}
	return n > 0, nil
}

// InsertTrades appends newly fetched trades to the window and records their
// IDs in the dedup set, in one transaction: either a trade and its seen mark
// both land or neither does, so a failed append never strands an ID as seen
// but absent from the window. Trades are validated before insert; an ID
// collision is ignored rather than duplicated.
func (s *Storage) InsertTrades(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO trades
			(id, wallet, market_title, outcome, group_key, whale_amount, copy_amount, observed_at, action_link)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seenStmt, err := tx.Prepare(`INSERT OR IGNORE INTO seen_ids (id, observed_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare seen insert: %w", err)
	}
	defer seenStmt.Close()

	for i := range trades {
		t := &trades[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid trade: %w", err)
		}
		if _, err := stmt.Exec(
			t.ID, t.Wallet, t.MarketTitle, t.Outcome, t.GroupKey,
			t.WhaleAmount, t.CopyAmount, t.ObservedAt.UnixNano(), t.ActionLink,
		); err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
		if _, err := seenStmt.Exec(t.ID, t.ObservedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to mark trade %s seen: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Prune removes window trades and seen IDs whose observed time is older than
// the retention horizon, and alert records older than the alert history
// horizon. Returns the number of trades removed.
func (s *Storage) Prune(now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention).UnixNano()

	res, err := s.db.Exec(`DELETE FROM trades WHERE observed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune trades: %w", err)
	}
	pruned, _ := res.RowsAffected()

	if _, err := s.db.Exec(`DELETE FROM seen_ids WHERE observed_at < ?`, cutoff); err != nil {
		return pruned, fmt.Errorf("failed to evict seen IDs: %w", err)
	}

	alertCutoff := now.Add(-alertRetention).UnixNano()
	if _, err := s.db.Exec(`DELETE FROM alerts WHERE sent_at < ?`, alertCutoff); err != nil {
		return pruned, fmt.Errorf("failed to prune alert history: %w", err)
	}

	return pruned, nil
}

// RecentTrades returns the window contents within the retention horizon,
// most recent first. Ties on observed time break by ID descending so the
// ordering is deterministic for a fixed input set and "now".
func (s *Storage) RecentTrades(now time.Time, retention time.Duration) ([]models.Trade, error) {
	cutoff := now.Add(-retention).UnixNano()

	rows, err := s.db.Query(
		`SELECT id, wallet, market_title, outcome, group_key, whale_amount, copy_amount, observed_at, action_link
		 FROM trades
		 WHERE observed_at >= ?
		 ORDER BY observed_at DESC, id DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		var t models.Trade
		var observedAt int64
		if err := rows.Scan(
			&t.ID, &t.Wallet, &t.MarketTitle, &t.Outcome, &t.GroupKey,
			&t.WhaleAmount, &t.CopyAmount, &observedAt, &t.ActionLink,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.ObservedAt = time.Unix(0, observedAt)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}

	return trades, nil
}

// RecordAlert appends a notification record to the alert history.
func (s *Storage) RecordAlert(alert *models.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}

	_, err := s.db.Exec(
		`INSERT INTO alerts (id, group_key, summary, wallets, total_volume, sent_at, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.GroupKey, alert.Summary, alert.Wallets,
		alert.TotalVolume, alert.SentAt.UnixNano(), alert.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alert records, most recent first.
func (s *Storage) RecentAlerts(limit int) ([]models.Alert, error) {
	rows, err := s.db.Query(
		`SELECT id, group_key, summary, wallets, total_volume, sent_at, success
		 FROM alerts
		 ORDER BY sent_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		var sentAt int64
		if err := rows.Scan(&a.ID, &a.GroupKey, &a.Summary, &a.Wallets, &a.TotalVolume, &sentAt, &a.Success); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.SentAt = time.Unix(0, sentAt)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}
