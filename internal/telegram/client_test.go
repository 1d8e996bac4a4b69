package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/whalewatch/swarm/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Will X Win? (Final)", "Will X Win? \\(Final\\)"},
		{"a-b.c!", "a\\-b\\.c\\!"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.input); got != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	swarms := []models.Swarm{
		{
			GroupKey:    "cond-1-Yes",
			MarketTitle: "Will X happen?",
			Outcome:     "Yes",
			Wallets:     3,
			TradeCount:  4,
			TotalVolume: 12500,
			CopyAmount:  250,
			ActionLink:  "https://polymarket.com/event/will-x-happen?amount=250.00&buy=Yes",
			DetectedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
	}

	msg := FormatMessage(swarms)

	for _, want := range []string{
		"Whale Swarm Detected",
		"Will X happen?",
		"Whales: 3",
		"4 trades",
		"12,500",
		"250",
		"https://polymarket.com/event/will-x-happen",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
}
