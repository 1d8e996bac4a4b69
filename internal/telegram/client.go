// Package telegram provides a client for sending swarm alerts via the
// Telegram Bot API. It formats detected swarms into human-readable messages
// and handles delivery with retry logic for reliability.
//
// The client uses MarkdownV2 formatting and includes error handling for
// common Telegram API issues like rate limiting and network failures. A
// dispatch failure is reported to the caller and must never abort the
// polling cycle.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/whalewatch/swarm/internal/models"
)

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send sends one alert message covering the newly detected swarms
func (c *Client) Send(swarms []models.Swarm) error {
	return c.sendMessage(FormatMessage(swarms))
}

// SendError notifies the operator that a monitoring cycle failed
func (c *Client) SendError(err error) error {
	msg := fmt.Sprintf("⚠️ Monitoring cycle failed: %s", escapeMarkdownV2(err.Error()))
	return c.sendMessage(msg)
}

// SendRecovery notifies the operator that cycles are succeeding again
func (c *Client) SendRecovery(failures int) error {
	msg := fmt.Sprintf("✅ Monitoring recovered after %d failed cycle\\(s\\)", failures)
	return c.sendMessage(msg)
}

// sendMessage dispatches a MarkdownV2 message with retry
func (c *Client) sendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// FormatMessage formats detected swarms into a Telegram message
func FormatMessage(swarms []models.Swarm) string {
	var b strings.Builder
	b.WriteString("🦈 *Whale Swarm Detected*\n\n")

	if len(swarms) > 0 {
		dateStr := escapeMarkdownV2(swarms[0].DetectedAt.Format("2006-01-02 15:04:05"))
		b.WriteString(fmt.Sprintf("📅 Detected: %s\n\n", dateStr))
	}

	for i, s := range swarms {
		title := escapeMarkdownV2(s.MarketTitle)
		outcome := escapeMarkdownV2(s.Outcome)
		volume := escapeMarkdownV2("$" + humanize.CommafWithDigits(s.TotalVolume, 0))
		copyAmt := escapeMarkdownV2("$" + humanize.CommafWithDigits(s.CopyAmount, 2))

		b.WriteString(fmt.Sprintf("%d\\. [%s](%s)\n", i+1, title, s.ActionLink))
		b.WriteString(fmt.Sprintf("   🎯 Side: *%s*\n", outcome))
		b.WriteString(fmt.Sprintf("   🐋 Whales: %d \\(%d trades\\)\n", s.Wallets, s.TradeCount))
		b.WriteString(fmt.Sprintf("   💰 Volume: %s \\| Copy: %s\n\n", volume, copyAmt))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
