package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/whalewatch/swarm/internal/indexer"
	"github.com/whalewatch/swarm/internal/models"
)

const (
	// amountScale is the fixed-point divisor for raw USDC amounts. It is a
	// property of the chain data encoding (6 decimals), not operator
	// configurable.
	amountScale = 1e6

	// defaultOutcome is the fallback label when the outcome ordinal cannot be
	// resolved against the market's outcome list.
	defaultOutcome = "Yes"

	// defaultTitle is the fallback when a market arrives without a title.
	defaultTitle = "Unknown Market"

	// maxTitleLen caps market titles for display and link construction,
	// counted in characters, not bytes. Titles must stay valid UTF-8 because
	// they flow into Telegram payloads, which reject malformed text.
	maxTitleLen = 60

	venueBaseURL = "https://polymarket.com/event/"
)

var (
	slugStrip   = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

// normalizeOrder converts a raw subgraph order into a canonical Trade.
// Outcome and title anomalies fail soft to defaults; an unparsable amount or
// timestamp makes the record meaningless and is returned as an error so the
// caller can skip it without aborting its siblings.
func normalizeOrder(o indexer.RawOrder, wallet string, copyFraction float64) (models.Trade, error) {
	rawAmount, err := strconv.ParseFloat(o.Amount, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("unparsable amount %q: %w", o.Amount, err)
	}

	ts, err := strconv.ParseInt(o.Timestamp, 10, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("unparsable timestamp %q: %w", o.Timestamp, err)
	}

	whaleAmount := rawAmount / amountScale
	copyAmount := whaleAmount * copyFraction

	title := o.Market.Title
	if title == "" {
		title = defaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen])
	}

	outcome := resolveOutcome(o.Market.Outcomes, o.OutcomeIndex)

	return models.Trade{
		ID:          o.ID,
		Wallet:      wallet,
		MarketTitle: title,
		Outcome:     outcome,
		GroupKey:    o.Market.ConditionID + "-" + outcome,
		WhaleAmount: whaleAmount,
		CopyAmount:  copyAmount,
		ObservedAt:  time.Unix(ts, 0),
		ActionLink:  buildActionLink(title, outcome, copyAmount),
	}, nil
}

// resolveOutcome maps an ordinal outcome index into the market's label list.
// Out-of-range or unparsable indices fall back to the default label rather
// than failing the record.
func resolveOutcome(outcomes []string, rawIndex string) string {
	if len(outcomes) == 0 {
		return defaultOutcome
	}
	idx, err := strconv.Atoi(rawIndex)
	if err != nil || idx < 0 || idx >= len(outcomes) {
		return defaultOutcome
	}
	return outcomes[idx]
}

// slugify derives a URL-safe slug from a market title: lowercase, strip
// characters outside word/space/hyphen, collapse whitespace to single
// hyphens, and trim leading/trailing or repeated hyphens.
func slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// buildActionLink constructs the venue deep link pre-filled with outcome and
// suggested copy amount. The link is advisory only; it is never fetched or
// executed by this system.
func buildActionLink(title, outcome string, copyAmount float64) string {
	params := url.Values{}
	params.Set("buy", outcome)
	params.Set("amount", strconv.FormatFloat(copyAmount, 'f', 2, 64))
	return venueBaseURL + slugify(title) + "?" + params.Encode()
}
