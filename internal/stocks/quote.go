package stocks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/audney/internal/dataflows"
)

// QuoteFetcher formats the latest close of a ticker for display.
type QuoteFetcher struct {
	provider dataflows.QuoteProvider
	logger   zerolog.Logger
}

func NewQuoteFetcher(provider dataflows.QuoteProvider, logger zerolog.Logger) *QuoteFetcher {
	return &QuoteFetcher{
		provider: provider,
		logger:   logger.With().Str("component", "quotes").Logger(),
	}
}

// Price returns the formatted price, or the provider error untouched.
func (q *QuoteFetcher) Price(ctx context.Context, ticker string) (string, error) {
	price, err := q.provider.LatestClose(ctx, ticker)
	if err != nil {
		return "", err
	}
	return FormatPrice(price), nil
}

// Quote always returns display text: the formatted price on success or a
// description of the failure that never exposes upstream details.
func (q *QuoteFetcher) Quote(ctx context.Context, ticker string) string {
	text, err := q.Price(ctx, ticker)
	if err == nil {
		return text
	}
	kind := dataflows.KindOf(err)
	q.logger.Warn().Err(err).Str("ticker", ticker).Str("kind", string(kind)).Msg("quote lookup failed")
	return FailureText(ticker, kind)
}

// FormatPrice renders a price as dollars with two decimals.
func FormatPrice(price float64) string {
	return "$" + decimal.NewFromFloat(price).StringFixed(2)
}

// FailureText is the user-facing description of a failed quote lookup.
func FailureText(ticker string, kind dataflows.Kind) string {
	switch kind {
	case dataflows.KindNoData:
		return fmt.Sprintf("Stock data not available for %s. It may be inactive or delisted.", ticker)
	case dataflows.KindNotConfigured:
		return "Error fetching stock price: the quote service is not configured."
	case dataflows.KindMalformed:
		return fmt.Sprintf("Error fetching stock price: the quote service returned unreadable data for %s.", ticker)
	default:
		return "Error fetching stock price: the quote service is unavailable right now."
	}
}
