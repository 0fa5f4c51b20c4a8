// Package market keeps the Bull/Bear/Neutral classification of the tracked
// tickers current.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
)

var (
	bullThreshold = decimal.RequireFromString("0.20")
	bearThreshold = decimal.RequireFromString("-0.20")
)

// Store persists one condition row per ticker.
type Store interface {
	UpsertMarketCondition(ctx context.Context, mc models.MarketCondition) error
	ListMarketConditions(ctx context.Context) ([]models.MarketCondition, error)
}

type Classifier struct {
	history dataflows.HistoryProvider
	store   Store
	tickers []string
	years   int
	now     func() time.Time
	logger  zerolog.Logger
}

func NewClassifier(history dataflows.HistoryProvider, store Store, tickers []string, years int, logger zerolog.Logger) *Classifier {
	if years <= 0 {
		years = 5
	}
	return &Classifier{
		history: history,
		store:   store,
		tickers: tickers,
		years:   years,
		now:     time.Now,
		logger:  logger.With().Str("component", "market").Logger(),
	}
}

// Refresh recomputes the condition of every tracked ticker and returns the
// stored conditions afterwards. A ticker whose history cannot be fetched
// keeps its previous row.
func (c *Classifier) Refresh(ctx context.Context) ([]models.MarketCondition, error) {
	end := c.now()
	start := end.AddDate(0, 0, -365*c.years)

	for _, ticker := range c.tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.refreshTicker(ctx, ticker, start, end); err != nil {
			metrics.ProviderFailures.WithLabelValues("market", string(dataflows.KindOf(err))).Inc()
			c.logger.Error().Err(err).Str("ticker", ticker).Msg("market condition refresh failed")
		}
	}
	return c.store.ListMarketConditions(ctx)
}

func (c *Classifier) refreshTicker(ctx context.Context, ticker string, start, end time.Time) error {
	points, err := c.history.DailyCloses(ctx, ticker, start, end)
	if err != nil {
		return err
	}
	cum, ok := CumulativeReturn(points)
	if !ok {
		return fmt.Errorf("no close data for %s", ticker)
	}
	cond := Classify(cum)
	if err := c.store.UpsertMarketCondition(ctx, models.MarketCondition{
		Ticker:      ticker,
		Condition:   cond,
		LastUpdated: end,
	}); err != nil {
		return err
	}

	metrics.MarketConditions.WithLabelValues(ticker).Set(conditionValue(cond))
	c.logger.Info().
		Str("ticker", ticker).
		Str("condition", string(cond)).
		Str("cumulative_return", cum.StringFixed(4)).
		Msg("market condition updated")
	return nil
}

// CumulativeReturn compounds the day-over-day returns of the closes. The
// first day contributes a zero return; days following a zero close are
// skipped.
func CumulativeReturn(points []models.PricePoint) (decimal.Decimal, bool) {
	if len(points) == 0 {
		return decimal.Zero, false
	}
	growth := decimal.NewFromInt(1)
	prev := decimal.NewFromFloat(points[0].Close)
	for _, p := range points[1:] {
		cur := decimal.NewFromFloat(p.Close)
		if !prev.IsZero() {
			ret := cur.Sub(prev).Div(prev)
			growth = growth.Mul(decimal.NewFromInt(1).Add(ret))
		}
		prev = cur
	}
	return growth.Sub(decimal.NewFromInt(1)), true
}

// Classify maps a cumulative return to a condition. The thresholds are
// inclusive.
func Classify(cumulative decimal.Decimal) models.Condition {
	switch {
	case cumulative.GreaterThanOrEqual(bullThreshold):
		return models.ConditionBull
	case cumulative.LessThanOrEqual(bearThreshold):
		return models.ConditionBear
	default:
		return models.ConditionNeutral
	}
}

// Describe renders a stored condition for the advice prompt.
func Describe(mc models.MarketCondition) string {
	return fmt.Sprintf("Currently, '%s' seems to be in a %s market.", mc.Ticker, mc.Condition)
}

func conditionValue(c models.Condition) float64 {
	switch c {
	case models.ConditionBull:
		return 1
	case models.ConditionBear:
		return -1
	default:
		return 0
	}
}
