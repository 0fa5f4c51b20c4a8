package dataflows

import (
	"context"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/audney/internal/models"
)

// YahooFinanceClient serves quotes and daily history through finance-go.
type YahooFinanceClient struct {
	retry *RetryConfig
}

func NewYahooFinanceClient(opts ...ClientOption) *YahooFinanceClient {
	o := buildOptions("", opts)
	return &YahooFinanceClient{retry: o.retry}
}

func (yf *YahooFinanceClient) LatestClose(ctx context.Context, symbol string) (float64, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return 0, noData("yahoo", "quote", "%v", err)
	}
	symbol = NormalizeSymbol(symbol)

	var price float64
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return unavailable("yahoo", "quote", err)
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			return noData("yahoo", "quote", "no quote for %s", symbol)
		}
		price = q.RegularMarketPrice
		return nil
	})
	return price, err
}

func (yf *YahooFinanceClient) DailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, noData("yahoo", "history", "%v", err)
	}
	symbol = NormalizeSymbol(symbol)

	var points []models.PricePoint
	err := WithRetry(ctx, yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		points = points[:0]
		for iter.Next() {
			bar := iter.Bar()
			closePrice := bar.AdjClose
			if closePrice.IsZero() {
				closePrice = bar.Close
			}
			f, _ := closePrice.Float64()
			points = append(points, models.PricePoint{
				Date:  time.Unix(int64(bar.Timestamp), 0).UTC(),
				Close: f,
			})
		}
		if err := iter.Err(); err != nil {
			return unavailable("yahoo", "history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, noData("yahoo", "history", "no daily data for %s", symbol)
	}
	return points, nil
}
