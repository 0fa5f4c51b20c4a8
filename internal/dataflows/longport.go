package dataflows

import (
	"context"
	"sort"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/audney/internal/models"
)

// LongportCredentials are the app key, secret and access token issued by Longport.
type LongportCredentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient serves quotes and daily candlesticks from the Longport quote API.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(creds LongportCredentials) (*LongportClient, error) {
	if creds.AppKey == "" || creds.AppSecret == "" || creds.AccessToken == "" {
		return nil, notConfigured("longport", "connect", "LONGPORT_APP_KEY/SECRET/ACCESS_TOKEN")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken))
	if err != nil {
		return nil, unavailable("longport", "connect", err)
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, unavailable("longport", "connect", err)
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// longportSymbol maps a bare US ticker onto Longport's market-suffixed form.
func longportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

func (lpc *LongportClient) sticks(ctx context.Context, op, symbol string, count int) ([]*quote.Candlestick, error) {
	if lpc == nil || lpc.quoteCtx == nil {
		return nil, notConfigured("longport", op, "quote context")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, noData("longport", op, "%v", err)
	}
	sticks, err := lpc.quoteCtx.Candlesticks(ctx, longportSymbol(symbol), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, unavailable("longport", op, err)
	}
	if len(sticks) == 0 {
		return nil, noData("longport", op, "no candlesticks for %s", symbol)
	}
	return sticks, nil
}

func (lpc *LongportClient) LatestClose(ctx context.Context, symbol string) (float64, error) {
	sticks, err := lpc.sticks(ctx, "quote", symbol, 1)
	if err != nil {
		return 0, err
	}
	price, _ := sticks[len(sticks)-1].Close.Float64()
	if price <= 0 {
		return 0, noData("longport", "quote", "no close for %s", symbol)
	}
	return price, nil
}

// DailyCloses requests enough trading days to cover start and trims to the range.
func (lpc *LongportClient) DailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	days := int(end.Sub(start).Hours()/24) + 1
	if days > 1000 {
		days = 1000
	}
	sticks, err := lpc.sticks(ctx, "history", symbol, days)
	if err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(sticks))
	for _, stick := range sticks {
		date := time.Unix(stick.Timestamp, 0).UTC()
		if date.Before(truncateDay(start)) || date.After(end) {
			continue
		}
		closePrice, _ := stick.Close.Float64()
		points = append(points, models.PricePoint{Date: date, Close: closePrice})
	}
	if len(points) == 0 {
		return nil, noData("longport", "history", "no daily data for %s in range", symbol)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
