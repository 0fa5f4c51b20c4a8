package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/audney/internal/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageClient serves quotes, daily history, symbol search and news
// sentiment from Alpha Vantage.
type AlphaVantageClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

func NewAlphaVantageClient(apiKey string, opts ...ClientOption) *AlphaVantageClient {
	o := buildOptions(alphaVantageBaseURL, opts)
	return &AlphaVantageClient{
		client: newRestyClient(o),
		cache:  o.cache,
		retry:  o.retry,
		apiKey: apiKey,
	}
}

// avEnvelope captures the advisory fields Alpha Vantage returns with HTTP 200
// when a request is throttled or invalid.
type avEnvelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (av *AlphaVantageClient) query(ctx context.Context, op string, params map[string]string, out any) error {
	if av.apiKey == "" {
		return notConfigured("alphavantage", op, "ALPHA_VANTAGE_API_KEY")
	}
	params["apikey"] = av.apiKey

	return WithRetry(ctx, av.retry, func() error {
		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get("/query")
		if err != nil {
			return unavailable("alphavantage", op, err)
		}
		if resp.StatusCode() != 200 {
			return statusError("alphavantage", op, resp.StatusCode())
		}

		var env avEnvelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return malformed("alphavantage", op, err)
		}
		switch {
		case env.ErrorMessage != "":
			return noData("alphavantage", op, "%s", env.ErrorMessage)
		case env.Note != "":
			return unavailable("alphavantage", op, fmt.Errorf("%s", env.Note))
		case env.Information != "":
			return unavailable("alphavantage", op, fmt.Errorf("%s", env.Information))
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return malformed("alphavantage", op, err)
		}
		return nil
	})
}

// LatestClose returns the close of the newest 5-minute intraday bar.
func (av *AlphaVantageClient) LatestClose(ctx context.Context, symbol string) (float64, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return 0, noData("alphavantage", "quote", "%v", err)
	}
	symbol = NormalizeSymbol(symbol)

	var payload struct {
		Series map[string]map[string]string `json:"Time Series (5min)"`
	}
	err := av.query(ctx, "quote", map[string]string{
		"function": "TIME_SERIES_INTRADAY",
		"symbol":   symbol,
		"interval": "5min",
	}, &payload)
	if err != nil {
		return 0, err
	}
	if len(payload.Series) == 0 {
		return 0, noData("alphavantage", "quote", "no intraday data for %s", symbol)
	}

	latest := ""
	for ts := range payload.Series {
		if ts > latest {
			latest = ts
		}
	}
	price, err := strconv.ParseFloat(payload.Series[latest]["4. close"], 64)
	if err != nil {
		return 0, malformed("alphavantage", "quote", fmt.Errorf("close for %s at %s: %w", symbol, latest, err))
	}
	return price, nil
}

// DailyCloses returns adjusted daily closes in [start, end], oldest first.
func (av *AlphaVantageClient) DailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, noData("alphavantage", "history", "%v", err)
	}
	symbol = NormalizeSymbol(symbol)

	var payload struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	err := av.query(ctx, "history", map[string]string{
		"function":   "TIME_SERIES_DAILY_ADJUSTED",
		"symbol":     symbol,
		"outputsize": "full",
	}, &payload)
	if err != nil {
		return nil, err
	}
	if len(payload.Series) == 0 {
		return nil, noData("alphavantage", "history", "no daily data for %s", symbol)
	}

	points := make([]models.PricePoint, 0, len(payload.Series))
	for day, bar := range payload.Series {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			continue
		}
		if date.Before(truncateDay(start)) || date.After(end) {
			continue
		}
		raw, ok := bar["5. adjusted close"]
		if !ok {
			raw, ok = bar["4. close"]
		}
		if !ok {
			return nil, malformed("alphavantage", "history", fmt.Errorf("no close column for %s", symbol))
		}
		closePrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		points = append(points, models.PricePoint{Date: date, Close: closePrice})
	}
	if len(points) == 0 {
		return nil, noData("alphavantage", "history", "no daily data for %s in range", symbol)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (av *AlphaVantageClient) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, nil
	}

	var payload struct {
		BestMatches []map[string]string `json:"bestMatches"`
	}
	err := av.query(ctx, "search", map[string]string{
		"function": "SYMBOL_SEARCH",
		"keywords": keywords,
	}, &payload)
	if err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(payload.BestMatches))
	for _, m := range payload.BestMatches {
		symbol, name := m["1. symbol"], m["2. name"]
		if symbol == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{Name: name, Symbol: symbol})
	}
	return matches, nil
}

type avNewsItem struct {
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	TimePublished string `json:"time_published"`
}

// MarketNews returns the head of the news sentiment feed.
func (av *AlphaVantageClient) MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var feed []avNewsItem
	if !av.cache.Get("alphavantage", "news", limit, &feed) {
		var payload struct {
			Feed *[]avNewsItem `json:"feed"`
		}
		err := av.query(ctx, "news", map[string]string{
			"function": "NEWS_SENTIMENT",
		}, &payload)
		if err != nil {
			return nil, err
		}
		if payload.Feed == nil {
			return nil, noData("alphavantage", "news", "response has no feed")
		}
		feed = *payload.Feed
		_ = av.cache.Set("alphavantage", "news", limit, feed)
	}

	items := make([]models.NewsItem, 0, len(feed))
	for _, n := range feed {
		if limit > 0 && len(items) == limit {
			break
		}
		published, _ := time.Parse("20060102T150405", n.TimePublished)
		items = append(items, models.NewsItem{
			Title:   n.Title,
			Summary: n.Summary,
			Source:  n.Source,
			URL:     n.URL,
			Time:    published,
		})
	}
	return items, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
