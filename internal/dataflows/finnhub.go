package dataflows

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/audney/internal/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(apiKey string, opts ...ClientOption) *FinnhubClient {
	o := buildOptions(finnhubBaseURL, opts)
	return &FinnhubClient{
		client: newRestyClient(o),
		cache:  o.cache,
		retry:  o.retry,
		apiKey: apiKey,
	}
}

func (fc *FinnhubClient) get(ctx context.Context, op, path string, params map[string]string, out any) error {
	if fc.apiKey == "" {
		return notConfigured("finnhub", op, "FINNHUB_API_KEY")
	}
	params["token"] = fc.apiKey

	return WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return unavailable("finnhub", op, err)
		}
		if resp.StatusCode() != 200 {
			return statusError("finnhub", op, resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return malformed("finnhub", op, err)
		}
		return nil
	})
}

// LatestClose returns the current price, which Finnhub reports as "c".
func (fc *FinnhubClient) LatestClose(ctx context.Context, symbol string) (float64, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return 0, noData("finnhub", "quote", "%v", err)
	}
	symbol = NormalizeSymbol(symbol)

	var q struct {
		Current *float64 `json:"c"`
	}
	if err := fc.get(ctx, "quote", "/quote", map[string]string{"symbol": symbol}, &q); err != nil {
		return 0, err
	}
	// Unknown symbols come back as all-zero quotes.
	if q.Current == nil || *q.Current <= 0 {
		return 0, noData("finnhub", "quote", "no quote for %s", symbol)
	}
	return *q.Current, nil
}

func (fc *FinnhubClient) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, nil
	}

	var payload struct {
		Result []struct {
			Description string `json:"description"`
			Symbol      string `json:"symbol"`
		} `json:"result"`
	}
	if err := fc.get(ctx, "search", "/search", map[string]string{"q": keywords}, &payload); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(payload.Result))
	for _, r := range payload.Result {
		if r.Symbol == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{Name: r.Description, Symbol: r.Symbol})
	}
	return matches, nil
}

// FinnhubNews represents news from Finnhub API
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// MarketNews returns general market headlines.
func (fc *FinnhubClient) MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var news []FinnhubNews
	if !fc.cache.Get("finnhub", "general_news", limit, &news) {
		if err := fc.get(ctx, "news", "/news", map[string]string{"category": "general"}, &news); err != nil {
			return nil, err
		}
		_ = fc.cache.Set("finnhub", "general_news", limit, news)
	}

	items := make([]models.NewsItem, 0, len(news))
	for _, n := range news {
		if limit > 0 && len(items) == limit {
			break
		}
		items = append(items, models.NewsItem{
			Title:   n.Headline,
			Summary: n.Summary,
			Source:  n.Source,
			URL:     n.URL,
			Time:    time.Unix(n.DateTime, 0).UTC(),
		})
	}
	return items, nil
}
