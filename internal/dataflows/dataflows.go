package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dyike/audney/config"
)

// Providers bundles the upstream data sources selected by configuration.
type Providers struct {
	Quotes  QuoteProvider
	History HistoryProvider
	Search  SymbolSearcher
	News    NewsSource
	Census  CensusSource

	caches []*CacheManager
}

// NewProviders builds each client once and assigns them to their roles. A
// provider whose credentials are missing is still constructed; its calls fail
// with KindNotConfigured.
func NewProviders(cfg *config.Config) (*Providers, error) {
	cache := NewCacheManager(filepath.Join(cfg.DataCacheDir, "providers"), 30*time.Minute, cfg.CacheEnabled)
	censusCache := NewCacheManager(filepath.Join(cfg.DataCacheDir, "census"), 24*time.Hour, cfg.CacheEnabled)

	opts := []ClientOption{WithTimeout(cfg.HTTPTimeout), WithRetries(cfg.ProviderRetries)}

	av := NewAlphaVantageClient(cfg.AlphaVantageAPIKey, append(opts, WithCache(cache))...)
	fh := NewFinnhubClient(cfg.FinnhubAPIKey, append(opts, WithCache(cache))...)
	yf := NewYahooFinanceClient(opts...)

	var lp *LongportClient
	if cfg.QuoteProvider == "longport" || cfg.HistoryProvider == "longport" {
		var err error
		lp, err = NewLongportClient(LongportCredentials{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("longport client: %w", err)
		}
	}

	p := &Providers{
		Census: NewCensusClient(cfg.CensusAPIKey, append(opts, WithCache(censusCache))...),
		caches: []*CacheManager{cache, censusCache},
	}

	switch cfg.QuoteProvider {
	case "alphavantage":
		p.Quotes = av
	case "finnhub":
		p.Quotes = fh
	case "yahoo":
		p.Quotes = yf
	case "longport":
		p.Quotes = lp
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.QuoteProvider)
	}

	switch cfg.HistoryProvider {
	case "alphavantage":
		p.History = av
	case "yahoo":
		p.History = yf
	case "longport":
		p.History = lp
	default:
		return nil, fmt.Errorf("unknown history provider %q", cfg.HistoryProvider)
	}

	switch cfg.SearchProvider {
	case "alphavantage":
		p.Search = av
	case "finnhub":
		p.Search = fh
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}

	switch cfg.NewsProvider {
	case "alphavantage":
		p.News = av
	case "finnhub":
		p.News = fh
	default:
		return nil, fmt.Errorf("unknown news provider %q", cfg.NewsProvider)
	}

	return p, nil
}

// ClearCache drops every cached provider payload.
func (p *Providers) ClearCache() error {
	for _, c := range p.caches {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	return nil
}
