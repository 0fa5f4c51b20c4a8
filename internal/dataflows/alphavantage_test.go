package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlphaVantageServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *AlphaVantageClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewAlphaVantageClient("demo", WithBaseURL(srv.URL), WithTimeout(2*time.Second))
}

func TestAlphaVantageLatestClose(t *testing.T) {
	av := newAlphaVantageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_INTRADAY", r.URL.Query().Get("function"))
		assert.Equal(t, "CLX", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5min", r.URL.Query().Get("interval"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"Time Series (5min)": {
			"2025-01-02 15:55:00": {"4. close": "144.10"},
			"2025-01-02 16:00:00": {"4. close": "145.5"}
		}}`))
	})

	price, err := av.LatestClose(context.Background(), " clx ")
	require.NoError(t, err)
	assert.InDelta(t, 145.5, price, 1e-9)
}

func TestAlphaVantageFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"server error", http.StatusBadGateway, `oops`, KindUnavailable},
		{"throttled", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, KindUnavailable},
		{"invalid symbol", http.StatusOK, `{"Error Message": "Invalid API call."}`, KindNoData},
		{"empty series", http.StatusOK, `{"Meta Data": {}}`, KindNoData},
		{"not json", http.StatusOK, `<html>`, KindMalformed},
		{"bad number", http.StatusOK, `{"Time Series (5min)": {"2025-01-02 16:00:00": {"4. close": "n/a"}}}`, KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			av := newAlphaVantageServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := av.LatestClose(context.Background(), "CLX")
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestAlphaVantageMissingKey(t *testing.T) {
	av := NewAlphaVantageClient("")
	_, err := av.LatestClose(context.Background(), "CLX")
	assert.Equal(t, KindNotConfigured, KindOf(err))
}

func TestAlphaVantageDailyCloses(t *testing.T) {
	av := newAlphaVantageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(`{"Time Series (Daily)": {
			"2019-12-31": {"4. close": "50.0", "5. adjusted close": "49.0"},
			"2024-01-03": {"4. close": "101.0", "5. adjusted close": "100.0"},
			"2024-01-02": {"4. close": "91.0", "5. adjusted close": "90.0"}
		}}`))
	})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	points, err := av.DailyCloses(context.Background(), "SPY", start, end)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 90.0, points[0].Close)
	assert.Equal(t, 100.0, points[1].Close)
}

func TestAlphaVantageSearchSymbols(t *testing.T) {
	av := newAlphaVantageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SYMBOL_SEARCH", r.URL.Query().Get("function"))
		assert.Equal(t, "Clorox", r.URL.Query().Get("keywords"))
		_, _ = w.Write([]byte(`{"bestMatches": [
			{"1. symbol": "CLX", "2. name": "Clorox Company"},
			{"1. symbol": "", "2. name": "Broken"}
		]}`))
	})

	matches, err := av.SearchSymbols(context.Background(), "Clorox")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CLX", matches[0].Symbol)
	assert.Equal(t, "Clorox Company", matches[0].Name)
}

func TestAlphaVantageMarketNewsCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "NEWS_SENTIMENT", r.URL.Query().Get("function"))
		_, _ = w.Write([]byte(`{"feed": [
			{"title": "A", "summary": "first", "time_published": "20250102T120000"},
			{"title": "B", "summary": "second"},
			{"title": "C", "summary": "third"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	cache := NewCacheManager(t.TempDir(), time.Hour, true)
	av := NewAlphaVantageClient("demo", WithBaseURL(srv.URL), WithCache(cache))

	items, err := av.MarketNews(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Summary)
	assert.Equal(t, 2025, items[0].Time.Year())

	_, err = av.MarketNews(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryOnlyRetriesUnavailable(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	attempts := 0
	err := WithRetry(context.Background(), rc, func() error {
		attempts++
		return unavailable("test", "op", assert.AnError)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = WithRetry(context.Background(), rc, func() error {
		attempts++
		return malformed("test", "op", assert.AnError)
	})
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.Equal(t, 1, attempts)
}
