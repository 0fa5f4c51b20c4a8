package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/audney/config"
	"github.com/dyike/audney/internal/composer"
	"github.com/dyike/audney/internal/models"
)

func TestParseCandidates(t *testing.T) {
	reply := composer.CandidateList([]models.SymbolMatch{
		{Name: "Ford Motor Co", Symbol: "F"},
		{Name: "Ford Otomotiv & Sanayi", Symbol: "FROTO.IS"},
	})

	got := ParseCandidates(reply)
	require.Len(t, got, 2)
	assert.Equal(t, models.SymbolMatch{Name: "Ford Motor Co", Symbol: "F"}, got[0])
	assert.Equal(t, "Ford Otomotiv & Sanayi", got[1].Name)
	assert.Equal(t, "FROTO.IS", got[1].Symbol)

	assert.Empty(t, ParseCandidates("Currently, Clorox Company (CLX) is priced at $145.50."))
}

func TestHTMLToText(t *testing.T) {
	reply := composer.CandidateList([]models.SymbolMatch{
		{Name: "Apple Inc", Symbol: "AAPL"},
		{Name: "Apple Hospitality REIT", Symbol: "APLE"},
	})
	text := htmlToText(reply)
	assert.Contains(t, text, "please choose the one you're referring to")
	assert.Contains(t, text, "- Apple Inc (AAPL)")
	assert.Contains(t, text, "- Apple Hospitality REIT (APLE)")
	assert.NotContains(t, text, "<li>")
}

func TestRenderConditions(t *testing.T) {
	assert.Contains(t, RenderConditions(nil), "No market condition data available.")

	out := RenderConditions([]models.MarketCondition{
		{Ticker: "SPY", Condition: models.ConditionBull, LastUpdated: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)},
		{Ticker: "TQQQ", Condition: models.ConditionBear, LastUpdated: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)},
	})
	assert.Contains(t, out, "SPY")
	assert.Contains(t, out, "Bull")
	assert.Contains(t, out, "Currently, 'TQQQ' seems to be in a Bear market.")
}

func TestRenderConfigMasksKeys(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:        "openai",
		OpenAIAPIKey:       "sk-secret",
		AlphaVantageAPIKey: "av-secret",
		TrackedTickers:     []string{"SPY", "CLX"},
	}
	out := RenderConfig(cfg)
	assert.NotContains(t, out, "sk-secret")
	assert.NotContains(t, out, "av-secret")
	assert.Contains(t, out, "SPY, CLX")
	assert.Contains(t, out, "not configured")
}

func TestConfigWarnings(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:    "deepseek",
		QuoteProvider:  "finnhub",
		SearchProvider: "finnhub",
		NewsProvider:   "finnhub",
		CensusAPIKey:   "census",
		FinnhubAPIKey:  "",
	}
	warnings := configWarnings(cfg)
	assert.Contains(t, warnings, "deepseek API key not configured")
	assert.Contains(t, warnings, "Finnhub API key not configured")
	assert.NotContains(t, warnings, "Alpha Vantage API key not configured")
	assert.NotContains(t, warnings, "Census API key not configured")
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Audney v"+version+"\n", out.String())
}

func TestOpenMarketsWithoutLLMKey(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:         dir,
		DataCacheDir:    filepath.Join(dir, "cache"),
		DBPath:          filepath.Join(dir, "audney.db"),
		LLMProvider:     "openai",
		QuoteProvider:   "alphavantage",
		HistoryProvider: "alphavantage",
		SearchProvider:  "alphavantage",
		NewsProvider:    "alphavantage",
		HTTPTimeout:     time.Second,
		TrackedTickers:  []string{"SPY"},
		HistoryYears:    1,
	}
	require.Empty(t, cfg.LLMAPIKey())

	markets, store, err := OpenMarkets(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	conditions, err := markets.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conditions)
}
