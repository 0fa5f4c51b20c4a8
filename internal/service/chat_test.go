package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/audney/internal/composer"
	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/intent"
	"github.com/dyike/audney/internal/llm/llmtest"
	"github.com/dyike/audney/internal/messagelog"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/storage/sqlite"
	"github.com/dyike/audney/internal/stocks"
)

type fixedIntent intent.Intent

func (f fixedIntent) Classify(context.Context, string) intent.Intent { return intent.Intent(f) }

type fakeSearcher []models.SymbolMatch

func (f fakeSearcher) SearchSymbols(context.Context, string) ([]models.SymbolMatch, error) {
	return f, nil
}

type fakeQuotes map[string]float64

func (f fakeQuotes) LatestClose(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, &dataflows.Error{Provider: "test", Op: "quote", Kind: dataflows.KindNoData}
	}
	return p, nil
}

type fixture struct {
	svc   *ChatService
	store *sqlite.Store
	acct  int64
	clock *time.Time
}

func newFixture(t *testing.T, in intent.Intent, advice string, matches []models.SymbolMatch) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC)
	clock := &now
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "audney.db"), sqlite.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	acc, err := store.CreateAccount(ctx, "carol", "hash", models.UserProfile{FinancialGoal: models.GoalBudgeting})
	require.NoError(t, err)

	prices := stocks.NewQuoteFetcher(fakeQuotes{"CLX": 145.50, "CLX.NE": 20}, zerolog.Nop())
	comp, err := composer.New(ctx, composer.Deps{
		ChatModel: llmtest.Fixed(advice),
		Resolver:  stocks.NewResolver(llmtest.Fixed("Clorox Company"), fakeSearcher(matches), zerolog.Nop()),
		Prices:    prices,
		Turns:     store,
		HistoryN:  6,
	}, zerolog.Nop())
	require.NoError(t, err)

	log := messagelog.New(store, messagelog.DefaultWindow, zerolog.Nop())
	svc := NewChatService(fixedIntent(in), comp, prices, log, store, zerolog.Nop())
	return fixture{svc: svc, store: store, acct: acc.ID, clock: clock}
}

func TestRespondStockPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, intent.StockPrice, "", []models.SymbolMatch{{Name: "Clorox Company", Symbol: "CLX"}})

	resp, err := f.svc.Respond(ctx, f.acct, "  What's the price of Clorox?  ")
	require.NoError(t, err)
	assert.Equal(t, ChatResponse{
		Message:   "Currently, Clorox Company (CLX) is priced at $145.50.",
		HTML:      false,
		Timestamp: "2025-06-02 15:04:05",
	}, resp)

	history, err := f.svc.History(ctx, f.acct)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.HistoryUser, history[0].Type)
	assert.Equal(t, "What's the price of Clorox?", history[0].Message)
	assert.Equal(t, models.HistoryStockResponse, history[1].Type)
	require.NotNil(t, history[1].Query)
	assert.Equal(t, "What's the price of Clorox?", *history[1].Query)
}

func TestRespondMultipleCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, intent.StockPrice, "", []models.SymbolMatch{
		{Name: "Clorox Company Holdings", Symbol: "CLX"},
		{Name: "Clorox Company CDR", Symbol: "CLX.NE"},
	})

	resp, err := f.svc.Respond(ctx, f.acct, "clorox company stock")
	require.NoError(t, err)
	assert.True(t, resp.HTML)

	history, err := f.svc.History(ctx, f.acct)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.HistoryAudney, history[1].Type)
	assert.Contains(t, history[1].Message, `data-ticker-symbol="CLX.NE"`)
}

func TestRespondAdviceAndDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, intent.FinancialAdvice, "Save three months of expenses.", nil)

	resp, err := f.svc.Respond(ctx, f.acct, "How much should I save?")
	require.NoError(t, err)
	assert.Equal(t, "Save three months of expenses.", resp.Message)

	*f.clock = f.clock.Add(2 * time.Second)
	_, err = f.svc.Respond(ctx, f.acct, "How much should I save?")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.acct)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRespondEmptyMessage(t *testing.T) {
	f := newFixture(t, intent.Other, "x", nil)
	_, err := f.svc.Respond(context.Background(), f.acct, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestStockPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, intent.StockPrice, "", nil)

	res := f.svc.StockPrice(ctx, f.acct, "clx", "Clorox <Co>")
	assert.Equal(t, StockPriceResult{Success: true, Price: "$145.50", CompanyName: "Clorox &lt;Co&gt;"}, res)

	history, err := f.svc.History(ctx, f.acct)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Clorox <Co> is currently priced at $145.50", history[0].Message)
	require.NotNil(t, history[0].Query)
	assert.Equal(t, "Stock price check for Clorox <Co> (CLX)", *history[0].Query)

	res = f.svc.StockPrice(ctx, f.acct, "ZZZZ", "Nothing")
	assert.False(t, res.Success)
	assert.Equal(t, stocks.FailureText("ZZZZ", dataflows.KindNoData), res.Error)
}
