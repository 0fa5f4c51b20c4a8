// Package composer builds Audney's reply to a classified chat message.
package composer

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/enrichment"
	"github.com/dyike/audney/internal/intent"
	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
)

// User-facing fallback texts.
const (
	NoMatchReply   = "Sorry, I couldn't find the stock price for the company you mentioned."
	ErrorReply     = "An error occurred while processing your request."
	MultipleIntro  = "I found multiple companies with that name, please choose the one you're referring to: "
	NoNewsFetched  = "No market news could be fetched."
	NoNewsRelevant = "No relevant market news available."
	NoMarketData   = "No market condition data available."
)

type Resolver interface {
	Resolve(ctx context.Context, text string) []models.SymbolMatch
}

type PriceFetcher interface {
	Price(ctx context.Context, ticker string) (string, error)
}

type LocationResolver interface {
	Resolve(ctx context.Context, text string, profile *models.UserProfile) enrichment.Location
}

type Enricher interface {
	Enrich(ctx context.Context, loc enrichment.Location) enrichment.Result
}

type MarketRefresher interface {
	Refresh(ctx context.Context) ([]models.MarketCondition, error)
}

type TurnSource interface {
	RecentTurns(ctx context.Context, accountID int64, limit int) ([]models.Turn, error)
}

// Deps are the collaborators of a Composer. News, Market, Location, Enricher
// and Turns may be nil; their prompt sections then degrade to placeholders.
type Deps struct {
	ChatModel model.BaseChatModel
	Resolver  Resolver
	Prices    PriceFetcher
	Location  LocationResolver
	Enricher  Enricher
	Market    MarketRefresher
	News      dataflows.NewsSource
	Turns     TurnSource
	NewsLimit int
	HistoryN  int
	Now       func() time.Time
	Callbacks []callbacks.Handler
}

type Composer struct {
	deps   Deps
	advice compose.Runnable[map[string]any, *schema.Message]
	logger zerolog.Logger
}

// Request is one classified chat message.
type Request struct {
	AccountID int64
	Text      string
	Intent    intent.Intent
	Profile   *models.UserProfile
}

// Quote is set on a reply that resolved to exactly one priced ticker.
type Quote struct {
	Name   string
	Symbol string
	Price  string
}

type Reply struct {
	Message      string
	ContainsHTML bool
	Quote        *Quote
}

func New(ctx context.Context, deps Deps, logger zerolog.Logger) (*Composer, error) {
	if deps.NewsLimit <= 0 {
		deps.NewsLimit = 5
	}
	if deps.HistoryN < 0 {
		deps.HistoryN = 0
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	chain, err := buildAdviceChain(ctx, deps.ChatModel)
	if err != nil {
		return nil, err
	}
	return &Composer{
		deps:   deps,
		advice: chain,
		logger: logger.With().Str("component", "composer").Logger(),
	}, nil
}

// Compose never fails: every error becomes a user-facing text.
func (c *Composer) Compose(ctx context.Context, req Request) Reply {
	start := time.Now()
	defer func() {
		metrics.ComposerDuration.WithLabelValues(string(req.Intent)).Observe(time.Since(start).Seconds())
	}()

	if req.Intent == intent.StockPrice {
		return c.composePrice(ctx, req)
	}
	text, err := c.composeAdvice(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Int64("account_id", req.AccountID).Str("intent", string(req.Intent)).Msg("advice completion failed")
		return Reply{Message: ErrorReply}
	}
	return Reply{Message: text}
}
