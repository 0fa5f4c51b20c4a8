// Package messagelog records the user, assistant and stock-quote messages of
// each account, skipping repeats inside a short trailing window.
package messagelog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
)

const DefaultWindow = 5 * time.Second

type Store interface {
	InsertUserMessage(ctx context.Context, msg *models.UserMessage) error
	InsertAudneyMessage(ctx context.Context, msg *models.AudneyMessage) error
	InsertStockPriceResponse(ctx context.Context, msg *models.StockPriceResponse) error
	UserMessageExistsSince(ctx context.Context, accountID int64, message string, since time.Time) (bool, error)
	AudneyMessageExistsSince(ctx context.Context, accountID int64, message string, since time.Time) (bool, error)
	StockPriceResponseExistsSince(ctx context.Context, accountID int64, query, tickerQuote string, since time.Time) (bool, error)
	Now() time.Time
}

// Log writes message records. The duplicate check and the insert are two
// statements, so concurrent identical writes may both land.
type Log struct {
	store  Store
	window time.Duration
	logger zerolog.Logger
}

func New(store Store, window time.Duration, logger zerolog.Logger) *Log {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Log{
		store:  store,
		window: window,
		logger: logger.With().Str("component", "messagelog").Logger(),
	}
}

// RecordUser stores a user utterance. It reports false when an identical
// message from the same account was stored within the window.
func (l *Log) RecordUser(ctx context.Context, accountID int64, text string) (bool, error) {
	dup, err := l.store.UserMessageExistsSince(ctx, accountID, text, l.since())
	if err != nil {
		return false, err
	}
	if dup {
		l.suppressed("user", accountID)
		return false, nil
	}
	if err := l.store.InsertUserMessage(ctx, &models.UserMessage{AccountID: accountID, Message: text}); err != nil {
		return false, err
	}
	return true, nil
}

// RecordReply stores an assistant reply to query. HTML replies are sanitized
// first and the duplicate check runs on the sanitized text.
func (l *Log) RecordReply(ctx context.Context, accountID int64, reply, query string, containsHTML bool) (bool, error) {
	if containsHTML {
		reply = SanitizeHTML(reply)
	}
	dup, err := l.store.AudneyMessageExistsSince(ctx, accountID, reply, l.since())
	if err != nil {
		return false, err
	}
	if dup {
		l.suppressed("audney", accountID)
		return false, nil
	}
	msg := &models.AudneyMessage{
		AccountID:    accountID,
		Message:      reply,
		UserQuery:    query,
		ContainsHTML: containsHTML,
	}
	if err := l.store.InsertAudneyMessage(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

// RecordStockResponse stores a resolved quote shown to the account.
func (l *Log) RecordStockResponse(ctx context.Context, accountID int64, query, tickerQuote string) (bool, error) {
	dup, err := l.store.StockPriceResponseExistsSince(ctx, accountID, query, tickerQuote, l.since())
	if err != nil {
		return false, err
	}
	if dup {
		l.suppressed("stock_response", accountID)
		return false, nil
	}
	msg := &models.StockPriceResponse{AccountID: accountID, Query: query, TickerQuote: tickerQuote}
	if err := l.store.InsertStockPriceResponse(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Log) since() time.Time {
	return l.store.Now().Add(-l.window)
}

func (l *Log) suppressed(kind string, accountID int64) {
	metrics.DuplicatesSuppressed.WithLabelValues(kind).Inc()
	l.logger.Debug().Str("kind", kind).Int64("account_id", accountID).Msg("duplicate message suppressed")
}
