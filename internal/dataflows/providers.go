package dataflows

import (
	"context"
	"time"

	"github.com/dyike/audney/internal/models"
)

// QuoteProvider returns the most recent close for a ticker.
type QuoteProvider interface {
	LatestClose(ctx context.Context, symbol string) (float64, error)
}

// HistoryProvider returns daily closes between start and end, oldest first.
type HistoryProvider interface {
	DailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error)
}

// SymbolSearcher looks up listed securities by free-text keywords.
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error)
}

// NewsSource returns general market news, most relevant first.
type NewsSource interface {
	MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error)
}

// CensusSource answers ACS 5-year table lookups.
type CensusSource interface {
	Table(ctx context.Context, query CensusQuery) ([][]string, error)
}
