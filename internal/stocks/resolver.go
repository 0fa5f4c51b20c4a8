package stocks

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/llm"
	"github.com/dyike/audney/internal/models"
)

// Resolver turns free text into candidate (company, ticker) pairs.
type Resolver struct {
	model    model.BaseChatModel
	searcher dataflows.SymbolSearcher
	system   string
	logger   zerolog.Logger
}

func NewResolver(cm model.BaseChatModel, searcher dataflows.SymbolSearcher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		model:    cm,
		searcher: searcher,
		system:   llm.MustLoadPrompt(llm.PromptExtractCompany),
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Extract asks the model for the company name or ticker mentioned in text.
// It returns "" when nothing usable was extracted.
func (r *Resolver) Extract(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	raw, err := llm.Complete(ctx, r.model, r.system, text)
	if err != nil {
		r.logger.Warn().Err(err).Msg("company extraction failed")
		return ""
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if name == "" || strings.EqualFold(name, "stock_price") || strings.EqualFold(name, "none") {
		return ""
	}
	return name
}

// Resolve returns the candidates for text. A single case-insensitive exact
// name match is returned alone; otherwise every search result whose name or
// symbol contains the extracted query. Failures yield no candidates.
func (r *Resolver) Resolve(ctx context.Context, text string) []models.SymbolMatch {
	query := r.Extract(ctx, text)
	if query == "" {
		return nil
	}

	results, err := r.searcher.SearchSymbols(ctx, query)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Str("kind", string(dataflows.KindOf(err))).Msg("symbol search failed")
		return nil
	}

	return FilterMatches(query, results)
}

// FilterMatches applies the containment filter and exact-name preference.
func FilterMatches(query string, results []models.SymbolMatch) []models.SymbolMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var (
		filtered []models.SymbolMatch
		exact    []models.SymbolMatch
	)
	for _, m := range results {
		name, symbol := strings.ToLower(m.Name), strings.ToLower(m.Symbol)
		if !strings.Contains(name, q) && !strings.Contains(symbol, q) {
			continue
		}
		filtered = append(filtered, m)
		if name == q {
			exact = append(exact, m)
		}
	}
	if len(exact) == 1 {
		return exact
	}
	return filtered
}
