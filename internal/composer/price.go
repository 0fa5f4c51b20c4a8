package composer

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/stocks"
)

func (c *Composer) composePrice(ctx context.Context, req Request) Reply {
	matches := c.deps.Resolver.Resolve(ctx, req.Text)
	switch len(matches) {
	case 0:
		return Reply{Message: NoMatchReply}
	case 1:
		m := matches[0]
		price, err := c.deps.Prices.Price(ctx, m.Symbol)
		if err != nil {
			kind := dataflows.KindOf(err)
			metrics.ProviderFailures.WithLabelValues("quote", string(kind)).Inc()
			c.logger.Warn().Err(err).Str("ticker", m.Symbol).Str("kind", string(kind)).Msg("quote lookup failed")
			return Reply{Message: stocks.FailureText(m.Symbol, kind)}
		}
		return Reply{
			Message: QuoteSentence(m.Name, m.Symbol, price),
			Quote:   &Quote{Name: m.Name, Symbol: m.Symbol, Price: price},
		}
	default:
		return Reply{Message: CandidateList(matches), ContainsHTML: true}
	}
}

func QuoteSentence(name, symbol, price string) string {
	return fmt.Sprintf("Currently, %s (%s) is priced at %s.", name, symbol, price)
}

// CandidateList renders one clickable list item per candidate.
func CandidateList(matches []models.SymbolMatch) string {
	var b strings.Builder
	b.WriteString(MultipleIntro)
	b.WriteString("<ul>")
	for _, m := range matches {
		name := html.EscapeString(m.Name)
		symbol := html.EscapeString(m.Symbol)
		fmt.Fprintf(&b,
			"<li><a href='#' class='ticker-option' data-ticker-symbol='%s' data-company-name='%s'>%s (%s)</a></li>",
			symbol, name, name, symbol)
	}
	b.WriteString("</ul>")
	return b.String()
}
