// Package intent decides what kind of question a chat message is.
//
// Classification runs in two stages. Primary asks the chat model for a
// label and normalizes it. Override then applies a deterministic keyword
// scan that upgrades "other" to a price lookup.
package intent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/llm"
	"github.com/dyike/audney/internal/metrics"
)

type Intent string

const (
	StockPrice         Intent = "stock_price"
	FinancialAdvice    Intent = "financial_advice"
	InvestmentStrategy Intent = "investment_strategy"
	Other              Intent = "other"
)

var labelAliases = map[string]Intent{
	"stock price":         StockPrice,
	"stock_price":         StockPrice,
	"stock":               StockPrice,
	"financial advice":    FinancialAdvice,
	"financial_advice":    FinancialAdvice,
	"advice":              FinancialAdvice,
	"investment strategy": InvestmentStrategy,
	"investment_strategy": InvestmentStrategy,
	"strategy":            InvestmentStrategy,
	"other":               Other,
}

var priceKeywords = []string{"stock", "shares", "price of", "value of", "worth", "going for"}

type Classifier struct {
	model  model.BaseChatModel
	system string
	logger zerolog.Logger
}

func NewClassifier(cm model.BaseChatModel, logger zerolog.Logger) *Classifier {
	return &Classifier{
		model:  cm,
		system: llm.MustLoadPrompt(llm.PromptClassifyIntent),
		logger: logger.With().Str("component", "intent").Logger(),
	}
}

// Classify never fails: any model error yields Other before the keyword
// override runs.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	primary, err := c.Primary(ctx, text)
	if err != nil {
		c.logger.Warn().Err(err).Msg("primary classification failed")
		primary = Other
	}
	final := Override(primary, text)
	if final != primary {
		metrics.IntentOverrides.Inc()
	}
	metrics.IntentsClassified.WithLabelValues(string(final)).Inc()
	c.logger.Debug().
		Str("primary", string(primary)).
		Str("intent", string(final)).
		Msg("classified message")
	return final
}

// Primary asks the model for a label and normalizes it.
func (c *Classifier) Primary(ctx context.Context, text string) (Intent, error) {
	raw, err := llm.Complete(ctx, c.model, c.system, text)
	if err != nil {
		return Other, err
	}
	return Normalize(raw), nil
}

// Normalize maps a free-form model label onto an Intent. Unknown labels are Other.
func Normalize(raw string) Intent {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.TrimPrefix(label, "category:")
	label = strings.Trim(strings.TrimSpace(label), `'".`)
	if in, ok := labelAliases[label]; ok {
		return in
	}
	return Other
}

// Override upgrades Other to StockPrice when the text carries a price keyword.
func Override(primary Intent, text string) Intent {
	if primary != Other {
		return primary
	}
	lower := strings.ToLower(text)
	for _, kw := range priceKeywords {
		if strings.Contains(lower, kw) {
			return StockPrice
		}
	}
	return Other
}
