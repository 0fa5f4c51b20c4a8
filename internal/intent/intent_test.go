package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dyike/audney/internal/llm/llmtest"
)

func TestNormalize(t *testing.T) {
	cases := map[string]Intent{
		"stock_price":                 StockPrice,
		"Stock Price":                 StockPrice,
		"  STOCK \n":                  StockPrice,
		"Category: financial advice":  FinancialAdvice,
		"category: advice":            FinancialAdvice,
		"investment_strategy":         InvestmentStrategy,
		"'strategy'":                  InvestmentStrategy,
		"other":                       Other,
		"weather":                     Other,
		"":                            Other,
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestOverride(t *testing.T) {
	assert.Equal(t, StockPrice, Override(Other, "What's the price of Clorox?"))
	assert.Equal(t, StockPrice, Override(Other, "How many SHARES should I buy"))
	assert.Equal(t, StockPrice, Override(Other, "what is apple going for"))
	assert.Equal(t, Other, Override(Other, "what's the weather"))
	assert.Equal(t, FinancialAdvice, Override(FinancialAdvice, "is my stock worth keeping"))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	c := NewClassifier(llmtest.Fixed("Category: stock"), log)
	assert.Equal(t, StockPrice, c.Classify(ctx, "clorox?"))

	c = NewClassifier(llmtest.Fixed("other"), log)
	assert.Equal(t, StockPrice, c.Classify(ctx, "What is the price of Clorox?"))

	c = NewClassifier(llmtest.Fixed("financial_advice"), log)
	assert.Equal(t, FinancialAdvice, c.Classify(ctx, "How should I budget?"))
}

func TestClassifyNeverFails(t *testing.T) {
	ctx := context.Background()
	c := NewClassifier(llmtest.Failing(errors.New("connection refused")), zerolog.Nop())

	assert.Equal(t, Other, c.Classify(ctx, "tell me a joke"))
	assert.Equal(t, StockPrice, c.Classify(ctx, "what is the value of TSLA"))

	c = NewClassifier(nil, zerolog.Nop())
	assert.Equal(t, Other, c.Classify(ctx, "hello"))
}
