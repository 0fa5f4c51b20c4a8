package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/audney/config"
	"github.com/dyike/audney/internal/llm/llmtest"
)

func TestPromptsAreEmbedded(t *testing.T) {
	for _, name := range []string{PromptClassifyIntent, PromptExtractCompany, PromptExtractLocation, PromptAdvisorPersona, PromptAdvisorContext} {
		p, err := LoadPrompt(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p, name)
	}
	_, err := LoadPrompt("missing")
	assert.Error(t, err)

	assert.Contains(t, MustLoadPrompt(PromptAdvisorPersona), "named Audney")
}

func TestComplete(t *testing.T) {
	m := llmtest.Fixed("  stock_price \n")
	out, err := Complete(context.Background(), m, "sys", "what is CLX at?")
	require.NoError(t, err)
	assert.Equal(t, "stock_price", out)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, schema.System, calls[0][0].Role)
	assert.Equal(t, "what is CLX at?", calls[0][1].Content)

	_, err = Complete(context.Background(), llmtest.Fixed("   "), "sys", "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	boom := errors.New("boom")
	_, err = Complete(context.Background(), llmtest.Failing(boom), "sys", "x")
	assert.ErrorIs(t, err, boom)

	_, err = Complete(context.Background(), nil, "sys", "x")
	assert.Error(t, err)
}

func TestNewChatModelRequiresKey(t *testing.T) {
	cfg := &config.Config{LLMProvider: "openai"}
	_, err := NewChatModel(context.Background(), cfg, "gpt-4o")
	assert.Error(t, err)

	cfg = &config.Config{LLMProvider: "claude", OpenAIAPIKey: "k"}
	_, err = NewChatModel(context.Background(), cfg, "x")
	assert.Error(t, err)
}
