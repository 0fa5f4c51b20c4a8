package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/enrichment"
	"github.com/dyike/audney/internal/intent"
	"github.com/dyike/audney/internal/llm"
	"github.com/dyike/audney/internal/market"
	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
)

// AdviceGraphName identifies the advice chain in the eino debugger.
const AdviceGraphName = "AudneyAdvice"

func buildAdviceChain(ctx context.Context, cm model.BaseChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	if cm == nil {
		return nil, errors.New("chat model is required")
	}
	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage("{persona}"),
		schema.SystemMessage(llm.MustLoadPrompt(llm.PromptAdvisorContext)),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendChatModel(cm)

	r, err := chain.Compile(ctx, compose.WithGraphName(AdviceGraphName))
	if err != nil {
		return nil, fmt.Errorf("compile advice chain: %w", err)
	}
	return r, nil
}

func (c *Composer) composeAdvice(ctx context.Context, req Request) (string, error) {
	vars := c.adviceVariables(ctx, req)
	var opts []compose.Option
	if len(c.deps.Callbacks) > 0 {
		opts = append(opts, compose.WithCallbacks(c.deps.Callbacks...))
	}
	msg, err := c.advice.Invoke(ctx, vars, opts...)
	if err != nil {
		return "", err
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return strings.TrimSpace(msg.Content), nil
}

// adviceVariables gathers every prompt section. Remote lookups run
// concurrently and each one degrades to placeholder text.
func (c *Composer) adviceVariables(ctx context.Context, req Request) map[string]any {
	var (
		conditions string
		local      string
		news       string
	)

	var g errgroup.Group
	g.Go(func() error {
		conditions = c.marketSection(ctx)
		return nil
	})
	g.Go(func() error {
		local = c.enrichmentSection(ctx, req)
		return nil
	})
	g.Go(func() error {
		news = c.newsSection(ctx)
		return nil
	})
	_ = g.Wait()

	return map[string]any{
		"persona":           llm.MustLoadPrompt(llm.PromptAdvisorPersona),
		"market_conditions": conditions,
		"profile":           ProfileSummary(req.Profile, c.deps.Now()),
		"enrichment":        local,
		"news":              news,
		"focus":             Focus(req.Intent, req.Profile),
		"history":           c.history(ctx, req.AccountID, req.Text),
		"question":          req.Text,
	}
}

func (c *Composer) marketSection(ctx context.Context) string {
	if c.deps.Market == nil {
		return NoMarketData
	}
	conds, err := c.deps.Market.Refresh(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("market conditions unavailable")
		return NoMarketData
	}
	if len(conds) == 0 {
		return NoMarketData
	}
	lines := make([]string, 0, len(conds))
	for _, mc := range conds {
		lines = append(lines, market.Describe(mc))
	}
	return strings.Join(lines, "\n")
}

func (c *Composer) enrichmentSection(ctx context.Context, req Request) string {
	if c.deps.Location == nil || c.deps.Enricher == nil {
		return enrichment.Narrative(enrichment.Result{})
	}
	loc := c.deps.Location.Resolve(ctx, req.Text, req.Profile)
	if !loc.Valid() {
		return enrichment.Narrative(enrichment.Result{})
	}
	return enrichment.Narrative(c.deps.Enricher.Enrich(ctx, loc))
}

func (c *Composer) newsSection(ctx context.Context) string {
	if c.deps.News == nil {
		return NoNewsFetched
	}
	items, err := c.deps.News.MarketNews(ctx, c.deps.NewsLimit)
	if err != nil {
		kind := dataflows.KindOf(err)
		metrics.ProviderFailures.WithLabelValues("news", string(kind)).Inc()
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("market news unavailable")
		return NoNewsFetched
	}
	return NewsDigest(items, c.deps.NewsLimit)
}

// history returns the recent turns without the current message, which the
// log may already hold.
func (c *Composer) history(ctx context.Context, accountID int64, current string) []*schema.Message {
	if c.deps.Turns == nil || c.deps.HistoryN == 0 {
		return nil
	}
	turns, err := c.deps.Turns.RecentTurns(ctx, accountID, c.deps.HistoryN)
	if err != nil {
		c.logger.Warn().Err(err).Int64("account_id", accountID).Msg("recent turns unavailable")
		return nil
	}
	if n := len(turns); n > 0 && turns[n-1].Role == "user" && turns[n-1].Content == current {
		turns = turns[:n-1]
	}
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case "user":
			msgs = append(msgs, schema.UserMessage(t.Content))
		case "assistant":
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}

// ProfileSummary describes the user in the first person.
func ProfileSummary(p *models.UserProfile, now time.Time) string {
	if p == nil {
		return "No profile information is available."
	}
	var b strings.Builder
	if age := p.Age(now); age >= 0 {
		fmt.Fprintf(&b, "I am %d years old. ", age)
	}
	fmt.Fprintf(&b, "My financial goal is %s. ", p.FinancialGoal.Label())
	fmt.Fprintf(&b, "Risk Tolerance: %s, Income Level: %s, Dependents: %s, Savings Coverage: %s.",
		p.RiskTolerance.Label(), p.IncomeLevel.Label(), p.Dependents.Label(), p.SavingsMonths.Label())
	return b.String()
}

// NewsDigest joins the summaries of the first limit items.
func NewsDigest(items []models.NewsItem, limit int) string {
	var lines []string
	for _, it := range items {
		if limit > 0 && len(lines) == limit {
			break
		}
		text := strings.TrimSpace(it.Summary)
		if text == "" {
			text = strings.TrimSpace(it.Title)
		}
		if text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		return NoNewsRelevant
	}
	return strings.Join(lines, "\n")
}

// Focus is the intent-specific closing instruction.
func Focus(in intent.Intent, p *models.UserProfile) string {
	switch in {
	case intent.InvestmentStrategy:
		risk := models.RiskTolerance("")
		if p != nil {
			risk = p.RiskTolerance
		}
		return fmt.Sprintf("Provide investment strategy advice for a user with this risk tolerance: %s.", risk.Label())
	case intent.FinancialAdvice:
		return "Focus on practical budgeting and saving guidance that fits the local cost of living."
	default:
		return ""
	}
}
