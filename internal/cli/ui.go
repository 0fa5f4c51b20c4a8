package cli

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/audney/config"
	"github.com/dyike/audney/internal/market"
	"github.com/dyike/audney/internal/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1).
		MarginBottom(1)

	replyStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1).
		Width(80)

	sectionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F59E0B"))

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	bullStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	bearStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Bold(true)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(username string) {
	fmt.Println(titleStyle.Render("Audney - your personal finance assistant"))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("Logged in as %s. Type 'exit' to quit.", username)))
	fmt.Println()
}

// RenderReply formats an assistant reply for the terminal. Candidate lists
// are rendered as plain lines.
func RenderReply(message string, isHTML bool) string {
	if isHTML {
		message = htmlToText(message)
	}
	return replyStyle.Render(message)
}

// ParseCandidates extracts the ticker options from a candidate list reply.
func ParseCandidates(reply string) []models.SymbolMatch {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(reply))
	if err != nil {
		return nil
	}
	var out []models.SymbolMatch
	doc.Find("a.ticker-option").Each(func(_ int, s *goquery.Selection) {
		symbol, _ := s.Attr("data-ticker-symbol")
		name, _ := s.Attr("data-company-name")
		if symbol != "" {
			out = append(out, models.SymbolMatch{Name: name, Symbol: symbol})
		}
	})
	return out
}

func htmlToText(reply string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(reply))
	if err != nil {
		return reply
	}
	var b strings.Builder
	body := doc.Find("body")
	body.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "ul" {
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				b.WriteString("\n  - ")
				b.WriteString(strings.TrimSpace(li.Text()))
			})
			return
		}
		b.WriteString(s.Text())
	})
	return strings.TrimSpace(b.String())
}

// RenderConditions formats market conditions as a table.
func RenderConditions(conditions []models.MarketCondition) string {
	if len(conditions) == 0 {
		return warnStyle.Render("No market condition data available.")
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Market conditions"))
	b.WriteString("\n")
	for _, mc := range conditions {
		style := neutralStyle
		switch mc.Condition {
		case models.ConditionBull:
			style = bullStyle
		case models.ConditionBear:
			style = bearStyle
		}
		fmt.Fprintf(&b, "%-8s %s  %s\n", mc.Ticker, style.Render(fmt.Sprintf("%-7s", mc.Condition)),
			mutedStyle.Render(mc.LastUpdated.Format("2006-01-02 15:04")))
	}
	for _, mc := range conditions {
		b.WriteString(mutedStyle.Render(market.Describe(mc)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderConfig displays the current configuration with secrets masked.
func RenderConfig(cfg *config.Config) string {
	var b strings.Builder
	row := func(label string, value any) {
		fmt.Fprintf(&b, "%-22s %v\n", label+":", value)
	}

	b.WriteString(sectionStyle.Render("Current Audney configuration"))
	b.WriteString("\n")
	row("Listen Address", cfg.Addr)
	row("Data Directory", cfg.DataDir)
	row("Database", cfg.DBPath)
	row("Cache Directory", cfg.DataCacheDir)
	row("Cache Enabled", cfg.CacheEnabled)
	b.WriteString("\n")
	row("LLM Provider", cfg.LLMProvider)
	row("Chat Model", cfg.ChatModel)
	row("Quick Model", cfg.QuickModel)
	row("Backend URL", cfg.BackendURL)
	b.WriteString("\n")
	row("Quote Provider", cfg.QuoteProvider)
	row("History Provider", cfg.HistoryProvider)
	row("Search Provider", cfg.SearchProvider)
	row("News Provider", cfg.NewsProvider)
	row("Tracked Tickers", strings.Join(cfg.TrackedTickers, ", "))
	row("History Turns", cfg.HistoryTurns)
	row("Session Idle Timeout", cfg.SessionIdleTimeout)
	row("Chat Rate / Minute", cfg.ChatRatePerMinute)
	row("Debug Mode", cfg.Debug)
	row("Eino Debug", cfg.EinoDebugEnabled)
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("API keys"))
	b.WriteString("\n")
	row("LLM", configured(cfg.LLMAPIKey()))
	row("Alpha Vantage", configured(cfg.AlphaVantageAPIKey))
	row("Finnhub", configured(cfg.FinnhubAPIKey))
	row("Census", configured(cfg.CensusAPIKey))
	row("Longport", configured(cfg.LongportAppKey))
	return b.String()
}

func configured(key string) string {
	if key == "" {
		return "not configured"
	}
	return "configured"
}
