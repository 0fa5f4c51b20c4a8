package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audney_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_intents_classified_total",
			Help: "Chat messages by classified intent",
		},
		[]string{"intent"},
	)

	IntentOverrides = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audney_intent_overrides_total",
			Help: "Classifications changed to stock_price by keyword scan",
		},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_provider_failures_total",
			Help: "Upstream provider failures",
		},
		[]string{"component", "kind"},
	)

	DuplicatesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_duplicates_suppressed_total",
			Help: "Message log writes skipped as duplicates",
		},
		[]string{"kind"},
	)

	MarketConditions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audney_market_condition",
			Help: "Latest market condition per ticker (1 bull, 0 neutral, -1 bear)",
		},
		[]string{"ticker"},
	)

	ComposerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audney_compose_duration_seconds",
			Help:    "Time spent composing a reply",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"intent"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	AccountsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audney_accounts_registered_total",
			Help: "Total accounts registered",
		},
	)

	// LLM metrics
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_llm_tokens_total",
			Help: "Tokens reported by chat model calls",
		},
		[]string{"kind"},
	)

	LLMErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audney_llm_errors_total",
			Help: "Errors raised by eino components",
		},
		[]string{"component"},
	)
)
