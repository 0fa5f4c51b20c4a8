package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DBPath       string `json:"db_path"`

	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	Debug          bool     `json:"debug"`
	LogJSON        bool     `json:"log_json"`
	LogLevel       string   `json:"log_level"`

	LLMProvider string `json:"llm_provider"`
	ChatModel   string `json:"chat_model"`
	QuickModel  string `json:"quick_model"`
	BackendURL  string `json:"backend_url"`
	MaxTokens   int    `json:"max_tokens"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	CacheEnabled    bool          `json:"cache_enabled"`
	HTTPTimeout     time.Duration `json:"http_timeout"`
	ProviderRetries int           `json:"provider_retries"`

	// Provider selection
	QuoteProvider   string `json:"quote_provider"`
	HistoryProvider string `json:"history_provider"`
	SearchProvider  string `json:"search_provider"`
	NewsProvider    string `json:"news_provider"`

	// Chat pipeline
	TrackedTickers     []string      `json:"tracked_tickers"`
	HistoryYears       int           `json:"history_years"`
	HistoryTurns       int           `json:"history_turns"`
	NewsLimit          int           `json:"news_limit"`
	DuplicateWindow    time.Duration `json:"duplicate_window"`
	SessionIdleTimeout time.Duration `json:"session_idle_timeout"`
	ChatRatePerMinute  int           `json:"chat_rate_per_minute"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// AI Model API Keys
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// Market/Census data API keys
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key"`
	FinnhubAPIKey      string `json:"finnhub_api_key"`
	CensusAPIKey       string `json:"census_api_key"`
}

var (
	llmProviders     = []string{"openai", "deepseek"}
	quoteProviders   = []string{"alphavantage", "finnhub", "yahoo", "longport"}
	historyProviders = []string{"alphavantage", "yahoo", "longport"}
	searchProviders  = []string{"alphavantage", "finnhub"}
	newsProviders    = []string{"alphavantage", "finnhub"}
)

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		DBPath:       filepath.Join(currentDir, "data", "audney.db"),

		Addr:     ":8080",
		Debug:    false,
		LogLevel: "info",

		LLMProvider: "openai",
		ChatModel:   "gpt-4o",
		QuickModel:  "gpt-4o-mini",
		BackendURL:  "",
		MaxTokens:   1024,

		// Eino Debug defaults
		EinoDebugEnabled: false,
		EinoDebugPort:    52538,

		CacheEnabled:    true,
		HTTPTimeout:     30 * time.Second,
		ProviderRetries: 0,

		QuoteProvider:   "alphavantage",
		HistoryProvider: "alphavantage",
		SearchProvider:  "alphavantage",
		NewsProvider:    "alphavantage",

		TrackedTickers:     []string{"TQQQ", "SPY", "CLX"},
		HistoryYears:       5,
		HistoryTurns:       6,
		NewsLimit:          5,
		DuplicateWindow:    5 * time.Second,
		SessionIdleTimeout: 30 * time.Minute,
		ChatRatePerMinute:  20,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DataCacheDir = filepath.Join(val, "cache")
		c.DBPath = filepath.Join(val, "audney.db")
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("AUDNEY_ADDR"); val != "" {
		c.Addr = val
	}
	if val := os.Getenv("AUDNEY_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogJSON = strings.EqualFold(val, "json")
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("CHAT_MODEL"); val != "" {
		c.ChatModel = val
	}
	if val := os.Getenv("QUICK_MODEL"); val != "" {
		c.QuickModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTPTimeout = d
		}
	}
	if val := os.Getenv("PROVIDER_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.ProviderRetries = v
		}
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("QUOTE_PROVIDER"); val != "" {
		c.QuoteProvider = strings.ToLower(val)
	}
	if val := os.Getenv("HISTORY_PROVIDER"); val != "" {
		c.HistoryProvider = strings.ToLower(val)
	}
	if val := os.Getenv("SEARCH_PROVIDER"); val != "" {
		c.SearchProvider = strings.ToLower(val)
	}
	if val := os.Getenv("NEWS_PROVIDER"); val != "" {
		c.NewsProvider = strings.ToLower(val)
	}

	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		c.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv("TRACKED_TICKERS"); val != "" {
		c.TrackedTickers = splitList(strings.ToUpper(val))
	}
	if val := os.Getenv("HISTORY_YEARS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistoryYears = v
		}
	}
	if val := os.Getenv("HISTORY_TURNS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistoryTurns = v
		}
	}
	if val := os.Getenv("NEWS_LIMIT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.NewsLimit = v
		}
	}
	if val := os.Getenv("DUPLICATE_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.DuplicateWindow = d
		}
	}
	if val := os.Getenv("SESSION_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.SessionIdleTimeout = d
		}
	}
	if val := os.Getenv("CHAT_RATE_PER_MINUTE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.ChatRatePerMinute = v
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("ALPHA_VANTAGE_API_KEY"); val != "" {
		c.AlphaVantageAPIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("CENSUS_API_KEY"); val != "" {
		c.CensusAPIKey = val
	}
}

// Validate reports the first setting that cannot be used to wire the service.
func (c *Config) Validate() error {
	if err := oneOf("llm_provider", c.LLMProvider, llmProviders); err != nil {
		return err
	}
	if err := oneOf("quote_provider", c.QuoteProvider, quoteProviders); err != nil {
		return err
	}
	if err := oneOf("history_provider", c.HistoryProvider, historyProviders); err != nil {
		return err
	}
	if err := oneOf("search_provider", c.SearchProvider, searchProviders); err != nil {
		return err
	}
	if err := oneOf("news_provider", c.NewsProvider, newsProviders); err != nil {
		return err
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.HistoryYears <= 0 {
		return fmt.Errorf("history_years must be positive, got %d", c.HistoryYears)
	}
	if c.HistoryTurns < 0 || c.NewsLimit < 0 {
		return fmt.Errorf("history_turns and news_limit must not be negative")
	}
	if c.DuplicateWindow < 0 {
		return fmt.Errorf("duplicate_window must not be negative")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session_idle_timeout must be positive")
	}
	if c.ProviderRetries < 0 {
		return fmt.Errorf("provider_retries must not be negative")
	}
	return nil
}

// LLMAPIKey returns the key matching the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "deepseek" {
		return c.DeepSeekAPIKey
	}
	return c.OpenAIAPIKey
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir, filepath.Dir(c.DBPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q is not supported (want one of %s)", field, value, strings.Join(allowed, ", "))
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
