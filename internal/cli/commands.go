package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/audney/config"
	"github.com/dyike/audney/internal/api"
	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/logging"
)

const version = "0.1.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var logger zerolog.Logger

	rootCmd := &cobra.Command{
		Use:   "audney",
		Short: "Audney - personal finance chat assistant",
		Long: `Audney answers personal-finance questions in chat. It quotes stock prices,
classifies market conditions and grounds its advice in local census data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			logger = logging.New(logging.Options{Debug: cfg.Debug, JSON: cfg.LogJSON, Level: cfg.LogLevel})
			return cfg.Validate()
		},
	}

	loggerFn := func() zerolog.Logger { return logger }

	rootCmd.AddCommand(newServeCmd(cfg, loggerFn))
	rootCmd.AddCommand(newChatCmd(cfg, loggerFn))
	rootCmd.AddCommand(newRegisterCmd(cfg, loggerFn))
	rootCmd.AddCommand(newMarketsCmd(cfg, loggerFn))
	rootCmd.AddCommand(newCacheCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	return rootCmd
}

// newServeCmd creates the serve command
func newServeCmd(cfg *config.Config, logger func() zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			if einoDebug, _ := cmd.Flags().GetBool("eino-debug"); einoDebug {
				cfg.EinoDebugEnabled = true
			}
			return runServe(cmd.Context(), cfg, logger())
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides AUDNEY_ADDR)")
	cmd.Flags().Bool("eino-debug", false, "Start the eino visual debugger")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	router := api.NewRouter(api.RouterConfig{
		ChatRatePerMinute: cfg.ChatRatePerMinute,
		AllowedOrigins:    cfg.AllowedOrigins,
	}, logger, app.Auth, app.Chat, app.Store)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go purgeSessions(ctx, app, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("llm_provider", cfg.LLMProvider).Msg("starting Audney server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func purgeSessions(ctx context.Context, app *App, logger zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.Auth.PurgeIdle(ctx); err != nil {
				logger.Warn().Err(err).Msg("purge idle sessions failed")
			}
		}
	}
}

// newChatCmd creates the interactive terminal chat command
func newChatCmd(cfg *config.Config, logger func() zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Audney in the terminal",
		Long: `Log in as an existing account and chat through the same pipeline the HTTP API uses.
Example: audney chat --user dana`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("user")
			ctx := cmd.Context()
			app, err := NewApp(ctx, cfg, logger())
			if err != nil {
				return err
			}
			defer app.Close()
			return runInteractiveChat(ctx, app, username)
		},
	}
	cmd.Flags().String("user", "", "Account username (prompted when empty)")
	return cmd
}

// newRegisterCmd creates an account from the terminal
func newRegisterCmd(cfg *config.Config, logger func() zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account and its financial profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			req, err := PromptForRegistration()
			if err != nil {
				return err
			}
			acc, err := auth.NewService(store, cfg.SessionIdleTimeout, logger()).Register(ctx, req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Account %q created.", acc.Username)))
			return nil
		},
	}
}

// newMarketsCmd creates the markets command
func newMarketsCmd(cfg *config.Config, logger func() zerolog.Logger) *cobra.Command {
	marketsCmd := &cobra.Command{
		Use:   "markets",
		Short: "Market condition management",
	}

	marketsCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reclassify every tracked ticker and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			markets, store, err := OpenMarkets(cfg, logger())
			if err != nil {
				return err
			}
			defer store.Close()

			conditions, err := markets.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			fmt.Println(RenderConditions(conditions))
			return nil
		},
	})

	return marketsCmd
}

// newCacheCmd creates the cache command
func newCacheCmd(cfg *config.Config) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Provider response cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached provider response",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			providers, err := dataflows.NewProviders(cfg)
			if err != nil {
				return err
			}
			if err := providers.ClearCache(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Println(successStyle.Render("Cache cleared."))
			return nil
		},
	})

	return cacheCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Audney v%s\n", version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), RenderConfig(cfg))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("directory validation failed: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			for _, w := range configWarnings(cfg) {
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("warning: "+w))
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Configuration is valid."))
			return nil
		},
	})

	return configCmd
}

func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.LLMAPIKey() == "" {
		warnings = append(warnings, fmt.Sprintf("%s API key not configured", cfg.LLMProvider))
	}
	if cfg.AlphaVantageAPIKey == "" && (cfg.QuoteProvider == "alphavantage" || cfg.SearchProvider == "alphavantage" || cfg.NewsProvider == "alphavantage") {
		warnings = append(warnings, "Alpha Vantage API key not configured")
	}
	if cfg.FinnhubAPIKey == "" && (cfg.QuoteProvider == "finnhub" || cfg.SearchProvider == "finnhub" || cfg.NewsProvider == "finnhub") {
		warnings = append(warnings, "Finnhub API key not configured")
	}
	if cfg.CensusAPIKey == "" {
		warnings = append(warnings, "Census API key not configured")
	}
	return warnings
}
