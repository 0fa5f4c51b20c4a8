package cli

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/config"
	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/composer"
	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/debug"
	"github.com/dyike/audney/internal/enrichment"
	"github.com/dyike/audney/internal/intent"
	"github.com/dyike/audney/internal/llm"
	"github.com/dyike/audney/internal/market"
	"github.com/dyike/audney/internal/messagelog"
	"github.com/dyike/audney/internal/service"
	"github.com/dyike/audney/internal/stocks"
	"github.com/dyike/audney/internal/storage/sqlite"
)

// App holds every long-lived component. Each client is built once here and
// handed to the components that need it.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     *sqlite.Store
	Providers *dataflows.Providers
	Auth      *auth.Service
	Market    *market.Classifier
	Chat      *service.ChatService
}

// NewApp opens the store and wires the chat pipeline.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	app, err := wire(ctx, cfg, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// OpenStore creates the data directories and opens the record store.
func OpenStore(cfg *config.Config) (*sqlite.Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return sqlite.Open(cfg.DBPath)
}

func wire(ctx context.Context, cfg *config.Config, logger zerolog.Logger, store *sqlite.Store) (*App, error) {
	providers, err := dataflows.NewProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	if err := debug.NewEinoDebugger(cfg, logger).Initialize(ctx); err != nil {
		logger.Warn().Err(err).Msg("eino debugger unavailable")
	}

	chatModel, err := llm.NewChatModel(ctx, cfg, cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	quickModel, err := llm.NewChatModel(ctx, cfg, cfg.QuickModel)
	if err != nil {
		return nil, fmt.Errorf("quick model: %w", err)
	}

	quotes := stocks.NewQuoteFetcher(providers.Quotes, logger)
	markets := newMarketClassifier(cfg, providers, store, logger)

	comp, err := composer.New(ctx, composer.Deps{
		ChatModel: chatModel,
		Resolver:  stocks.NewResolver(quickModel, providers.Search, logger),
		Prices:    quotes,
		Location:  enrichment.NewLocationExtractor(quickModel, logger),
		Enricher:  enrichment.NewEnricher(providers.Census, logger),
		Market:    markets,
		News:      providers.News,
		Turns:     store,
		NewsLimit: cfg.NewsLimit,
		HistoryN:  cfg.HistoryTurns,
		Now:       store.Now,
		Callbacks: []callbacks.Handler{llm.NewLogCallback(logger)},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("composer: %w", err)
	}

	chat := service.NewChatService(
		intent.NewClassifier(quickModel, logger),
		comp,
		quotes,
		messagelog.New(store, cfg.DuplicateWindow, logger),
		store,
		logger,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Providers: providers,
		Auth:      auth.NewService(store, cfg.SessionIdleTimeout, logger),
		Market:    markets,
		Chat:      chat,
	}, nil
}

// OpenMarkets builds only what a market refresh needs: the store and the
// history provider. No LLM credentials are required.
func OpenMarkets(cfg *config.Config, logger zerolog.Logger) (*market.Classifier, *sqlite.Store, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	providers, err := dataflows.NewProviders(cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("providers: %w", err)
	}
	return newMarketClassifier(cfg, providers, store, logger), store, nil
}

func newMarketClassifier(cfg *config.Config, providers *dataflows.Providers, store *sqlite.Store, logger zerolog.Logger) *market.Classifier {
	return market.NewClassifier(providers.History, store, cfg.TrackedTickers, cfg.HistoryYears, logger)
}

func (a *App) Close() error {
	return a.Store.Close()
}
