package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cropsage/cropsage/db"
	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/config"
	"github.com/cropsage/cropsage/internal/llm"
	"github.com/cropsage/cropsage/internal/log"
	"github.com/cropsage/cropsage/internal/session"
	"github.com/cropsage/cropsage/internal/tools"
)

// Setup builds the application from cfg. On error everything already
// initialized is released; otherwise the caller owns Close.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{
		Config: cfg,
		Logger: provideLogger(cfg),
		Locker: session.NewLocker(),
	}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				a.Logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	store, pool, err := provideStore(ctx, cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.DBPool = pool

	engine, err := provideEngine(cfg, g, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Engine = engine

	return a, nil
}

// provideLogger builds the process logger and installs it as the slog
// default so library code logging via slog lands in the same stream.
func provideLogger(cfg *config.Config) log.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	return logger
}

// provideGenkit initializes Genkit with the Google AI plugin. The plugin
// reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideStore builds the configured session store. The pool is non-nil
// only for the postgres backend.
func provideStore(ctx context.Context, cfg *config.Config, logger log.Logger) (session.Store, *pgxpool.Pool, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := provideDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return session.NewPGStore(pool, logger), pool, nil
	default:
		store, err := session.NewFileStore(cfg.SessionsDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideEngine builds the advisor engine with its model and tool adapters.
func provideEngine(cfg *config.Config, g *genkit.Genkit, logger log.Logger) (*advisor.Engine, error) {
	client, err := llm.NewClient(llm.ClientConfig{
		Genkit:            g,
		ModelName:         cfg.FullModelName(),
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	synth, err := llm.NewSynthesizer(client)
	if err != nil {
		return nil, fmt.Errorf("creating synthesizer: %w", err)
	}

	toolset, err := tools.NewClient(tools.Config{
		OpenWeatherKey:   cfg.OpenWeatherAPIKey,
		TavilyKey:        cfg.TavilyAPIKey,
		Units:            cfg.WeatherUnits,
		MaxSearchResults: cfg.SearchMaxResults,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool client: %w", err)
	}

	return advisor.NewEngine(advisor.EngineConfig{
		Extractor:   llm.NewExtractor(client),
		Synthesizer: synth,
		Tools:       toolset,
		Logger:      logger,
		Freshness: advisor.Freshness{
			WeatherMaxAge: cfg.WeatherMaxAge(),
			WebMaxAge:     cfg.WebMaxAge(),
		},
	})
}
