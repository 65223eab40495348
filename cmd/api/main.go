package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tryon/internal/adapter/repo"
	"tryon/internal/bgremoval"
	"tryon/internal/domain"
	"tryon/internal/http/handlers"
	httpapi "tryon/internal/http/httpapi"
	"tryon/internal/infra"
	"tryon/internal/infra/credentials"
	"tryon/internal/infra/geoip"
	"tryon/internal/normalize"
	"tryon/internal/providers/gemini"
	"tryon/internal/providers/space"
	"tryon/internal/storage"
	"tryon/internal/tryon"
)

const sessionTTL = 6 * time.Hour

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it the closet is disabled and provider
	// keys come from the environment only.
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	var (
		store  *credentials.Store
		closet domain.ClosetRepository
	)
	if dbpool != nil {
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)
		store = credentials.NewStore(runner)
		closet = repo.NewClosetRepository(runner)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, closet disabled")
	}

	hfToken, err := store.Resolve(ctx, credentials.ProviderHuggingFace, cfg.HFToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load huggingface token")
	}

	table := normalize.DefaultKeyTable()
	if cfg.NormalizerKeysFile != "" {
		table, err = normalize.LoadKeyTable(cfg.NormalizerKeysFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.NormalizerKeysFile).Msg("failed to load normalizer keys")
		}
	}
	normalizer := normalize.New(normalize.Options{
		Table:           table,
		DownloadTimeout: cfg.TryOnDownloadTimeout,
		Header:          space.AuthHeader(hfToken),
		HeaderHosts:     space.Hosts(cfg.TryOnSpace, cfg.RemoveBGSpace),
		Logger:          &logger,
	})

	tryOnSpace, bgSpace, err := buildSpaces(cfg, hfToken, normalizer, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure spaces")
	}

	direct, err := buildGemini(ctx, cfg, store, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini")
	}

	opts := tryon.Options{
		Space:           tryOnSpace,
		DirectThreshold: cfg.DirectAPIThreshold,
		Normalizer:      normalizer,
		Logger:          &logger,
	}
	removers := []bgremoval.Remover{bgSpace}
	if direct != nil {
		opts.Direct = gemini.NewStrategy(direct)
		removers = append(removers, gemini.NewBackgroundRemover(direct))
	}
	removers = append(removers, bgremoval.CanvasRemover{Threshold: uint8(cfg.RemoveBGThreshold)})

	orchestrator, err := tryon.NewOrchestrator(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator")
	}
	sessions := tryon.NewSessionStore(cfg.MaxSessions)
	go pruneSessions(ctx, sessions, logger)

	images, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	app := &handlers.App{
		Config:       cfg,
		Logger:       &logger,
		Orchestrator: orchestrator,
		Fallback: &tryon.Fallback{
			Orchestrator: orchestrator,
			Steps:        []tryon.Step{{Strategy: tryOnSpace, When: tryon.OnProviderError}},
		},
		Sessions:   sessions,
		Background: bgremoval.NewChain(&logger, removers...),
		Closet:     closet,
		Images:     images,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		JWTSecret:       cfg.JWTSecret,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   "en",
		CountryLookup:   geo.Lookup(),
		StaticDir:       images.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Bool("direct", opts.Direct != nil).
			Strs("removers", app.Background.Methods()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildSpaces connects lazily: each Space gets its own cached client so a
// failing remover never invalidates the try-on connection.
func buildSpaces(cfg *infra.Config, token string, n *normalize.Normalizer, logger *infra.Logger) (*space.TryOnStrategy, *space.BackgroundRemover, error) {
	connect := func(name string) space.ConnectFunc {
		return func(ctx context.Context) (*space.Client, error) {
			return space.Connect(ctx, space.ClientOptions{Space: name, Token: token, Logger: logger})
		}
	}
	tryOnSpace, err := space.NewTryOnStrategy(space.TryOnOptions{
		Cache:          space.NewClientCache(connect(cfg.TryOnSpace), cfg.SpaceConnectTimeout),
		Normalizer:     n,
		Endpoint:       cfg.TryOnEndpoint,
		PredictTimeout: cfg.TryOnPredictTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}
	bg, err := space.NewBackgroundRemover(space.BackgroundOptions{
		Cache:      space.NewClientCache(connect(cfg.RemoveBGSpace), cfg.SpaceConnectTimeout),
		Normalizer: n,
		Endpoint:   cfg.RemoveBGEndpoint,
		Timeout:    cfg.RemoveBGTimeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return tryOnSpace, bg, nil
}

// buildGemini returns nil when the direct API is disabled. An enabled
// direct API without a key is a configuration error.
func buildGemini(ctx context.Context, cfg *infra.Config, store *credentials.Store, logger *infra.Logger) (*gemini.Client, error) {
	if !cfg.DirectAPIEnabled {
		return nil, nil
	}
	key, err := store.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("DIRECT_API_ENABLED is set but no gemini key was found in GEMINI_API_KEY or the credential store")
	}
	return gemini.NewClient(ctx, gemini.Options{
		APIKey:  key,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
		Logger:  logger,
	})
}

func pruneSessions(ctx context.Context, sessions *tryon.SessionStore, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(sessionTTL); n > 0 {
				logger.Debug().Int("pruned", n).Int("remaining", sessions.Len()).Msg("sessions pruned")
			}
		}
	}
}
