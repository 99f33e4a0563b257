// Package canaryservice wires configuration, storage, upstream clients, and
// the HTTP server into a runnable news-assistant service.
package canaryservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/ai"
	"github.com/victorbash400/canary/internal/api"
	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/config"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/images"
	"github.com/victorbash400/canary/internal/news"
	"github.com/victorbash400/canary/internal/platform/logger"
	"github.com/victorbash400/canary/internal/prefs"
	"github.com/victorbash400/canary/internal/search"
	"github.com/victorbash400/canary/internal/services"
	"github.com/victorbash400/canary/internal/store"
	"github.com/victorbash400/canary/internal/store/postgres"
	"github.com/victorbash400/canary/internal/store/sqlite"
)

// Run starts the canary HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("canary-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	// Root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, pinger, err := newStore(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return err
	}

	mailer, err := newMailer(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Mailer unavailable")
		return err
	}

	deps := buildDeps(cfg, st, pinger, mailer, log)
	router := api.NewRouter(deps)

	if cfg.DigestIntervalMinutes > 0 {
		go runDigestTicker(ctx, deps.Digest, cfg.DigestIntervalMinutes, log)
	}

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newStore opens the configured database driver.
func newStore(cfg *config.Config, log zerolog.Logger) (store.Store, api.HealthPinger, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		st, err := postgres.NewWithDB(db)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("using postgres store")
		pinger, _ := st.(api.HealthPinger)
		return st, pinger, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		st, err := sqlite.NewWithDB(db)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		pinger, _ := st.(api.HealthPinger)
		return st, pinger, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// newMailer returns the SES mailer, or a no-op sink when no sender address
// is configured so local runs work without AWS credentials.
func newMailer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (email.Mailer, error) {
	if cfg.SenderEmail == "" || cfg.IsTesting() {
		log.Warn().Msg("email sending disabled")
		return email.NopMailer{}, nil
	}
	return email.NewSESMailer(ctx, cfg.SenderEmail, log)
}

func buildDeps(cfg *config.Config, st store.Store, pinger api.HealthPinger, mailer email.Mailer, log zerolog.Logger) api.Deps {
	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLDays)*24*time.Hour)

	gen := ai.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	searcher := search.NewPerplexityClient(cfg.PerplexityBaseURL, cfg.PerplexityAPIKey)
	finder := images.NewUnsplashFinder(cfg.UnsplashBaseURL, cfg.UnsplashAccessKey, log)
	fetcher := news.NewFetcher(searcher, gen, finder, log)
	extractor := prefs.NewExtractor(gen, log)

	return api.Deps{
		Verifier: issuer,
		Users:    services.NewUserService(st, issuer, mailer, cfg.FrontendURL, log),
		News:     services.NewNewsService(st, fetcher, log),
		Chat:     services.NewChatService(st, gen, extractor, mailer, cfg.FrontendURL, log),
		Digest:   services.NewDigestService(st, fetcher, gen, mailer, cfg.FrontendURL, log),
		Pinger:   pinger,
		Log:      log,
	}
}

// runDigestTicker runs the sweep on a fixed interval until the context is
// canceled. The HTTP trigger stays available regardless.
func runDigestTicker(ctx context.Context, digest *services.DigestService, intervalMinutes int, log zerolog.Logger) {
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()
	log.Info().Int("interval_minutes", intervalMinutes).Msg("digest scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := digest.RunSweep(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled digest sweep failed")
			}
		}
	}
}
