package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"taskdeck/internal/analytics"
	"taskdeck/internal/categories"
	"taskdeck/internal/config"
	transporthttp "taskdeck/internal/http"
	"taskdeck/internal/identity"
	"taskdeck/internal/platform/database"
	"taskdeck/internal/platform/logging"
	"taskdeck/internal/platform/migrate"
	"taskdeck/internal/profile"
	"taskdeck/internal/tasks"
)

type repositories struct {
	identity identity.Repository
	profile  profile.Repository
	category categories.Repository
	task     tasks.Repository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	repos, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repositories", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	identitySvc := identity.NewService(repos.identity, identity.Options{
		AccessTokenTTL:      cfg.AccessTokenTTL,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		RequireConfirmation: cfg.RequireConfirmation,
	})
	profileSvc := profile.NewService(repos.profile)
	taskSvc := tasks.NewService(repos.task)
	categorySvc := categories.NewService(repos.category)
	analyticsSvc := analytics.NewService(repos.task, repos.category)

	var google *identity.GoogleAuthenticator
	if cfg.GoogleEnabled() {
		google, err = identity.NewGoogleAuthenticator(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			logger.Error("failed to initialize google sign-in", "error", err)
			os.Exit(1)
		}
		logger.Info("google sign-in enabled")
	}

	sweeper := startCredentialSweep(identitySvc, logger)
	defer sweeper.Stop()

	router := transporthttp.NewRouter(cfg, transporthttp.Services{
		Identity:  identitySvc,
		Profile:   profileSvc,
		Tasks:     taskSvc,
		Category:  categorySvc,
		Analytics: analyticsSvc,
		Google:    google,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Taskdeck API listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repositories")
		repos := seedDemoData(ctx, logger)
		return repos, nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return repositories{}, nil, err
	}

	logger.Info("connected to postgres")
	return repositories{
		identity: identity.NewPostgresRepository(db),
		profile:  profile.NewPostgresRepository(db),
		category: categories.NewPostgresRepository(db),
		task:     tasks.NewPostgresRepository(db),
	}, cleanup, nil
}

// startCredentialSweep deletes expired refresh sessions and access tokens on
// an hourly schedule.
func startCredentialSweep(identitySvc *identity.Service, logger *slog.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := identitySvc.CleanupExpiredCredentials(ctx)
		if err != nil {
			logger.Error("credential sweep failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Info("swept expired credentials", "removed", removed)
		}
	})
	if err != nil {
		logger.Error("failed to schedule credential sweep", "error", err)
	}
	c.Start()
	return c
}
