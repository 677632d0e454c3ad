package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/Git-me-Harish/Video-KYC/internal/app"
	"github.com/Git-me-Harish/Video-KYC/internal/auth"
	"github.com/Git-me-Harish/Video-KYC/internal/launcher"
	"github.com/Git-me-Harish/Video-KYC/internal/observability"
	"github.com/Git-me-Harish/Video-KYC/internal/proxy"
	"github.com/Git-me-Harish/Video-KYC/internal/shared"
	"github.com/Git-me-Harish/Video-KYC/internal/view"
	"github.com/Git-me-Harish/Video-KYC/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	users, closeUsers, err := app.OpenUserStore(ctx, cfg, logger, cfg.DBAutoMigrate)
	if err != nil {
		return err
	}
	defer closeUsers()

	sessionStore, closeSessions, err := app.OpenSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	sessionManager := shared.NewSessionManager(sessionStore, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	authHandler := auth.NewHandler(logger, auth.NewService(users, hasher), templates, sessionManager, metrics)

	forwarder, err := proxy.NewForwarder(cfg.ChatUpstreamURL, sessionManager.CookieName(), logger)
	if err != nil {
		return err
	}

	runner := launcher.ScriptRunner{
		Interpreter: cfg.KYCInterpreter,
		ScriptPath:  cfg.KYCScriptPath,
		Timeout:     cfg.KYCScriptTimeout,
	}
	var (
		enqueuer   launcher.Enqueuer
		jobHandler *jobs.Handler
	)
	if cfg.JobsEnabled {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := jobs.NewClient(redisOpts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		enqueuer = client
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}
	launchHandler := launcher.NewHandler(logger, runner, enqueuer, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		AuthHandler:    authHandler,
		ChatProxy:      forwarder,
		LaunchHandler:  launchHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
