package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"log/slog"

	"github.com/ptoscano/intakebot/core/bootstrap"
	"github.com/ptoscano/intakebot/core/buildinfo"
	coreconfig "github.com/ptoscano/intakebot/core/config"
	"github.com/ptoscano/intakebot/core/health"
	"github.com/ptoscano/intakebot/core/logger"
	coretelegram "github.com/ptoscano/intakebot/core/telegram"
	"github.com/ptoscano/intakebot/core/telegram/middleware"
	"github.com/ptoscano/intakebot/core/telegram/sender"
	"github.com/ptoscano/intakebot/internal/storage"
	"github.com/ptoscano/intakebot/internal/survey"
)

const defaultSessionTTL = 60 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "intakebot:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := coreconfig.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer func() {
		_ = boot.Close()
		_ = logger.Shutdown()
	}()

	logger.L.Info("starting",
		slog.String("component", "app"),
		slog.String("event", "boot"),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store survey.Store
	switch cfg.Survey.SessionBackend {
	case coreconfig.SessionBackendRedis:
		ttl := time.Duration(cfg.Survey.SessionTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = defaultSessionTTL
		}
		store = survey.NewRedisStore(boot.Redis, ttl)
	default:
		store = survey.NewMemoryStore()
	}

	var archive survey.Archiver
	if boot.DB != nil {
		archive = storage.NewPostgresArchive(boot.DB)
	}

	dispatcher := sender.NewDispatcher(sender.Options{})
	gateway := survey.NewBotGateway(dispatcher)
	handler := survey.NewHandler(store, gateway, survey.HandlerOptions{
		DisableCleanup: cfg.Survey.DisableCleanup,
		Archive:        archive,
	})

	middlewares := []coretelegram.Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logging", Use: middleware.LoggerMiddleware},
	}
	if cfg.RateLimit.IntervalMS > 0 {
		middlewares = append(middlewares, coretelegram.Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			}),
		})
	}

	var healthSrv *health.Server
	if cfg.Health.Listen != "" {
		healthSrv = health.New(cfg.Health.Listen)
		healthSrv.Start()
	}

	err = coretelegram.Run(ctx, coretelegram.RunOptions{
		Config:      cfg,
		Dispatcher:  dispatcher,
		Middlewares: middlewares,
		Routes:      survey.Routes(handler),
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			gateway.Bind(rt.Bot)
			return nil
		},
	})

	if healthSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = healthSrv.Stop(shutdownCtx)
		cancel()
	}

	return err
}

func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
