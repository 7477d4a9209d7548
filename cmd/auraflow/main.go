package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/auraflow/auraflow"
	"github.com/auraflow/auraflow/internal/broker"
	"github.com/auraflow/auraflow/internal/catalog"
	"github.com/auraflow/auraflow/internal/config"
	"github.com/auraflow/auraflow/internal/schedule"
	"github.com/auraflow/auraflow/internal/server"
	"github.com/auraflow/auraflow/pkg/log"
)

type auraflow struct {
	cfg        *config.Config
	hub        *broker.Hub
	sessions   *broker.Store
	sweeper    *broker.Sweeper
	scheduler  *schedule.Scheduler
	catalog    *catalog.Catalog
	apiServer  *server.Server
	httpServer *http.Server
	cancelRun  context.CancelFunc
	quit       chan os.Signal
}

var (
	ErrOpenSessionStore = errors.New("failed to open session store")
	ErrSeedPresets      = errors.New("failed to seed preset modules")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &auraflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *auraflow) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel

	if err := s.initializeStores(ctx); err != nil {
		return err
	}
	s.startSweeper(ctx)
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *auraflow) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("AuraFlow broker starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.RedisAddr),
		slog.Int("redis_db", s.cfg.RedisDB),
		slog.String("session_blob_url", s.cfg.SessionBlobURL),
		slog.Duration("session_ttl", s.cfg.SessionTTL),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *auraflow) initializeStores(ctx context.Context) error {
	durable, err := broker.OpenBlobStore(
		ctx, s.cfg.SessionBlobURL, "sessions/",
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenSessionStore, err)
	}

	s.hub = broker.NewHub()
	s.sessions = broker.NewStore(
		durable, s.hub, time.Now, s.cfg.SessionTTL,
	)

	s.catalog = catalog.New(catalog.Options{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
		Prefix:   s.cfg.RedisPrefix,
	})
	if err := s.catalog.SeedPresets(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSeedPresets, err)
	}
	return nil
}

func (s *auraflow) startSweeper(ctx context.Context) {
	s.scheduler = schedule.NewSystem()
	go s.scheduler.Run(ctx)

	s.sweeper = broker.NewSweeper(
		s.sessions, s.scheduler, s.cfg.SweepInterval,
	)
	s.sweeper.Start(ctx)
}

func (s *auraflow) startServer() {
	s.apiServer = server.NewServer(s.sessions, s.hub, s.catalog)
	router := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *auraflow) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.sweeper.Stop()
	s.cancelRun()
	s.hub.Close()

	if err := s.sessions.Close(); err != nil {
		slog.Error("Session store shutdown failed", log.Error(err))
	}
	if err := s.catalog.Close(); err != nil {
		slog.Error("Catalog shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
