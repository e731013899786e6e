package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/config"
	"github.com/templui/taskboard/internal/db"
	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/realtime"
	"github.com/templui/taskboard/internal/repository"
	"github.com/templui/taskboard/internal/service"
	"github.com/templui/taskboard/internal/storage"
	"github.com/templui/taskboard/internal/taskboard"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	EmailService *service.EmailService
	Broker       *realtime.Broker
	Platform     *backend.Platform
	Registry     *taskboard.Registry
	// Metrics is nil when METRICS_ENABLED=false.
	Metrics *prometheus.Registry
	// Files serves uploads kept in memory; nil when they live in S3.
	Files http.Handler
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Metrics
	var (
		recorder metrics.Recorder = metrics.Nop{}
		registry *prometheus.Registry
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewCollector(registry)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	taskRepository := repository.NewTaskRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var files http.Handler
	if mem, ok := fileStorage.(*storage.MemoryStorage); ok {
		files = mem
	}

	// Realtime
	broker, err := realtime.Connect(realtime.Options{
		URL:           cfg.NATSURL,
		SubjectPrefix: cfg.RealtimeSubjectPrefix,
		Recorder:      recorder,
	})
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to start realtime broker: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
		cfg.TokenEmailConfirmExpiry,
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenEmailConfirmExpiry,
	)

	platform := backend.NewPlatform(backend.PlatformOptions{
		Auth:          authService,
		Tasks:         taskRepository,
		Storage:       fileStorage,
		Feed:          broker,
		Recorder:      recorder,
		RefreshMargin: cfg.SessionRefreshMargin,
	})

	views := taskboard.NewRegistry(taskboard.RegistryOptions{
		Connect:      connector(platform),
		Bucket:       fileStorage.Bucket(),
		Recorder:     recorder,
		IdleTimeout:  cfg.ViewIdleTimeout,
		DetachGrace:  cfg.ViewDetachGrace,
		FreshTimeout: cfg.ViewFreshTimeout,
		MaxViews:     cfg.ViewMax,
	})

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		EmailService: emailService,
		Broker:       broker,
		Platform:     platform,
		Registry:     views,
		Metrics:      registry,
		Files:        files,
	}, nil
}

// connector gives every new view its own client, seeded from the browser's
// auth_token cookie when that still verifies.
func connector(platform *backend.Platform) taskboard.Connector {
	return func(token string) (backend.Client, backend.SessionStorage) {
		var seed *backend.Session
		if token != "" {
			session, err := platform.SessionFromToken(token)
			if err != nil {
				slog.Debug("ignoring stale session cookie", "error", err)
			} else {
				seed = session
			}
		}
		store := backend.NewMemoryStorage(seed)
		return platform.NewClient(store), store
	}
}

// Run sweeps expired views until ctx ends.
func (a *App) Run(ctx context.Context) {
	a.Registry.Run(ctx)
}

func (a *App) Close() error {
	a.Registry.Close()
	a.Broker.Close()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
