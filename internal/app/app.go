// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lotfimay/FollowUP-GRP4/api/openapi"
	"github.com/lotfimay/FollowUP-GRP4/internal/config"
	"github.com/lotfimay/FollowUP-GRP4/internal/domain"
	"github.com/lotfimay/FollowUP-GRP4/internal/incidents"
	incidentspostgres "github.com/lotfimay/FollowUP-GRP4/internal/incidents/postgres"
	incidentssqlite "github.com/lotfimay/FollowUP-GRP4/internal/incidents/sqlite"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/ctxlog"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/httputil"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/postgres"
	"github.com/lotfimay/FollowUP-GRP4/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"
)

// store is the storage backend selected by configuration.
type store interface {
	incidents.Repository
	recordMetrics()
	close()
}

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	store         store
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		store:         st,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func openStore(cfg config.DatabaseConfig) (store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := incidentssqlite.Open(cfg.SQLitePath, gormlogger.Silent)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		repo := incidentssqlite.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			_ = repo.Close()
			return nil, err
		}
		slog.Info("using sqlite store", "path", cfg.SQLitePath)
		return &sqliteStore{Repository: repo}, nil

	default:
		connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer connectCancel()

		pool, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.URL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnectTimeout:  cfg.ConnectTimeout / time.Duration(max(cfg.ConnectAttempts, 1)),
			ConnectAttempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &postgresStore{Repository: incidentspostgres.NewRepository(pool), pool: pool}, nil
	}
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops both servers in parallel, then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")
	a.metricsCancel()

	var g errgroup.Group
	g.Go(func() error {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	})
	err := g.Wait()

	a.store.close()
	return err
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	a.store.recordMetrics()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.store.recordMetrics()
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(openapi.Spec)
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(openapi.Docs)
	})

	var opts []incidents.ServiceOption
	if a.config.Incidents.StrictTransitions {
		opts = append(opts, incidents.WithTransitionPolicy(domain.ForwardTransitions{}))
	}
	incidentsService := incidents.NewService(a.store, opts...)
	ledger := incidents.NewLedger(a.store)
	incidentsHandler := incidents.NewHandler(incidentsService, ledger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.RateLimitMiddleware(a.config.Server.RateLimit.RPS, a.config.Server.RateLimit.Burst))
		incidentsHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

// initLogger builds the process logger. Unknown levels fall back to info;
// config.Validate rejects them before this point.
func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
