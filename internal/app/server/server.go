package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/cycles"
	"evalhub/internal/domain/directory"
	"evalhub/internal/domain/evaluation"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/reports"
	"evalhub/internal/platform/config"
	"evalhub/internal/platform/db"
	"evalhub/internal/platform/email"
	"evalhub/internal/platform/metrics"
	auditloghandler "evalhub/internal/transport/http/handlers/auditlog"
	authhandler "evalhub/internal/transport/http/handlers/auth"
	cycleshandler "evalhub/internal/transport/http/handlers/cycles"
	directoryhandler "evalhub/internal/transport/http/handlers/directory"
	evaluationhandler "evalhub/internal/transport/http/handlers/evaluation"
	notificationshandler "evalhub/internal/transport/http/handlers/notifications"
	reportshandler "evalhub/internal/transport/http/handlers/reports"
	"evalhub/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

// New connects, migrates, seeds and wires the full router. Callers own the
// returned App and must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry init failed: %w", err)
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	perms := auth.Permissions{}

	directoryStore := directory.NewStore(pool)
	directorySvc := directory.NewService(directoryStore)
	cyclesSvc := cycles.NewService(cycles.NewStore(pool))
	evalStore := evaluation.NewStore(pool)
	evalSvc := evaluation.NewService(evalStore, catalogueSource{dir: directorySvc}, cyclesSvc)
	auditSvc := audit.New(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	reportsSvc := reports.NewService(evalSvc)
	authStore := auth.NewStore(pool)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	if collector != nil {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if collector != nil {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret, auditSvc)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/auth/me", authHandler.HandleMe)

		directoryhandler.NewHandler(directorySvc, perms, auditSvc).RegisterRoutes(r)
		cycleshandler.NewHandler(cyclesSvc, perms, notifySvc, auditSvc).RegisterRoutes(r)
		evaluationhandler.NewHandler(evalSvc, perms, notifySvc, auditSvc, collector).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, directorySvc, perms).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc, perms).RegisterRoutes(r)
		auditloghandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Config.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
}

// Run boots the app from the given config and serves until the listener
// fails.
func Run(cfg config.Config) {
	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("evalhub server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// catalogueSource adapts the directory service to the evaluation package's
// catalogue and assessor lookups.
type catalogueSource struct {
	dir *directory.Service
}

func (c catalogueSource) OrgAssessors(ctx context.Context, orgID string) ([]string, error) {
	return c.dir.OrgAssessors(ctx, orgID)
}

func (c catalogueSource) CompetencyCatalogue(ctx context.Context, orgID string) ([]evaluation.Dimension, error) {
	competencies, err := c.dir.ListCompetencies(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]evaluation.Dimension, 0, len(competencies))
	for _, comp := range competencies {
		out = append(out, evaluation.Dimension{ID: comp.ID, Name: comp.Name})
	}
	return out, nil
}

func (c catalogueSource) QuestionCatalogue(ctx context.Context, orgID string) ([]evaluation.Dimension, error) {
	questions, err := c.dir.ListQuestions(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]evaluation.Dimension, 0, len(questions))
	for _, q := range questions {
		out = append(out, evaluation.Dimension{ID: q.ID, Name: q.Text})
	}
	return out, nil
}
