package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"profreg/internal/email"
	"profreg/internal/platform/config"
	"profreg/internal/platform/database"
	"profreg/internal/platform/httpserver"
	"profreg/internal/platform/logger"
	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/handler"
	"profreg/internal/registrant/service"
	"profreg/internal/registrant/store"
	"profreg/internal/session"
	httptransport "profreg/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// registrantStore is what main needs from either gateway implementation.
type registrantStore interface {
	service.Store
	httptransport.Pinger
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registrants, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer)
	sessions := session.NewInMemoryStore(cfg.Session.TTL)
	svc := service.New(registrants, sessions, email.New(cfg.SMTP),
		service.WithSeed(cfg.ProfessionSeed),
		service.WithMetrics(m),
		service.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		Registrants: handler.New(svc, log),
		Cookies:     session.NewCookieCodec(cfg.Session.Secret, cfg.Session.TTL),
		Cookie: session.CookieConfig{
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.SecureCookie,
		},
		RequestTimeout: cfg.RequestTimeout,
		Health:         registrants,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting profreg", "addr", cfg.Addr, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// the parent context is already cancelled here
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (registrantStore, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory registrant store; data is lost on restart")
		return store.NewInMemory(), func() {}, nil
	}

	db, dialect, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn("closing database", "error", err)
		}
	}
	if cfg.AutoMigrate {
		if err := migrate(ctx, db); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return store.NewSQL(db, dialect), closeDB, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return database.EnsureSchema(ctx, db)
}
