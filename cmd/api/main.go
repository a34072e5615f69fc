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
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/condo/internal/aggregate"
	"github.com/MrJamesThe3rd/condo/internal/config"
	"github.com/MrJamesThe3rd/condo/internal/database"
	"github.com/MrJamesThe3rd/condo/internal/document"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	condoHttp "github.com/MrJamesThe3rd/condo/internal/http"
	importHandler "github.com/MrJamesThe3rd/condo/internal/http/importcsv"
	notificationHandler "github.com/MrJamesThe3rd/condo/internal/http/notification"
	paymentHandler "github.com/MrJamesThe3rd/condo/internal/http/payment"
	propertyHandler "github.com/MrJamesThe3rd/condo/internal/http/property"
	requestHandler "github.com/MrJamesThe3rd/condo/internal/http/request"
	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/condo/internal/ledger/store"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
	"github.com/MrJamesThe3rd/condo/internal/memstore"
	"github.com/MrJamesThe3rd/condo/internal/notification"
	notificationStore "github.com/MrJamesThe3rd/condo/internal/notification/store"
	"github.com/MrJamesThe3rd/condo/internal/overdue"
	"github.com/MrJamesThe3rd/condo/internal/property"
	propertyStore "github.com/MrJamesThe3rd/condo/internal/property/store"
	"github.com/MrJamesThe3rd/condo/internal/telemetry"
)

// repositories groups the storage backends the services are built on.
type repositories struct {
	ledger       ledger.Repository
	property     property.Repository
	notification notification.Repository
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.App.LogLevel)})))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: strings.ToLower(cfg.App.Name),
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	repos, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := fanout.NewHub(fanout.HubConfig{
		SendBuffer:     cfg.Realtime.SendBuffer,
		PingInterval:   cfg.Realtime.PingInterval,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
	}, nil)
	defer hub.Close()

	emitter := fanout.NewEmitter(hub, nil)
	sweeper := overdue.NewSweeper(repos.ledger)

	var (
		ledgerService       = ledger.NewService(repos.ledger, ledger.WithSweeper(sweeper))
		propertyService     = property.NewService(repos.property)
		notificationService = notification.NewService(repos.notification, hub, nil)
		recalculator        = aggregate.NewRecalculator(ledgerService, propertyService, aggregate.WithEmitter(emitter))
		queue               = aggregate.NewQueue(recalculator, cfg.Recalc.Delay, cfg.Recalc.Timeout, nil)
		documents           = document.NewClient(cfg.Documents.RendererURL, cfg.Documents.Token, cfg.Documents.Root, cfg.Documents.Timeout)
	)
	defer queue.Close()

	scheduler, err := overdue.NewScheduler(sweeper, cfg.Sweeper.Schedule, cfg.Sweeper.Timeout, nil)
	if err != nil {
		return err
	}

	orchestrator := lifecycle.New(lifecycle.Deps{
		Ledger:       ledgerService,
		Directory:    propertyService,
		Documents:    documents,
		Notifier:     notificationService,
		Recalculator: recalculator,
		Batcher:      queue,
		Emitter:      emitter,
	})

	sweeper.OnSwept(orchestrator.PaymentsSwept)

	router := condoHttp.New(condoHttp.Handlers{
		Requests:      requestHandler.NewHandler(orchestrator, ledgerService),
		Payments:      paymentHandler.NewHandler(orchestrator, ledgerService),
		Property:      propertyHandler.NewHandler(propertyService, recalculator),
		Notifications: notificationHandler.NewHandler(notificationService),
		Import:        importHandler.NewHandler(importer.NewParser(), orchestrator),
		Realtime:      hub,
	}, cfg.Realtime.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", srv.Addr, "store", cfg.Store)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		slog.Info("shutting down server")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (repositories, func(), error) {
	if cfg.Store == config.StoreMemory {
		s := memstore.New()
		slog.Warn("using in-memory store; data is lost on restart")

		return repositories{ledger: s, property: s, notification: s}, func() {}, nil
	}

	db, err := database.New(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return repositories{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return repositories{}, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repositories{
		ledger:       ledgerStore.New(db),
		property:     propertyStore.New(db),
		notification: notificationStore.New(db),
	}, closer(db), nil
}

func closer(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}
}

func logLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return l
}
