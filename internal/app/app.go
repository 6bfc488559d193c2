package app

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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/trebla915/web1111-sub002/internal/billing"
	"github.com/trebla915/web1111-sub002/internal/booking"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/mailer"
	"github.com/trebla915/web1111-sub002/internal/repository"
	appvalidator "github.com/trebla915/web1111-sub002/internal/validator"
	"github.com/trebla915/web1111-sub002/internal/vcs"
)

var (
	version = vcs.Version()
)

type BookingService interface {
	Quote(ctx context.Context, in booking.QuoteInput) (*booking.Quote, error)
	Create(ctx context.Context, in booking.CreateInput) (*domain.Reservation, error)
	Get(ctx context.Context, id string) (*domain.Reservation, error)
	CheckIn(ctx context.Context, id string) (*domain.Reservation, error)
	Cancel(ctx context.Context, id string) (*domain.Reservation, error)
}

type BillingService interface {
	CreatePaymentIntent(ctx context.Context, in billing.CreatePaymentIntentInput) (*billing.PaymentIntentResult, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*billing.PaymentStatusResult, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*domain.Reservation, error)
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error
	ChangeTable(ctx context.Context, reservationID, newTableID string) (*billing.TableChangeResult, error)
	GetPendingTableChangePayment(ctx context.Context, reservationID string) (*billing.PendingTableChangePayment, error)
	CompleteTableChangePayment(ctx context.Context, reservationID, paymentIntentID string) (*domain.Reservation, error)
}

// EventStore deduplicates processor webhook deliveries.
type EventStore interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Application struct {
	config    Config
	logger    *slog.Logger
	validator *validator.Validate
	redis     redis.UniversalClient

	booking BookingService
	billing BillingService
	events  EventStore

	webhookMetrics *webhookMetrics

	// mailer overrides the mailer chosen from config when set before wiring.
	mailer mailer.Mailer

	// memoryStore is set when running with the in-memory store.
	memoryStore *repository.MemoryStore
	closers     []func() error
}

func Run() error {
	cfg, displayVersion, err := LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		return nil
	}

	app := &Application{
		config:    cfg,
		logger:    slog.New(slog.NewTextHandler(os.Stdout, nil)),
		validator: appvalidator.NewValidator(),
	}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	err = app.wire(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()

	return app.serve()
}

type Option func(*Application)

// WithMailer replaces the SMTP mailer, typically with mailer.MockMailer in tests.
func WithMailer(m mailer.Mailer) Option {
	return func(app *Application) {
		app.mailer = m
	}
}

// New builds a fully wired application without starting the HTTP server.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	app := &Application{
		config:    cfg,
		logger:    logger,
		validator: appvalidator.NewValidator(),
	}

	for _, opt := range opts {
		opt(app)
	}

	err := app.wire(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// MemoryStore returns the backing store in memory mode, nil otherwise.
func (app *Application) MemoryStore() *repository.MemoryStore {
	return app.memoryStore
}

// Close waits for background work and releases store and cache connections.
func (app *Application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("failed to release resource", "error", err)
		}
	}

	app.closers = nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "store", app.config.Store)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
