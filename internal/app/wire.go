package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"github.com/trebla915/web1111-sub002/internal/billing"
	"github.com/trebla915/web1111-sub002/internal/booking"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/idempotency"
	"github.com/trebla915/web1111-sub002/internal/mailer"
	"github.com/trebla915/web1111-sub002/internal/notification"
	"github.com/trebla915/web1111-sub002/internal/payment"
	"github.com/trebla915/web1111-sub002/internal/projection"
	"github.com/trebla915/web1111-sub002/internal/repository"
	"go.opentelemetry.io/otel"
)

type stores struct {
	reservations     domain.ReservationRepository
	userReservations domain.UserReservationRepository
	payments         domain.PaymentRepository
	tables           domain.TableRepository
	catalog          domain.CatalogRepository
	users            domain.UserRepository
	provider         domain.PaymentProvider
	notifier         domain.Notifier
}

func (app *Application) wire(ctx context.Context) error {
	var (
		s   *stores
		err error
	)

	if app.webhookMetrics == nil {
		app.webhookMetrics, err = newWebhookMetrics(otel.Meter(serviceName))
		if err != nil {
			return err
		}
	}

	switch app.config.Store {
	case StoreMemory:
		s = app.memoryStores()
	default:
		s, err = app.firestoreStores(ctx)
		if err != nil {
			return err
		}
	}

	if app.config.Redis.URL != "" {
		redisClient, err := newRedisClient(app.config)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, redisClient.Close)

		app.redis = redisClient
		app.events = idempotency.NewRedisStore(redisClient, app.config.Redis.EventTTL)
	} else {
		app.logger.Warn("redis url not set, webhook events are deduplicated in process memory")
		app.events = idempotency.NewMemoryStore()
	}

	syncer := projection.NewSyncer(s.userReservations, app.logger)

	app.booking = booking.NewService(s.reservations, s.tables, s.catalog, syncer, app.logger)

	reconciler := billing.NewReconciler(billing.Dependencies{
		Reservations: s.reservations,
		Payments:     s.payments,
		Tables:       s.tables,
		Users:        s.users,
		Provider:     s.provider,
		Notifier:     s.notifier,
		Mailer:       app.newMailer(),
		Projection:   syncer,
		Logger:       app.logger,
		Currency:     app.config.Stripe.Currency,
	})
	app.billing = reconciler
	app.closers = append(app.closers, func() error {
		reconciler.Wait()
		return nil
	})

	return nil
}

func (app *Application) newMailer() mailer.Mailer {
	if app.mailer != nil {
		return app.mailer
	}

	if app.config.SMTP.Username == "" {
		app.logger.Warn("smtp credentials not set, emails are written to the log")
		return mailer.NewLogMailer(app.logger)
	}

	return mailer.NewSMTPMailer(
		app.config.SMTP.Host,
		app.config.SMTP.Port,
		app.config.SMTP.Username,
		app.config.SMTP.Password,
		app.config.SMTP.Sender,
	)
}

func (app *Application) memoryStores() *stores {
	store := repository.NewMemoryStore()
	seedDevData(store)
	app.memoryStore = store

	return &stores{
		reservations:     repository.NewMemoryReservationRepository(store),
		userReservations: repository.NewMemoryUserReservationRepository(store),
		payments:         repository.NewMemoryPaymentRepository(store),
		tables:           repository.NewMemoryTableRepository(store),
		catalog:          repository.NewMemoryCatalogRepository(store),
		users:            repository.NewMemoryUserRepository(store),
		provider:         payment.NewLocalPaymentProvider(),
		notifier:         notification.NewLogNotifier(app.logger),
	}
}

func (app *Application) firestoreStores(ctx context.Context) (*stores, error) {
	stripe.Key = app.config.Stripe.SecretKey

	fbApp, err := repository.NewFirebaseApp(ctx, app.config.Firebase.ProjectID, app.config.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}

	client, err := fbApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	app.closers = append(app.closers, client.Close)

	messagingClient, err := fbApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	users := repository.NewFirestoreUserRepository(client)

	return &stores{
		reservations:     repository.NewFirestoreReservationRepository(client),
		userReservations: repository.NewFirestoreUserReservationRepository(client),
		payments:         repository.NewFirestorePaymentRepository(client),
		tables:           repository.NewFirestoreTableRepository(client),
		catalog:          repository.NewFirestoreCatalogRepository(client),
		users:            users,
		provider:         payment.NewStripePaymentProvider(app.config.Stripe.Currency),
		notifier:         notification.NewFCMNotifier(messagingClient, users, app.logger),
	}, nil
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}
