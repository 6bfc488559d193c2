package integration_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/trebla915/web1111-sub002/internal/app"
	"github.com/trebla915/web1111-sub002/internal/mailer"
	"github.com/trebla915/web1111-sub002/internal/repository"
)

type TestApp struct {
	App    *app.Application
	Store  *repository.MemoryStore
	Redis  *redis.Client
	Mailer *mailer.MockMailer
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mailer := mailer.NewMockMailer()

	application, err := app.New(context.Background(), cfg, logger, app.WithMailer(mailer))
	if err != nil {
		return nil, err
	}

	return &TestApp{
		App:    application,
		Store:  application.MemoryStore(),
		Redis:  redis.NewClient(&redis.Options{Addr: cfg.Redis.URL}),
		Mailer: mailer,
	}, nil
}

func (a *TestApp) Close() {
	a.Redis.Close()
	a.App.Close()
}
