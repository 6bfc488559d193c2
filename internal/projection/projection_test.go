package projection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

type mockUserReservationRepo struct {
	mock.Mock
}

func (m *mockUserReservationRepo) Sync(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func newTestSyncer(repo domain.UserReservationRepository) *Syncer {
	return NewSyncer(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).WithoutDelay()
}

func TestSync(t *testing.T) {
	reservation := &domain.Reservation{ID: "res-1", UserID: "u1"}

	t.Run("retries transient failures", func(t *testing.T) {
		repo := new(mockUserReservationRepo)
		repo.On("Sync", mock.Anything, reservation).Return(errors.New("unavailable")).Twice()
		repo.On("Sync", mock.Anything, reservation).Return(nil).Once()

		err := newTestSyncer(repo).Sync(context.Background(), reservation)

		assert.NoError(t, err)
		repo.AssertNumberOfCalls(t, "Sync", 3)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		repo := new(mockUserReservationRepo)
		repo.On("Sync", mock.Anything, reservation).Return(errors.New("unavailable"))

		err := newTestSyncer(repo).Sync(context.Background(), reservation)

		assert.Error(t, err)
		repo.AssertNumberOfCalls(t, "Sync", defaultMaxTries)
	})

	t.Run("skips reservations without an owner", func(t *testing.T) {
		repo := new(mockUserReservationRepo)

		err := newTestSyncer(repo).Sync(context.Background(), &domain.Reservation{ID: "res-2"})

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
	})
}
