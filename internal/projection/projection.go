// Package projection keeps the per-user reservation copies in step with the reservations collection.
//
// The reservation document is the single source of truth. The copy under users/{id}/reservations is
// rebuilt from it in full after every committed change, so a retried or repeated sync converges.
package projection

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

const defaultMaxTries = 4

type Syncer struct {
	repo       domain.UserReservationRepository
	logger     *slog.Logger
	maxTries   uint
	newBackOff func() backoff.BackOff
}

func NewSyncer(repo domain.UserReservationRepository, logger *slog.Logger) *Syncer {
	return &Syncer{
		repo:     repo,
		logger:   logger,
		maxTries: defaultMaxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// WithoutDelay makes retries immediate. Meant for tests.
func (s *Syncer) WithoutDelay() *Syncer {
	s.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}

// Sync overwrites the user's copy of reservation. A failure after the last attempt is logged and
// returned; the primary document is already committed at this point.
func (s *Syncer) Sync(ctx context.Context, reservation *domain.Reservation) error {
	if reservation.UserID == "" {
		return nil
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.repo.Sync(ctx, reservation)
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		s.logger.Error("user reservation copy is out of date",
			"reservation_id", reservation.ID,
			"user_id", reservation.UserID,
			"error", err,
		)
	}

	return err
}
