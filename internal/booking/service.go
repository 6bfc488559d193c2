// Package booking prices and creates table reservations and drives their lifecycle after payment.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/pricing"
	"github.com/trebla915/web1111-sub002/internal/projection"
)

type Service struct {
	reservations domain.ReservationRepository
	tables       domain.TableRepository
	catalog      domain.CatalogRepository
	projection   *projection.Syncer
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(
	reservations domain.ReservationRepository,
	tables domain.TableRepository,
	catalog domain.CatalogRepository,
	projection *projection.Syncer,
	logger *slog.Logger) *Service {

	return &Service{
		reservations: reservations,
		tables:       tables,
		catalog:      catalog,
		projection:   projection,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type QuoteInput struct {
	EventID   string
	TableID   string
	BottleIDs []string
	MixerIDs  []string
}

type Quote struct {
	Table     *domain.Table
	Bottles   []domain.LineItem
	Mixers    []domain.LineItem
	Breakdown pricing.CostBreakdown
	// LegacyServiceFee is shown next to the total for older clients and is never charged.
	LegacyServiceFee decimal.Decimal
}

// Quote prices a table and its bottles and mixers from stored prices only.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if in.EventID == "" {
		return nil, domain.NewValidationError("eventId is required")
	}
	if in.TableID == "" {
		return nil, domain.NewValidationError("tableId is required")
	}

	table, err := s.tables.GetByID(ctx, in.EventID, in.TableID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("table", in.TableID)
		}
		return nil, err
	}

	bottles, err := s.lineItems(ctx, in.BottleIDs, domain.CatalogItemBottle)
	if err != nil {
		return nil, err
	}

	mixers, err := s.lineItems(ctx, in.MixerIDs, domain.CatalogItemMixer)
	if err != nil {
		return nil, err
	}

	breakdown := pricing.CalculateBreakdown(table.Price, bottles, mixers)

	return &Quote{
		Table:            table,
		Bottles:          bottles,
		Mixers:           mixers,
		Breakdown:        breakdown,
		LegacyServiceFee: pricing.LegacyServiceFeeEstimate(breakdown.Subtotal),
	}, nil
}

func (s *Service) lineItems(ctx context.Context, ids []string, kind domain.CatalogItemKind) ([]domain.LineItem, error) {
	if len(ids) == 0 {
		return []domain.LineItem{}, nil
	}

	items, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lineItems := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.Kind != kind {
			return nil, domain.NewValidationError("%s is not a %s", item.ID, kind)
		}
		lineItems = append(lineItems, item.LineItem())
	}

	return lineItems, nil
}

type CreateInput struct {
	EventID    string
	TableID    string
	UserID     string
	GuestCount int
	BottleIDs  []string
	MixerIDs   []string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Reservation, error) {
	if in.UserID == "" {
		return nil, domain.NewValidationError("userId is required")
	}
	if in.GuestCount < 1 {
		return nil, domain.NewValidationError("guestCount must be at least 1")
	}

	quote, err := s.Quote(ctx, QuoteInput{
		EventID:   in.EventID,
		TableID:   in.TableID,
		BottleIDs: in.BottleIDs,
		MixerIDs:  in.MixerIDs,
	})
	if err != nil {
		return nil, err
	}

	table := quote.Table
	if in.GuestCount > table.Capacity {
		return nil, domain.NewValidationError("table %d seats at most %d guests", table.Number, table.Capacity)
	}
	if len(quote.Bottles) < table.MinimumBottles {
		return nil, domain.NewValidationError("table %d requires at least %d bottles", table.Number, table.MinimumBottles)
	}
	if table.Reserved {
		return nil, domain.ErrTableUnavailable
	}

	reservation := &domain.Reservation{
		EventID:     in.EventID,
		TableID:     table.ID,
		TableNumber: table.Number,
		GuestCount:  in.GuestCount,
		Bottles:     quote.Bottles,
		Mixers:      quote.Mixers,
		TotalAmount: quote.Breakdown.Total,
		Status:      domain.ReservationStatusPending,
		UserID:      in.UserID,
	}

	err = s.reservations.Create(ctx, reservation)
	if err != nil {
		if !errors.Is(err, domain.ErrTableUnavailable) {
			s.logger.Error("failed to create reservation", "table_id", in.TableID, "user_id", in.UserID, "error", err)
		}
		return nil, err
	}

	s.projection.Sync(ctx, reservation)

	s.logger.Info("reservation created",
		"reservation_id", reservation.ID,
		"table_id", reservation.TableID,
		"total", reservation.TotalAmount.StringFixed(2),
	)

	return reservation, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", id)
		}
		return nil, err
	}

	return reservation, nil
}

func (s *Service) CheckIn(ctx context.Context, id string) (*domain.Reservation, error) {
	updated, err := s.reservations.Update(ctx, id, func(res *domain.Reservation) error {
		if res.Status != domain.ReservationStatusConfirmed {
			return domain.NewValidationError("only confirmed reservations can be checked in, reservation %s is %s", res.ID, res.Status)
		}

		res.Status = domain.ReservationStatusCheckedIn
		res.UpdatedAt = s.now()

		return nil
	})
	if err != nil {
		return nil, s.lifecycleError("check in", id, err)
	}

	s.projection.Sync(ctx, updated)

	return updated, nil
}

// Cancel frees the table unless it has already been handed to another reservation.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Reservation, error) {
	var released bool
	updated, err := s.reservations.UpdateWithTable(ctx, id, func(res *domain.Reservation, table *domain.Table) error {
		if res.Status != domain.ReservationStatusPending && res.Status != domain.ReservationStatusConfirmed {
			return domain.NewValidationError("reservation %s is %s and cannot be cancelled", res.ID, res.Status)
		}

		res.Status = domain.ReservationStatusCancelled
		res.UpdatedAt = s.now()
		released = table.Release(res.ID)

		return nil
	})
	if err != nil {
		return nil, s.lifecycleError("cancel", id, err)
	}

	s.projection.Sync(ctx, updated)

	s.logger.Info("reservation cancelled", "reservation_id", id, "table_released", released)

	return updated, nil
}

func (s *Service) lifecycleError(op, id string, err error) error {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return domain.NewNotFoundError("reservation", id)
	case errors.As(err, new(*domain.ValidationError)):
		return err
	default:
		s.logger.Error(fmt.Sprintf("failed to %s reservation", op), "reservation_id", id, "error", err)
		return err
	}
}
