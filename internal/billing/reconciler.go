// Package billing reconciles processor payment intents with reservations.
//
// The processor is the only authority on whether money moved. Every operation that changes a
// reservation's payment state re-fetches the intent and checks its metadata against the
// reservation before writing.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/mailer"
	"github.com/trebla915/web1111-sub002/internal/projection"
)

type Dependencies struct {
	Reservations domain.ReservationRepository
	Payments     domain.PaymentRepository
	Tables       domain.TableRepository
	Users        domain.UserRepository
	Provider     domain.PaymentProvider
	Notifier     domain.Notifier
	Mailer       mailer.Mailer
	Projection   *projection.Syncer
	Logger       *slog.Logger
	Currency     string
}

type Reconciler struct {
	reservations domain.ReservationRepository
	payments     domain.PaymentRepository
	tables       domain.TableRepository
	users        domain.UserRepository
	provider     domain.PaymentProvider
	notifier     domain.Notifier
	mailer       mailer.Mailer
	projection   *projection.Syncer
	logger       *slog.Logger
	currency     string
	now          func() time.Time
	wg           sync.WaitGroup
}

func NewReconciler(deps Dependencies) *Reconciler {
	currency := deps.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	return &Reconciler{
		reservations: deps.Reservations,
		payments:     deps.Payments,
		tables:       deps.Tables,
		users:        deps.Users,
		provider:     deps.Provider,
		notifier:     deps.Notifier,
		mailer:       deps.Mailer,
		projection:   deps.Projection,
		logger:       deps.Logger,
		currency:     currency,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until queued notifications and receipts have been handed off.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

type CreatePaymentIntentInput struct {
	// Amount is in major currency units.
	Amount        decimal.Decimal
	ReservationID string
	EventID       string
	UserID        string
	Metadata      map[string]string
}

type PaymentIntentResult struct {
	ClientSecret string
	PaymentID    string
}

func (r *Reconciler) CreatePaymentIntent(ctx context.Context, in CreatePaymentIntentInput) (*PaymentIntentResult, error) {
	switch {
	case !in.Amount.IsPositive():
		return nil, domain.NewValidationError("amount must be greater than zero")
	case in.ReservationID == "":
		return nil, domain.NewValidationError("reservationId is required")
	case in.EventID == "":
		return nil, domain.NewValidationError("eventId is required")
	case in.UserID == "":
		return nil, domain.NewValidationError("userId is required")
	}

	logger := r.logger.With("reservation_id", in.ReservationID, "user_id", in.UserID)

	reservation, err := r.getReservation(ctx, in.ReservationID)
	if err != nil {
		return nil, err
	}

	if reservation.UserID != in.UserID || reservation.EventID != in.EventID {
		return nil, domain.NewValidationError("payment details do not match reservation %s", in.ReservationID)
	}

	amount := in.Amount.Round(2)
	if !reservation.TotalAmount.IsZero() && !amount.Equal(reservation.TotalAmount.Round(2)) {
		return nil, domain.NewValidationError(
			"amount %s does not match reservation total %s", amount.StringFixed(2), reservation.TotalAmount.StringFixed(2))
	}

	if reservation.PaymentStatus == domain.PaymentStatusSucceeded {
		return nil, domain.NewValidationError("reservation %s is already paid", in.ReservationID)
	}

	open, err := r.openBookingIntent(ctx, reservation, amount)
	if err != nil {
		logger.Error("failed to check open payment intent", "error", err)
		return nil, err
	}
	if open != nil {
		logger.Info("reusing open payment intent", "payment_intent_id", open.ID)
		return &PaymentIntentResult{ClientSecret: open.ClientSecret, PaymentID: open.ID}, nil
	}

	metadata := make(map[string]string, len(in.Metadata)+4)
	maps.Copy(metadata, in.Metadata)
	metadata[domain.MetadataReservationID] = in.ReservationID
	metadata[domain.MetadataEventID] = in.EventID
	metadata[domain.MetadataUserID] = in.UserID
	metadata[domain.MetadataType] = string(domain.PaymentTypeInitialBooking)

	intent, err := r.provider.CreateIntent(ctx, domain.PaymentIntentRequest{
		AmountMinor:    domain.ToMinorUnits(amount),
		Currency:       r.currency,
		Description:    fmt.Sprintf("Table %d reservation", reservation.TableNumber),
		Metadata:       metadata,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		logger.Error("failed to create payment intent", "error", err)
		return nil, err
	}

	logger = logger.With("payment_intent_id", intent.ID)

	now := r.now()
	record := &domain.PaymentRecord{
		ProcessorIntentID: intent.ID,
		Type:              domain.PaymentTypeInitialBooking,
		Status:            intent.Status,
		Amount:            amount,
		Currency:          r.currency,
		ReservationID:     in.ReservationID,
		EventID:           in.EventID,
		UserID:            in.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = r.payments.Create(ctx, record)
	if err != nil {
		logger.Error("failed to store payment record", "error", err)
		return nil, err
	}

	updated, err := r.reservations.Update(ctx, in.ReservationID, func(res *domain.Reservation) error {
		if res.PaymentStatus == domain.PaymentStatusSucceeded {
			return domain.NewValidationError("reservation %s is already paid", res.ID)
		}
		if !samePaymentID(res.PaymentID, reservation.PaymentID) {
			return domain.ErrEditConflict
		}

		res.PaymentID = &intent.ID
		res.PaymentStatus = provisionalStatus(intent.Status)
		res.UpdatedAt = now

		return nil
	})
	if err != nil {
		logger.Error("failed to attach payment to reservation", "error", err)
		return nil, err
	}

	r.projection.Sync(ctx, updated)

	logger.Info("payment intent created", "amount", amount.StringFixed(2))

	return &PaymentIntentResult{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.ID,
	}, nil
}

type PaymentStatusResult struct {
	PaymentID          string
	Status             domain.PaymentStatus
	Amount             decimal.Decimal
	ReservationID      string
	ReservationCreated bool
}

func (r *Reconciler) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusResult, error) {
	if paymentID == "" {
		return nil, domain.NewValidationError("paymentId is required")
	}

	record, err := r.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	return &PaymentStatusResult{
		PaymentID:          record.ProcessorIntentID,
		Status:             record.Status,
		Amount:             record.Amount,
		ReservationID:      record.ReservationID,
		ReservationCreated: record.ReservationCreated,
	}, nil
}

// ConfirmPayment marks the reservation paid once the processor reports the intent succeeded.
// Confirming an already reconciled intent returns the reservation unchanged.
func (r *Reconciler) ConfirmPayment(ctx context.Context, paymentIntentID string) (*domain.Reservation, error) {
	if paymentIntentID == "" {
		return nil, domain.NewValidationError("paymentIntentId is required")
	}

	logger := r.logger.With("payment_intent_id", paymentIntentID)

	record, err := r.getPayment(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	if record.Type != domain.PaymentTypeInitialBooking {
		return nil, domain.NewValidationError("payment %s is not a booking payment", paymentIntentID)
	}

	intent, err := r.provider.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		logger.Error("failed to retrieve payment intent", "error", err)
		return nil, err
	}

	if !intent.MatchesReservation(record.ReservationID, domain.PaymentTypeInitialBooking) {
		return nil, domain.NewValidationError("payment %s does not belong to reservation %s", paymentIntentID, record.ReservationID)
	}

	if !intent.Succeeded() {
		if intent.Failed() {
			_, err := r.payments.Update(ctx, intent.ID, func(p *domain.PaymentRecord) error {
				p.Status = domain.PaymentStatusFailed
				p.UpdatedAt = r.now()
				return nil
			})
			if err != nil {
				logger.Error("failed to record cancelled payment", "error", err)
			}
		}

		return nil, &domain.PaymentIncompleteError{PaymentIntentID: intent.ID, Status: string(intent.Status)}
	}

	amount := domain.FromMinorUnits(intent.AmountMinor)
	now := r.now()

	var alreadyConfirmed bool
	var appliedIntentID string
	updated, err := r.reservations.Update(ctx, record.ReservationID, func(res *domain.Reservation) error {
		current := res.PaymentID != nil && *res.PaymentID == intent.ID
		alreadyConfirmed = current && res.PaymentStatus == domain.PaymentStatusSucceeded
		if res.PaymentID != nil {
			appliedIntentID = *res.PaymentID
		}

		switch {
		case alreadyConfirmed:
			return nil
		case res.PaymentStatus == domain.PaymentStatusSucceeded:
			return domain.NewValidationError("reservation %s is already paid by another payment", res.ID)
		case !current:
			return domain.NewValidationError("payment %s is not the current payment of reservation %s", intent.ID, res.ID)
		case res.Status == domain.ReservationStatusCancelled:
			return domain.NewValidationError("reservation %s was cancelled", res.ID)
		case intent.AmountMinor < domain.ToMinorUnits(res.TotalAmount):
			return domain.NewValidationError("payment %s covers %s but reservation %s owes %s",
				intent.ID, amount.StringFixed(2), res.ID, res.TotalAmount.StringFixed(2))
		}

		res.PaymentID = &intent.ID
		res.PaymentStatus = domain.PaymentStatusSucceeded
		res.TotalAmount = amount
		if res.Status == domain.ReservationStatusPending {
			res.Status = domain.ReservationStatusConfirmed
		}
		res.UpdatedAt = now

		return nil
	})
	if err != nil {
		if errors.As(err, new(*domain.ValidationError)) {
			logger.Error("succeeded payment not applied, refund required",
				"reservation_id", record.ReservationID, "applied_payment_intent_id", appliedIntentID,
				"amount", amount.StringFixed(2), "error", err)
			return nil, err
		}
		logger.Error("failed to confirm reservation", "reservation_id", record.ReservationID, "error", err)
		return nil, err
	}

	_, err = r.payments.Update(ctx, intent.ID, func(p *domain.PaymentRecord) error {
		p.Status = domain.PaymentStatusSucceeded
		p.Amount = amount
		p.ReservationCreated = true
		p.ErrorMsg = nil
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		logger.Error("failed to update payment record", "error", err)
		return nil, err
	}

	if alreadyConfirmed {
		return updated, nil
	}

	r.projection.Sync(ctx, updated)

	logger.Info("payment confirmed", "reservation_id", updated.ID, "amount", amount.StringFixed(2))

	r.announce(ctx, updated, domain.Notification{
		Title:   "Reservation confirmed",
		Message: fmt.Sprintf("Your payment of $%s for table %d was received.", amount.StringFixed(2), updated.TableNumber),
		UserIDs: []string{updated.UserID},
		Data:    map[string]string{"reservationId": updated.ID, "type": "reservation_confirmed"},
	}, mailer.ReservationConfirmedTemplate, map[string]any{
		"amount":        amount.StringFixed(2),
		"tableNumber":   updated.TableNumber,
		"reservationID": updated.ID,
	})

	return updated, nil
}

// MarkPaymentFailed records a failed payment attempt. The processor is asked again first so a stale
// event cannot overwrite a payment that has since succeeded. Only a terminal intent fails the
// reservation's payment; a declined attempt that can still be retried just keeps the reason.
func (r *Reconciler) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	if paymentIntentID == "" {
		return domain.NewValidationError("paymentIntentId is required")
	}

	logger := r.logger.With("payment_intent_id", paymentIntentID)

	intent, err := r.provider.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		logger.Error("failed to retrieve payment intent", "error", err)
		return err
	}

	if intent.Succeeded() {
		return domain.NewValidationError("payment %s has succeeded", paymentIntentID)
	}

	terminal := intent.Failed()

	now := r.now()
	record, err := r.payments.Update(ctx, paymentIntentID, func(p *domain.PaymentRecord) error {
		if p.Status == domain.PaymentStatusSucceeded {
			return domain.NewValidationError("payment %s has succeeded", paymentIntentID)
		}

		p.Status = intent.Status
		if terminal {
			p.Status = domain.PaymentStatusFailed
		}
		if reason != "" {
			p.ErrorMsg = &reason
		}
		p.UpdatedAt = now

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.NewNotFoundError("payment", paymentIntentID)
		}
		return err
	}

	if !terminal {
		logger.Warn("payment attempt declined", "reservation_id", record.ReservationID,
			"status", string(intent.Status), "reason", reason)
		return nil
	}

	if record.Type != domain.PaymentTypeInitialBooking {
		logger.Warn("table change payment failed", "reservation_id", record.ReservationID, "reason", reason)
		return nil
	}

	updated, err := r.reservations.Update(ctx, record.ReservationID, func(res *domain.Reservation) error {
		if res.PaymentID == nil || *res.PaymentID != paymentIntentID || res.PaymentStatus == domain.PaymentStatusSucceeded {
			return nil
		}

		res.PaymentStatus = domain.PaymentStatusFailed
		res.UpdatedAt = now

		return nil
	})
	if err != nil {
		logger.Error("failed to mark reservation payment failed", "reservation_id", record.ReservationID, "error", err)
		return err
	}

	r.projection.Sync(ctx, updated)

	logger.Info("payment failed", "reservation_id", record.ReservationID, "reason", reason)

	return nil
}

// openBookingIntent returns the reservation's booking intent when it can still be paid for amount.
func (r *Reconciler) openBookingIntent(ctx context.Context, res *domain.Reservation, amount decimal.Decimal) (*domain.PaymentIntent, error) {
	if res.PaymentID == nil || res.PaymentStatus == domain.PaymentStatusFailed {
		return nil, nil
	}

	intent, err := r.provider.RetrieveIntent(ctx, *res.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	switch {
	case intent.Succeeded():
		return nil, domain.NewValidationError("payment %s for reservation %s has succeeded and awaits confirmation", intent.ID, res.ID)
	case intent.Failed(),
		intent.AmountMinor != domain.ToMinorUnits(amount),
		!intent.MatchesReservation(res.ID, domain.PaymentTypeInitialBooking):
		return nil, nil
	}

	return intent, nil
}

// provisionalStatus is the payment status stamped on a reservation before reconciliation. Success is
// only recorded by ConfirmPayment.
func provisionalStatus(status domain.PaymentStatus) domain.PaymentStatus {
	if status == domain.PaymentStatusSucceeded {
		return domain.PaymentStatusProcessing
	}
	return status
}

func samePaymentID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *Reconciler) getReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	reservation, err := r.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", id)
		}
		return nil, err
	}

	return reservation, nil
}

func (r *Reconciler) getPayment(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	record, err := r.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("payment", intentID)
		}
		return nil, err
	}

	return record, nil
}

// announce sends the push notification and, when template is set, the e-mail receipt in the
// background. Failures are logged and never reach the caller.
func (r *Reconciler) announce(ctx context.Context, res *domain.Reservation, n domain.Notification, template string, data map[string]any) {
	logger := r.logger.With("reservation_id", res.ID, "user_id", res.UserID)

	r.wg.Add(1)
	go func(ctx context.Context) {
		defer r.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic occurred while announcing payment", "panic", err)
			}
		}()

		err := r.notifier.Send(ctx, n)
		if err != nil {
			logger.Error("failed to send push notification", "error", err)
		}

		if template == "" {
			return
		}

		user, err := r.users.GetByID(ctx, res.UserID)
		if err != nil {
			logger.Warn("could not load user for receipt", "error", err)
			return
		}

		if user.Email == "" {
			return
		}

		data["name"] = user.DisplayName

		err = r.mailer.Send(user.Email, template, data)
		if err != nil {
			logger.Error("failed to send receipt email", "error", err)
		} else {
			logger.Info("receipt email sent")
		}
	}(context.WithoutCancel(ctx))
}
