package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/mailer"
	"github.com/trebla915/web1111-sub002/internal/pricing"
)

type TableChangeResult struct {
	Reservation *domain.Reservation
	// AmountDue is positive only when the move created a table change payment.
	AmountDue       decimal.Decimal
	PaymentIntentID string
	ClientSecret    string
}

// ChangeTable moves a reservation to another table of the same event. Moving a paid reservation to a
// more expensive table opens a table change payment for the price difference. Unpaid reservations are
// repriced instead.
func (r *Reconciler) ChangeTable(ctx context.Context, reservationID, newTableID string) (*TableChangeResult, error) {
	if reservationID == "" {
		return nil, domain.NewValidationError("reservationId is required")
	}
	if newTableID == "" {
		return nil, domain.NewValidationError("tableId is required")
	}

	logger := r.logger.With("reservation_id", reservationID, "table_id", newTableID)

	reservation, err := r.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if err := checkMovable(reservation, newTableID); err != nil {
		return nil, err
	}

	from, err := r.getTable(ctx, reservation.EventID, reservation.TableID)
	if err != nil {
		return nil, err
	}

	to, err := r.getTable(ctx, reservation.EventID, newTableID)
	if err != nil {
		return nil, err
	}

	if err := checkSeating(reservation, to); err != nil {
		return nil, err
	}

	if to.Reserved && !to.HeldBy(reservation.ID) {
		return nil, domain.ErrTableUnavailable
	}

	delta := to.Price.Sub(from.Price).Round(2)
	needsPayment := delta.IsPositive() && reservation.PaymentStatus == domain.PaymentStatusSucceeded

	// The intent is created before the move commits. If the move then fails the intent is never
	// attached to anything and cannot be paid through this service.
	var intent *domain.PaymentIntent
	if needsPayment {
		intent, err = r.openTableChangePayment(ctx, reservation, delta)
		if err != nil {
			logger.Error("failed to open table change payment", "error", err)
			return nil, err
		}
		logger = logger.With("payment_intent_id", intent.ID)
	}

	now := r.now()
	var staleIntentID string
	updated, err := r.reservations.ChangeTable(ctx, reservationID, newTableID, func(res *domain.Reservation, from, to *domain.Table) error {
		if err := checkMovable(res, newTableID); err != nil {
			return err
		}

		if err := checkSeating(res, to); err != nil {
			return err
		}

		if !to.Price.Sub(from.Price).Round(2).Equal(delta) {
			return domain.ErrEditConflict
		}

		if err := to.Claim(res.ID); err != nil {
			return err
		}
		from.Release(res.ID)

		res.TableID = to.ID
		res.TableNumber = to.Number
		res.UpdatedAt = now

		switch {
		case intent != nil:
			if res.PaymentStatus != domain.PaymentStatusSucceeded {
				return domain.ErrEditConflict
			}
			res.PendingTableChangePaymentIntentID = &intent.ID
			res.PendingTableChangeAmount = &delta
		case res.PaymentStatus != domain.PaymentStatusSucceeded:
			res.TotalAmount = pricing.TotalCharge(to.Price, res.Bottles, res.Mixers)
			// An intent opened for the old total no longer matches what is owed.
			if res.PaymentID != nil {
				staleIntentID = *res.PaymentID
				res.PaymentID = nil
				res.PaymentStatus = ""
			}
		}

		return nil
	})
	if err != nil {
		if !errors.As(err, new(*domain.ValidationError)) && !errors.Is(err, domain.ErrTableUnavailable) {
			logger.Error("failed to change table", "error", err)
		}
		return nil, err
	}

	r.projection.Sync(ctx, updated)

	if staleIntentID != "" {
		logger.Warn("booking payment detached after repricing", "stale_payment_intent_id", staleIntentID,
			"total", updated.TotalAmount.StringFixed(2))
	}

	logger.Info("table changed", "from_table", from.ID, "price_delta", delta.StringFixed(2))

	result := &TableChangeResult{Reservation: updated}

	if intent != nil {
		result.AmountDue = delta
		result.PaymentIntentID = intent.ID
		result.ClientSecret = intent.ClientSecret

		r.announce(ctx, updated, domain.Notification{
			Title:   "Table changed",
			Message: fmt.Sprintf("You were moved to table %d. $%s is due for the upgrade.", updated.TableNumber, delta.StringFixed(2)),
			UserIDs: []string{updated.UserID},
			Data:    map[string]string{"reservationId": updated.ID, "type": "table_change_payment_due"},
		}, "", nil)
	}

	return result, nil
}

func checkSeating(res *domain.Reservation, to *domain.Table) error {
	switch {
	case res.GuestCount > to.Capacity:
		return domain.NewValidationError("table %d seats at most %d guests", to.Number, to.Capacity)
	case len(res.Bottles) < to.MinimumBottles:
		return domain.NewValidationError("table %d requires at least %d bottles", to.Number, to.MinimumBottles)
	}

	return nil
}

func checkMovable(res *domain.Reservation, newTableID string) error {
	switch {
	case res.Status != domain.ReservationStatusPending && res.Status != domain.ReservationStatusConfirmed:
		return domain.NewValidationError("reservation %s is %s and cannot change tables", res.ID, res.Status)
	case res.TableID == newTableID:
		return domain.NewValidationError("reservation %s is already at table %s", res.ID, newTableID)
	case res.HasPendingTableChange():
		return domain.NewValidationError("reservation %s already has a table change payment pending", res.ID)
	}

	return nil
}

func (r *Reconciler) openTableChangePayment(ctx context.Context, res *domain.Reservation, amount decimal.Decimal) (*domain.PaymentIntent, error) {
	intent, err := r.provider.CreateIntent(ctx, domain.PaymentIntentRequest{
		AmountMinor: domain.ToMinorUnits(amount),
		Currency:    r.currency,
		Description: fmt.Sprintf("Table change for reservation %s", res.ID),
		Metadata: map[string]string{
			domain.MetadataReservationID: res.ID,
			domain.MetadataEventID:       res.EventID,
			domain.MetadataUserID:        res.UserID,
			domain.MetadataType:          string(domain.PaymentTypeTableChangeFix),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	now := r.now()
	err = r.payments.Create(ctx, &domain.PaymentRecord{
		ProcessorIntentID: intent.ID,
		Type:              domain.PaymentTypeTableChangeFix,
		Status:            intent.Status,
		Amount:            amount,
		Currency:          r.currency,
		ReservationID:     res.ID,
		EventID:           res.EventID,
		UserID:            res.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	return intent, nil
}

type PendingTableChangePayment struct {
	ClientSecret    string
	PaymentIntentID string
	AmountDue       decimal.Decimal
}

func (r *Reconciler) GetPendingTableChangePayment(ctx context.Context, reservationID string) (*PendingTableChangePayment, error) {
	if reservationID == "" {
		return nil, domain.NewValidationError("reservationId is required")
	}

	reservation, err := r.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !reservation.HasPendingTableChange() || !reservation.PendingAmountDue().IsPositive() {
		return nil, domain.NewNotFoundError("pending table change payment for reservation", reservationID)
	}

	intentID := *reservation.PendingTableChangePaymentIntentID

	intent, err := r.provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		r.logger.Error("failed to retrieve payment intent",
			"reservation_id", reservationID, "payment_intent_id", intentID, "error", err)
		return nil, err
	}

	if !intent.MatchesReservation(reservationID, domain.PaymentTypeTableChangeFix) {
		return nil, domain.NewValidationError("payment %s does not belong to reservation %s", intentID, reservationID)
	}

	return &PendingTableChangePayment{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountDue:       reservation.PendingAmountDue(),
	}, nil
}

// CompleteTableChangePayment settles a pending table change once its intent has succeeded. The
// pending intent id is compared again inside the write so only one of several concurrent or repeated
// calls can settle it.
func (r *Reconciler) CompleteTableChangePayment(ctx context.Context, reservationID, paymentIntentID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, domain.NewValidationError("reservationId is required")
	}
	if paymentIntentID == "" {
		return nil, domain.NewValidationError("paymentIntentId is required")
	}

	logger := r.logger.With("reservation_id", reservationID, "payment_intent_id", paymentIntentID)

	reservation, err := r.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !pendingChangeMatches(reservation, paymentIntentID) {
		return nil, domain.NewValidationError("payment %s does not match a pending table change", paymentIntentID)
	}

	intent, err := r.provider.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		logger.Error("failed to retrieve payment intent", "error", err)
		return nil, err
	}

	if !intent.Succeeded() {
		return nil, &domain.PaymentIncompleteError{PaymentIntentID: intent.ID, Status: string(intent.Status)}
	}

	if !intent.MatchesReservation(reservationID, domain.PaymentTypeTableChangeFix) {
		return nil, domain.NewValidationError("payment %s does not belong to reservation %s", paymentIntentID, reservationID)
	}

	now := r.now()
	var settled decimal.Decimal
	updated, err := r.reservations.Update(ctx, reservationID, func(res *domain.Reservation) error {
		if !pendingChangeMatches(res, paymentIntentID) {
			return domain.NewValidationError("payment %s does not match a pending table change", paymentIntentID)
		}

		settled = res.PendingAmountDue()
		invoiceID := paymentIntentID

		res.TableChangeAmount = &settled
		res.TableChangeInvoiceID = &invoiceID
		res.PendingTableChangeAmount = nil
		res.PendingTableChangePaymentIntentID = nil
		res.UpdatedAt = now

		return nil
	})
	if err != nil {
		if !errors.As(err, new(*domain.ValidationError)) {
			logger.Error("failed to settle table change", "error", err)
		}
		return nil, err
	}

	_, err = r.payments.Update(ctx, paymentIntentID, func(p *domain.PaymentRecord) error {
		p.Status = domain.PaymentStatusSucceeded
		p.ReservationCreated = true
		p.UpdatedAt = now
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		logger.Error("failed to update payment record", "error", err)
	}

	r.projection.Sync(ctx, updated)

	logger.Info("table change payment completed", "amount", settled.StringFixed(2))

	r.announce(ctx, updated, domain.Notification{
		Title:   "Table change paid",
		Message: fmt.Sprintf("Your payment of $%s for table %d was received.", settled.StringFixed(2), updated.TableNumber),
		UserIDs: []string{updated.UserID},
		Data:    map[string]string{"reservationId": updated.ID, "type": "table_change_paid"},
	}, mailer.TableChangePaidTemplate, map[string]any{
		"amount":        settled.StringFixed(2),
		"tableNumber":   updated.TableNumber,
		"reservationID": updated.ID,
		"invoiceID":     paymentIntentID,
	})

	return updated, nil
}

func pendingChangeMatches(res *domain.Reservation, paymentIntentID string) bool {
	return res.HasPendingTableChange() && *res.PendingTableChangePaymentIntentID == paymentIntentID
}

func (r *Reconciler) getTable(ctx context.Context, eventID, tableID string) (*domain.Table, error) {
	table, err := r.tables.GetByID(ctx, eventID, tableID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("table", tableID)
		}
		return nil, err
	}

	return table, nil
}
