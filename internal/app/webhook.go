package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/payment"
)

const maxWebhookBytes = 65536

type webhookAck struct {
	Received bool `json:"received"`
}

// StripeWebhookHandler verifies and applies payment intent events. Each event id is processed once;
// a failed attempt gives the claim back so Stripe's redelivery is processed again.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to read webhook body: %w", err))
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		app.config.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.Warn("rejected webhook with invalid signature", "error", err)
		app.badRequestResponse(w, r, errors.New(ErrInvalidSignature))
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", string(event.Type))

	first, err := app.events.Claim(r.Context(), event.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !first {
		logger.Info("ignoring duplicate webhook event")
		app.webhookMetrics.record(r.Context(), event.Type, webhookDuplicate)
		app.acknowledgeWebhook(w, r)
		return
	}

	err = app.handleStripeEvent(r.Context(), event)
	if err != nil {
		if isPermanent(err) {
			logger.Warn("webhook event could not be applied", "error", err)
			app.webhookMetrics.record(r.Context(), event.Type, webhookDropped)
			app.acknowledgeWebhook(w, r)
			return
		}

		if releaseErr := app.events.Release(context.WithoutCancel(r.Context()), event.ID); releaseErr != nil {
			logger.Error("failed to release webhook event", "error", releaseErr)
		}
		app.webhookMetrics.record(r.Context(), event.Type, webhookRetry)

		app.serviceErrorResponse(w, r, err)
		return
	}

	logger.Info("webhook event processed")
	app.webhookMetrics.record(r.Context(), event.Type, webhookProcessed)
	app.acknowledgeWebhook(w, r)
}

func (app *Application) handleStripeEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		pi, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}

		intent := payment.ToPaymentIntent(pi)
		if intent.Metadata[domain.MetadataType] == string(domain.PaymentTypeTableChangeFix) {
			_, err = app.billing.CompleteTableChangePayment(ctx, intent.Metadata[domain.MetadataReservationID], intent.ID)
			return err
		}

		_, err = app.billing.ConfirmPayment(ctx, intent.ID)
		return err

	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		pi, err := decodePaymentIntent(event)
		if err != nil {
			return err
		}

		reason := string(pi.CancellationReason)
		if pi.LastPaymentError != nil {
			reason = pi.LastPaymentError.Msg
		}

		return app.billing.MarkPaymentFailed(ctx, pi.ID, reason)

	default:
		return nil
	}
}

func decodePaymentIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent

	err := json.Unmarshal(event.Data.Raw, &pi)
	if err != nil {
		return nil, domain.NewValidationError("malformed payment intent in event %s: %v", event.ID, err)
	}

	return &pi, nil
}

// isPermanent reports errors a redelivery of the same event cannot fix.
func isPermanent(err error) bool {
	var (
		validationErr *domain.ValidationError
		incompleteErr *domain.PaymentIncompleteError
	)

	return errors.As(err, &validationErr) ||
		errors.As(err, &incompleteErr) ||
		errors.Is(err, domain.ErrRecordNotFound)
}

func (app *Application) acknowledgeWebhook(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, webhookAck{Received: true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
