package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

// StripePaymentProvider expects stripe.Key to be set once at start-up.
type StripePaymentProvider struct {
	currency string
}

func NewStripePaymentProvider(currency string) *StripePaymentProvider {
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	return &StripePaymentProvider{
		currency: currency,
	}
}

func (s *StripePaymentProvider) CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, upstreamError("create payment intent", "", err)
	}

	return ToPaymentIntent(pi), nil
}

func (s *StripePaymentProvider) RetrieveIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, upstreamError("retrieve payment intent", id, err)
	}

	return ToPaymentIntent(pi), nil
}

// ToPaymentIntent converts a Stripe intent fetched from the API or decoded from a webhook event.
func ToPaymentIntent(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	metadata := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		metadata[k] = v
	}

	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       domain.PaymentStatus(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     metadata,
	}
}

func upstreamError(op, id string, err error) error {
	upErr := &domain.UpstreamError{
		Service: "stripe",
		Op:      op,
		Err:     err,
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		upErr.StatusCode = stripeErr.HTTPStatusCode
		upErr.Message = stripeErr.Msg

		// an unknown intent id is a caller problem, not an outage
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return domain.NewNotFoundError("payment intent", id)
		}
	}

	return upErr
}
