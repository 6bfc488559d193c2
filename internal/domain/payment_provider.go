package domain

import "context"

type PaymentIntentRequest struct {
	AmountMinor    int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the processor's view of a payment. It is the only authority on status and amount.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       PaymentStatus
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

func (pi *PaymentIntent) Succeeded() bool {
	return pi.Status == PaymentStatusSucceeded
}

// Failed reports a terminal non-succeeded status.
func (pi *PaymentIntent) Failed() bool {
	return pi.Status == PaymentStatusCanceled
}

// MatchesReservation checks the metadata the intent was created with.
func (pi *PaymentIntent) MatchesReservation(reservationID string, paymentType PaymentType) bool {
	if pi.Metadata == nil {
		return false
	}

	return pi.Metadata[MetadataReservationID] == reservationID &&
		pi.Metadata[MetadataType] == string(paymentType)
}

type PaymentProvider interface {
	CreateIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
}
