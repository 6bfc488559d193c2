package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

// LocalPaymentProvider stands in for Stripe in development mode. Every intent succeeds immediately.
type LocalPaymentProvider struct {
	mu      sync.Mutex
	intents map[string]domain.PaymentIntent
}

func NewLocalPaymentProvider() *LocalPaymentProvider {
	return &LocalPaymentProvider{
		intents: make(map[string]domain.PaymentIntent),
	}
}

func (l *LocalPaymentProvider) CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := "pi_local_" + uuid.NewString()
	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	pi := domain.PaymentIntent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_local", id),
		Status:       domain.PaymentStatusSucceeded,
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Metadata:     metadata,
	}
	l.intents[id] = pi

	return &pi, nil
}

func (l *LocalPaymentProvider) RetrieveIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pi, ok := l.intents[id]
	if !ok {
		return nil, domain.NewNotFoundError("payment intent", id)
	}

	return &pi, nil
}
