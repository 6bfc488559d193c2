package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

// FirestorePaymentRepository keys payment documents by their own id. The processor's intent id is an
// ordinary indexed field, so lookups by intent go through a query.
type FirestorePaymentRepository struct {
	client *firestore.Client
}

func NewFirestorePaymentRepository(client *firestore.Client) *FirestorePaymentRepository {
	return &FirestorePaymentRepository{
		client: client,
	}
}

func (f *FirestorePaymentRepository) byIntent(intentID string) firestore.Query {
	return f.client.Collection(paymentsCollection).
		Where("processorIntentId", "==", intentID).
		Limit(1)
}

func (f *FirestorePaymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	ref := f.client.Collection(paymentsCollection).NewDoc()

	now := time.Now().UTC()
	payment.ID = ref.ID
	payment.CreatedAt = now
	payment.UpdatedAt = now

	_, err := ref.Create(ctx, toPaymentDoc(payment))

	return storeError("create payment", err)
}

func (f *FirestorePaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	snaps, err := f.byIntent(intentID).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeError("get payment", err)
	}

	if len(snaps) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	var doc paymentDoc
	if err := snaps[0].DataTo(&doc); err != nil {
		return nil, storeError("decode payment", err)
	}

	return toPayment(snaps[0].Ref.ID, doc), nil
}

func (f *FirestorePaymentRepository) Update(
	ctx context.Context,
	intentID string,
	fn func(payment *domain.PaymentRecord) error) (*domain.PaymentRecord, error) {

	var updated *domain.PaymentRecord

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(f.byIntent(intentID)).GetAll()
		if err != nil {
			return err
		}

		if len(snaps) == 0 {
			return domain.ErrRecordNotFound
		}

		var doc paymentDoc
		if err := snaps[0].DataTo(&doc); err != nil {
			return err
		}

		payment := toPayment(snaps[0].Ref.ID, doc)
		if err := fn(payment); err != nil {
			return err
		}

		updated = payment

		return tx.Set(snaps[0].Ref, toPaymentDoc(payment))
	})
	if err != nil {
		return nil, storeError("update payment", err)
	}

	return updated, nil
}
