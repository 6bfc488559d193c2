package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

type FirestoreReservationRepository struct {
	client *firestore.Client
}

func NewFirestoreReservationRepository(client *firestore.Client) *FirestoreReservationRepository {
	return &FirestoreReservationRepository{
		client: client,
	}
}

func (f *FirestoreReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	ref := f.client.Collection(reservationsCollection).NewDoc()
	tRef := tableRef(f.client, reservation.EventID, reservation.TableID)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		table, err := readTable(tx, tRef, reservation.EventID)
		if err != nil {
			return err
		}

		if err := table.Claim(ref.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		reservation.ID = ref.ID
		reservation.CreatedAt = now
		reservation.UpdatedAt = now

		if err := tx.Create(ref, toReservationDoc(reservation)); err != nil {
			return err
		}

		return tx.Set(tRef, toTableDoc(table))
	})

	return storeError("create reservation", err)
}

func (f *FirestoreReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	snap, err := reservationRef(f.client, id).Get(ctx)
	if err != nil {
		return nil, storeError("get reservation", err)
	}

	var doc reservationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, storeError("decode reservation", err)
	}

	return toReservation(snap.Ref.ID, doc), nil
}

func (f *FirestoreReservationRepository) Update(
	ctx context.Context,
	id string,
	fn func(reservation *domain.Reservation) error) (*domain.Reservation, error) {

	ref := reservationRef(f.client, id)

	var updated *domain.Reservation

	// RunTransaction may call the function more than once on contention; fn must be repeatable.
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		reservation, err := readReservation(tx, ref)
		if err != nil {
			return err
		}

		if err := fn(reservation); err != nil {
			return err
		}

		updated = reservation

		return tx.Set(ref, toReservationDoc(reservation))
	})
	if err != nil {
		return nil, storeError("update reservation", err)
	}

	return updated, nil
}

func (f *FirestoreReservationRepository) UpdateWithTable(
	ctx context.Context,
	id string,
	fn func(reservation *domain.Reservation, table *domain.Table) error) (*domain.Reservation, error) {

	ref := reservationRef(f.client, id)

	var updated *domain.Reservation

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		reservation, err := readReservation(tx, ref)
		if err != nil {
			return err
		}

		tRef := tableRef(f.client, reservation.EventID, reservation.TableID)
		table, err := readTable(tx, tRef, reservation.EventID)
		if err != nil {
			return err
		}

		if err := fn(reservation, table); err != nil {
			return err
		}

		updated = reservation

		if err := tx.Set(ref, toReservationDoc(reservation)); err != nil {
			return err
		}

		return tx.Set(tRef, toTableDoc(table))
	})
	if err != nil {
		return nil, storeError("update reservation with table", err)
	}

	return updated, nil
}

func (f *FirestoreReservationRepository) ChangeTable(
	ctx context.Context,
	id, newTableID string,
	fn func(reservation *domain.Reservation, from, to *domain.Table) error) (*domain.Reservation, error) {

	ref := reservationRef(f.client, id)

	var updated *domain.Reservation

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		reservation, err := readReservation(tx, ref)
		if err != nil {
			return err
		}

		fromRef := tableRef(f.client, reservation.EventID, reservation.TableID)
		toRef := tableRef(f.client, reservation.EventID, newTableID)

		from, err := readTable(tx, fromRef, reservation.EventID)
		if err != nil {
			return err
		}

		to, err := readTable(tx, toRef, reservation.EventID)
		if err != nil {
			return err
		}

		if err := fn(reservation, from, to); err != nil {
			return err
		}

		updated = reservation

		if err := tx.Set(ref, toReservationDoc(reservation)); err != nil {
			return err
		}

		if err := tx.Set(fromRef, toTableDoc(from)); err != nil {
			return err
		}

		return tx.Set(toRef, toTableDoc(to))
	})
	if err != nil {
		return nil, storeError("change reservation table", err)
	}

	return updated, nil
}

type FirestoreUserReservationRepository struct {
	client *firestore.Client
}

func NewFirestoreUserReservationRepository(client *firestore.Client) *FirestoreUserReservationRepository {
	return &FirestoreUserReservationRepository{
		client: client,
	}
}

func (f *FirestoreUserReservationRepository) Sync(ctx context.Context, reservation *domain.Reservation) error {
	ref := userReservationRef(f.client, reservation.UserID, reservation.ID)

	_, err := ref.Set(ctx, toReservationDoc(reservation))

	return storeError("sync user reservation", err)
}
