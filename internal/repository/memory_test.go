package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

func newSeededStore() *MemoryStore {
	store := NewMemoryStore()
	store.PutTable(domain.Table{ID: "t1", EventID: "e1", Number: 1, Capacity: 6, Price: decimal.NewFromInt(250)})
	store.PutTable(domain.Table{ID: "t2", EventID: "e1", Number: 2, Capacity: 8, Price: decimal.NewFromInt(300)})
	return store
}

func TestMemoryReservationCreateClaimsTable(t *testing.T) {
	store := newSeededStore()
	repo := NewMemoryReservationRepository(store)
	ctx := context.Background()

	first := &domain.Reservation{EventID: "e1", TableID: "t1", UserID: "u1"}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	table, ok := store.Table("e1", "t1")
	require.True(t, ok)
	assert.True(t, table.HeldBy(first.ID))

	second := &domain.Reservation{EventID: "e1", TableID: "t1", UserID: "u2"}
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrTableUnavailable)

	_, err := repo.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	missing := &domain.Reservation{EventID: "e1", TableID: "t9"}
	assert.ErrorIs(t, repo.Create(ctx, missing), domain.ErrRecordNotFound)
}

func TestMemoryReservationUpdateIsAtomic(t *testing.T) {
	store := newSeededStore()
	repo := NewMemoryReservationRepository(store)
	ctx := context.Background()

	res := &domain.Reservation{EventID: "e1", TableID: "t1", Status: domain.ReservationStatusPending}
	require.NoError(t, repo.Create(ctx, res))

	_, err := repo.Update(ctx, res.ID, func(r *domain.Reservation) error {
		r.Status = domain.ReservationStatusConfirmed
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPending, got.Status)

	// callers get copies, never the stored value
	got.Status = domain.ReservationStatusCancelled
	again, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusPending, again.Status)

	updated, err := repo.Update(ctx, res.ID, func(r *domain.Reservation) error {
		r.Status = domain.ReservationStatusConfirmed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, updated.Status)

	_, err = repo.Update(ctx, "missing", func(*domain.Reservation) error { return nil })
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryReservationChangeTable(t *testing.T) {
	store := newSeededStore()
	repo := NewMemoryReservationRepository(store)
	ctx := context.Background()

	res := &domain.Reservation{EventID: "e1", TableID: "t1"}
	require.NoError(t, repo.Create(ctx, res))

	moved, err := repo.ChangeTable(ctx, res.ID, "t2", func(r *domain.Reservation, from, to *domain.Table) error {
		if err := to.Claim(r.ID); err != nil {
			return err
		}
		from.Release(r.ID)
		r.TableID = to.ID
		r.TableNumber = to.Number
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "t2", moved.TableID)

	from, _ := store.Table("e1", "t1")
	to, _ := store.Table("e1", "t2")
	assert.False(t, from.Reserved)
	assert.True(t, to.HeldBy(res.ID))

	_, err = repo.ChangeTable(ctx, res.ID, "t9", func(*domain.Reservation, *domain.Table, *domain.Table) error { return nil })
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryUserReservationSyncOverwrites(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryUserReservationRepository(store)
	ctx := context.Background()

	amount := decimal.NewFromInt(75)
	res := &domain.Reservation{ID: "r1", UserID: "u1", Status: domain.ReservationStatusPending, PendingTableChangeAmount: &amount}
	require.NoError(t, repo.Sync(ctx, res))

	res.Status = domain.ReservationStatusConfirmed
	res.PendingTableChangeAmount = nil
	require.NoError(t, repo.Sync(ctx, res))

	got, ok := store.UserReservation("u1", "r1")
	require.True(t, ok)
	assert.Equal(t, domain.ReservationStatusConfirmed, got.Status)
	assert.Nil(t, got.PendingTableChangeAmount)
}

func TestMemoryPaymentRepository(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryPaymentRepository(store)
	ctx := context.Background()

	record := &domain.PaymentRecord{
		ProcessorIntentID: "pi_1",
		Type:              domain.PaymentTypeInitialBooking,
		Status:            domain.PaymentStatusRequiresPaymentMethod,
		Amount:            decimal.RequireFromString("460.26"),
		ReservationID:     "r1",
	}
	require.NoError(t, repo.Create(ctx, record))
	assert.NotEmpty(t, record.ID)

	updated, err := repo.Update(ctx, "pi_1", func(p *domain.PaymentRecord) error {
		p.Status = domain.PaymentStatusSucceeded
		p.ReservationCreated = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.ReservationCreated)

	got, err := repo.GetByIntentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, got.Status)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("460.26")))

	_, err = repo.GetByIntentID(ctx, "pi_9")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryCatalogKeepsRequestOrder(t *testing.T) {
	store := NewMemoryStore()
	store.PutCatalogItem(domain.CatalogItem{ID: "b1", Kind: domain.CatalogItemBottle, Price: decimal.NewFromInt(100)})
	store.PutCatalogItem(domain.CatalogItem{ID: "m1", Kind: domain.CatalogItemMixer, Price: decimal.NewFromInt(20)})
	repo := NewMemoryCatalogRepository(store)

	items, err := repo.GetByIDs(context.Background(), []string{"m1", "b1", "b1"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"m1", "b1", "b1"}, []string{items[0].ID, items[1].ID, items[2].ID})

	_, err = repo.GetByIDs(context.Background(), []string{"x"})
	var nfErr *domain.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}
