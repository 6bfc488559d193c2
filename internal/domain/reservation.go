package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCheckedIn ReservationStatus = "checked-in"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// LineItem is a bottle or mixer attached to a reservation.
type LineItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type Reservation struct {
	ID            string
	EventID       string
	TableID       string
	TableNumber   int
	GuestCount    int
	Bottles       []LineItem
	Mixers        []LineItem
	TotalAmount   decimal.Decimal
	Status        ReservationStatus
	PaymentID     *string
	PaymentStatus PaymentStatus
	UserID        string

	PendingTableChangePaymentIntentID *string
	PendingTableChangeAmount          *decimal.Decimal
	TableChangeInvoiceID              *string
	TableChangeAmount                 *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Reservation) HasPendingTableChange() bool {
	return r.PendingTableChangePaymentIntentID != nil && *r.PendingTableChangePaymentIntentID != ""
}

// PendingAmountDue returns the outstanding table change amount, zero when nothing is pending.
func (r *Reservation) PendingAmountDue() decimal.Decimal {
	if r.PendingTableChangeAmount == nil {
		return decimal.Zero
	}

	return *r.PendingTableChangeAmount
}

type ReservationRepository interface {
	// Create stores the reservation and claims its table in one transaction.
	Create(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	// Update runs fn against the latest stored reservation and persists the result atomically.
	Update(ctx context.Context, id string, fn func(reservation *Reservation) error) (*Reservation, error)
	// UpdateWithTable is Update with the reservation's current table loaded and written alongside it.
	UpdateWithTable(ctx context.Context, id string, fn func(reservation *Reservation, table *Table) error) (*Reservation, error)
	// ChangeTable loads the reservation, its current table and the target table and writes all three.
	ChangeTable(ctx context.Context, id, newTableID string, fn func(reservation *Reservation, from, to *Table) error) (*Reservation, error)
}

// UserReservationRepository maintains the per-user copy of a reservation shown in the mobile client.
// It is a projection of the reservations collection and is always overwritten as a whole.
type UserReservationRepository interface {
	Sync(ctx context.Context, reservation *Reservation) error
}
