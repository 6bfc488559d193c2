package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Table struct {
	ID             string
	EventID        string
	Number         int
	Capacity       int
	Price          decimal.Decimal
	Reserved       bool
	ReservationID  *string
	Location       string
	MinimumBottles int
}

// Claim marks the table as held by reservationID. Reserved and ReservationID always change together.
func (t *Table) Claim(reservationID string) error {
	if t.Reserved && !t.HeldBy(reservationID) {
		return ErrTableUnavailable
	}

	t.Reserved = true
	t.ReservationID = &reservationID

	return nil
}

// Release frees the table if it is still held by reservationID.
func (t *Table) Release(reservationID string) bool {
	if !t.HeldBy(reservationID) {
		return false
	}

	t.Reserved = false
	t.ReservationID = nil

	return true
}

func (t *Table) HeldBy(reservationID string) bool {
	return t.ReservationID != nil && *t.ReservationID == reservationID
}

type TableRepository interface {
	GetByID(ctx context.Context, eventID, tableID string) (*Table, error)
}

type CatalogItemKind string

const (
	CatalogItemBottle CatalogItemKind = "bottle"
	CatalogItemMixer  CatalogItemKind = "mixer"
)

type CatalogItem struct {
	ID    string
	Name  string
	Kind  CatalogItemKind
	Price decimal.Decimal
}

func (c CatalogItem) LineItem() LineItem {
	return LineItem{ID: c.ID, Name: c.Name, Price: c.Price}
}

type CatalogRepository interface {
	// GetByIDs returns the items in the order requested. Duplicated ids yield duplicated items.
	GetByIDs(ctx context.Context, ids []string) ([]CatalogItem, error)
}
