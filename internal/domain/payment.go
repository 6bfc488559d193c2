package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the processor's intent status, plus PaymentStatusFailed for terminal failures.
type PaymentStatus string

const (
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
	PaymentStatusCanceled              PaymentStatus = "canceled"
	PaymentStatusFailed                PaymentStatus = "failed"
)

type PaymentType string

const (
	PaymentTypeInitialBooking PaymentType = "initial_booking"
	PaymentTypeTableChangeFix PaymentType = "table_change_fix"
)

// Keys embedded in the processor-side intent metadata.
const (
	MetadataReservationID = "reservationId"
	MetadataEventID       = "eventId"
	MetadataUserID        = "userId"
	MetadataType          = "type"
)

const DefaultCurrency = "usd"

type PaymentRecord struct {
	ID                 string
	ProcessorIntentID  string
	Type               PaymentType
	Status             PaymentStatus
	Amount             decimal.Decimal
	Currency           string
	ReservationID      string
	EventID            string
	UserID             string
	ReservationCreated bool
	ErrorMsg           *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *PaymentRecord) error
	GetByIntentID(ctx context.Context, intentID string) (*PaymentRecord, error)
	Update(ctx context.Context, intentID string, fn func(payment *PaymentRecord) error) (*PaymentRecord, error)
}
