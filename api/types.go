// Package api holds the JSON request and response bodies of the HTTP API.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers in major currency units.
	decimal.MarshalJSONWithoutQuotes = true
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type LineItem struct {
	Id    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type QuoteRequest struct {
	EventId   string   `json:"eventId" validate:"required"`
	TableId   string   `json:"tableId" validate:"required"`
	BottleIds []string `json:"bottleIds" validate:"dive,required"`
	MixerIds  []string `json:"mixerIds" validate:"dive,required"`
}

type CostBreakdown struct {
	TablePrice           decimal.Decimal `json:"tablePrice"`
	BottlesCost          decimal.Decimal `json:"bottlesCost"`
	MixersCost           decimal.Decimal `json:"mixersCost"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	BottleGratuity       decimal.Decimal `json:"bottleGratuity"`
	SubtotalWithGratuity decimal.Decimal `json:"subtotalWithGratuity"`
	ProcessorFee         decimal.Decimal `json:"processorFee"`
	Total                decimal.Decimal `json:"total"`
	LegacyServiceFee     decimal.Decimal `json:"legacyServiceFee"`
}

type QuoteResponse struct {
	TableId     string        `json:"tableId"`
	TableNumber int           `json:"tableNumber"`
	Bottles     []LineItem    `json:"bottles"`
	Mixers      []LineItem    `json:"mixers"`
	Breakdown   CostBreakdown `json:"breakdown"`
}

type CreateReservationRequest struct {
	EventId    string   `json:"eventId" validate:"required"`
	TableId    string   `json:"tableId" validate:"required"`
	UserId     string   `json:"userId" validate:"required"`
	GuestCount int      `json:"guestCount" validate:"required,min=1"`
	BottleIds  []string `json:"bottleIds" validate:"dive,required"`
	MixerIds   []string `json:"mixerIds" validate:"dive,required"`
}

type Reservation struct {
	Id            string          `json:"id"`
	EventId       string          `json:"eventId"`
	TableId       string          `json:"tableId"`
	TableNumber   int             `json:"tableNumber"`
	GuestCount    int             `json:"guestCount"`
	Bottles       []LineItem      `json:"bottles"`
	Mixers        []LineItem      `json:"mixers"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	PaymentId     *string         `json:"paymentId,omitempty"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	UserId        string          `json:"userId"`

	PendingTableChangePaymentIntentId *string          `json:"pendingTableChangePaymentIntentId,omitempty"`
	PendingTableChangeAmount          *decimal.Decimal `json:"pendingTableChangeAmount,omitempty"`
	TableChangeInvoiceId              *string          `json:"tableChangeInvoiceId,omitempty"`
	TableChangeAmount                 *decimal.Decimal `json:"tableChangeAmount,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReservationResponse struct {
	Reservation Reservation `json:"reservation"`
}

type ChangeTableRequest struct {
	TableId string `json:"tableId" validate:"required"`
}

type ChangeTableResponse struct {
	Reservation     Reservation     `json:"reservation"`
	AmountDue       decimal.Decimal `json:"amountDue"`
	PaymentIntentId string          `json:"paymentIntentId,omitempty"`
	ClientSecret    string          `json:"clientSecret,omitempty"`
}

type PendingTableChangePaymentResponse struct {
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentId string          `json:"paymentIntentId"`
	AmountDue       decimal.Decimal `json:"amountDue"`
}

type CompleteTableChangePaymentRequest struct {
	PaymentIntentId string `json:"paymentIntentId" validate:"required"`
}

type CreatePaymentIntentRequest struct {
	Amount        decimal.Decimal   `json:"amount" validate:"required,gt=0"`
	ReservationId string            `json:"reservationId" validate:"required"`
	EventId       string            `json:"eventId" validate:"required"`
	UserId        string            `json:"userId" validate:"required"`
	Metadata      map[string]string `json:"metadata"`
}

type CreatePaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	PaymentId    string `json:"paymentId"`
}

type PaymentStatusResponse struct {
	Status             string          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	ReservationId      string          `json:"reservationId"`
	ReservationCreated bool            `json:"reservationCreated"`
}
