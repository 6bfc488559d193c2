package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/trebla915/web1111-sub002/api"
	"github.com/trebla915/web1111-sub002/internal/billing"
	"github.com/trebla915/web1111-sub002/internal/booking"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/idempotency"
	"github.com/trebla915/web1111-sub002/internal/validator"
)

const testWebhookSecret = "whsec_test_secret"

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Quote(ctx context.Context, in booking.QuoteInput) (*booking.Quote, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Quote), args.Error(1)
}

func (m *MockBookingService) Create(ctx context.Context, in booking.CreateInput) (*domain.Reservation, error) {
	args := m.Called(ctx, in)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

func (m *MockBookingService) CheckIn(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreatePaymentIntent(ctx context.Context, in billing.CreatePaymentIntentInput) (*billing.PaymentIntentResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentIntentResult), args.Error(1)
}

func (m *MockBillingService) GetPaymentStatus(ctx context.Context, paymentID string) (*billing.PaymentStatusResult, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentStatusResult), args.Error(1)
}

func (m *MockBillingService) ConfirmPayment(ctx context.Context, paymentIntentID string) (*domain.Reservation, error) {
	args := m.Called(ctx, paymentIntentID)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

func (m *MockBillingService) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	args := m.Called(ctx, paymentIntentID, reason)
	return args.Error(0)
}

func (m *MockBillingService) ChangeTable(ctx context.Context, reservationID, newTableID string) (*billing.TableChangeResult, error) {
	args := m.Called(ctx, reservationID, newTableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TableChangeResult), args.Error(1)
}

func (m *MockBillingService) GetPendingTableChangePayment(ctx context.Context, reservationID string) (*billing.PendingTableChangePayment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PendingTableChangePayment), args.Error(1)
}

func (m *MockBillingService) CompleteTableChangePayment(ctx context.Context, reservationID, paymentIntentID string) (*domain.Reservation, error) {
	args := m.Called(ctx, reservationID, paymentIntentID)
	return reservationOrNil(args.Get(0)), args.Error(1)
}

func reservationOrNil(v any) *domain.Reservation {
	if v == nil {
		return nil
	}
	return v.(*domain.Reservation)
}

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config: Config{
			Env:    "test",
			Store:  StoreMemory,
			Stripe: StripeConfig{WebhookSecret: testWebhookSecret, Currency: "usd"},
		},
		validator: validator.NewValidator(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		booking:   &MockBookingService{},
		billing:   &MockBillingService{},
		events:    idempotency.NewMemoryStore(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

// decimalComparer lets cmp.Diff compare amounts by value, so 460.26 equals 460.260.
var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func ptr[T any](v T) *T {
	return &v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
