package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	eventsCollection       = "events"
	tablesCollection       = "tables"
	reservationsCollection = "reservations"
	paymentsCollection     = "payments"
	usersCollection        = "users"
	catalogCollection      = "catalog"
)

// NewFirebaseApp builds the Firebase app once at start-up. An empty credentials file falls back to
// application default credentials.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	return app, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// storeError converts a Firestore failure into the domain taxonomy.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}

	if isNotFound(err) {
		return domain.ErrRecordNotFound
	}

	var (
		vErr  *domain.ValidationError
		nfErr *domain.NotFoundError
	)

	// errors raised by transaction callbacks pass through untouched
	if errors.As(err, &vErr) || errors.As(err, &nfErr) ||
		errors.Is(err, domain.ErrRecordNotFound) ||
		errors.Is(err, domain.ErrTableUnavailable) ||
		errors.Is(err, domain.ErrEditConflict) {
		return err
	}

	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return err
	}

	return &domain.UpstreamError{
		Service: "firestore",
		Op:      op,
		Message: status.Convert(err).Message(),
		Err:     err,
	}
}

type lineItemDoc struct {
	ID    string   `firestore:"id"`
	Name  string   `firestore:"name"`
	Price *float64 `firestore:"price"`
}

type reservationDoc struct {
	EventID       string        `firestore:"eventId"`
	TableID       string        `firestore:"tableId"`
	TableNumber   int           `firestore:"tableNumber"`
	GuestCount    int           `firestore:"guestCount"`
	Bottles       []lineItemDoc `firestore:"bottles"`
	Mixers        []lineItemDoc `firestore:"mixers"`
	TotalAmount   float64       `firestore:"totalAmount"`
	Status        string        `firestore:"status"`
	PaymentID     *string       `firestore:"paymentId"`
	PaymentStatus string        `firestore:"paymentStatus,omitempty"`
	UserID        string        `firestore:"userId"`

	PendingTableChangePaymentIntentID *string  `firestore:"pendingTableChangePaymentIntentId"`
	PendingTableChangeAmount          *float64 `firestore:"pendingTableChangeAmount"`
	TableChangeInvoiceID              *string  `firestore:"tableChangeInvoiceId"`
	TableChangeAmount                 *float64 `firestore:"tableChangeAmount"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type tableDoc struct {
	Number         int     `firestore:"number"`
	Capacity       int     `firestore:"capacity"`
	Price          float64 `firestore:"price"`
	Reserved       bool    `firestore:"reserved"`
	ReservationID  *string `firestore:"reservationId"`
	Location       string  `firestore:"location"`
	MinimumBottles int     `firestore:"minimumBottles"`
}

type paymentDoc struct {
	ProcessorIntentID  string    `firestore:"processorIntentId"`
	Type               string    `firestore:"type"`
	Status             string    `firestore:"status"`
	Amount             float64   `firestore:"amount"`
	Currency           string    `firestore:"currency"`
	ReservationID      string    `firestore:"reservationId"`
	EventID            string    `firestore:"eventId"`
	UserID             string    `firestore:"userId"`
	ReservationCreated bool      `firestore:"reservationCreated"`
	ErrorMsg           *string   `firestore:"errorMessage"`
	CreatedAt          time.Time `firestore:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt"`
}

type catalogDoc struct {
	Name  string   `firestore:"name"`
	Kind  string   `firestore:"kind"`
	Price *float64 `firestore:"price"`
}

type userDoc struct {
	Email       string `firestore:"email"`
	DisplayName string `firestore:"displayName"`
	FCMToken    string `firestore:"fcmToken"`
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}

	f := d.InexactFloat64()
	return &f
}

func fromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func fromFloatPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}

	d := decimal.NewFromFloat(*f)
	return &d
}

func toLineItemDocs(items []domain.LineItem) []lineItemDoc {
	docs := make([]lineItemDoc, len(items))

	for i, item := range items {
		price := toFloat(item.Price)
		docs[i] = lineItemDoc{ID: item.ID, Name: item.Name, Price: &price}
	}

	return docs
}

func toLineItems(docs []lineItemDoc) []domain.LineItem {
	items := make([]domain.LineItem, len(docs))

	for i, doc := range docs {
		item := domain.LineItem{ID: doc.ID, Name: doc.Name}
		// a missing price is treated as zero
		if doc.Price != nil {
			item.Price = fromFloat(*doc.Price)
		}

		items[i] = item
	}

	return items
}

func toReservationDoc(r *domain.Reservation) reservationDoc {
	return reservationDoc{
		EventID:                           r.EventID,
		TableID:                           r.TableID,
		TableNumber:                       r.TableNumber,
		GuestCount:                        r.GuestCount,
		Bottles:                           toLineItemDocs(r.Bottles),
		Mixers:                            toLineItemDocs(r.Mixers),
		TotalAmount:                       toFloat(r.TotalAmount),
		Status:                            string(r.Status),
		PaymentID:                         r.PaymentID,
		PaymentStatus:                     string(r.PaymentStatus),
		UserID:                            r.UserID,
		PendingTableChangePaymentIntentID: r.PendingTableChangePaymentIntentID,
		PendingTableChangeAmount:          toFloatPtr(r.PendingTableChangeAmount),
		TableChangeInvoiceID:              r.TableChangeInvoiceID,
		TableChangeAmount:                 toFloatPtr(r.TableChangeAmount),
		CreatedAt:                         r.CreatedAt,
		UpdatedAt:                         r.UpdatedAt,
	}
}

func toReservation(id string, doc reservationDoc) *domain.Reservation {
	return &domain.Reservation{
		ID:                                id,
		EventID:                           doc.EventID,
		TableID:                           doc.TableID,
		TableNumber:                       doc.TableNumber,
		GuestCount:                        doc.GuestCount,
		Bottles:                           toLineItems(doc.Bottles),
		Mixers:                            toLineItems(doc.Mixers),
		TotalAmount:                       fromFloat(doc.TotalAmount),
		Status:                            domain.ReservationStatus(doc.Status),
		PaymentID:                         doc.PaymentID,
		PaymentStatus:                     domain.PaymentStatus(doc.PaymentStatus),
		UserID:                            doc.UserID,
		PendingTableChangePaymentIntentID: doc.PendingTableChangePaymentIntentID,
		PendingTableChangeAmount:          fromFloatPtr(doc.PendingTableChangeAmount),
		TableChangeInvoiceID:              doc.TableChangeInvoiceID,
		TableChangeAmount:                 fromFloatPtr(doc.TableChangeAmount),
		CreatedAt:                         doc.CreatedAt,
		UpdatedAt:                         doc.UpdatedAt,
	}
}

func toTableDoc(t *domain.Table) tableDoc {
	return tableDoc{
		Number:         t.Number,
		Capacity:       t.Capacity,
		Price:          toFloat(t.Price),
		Reserved:       t.Reserved,
		ReservationID:  t.ReservationID,
		Location:       t.Location,
		MinimumBottles: t.MinimumBottles,
	}
}

func toTable(eventID, id string, doc tableDoc) *domain.Table {
	return &domain.Table{
		ID:             id,
		EventID:        eventID,
		Number:         doc.Number,
		Capacity:       doc.Capacity,
		Price:          fromFloat(doc.Price),
		Reserved:       doc.Reserved,
		ReservationID:  doc.ReservationID,
		Location:       doc.Location,
		MinimumBottles: doc.MinimumBottles,
	}
}

func toPaymentDoc(p *domain.PaymentRecord) paymentDoc {
	return paymentDoc{
		ProcessorIntentID:  p.ProcessorIntentID,
		Type:               string(p.Type),
		Status:             string(p.Status),
		Amount:             toFloat(p.Amount),
		Currency:           p.Currency,
		ReservationID:      p.ReservationID,
		EventID:            p.EventID,
		UserID:             p.UserID,
		ReservationCreated: p.ReservationCreated,
		ErrorMsg:           p.ErrorMsg,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toPayment(id string, doc paymentDoc) *domain.PaymentRecord {
	return &domain.PaymentRecord{
		ID:                 id,
		ProcessorIntentID:  doc.ProcessorIntentID,
		Type:               domain.PaymentType(doc.Type),
		Status:             domain.PaymentStatus(doc.Status),
		Amount:             fromFloat(doc.Amount),
		Currency:           doc.Currency,
		ReservationID:      doc.ReservationID,
		EventID:            doc.EventID,
		UserID:             doc.UserID,
		ReservationCreated: doc.ReservationCreated,
		ErrorMsg:           doc.ErrorMsg,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

func reservationRef(client *firestore.Client, id string) *firestore.DocumentRef {
	return client.Collection(reservationsCollection).Doc(id)
}

func tableRef(client *firestore.Client, eventID, tableID string) *firestore.DocumentRef {
	return client.Collection(eventsCollection).Doc(eventID).Collection(tablesCollection).Doc(tableID)
}

func userReservationRef(client *firestore.Client, userID, reservationID string) *firestore.DocumentRef {
	return client.Collection(usersCollection).Doc(userID).Collection(reservationsCollection).Doc(reservationID)
}

func readTable(tx *firestore.Transaction, ref *firestore.DocumentRef, eventID string) (*domain.Table, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, err
	}

	var doc tableDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}

	return toTable(eventID, ref.ID, doc), nil
}

func readReservation(tx *firestore.Transaction, ref *firestore.DocumentRef) (*domain.Reservation, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, err
	}

	var doc reservationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}

	return toReservation(ref.ID, doc), nil
}
