package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

// MemoryStore backs the in-memory repositories used in development mode and in service tests.
// A single mutex makes every multi-document operation atomic, like a Firestore transaction.
type MemoryStore struct {
	mu               sync.Mutex
	reservations     map[string]domain.Reservation
	userReservations map[string]map[string]domain.Reservation
	payments         map[string]domain.PaymentRecord
	tables           map[string]domain.Table
	catalog          map[string]domain.CatalogItem
	users            map[string]domain.User
	now              func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations:     make(map[string]domain.Reservation),
		userReservations: make(map[string]map[string]domain.Reservation),
		payments:         make(map[string]domain.PaymentRecord),
		tables:           make(map[string]domain.Table),
		catalog:          make(map[string]domain.CatalogItem),
		users:            make(map[string]domain.User),
		now:              time.Now,
	}
}

func tableKey(eventID, tableID string) string {
	return eventID + "/" + tableID
}

// PutTable, PutCatalogItem, PutUser and PutReservation seed the store.
func (s *MemoryStore) PutTable(t domain.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[tableKey(t.EventID, t.ID)] = copyTable(t)
}

func (s *MemoryStore) PutCatalogItem(item domain.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog[item.ID] = item
}

func (s *MemoryStore) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
}

func (s *MemoryStore) PutReservation(r domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reservations[r.ID] = copyReservation(r)
}

// UserReservation returns the per-user copy, if one was synced.
func (s *MemoryStore) UserReservation(userID, reservationID string) (*domain.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.userReservations[userID][reservationID]
	if !ok {
		return nil, false
	}

	cp := copyReservation(r)
	return &cp, true
}

func (s *MemoryStore) Table(eventID, tableID string) (*domain.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableKey(eventID, tableID)]
	if !ok {
		return nil, false
	}

	cp := copyTable(t)
	return &cp, true
}

type MemoryReservationRepository struct {
	store *MemoryStore
}

func NewMemoryReservationRepository(store *MemoryStore) *MemoryReservationRepository {
	return &MemoryReservationRepository{store: store}
}

func (m *MemoryReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tableKey(reservation.EventID, reservation.TableID)
	table, ok := s.tables[key]
	if !ok {
		return domain.ErrRecordNotFound
	}

	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}

	table = copyTable(table)
	if err := table.Claim(reservation.ID); err != nil {
		return err
	}

	now := s.now()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	s.tables[key] = table
	s.reservations[reservation.ID] = copyReservation(*reservation)

	return nil
}

func (m *MemoryReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	cp := copyReservation(r)
	return &cp, nil
}

func (m *MemoryReservationRepository) Update(
	ctx context.Context,
	id string,
	fn func(reservation *domain.Reservation) error) (*domain.Reservation, error) {

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	working := copyReservation(r)
	if err := fn(&working); err != nil {
		return nil, err
	}

	s.reservations[id] = copyReservation(working)

	return &working, nil
}

func (m *MemoryReservationRepository) UpdateWithTable(
	ctx context.Context,
	id string,
	fn func(reservation *domain.Reservation, table *domain.Table) error) (*domain.Reservation, error) {

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	key := tableKey(r.EventID, r.TableID)
	t, ok := s.tables[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	working := copyReservation(r)
	table := copyTable(t)
	if err := fn(&working, &table); err != nil {
		return nil, err
	}

	s.reservations[id] = copyReservation(working)
	s.tables[key] = table

	return &working, nil
}

func (m *MemoryReservationRepository) ChangeTable(
	ctx context.Context,
	id, newTableID string,
	fn func(reservation *domain.Reservation, from, to *domain.Table) error) (*domain.Reservation, error) {

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	fromKey := tableKey(r.EventID, r.TableID)
	toKey := tableKey(r.EventID, newTableID)

	fromTable, ok := s.tables[fromKey]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	toTable, ok := s.tables[toKey]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	working := copyReservation(r)
	from, to := copyTable(fromTable), copyTable(toTable)
	if err := fn(&working, &from, &to); err != nil {
		return nil, err
	}

	s.reservations[id] = copyReservation(working)
	s.tables[fromKey] = from
	s.tables[toKey] = to

	return &working, nil
}

type MemoryUserReservationRepository struct {
	store *MemoryStore
}

func NewMemoryUserReservationRepository(store *MemoryStore) *MemoryUserReservationRepository {
	return &MemoryUserReservationRepository{store: store}
}

func (m *MemoryUserReservationRepository) Sync(ctx context.Context, reservation *domain.Reservation) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userReservations[reservation.UserID] == nil {
		s.userReservations[reservation.UserID] = make(map[string]domain.Reservation)
	}

	s.userReservations[reservation.UserID][reservation.ID] = copyReservation(*reservation)

	return nil
}

type MemoryPaymentRepository struct {
	store *MemoryStore
}

func NewMemoryPaymentRepository(store *MemoryStore) *MemoryPaymentRepository {
	return &MemoryPaymentRepository{store: store}
}

func (m *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}

	now := s.now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	s.payments[payment.ProcessorIntentID] = copyPayment(*payment)

	return nil
}

func (m *MemoryPaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[intentID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	cp := copyPayment(p)
	return &cp, nil
}

func (m *MemoryPaymentRepository) Update(
	ctx context.Context,
	intentID string,
	fn func(payment *domain.PaymentRecord) error) (*domain.PaymentRecord, error) {

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[intentID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	working := copyPayment(p)
	if err := fn(&working); err != nil {
		return nil, err
	}

	s.payments[intentID] = copyPayment(working)

	return &working, nil
}

type MemoryTableRepository struct {
	store *MemoryStore
}

func NewMemoryTableRepository(store *MemoryStore) *MemoryTableRepository {
	return &MemoryTableRepository{store: store}
}

func (m *MemoryTableRepository) GetByID(ctx context.Context, eventID, tableID string) (*domain.Table, error) {
	t, ok := m.store.Table(eventID, tableID)
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return t, nil
}

type MemoryCatalogRepository struct {
	store *MemoryStore
}

func NewMemoryCatalogRepository(store *MemoryStore) *MemoryCatalogRepository {
	return &MemoryCatalogRepository{store: store}
}

func (m *MemoryCatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.CatalogItem, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.CatalogItem, 0, len(ids))
	for _, id := range ids {
		item, ok := s.catalog[id]
		if !ok {
			return nil, domain.NewNotFoundError("catalog item", id)
		}

		items = append(items, item)
	}

	return items, nil
}

type MemoryUserRepository struct {
	store *MemoryStore
}

func NewMemoryUserRepository(store *MemoryStore) *MemoryUserRepository {
	return &MemoryUserRepository{store: store}
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &u, nil
}

func copyReservation(r domain.Reservation) domain.Reservation {
	r.Bottles = append([]domain.LineItem(nil), r.Bottles...)
	r.Mixers = append([]domain.LineItem(nil), r.Mixers...)
	r.PaymentID = copyString(r.PaymentID)
	r.PendingTableChangePaymentIntentID = copyString(r.PendingTableChangePaymentIntentID)
	r.PendingTableChangeAmount = copyDecimal(r.PendingTableChangeAmount)
	r.TableChangeInvoiceID = copyString(r.TableChangeInvoiceID)
	r.TableChangeAmount = copyDecimal(r.TableChangeAmount)

	return r
}

func copyTable(t domain.Table) domain.Table {
	t.ReservationID = copyString(t.ReservationID)
	return t
}

func copyPayment(p domain.PaymentRecord) domain.PaymentRecord {
	p.ErrorMsg = copyString(p.ErrorMsg)
	return p
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s
	return &v
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}

	v := *d
	return &v
}
