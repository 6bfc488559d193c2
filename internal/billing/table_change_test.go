package billing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/mailer"
)

func paid(r *domain.Reservation) {
	id := "pi_booking"
	r.PaymentID = &id
	r.PaymentStatus = domain.PaymentStatusSucceeded
	r.Status = domain.ReservationStatusConfirmed
}

func pendingChange(intentID, amount string) func(r *domain.Reservation) {
	return func(r *domain.Reservation) {
		paid(r)
		due := decimal.RequireFromString(amount)
		r.PendingTableChangePaymentIntentID = &intentID
		r.PendingTableChangeAmount = &due
	}
}

func (s *ReconcilerTestSuite) TestChangeTable() {
	s.Run("opens a payment for the price difference of a paid reservation", func() {
		s.SetupTest()
		s.seedReservation(paid)

		s.provider.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req domain.PaymentIntentRequest) bool {
			return req.AmountMinor == 7500 &&
				req.Metadata[domain.MetadataType] == string(domain.PaymentTypeTableChangeFix) &&
				req.Metadata[domain.MetadataReservationID] == testReservationID
		})).Return(intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusRequiresPaymentMethod, 7500), nil).Once()

		result, err := s.reconciler.ChangeTable(context.Background(), testReservationID, "t2")
		s.Require().NoError(err)
		s.reconciler.Wait()

		s.requireDecimal("75", result.AmountDue)
		s.Equal("pi_fix", result.PaymentIntentID)
		s.Equal("pi_fix_secret", result.ClientSecret)

		res := s.reservation()
		s.Equal("t2", res.TableID)
		s.Equal(2, res.TableNumber)
		s.Require().True(res.HasPendingTableChange())
		s.Equal("pi_fix", *res.PendingTableChangePaymentIntentID)
		s.requireDecimal("75", res.PendingAmountDue())
		s.requireDecimal("460.26", res.TotalAmount)

		from, _ := s.store.Table(testEventID, "t1")
		to, _ := s.store.Table(testEventID, "t2")
		s.False(from.Reserved)
		s.Nil(from.ReservationID)
		s.True(to.HeldBy(testReservationID))

		record, err := s.payments.GetByIntentID(context.Background(), "pi_fix")
		s.Require().NoError(err)
		s.Equal(domain.PaymentTypeTableChangeFix, record.Type)

		copied, ok := s.store.UserReservation(testUserID, testReservationID)
		s.Require().True(ok)
		s.Equal(res, copied)
	})

	s.Run("reprices an unpaid reservation instead of charging", func() {
		s.SetupTest()
		s.seedReservation(func(r *domain.Reservation) {
			r.TableID = "t2"
			r.TableNumber = 2
			r.TotalAmount = decimal.RequireFromString("386.18")
		})

		result, err := s.reconciler.ChangeTable(context.Background(), testReservationID, "t1")
		s.Require().NoError(err)

		s.True(result.AmountDue.IsZero())
		s.False(result.Reservation.HasPendingTableChange())
		// 300 + 300 * 0.029 + 0.30
		s.requireDecimal("309", result.Reservation.TotalAmount)
		s.provider.AssertNotCalled(s.T(), "CreateIntent", mock.Anything, mock.Anything)
	})

	s.Run("detaches the booking intent opened for the old price", func() {
		s.SetupTest()
		s.seedReservation(func(r *domain.Reservation) {
			id := "pi_1"
			r.PaymentID = &id
			r.PaymentStatus = domain.PaymentStatusRequiresPaymentMethod
			r.TotalAmount = decimal.RequireFromString("309")
		})
		s.seedPayment("pi_1", domain.PaymentTypeInitialBooking, "309")

		result, err := s.reconciler.ChangeTable(context.Background(), testReservationID, "t2")
		s.Require().NoError(err)

		s.requireDecimal("386.18", result.Reservation.TotalAmount)
		s.Nil(result.Reservation.PaymentID)
		s.Empty(result.Reservation.PaymentStatus)

		// paying the old intent afterwards must not confirm the pricier table
		s.provider.On("RetrieveIntent", mock.Anything, "pi_1").
			Return(intentFor("pi_1", domain.PaymentTypeInitialBooking, domain.PaymentStatusSucceeded, 30900), nil)

		_, err = s.reconciler.ConfirmPayment(context.Background(), "pi_1")

		var vErr *domain.ValidationError
		s.Require().ErrorAs(err, &vErr)

		res := s.reservation()
		s.Equal(domain.ReservationStatusPending, res.Status)
		s.Equal("t2", res.TableID)
		s.requireDecimal("386.18", res.TotalAmount)
		s.Empty(s.mailer.GetSentEmails())
	})

	tests := []struct {
		name       string
		seed       func(r *domain.Reservation)
		tableID    string
		setup      func()
		wantErr    error
		wantErrMsg string
	}{
		{
			name:       "should fail when a table change payment is already pending",
			seed:       pendingChange("pi_fix", "75"),
			tableID:    "t2",
			wantErrMsg: "reservation res-1 already has a table change payment pending",
		},
		{
			name:       "should fail when moving to the same table",
			seed:       paid,
			tableID:    "t1",
			wantErrMsg: "reservation res-1 is already at table t1",
		},
		{
			name:       "should fail when the party does not fit",
			seed:       paid,
			tableID:    "t3",
			wantErrMsg: "table 3 seats at most 2 guests",
		},
		{
			name: "should fail when the reservation was cancelled",
			seed: func(r *domain.Reservation) {
				r.Status = domain.ReservationStatusCancelled
			},
			tableID:    "t2",
			wantErrMsg: "reservation res-1 is cancelled and cannot change tables",
		},
		{
			name:    "should fail when the target table is taken",
			seed:    paid,
			tableID: "t2",
			setup: func() {
				other := "res-other"
				s.store.PutTable(domain.Table{
					ID: "t2", EventID: testEventID, Number: 2, Capacity: 8,
					Price: decimal.NewFromInt(375), Reserved: true, ReservationID: &other,
				})
			},
			wantErr: domain.ErrTableUnavailable,
		},
		{
			name:    "should fail when the target table needs more bottles",
			seed:    paid,
			tableID: "t2",
			setup: func() {
				s.store.PutTable(domain.Table{
					ID: "t2", EventID: testEventID, Number: 2, Capacity: 8,
					Price: decimal.NewFromInt(375), MinimumBottles: 2,
				})
			},
			wantErrMsg: "table 2 requires at least 2 bottles",
		},
		{
			name:    "should fail when the target table does not exist",
			seed:    paid,
			tableID: "t9",
			wantErr: domain.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.seedReservation(tt.seed)
			if tt.setup != nil {
				tt.setup()
			}

			_, err := s.reconciler.ChangeTable(context.Background(), testReservationID, tt.tableID)

			s.Require().Error(err)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
			} else {
				var vErr *domain.ValidationError
				s.Require().ErrorAs(err, &vErr)
				s.Equal(tt.wantErrMsg, vErr.Msg)
			}

			s.Equal(testReservationID, *mustTable(s, "t1").ReservationID)
			s.provider.AssertNotCalled(s.T(), "CreateIntent", mock.Anything, mock.Anything)
		})
	}
}

func mustTable(s *ReconcilerTestSuite, id string) *domain.Table {
	table, ok := s.store.Table(testEventID, id)
	s.Require().True(ok)
	return table
}

func (s *ReconcilerTestSuite) TestGetPendingTableChangePayment() {
	s.Run("returns the client secret and amount due", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusRequiresPaymentMethod, 7500), nil)

		pending, err := s.reconciler.GetPendingTableChangePayment(context.Background(), testReservationID)
		s.Require().NoError(err)

		s.Equal("pi_fix", pending.PaymentIntentID)
		s.Equal("pi_fix_secret", pending.ClientSecret)
		s.requireDecimal("75", pending.AmountDue)
	})

	s.Run("returns not found when nothing is pending", func() {
		s.SetupTest()
		s.seedReservation(paid)

		_, err := s.reconciler.GetPendingTableChangePayment(context.Background(), testReservationID)

		var nfErr *domain.NotFoundError
		s.Require().ErrorAs(err, &nfErr)
		s.provider.AssertNotCalled(s.T(), "RetrieveIntent", mock.Anything, mock.Anything)
	})

	s.Run("rejects an intent whose metadata points elsewhere", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeInitialBooking, domain.PaymentStatusRequiresPaymentMethod, 7500), nil)

		_, err := s.reconciler.GetPendingTableChangePayment(context.Background(), testReservationID)

		var vErr *domain.ValidationError
		s.ErrorAs(err, &vErr)
	})
}

func (s *ReconcilerTestSuite) TestCompleteTableChangePayment() {
	s.Run("settles the pending change exactly once", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))
		s.seedPayment("pi_fix", domain.PaymentTypeTableChangeFix, "75")

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusSucceeded, 7500), nil).Once()

		res, err := s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")
		s.Require().NoError(err)
		s.reconciler.Wait()

		s.False(res.HasPendingTableChange())
		s.Nil(res.PendingTableChangeAmount)
		s.Require().NotNil(res.TableChangeAmount)
		s.requireDecimal("75", *res.TableChangeAmount)
		s.Require().NotNil(res.TableChangeInvoiceID)
		s.Equal("pi_fix", *res.TableChangeInvoiceID)

		copied, ok := s.store.UserReservation(testUserID, testReservationID)
		s.Require().True(ok)
		s.Equal(res, copied)

		record, err := s.payments.GetByIntentID(context.Background(), "pi_fix")
		s.Require().NoError(err)
		s.Equal(domain.PaymentStatusSucceeded, record.Status)

		emails := s.mailer.GetSentEmails()
		s.Require().Len(emails, 1)
		s.Equal(mailer.TableChangePaidTemplate, emails[0].TemplateFile)

		_, err = s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")
		var vErr *domain.ValidationError
		s.Require().ErrorAs(err, &vErr)

		s.requireDecimal("75", *s.reservation().TableChangeAmount)
		s.provider.AssertNumberOfCalls(s.T(), "RetrieveIntent", 1)
	})

	s.Run("only one of two concurrent completions succeeds", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusSucceeded, 7500), nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")
			}()
		}
		wg.Wait()
		s.reconciler.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			var vErr *domain.ValidationError
			s.ErrorAs(err, &vErr)
		}
		s.Equal(1, succeeded)
		s.Len(s.mailer.GetSentEmails(), 1)
	})

	s.Run("leaves the change pending while the payment is incomplete", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusRequiresAction, 7500), nil)

		_, err := s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")

		var incomplete *domain.PaymentIncompleteError
		s.Require().ErrorAs(err, &incomplete)
		s.True(s.reservation().HasPendingTableChange())
	})

	s.Run("rejects an intent that is not the pending one", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		_, err := s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_other")

		var vErr *domain.ValidationError
		s.Require().ErrorAs(err, &vErr)
		s.True(s.reservation().HasPendingTableChange())
		s.provider.AssertNotCalled(s.T(), "RetrieveIntent", mock.Anything, mock.Anything)
	})

	s.Run("rejects a succeeded intent created for another reservation", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		intent := intentFor("pi_fix", domain.PaymentTypeTableChangeFix, domain.PaymentStatusSucceeded, 7500)
		intent.Metadata[domain.MetadataReservationID] = "res-other"
		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").Return(intent, nil)

		_, err := s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")

		var vErr *domain.ValidationError
		s.Require().ErrorAs(err, &vErr)
		s.Nil(s.reservation().TableChangeAmount)
	})

	s.Run("rejects a succeeded booking intent offered as the table change payment", func() {
		s.SetupTest()
		s.seedReservation(pendingChange("pi_fix", "75"))

		s.provider.On("RetrieveIntent", mock.Anything, "pi_fix").
			Return(intentFor("pi_fix", domain.PaymentTypeInitialBooking, domain.PaymentStatusSucceeded, 7500), nil)

		_, err := s.reconciler.CompleteTableChangePayment(context.Background(), testReservationID, "pi_fix")

		var vErr *domain.ValidationError
		s.Require().ErrorAs(err, &vErr)

		res := s.reservation()
		s.Require().True(res.HasPendingTableChange())
		s.Equal("pi_fix", *res.PendingTableChangePaymentIntentID)
		s.requireDecimal("75", res.PendingAmountDue())
		s.Nil(res.TableChangeAmount)
		s.Nil(res.TableChangeInvoiceID)
	})

	s.Run("returns not found for unknown reservations", func() {
		s.SetupTest()

		_, err := s.reconciler.CompleteTableChangePayment(context.Background(), "missing", "pi_fix")

		s.ErrorIs(err, domain.ErrRecordNotFound)
	})
}
