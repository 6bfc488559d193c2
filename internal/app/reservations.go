package app

import (
	"context"
	"net/http"

	"github.com/trebla915/web1111-sub002/api"
	"github.com/trebla915/web1111-sub002/internal/booking"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

func (app *Application) QuoteReservationHandler(w http.ResponseWriter, r *http.Request) {
	var input api.QuoteRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	quote, err := app.booking.Quote(r.Context(), booking.QuoteInput{
		EventID:   input.EventId,
		TableID:   input.TableId,
		BottleIDs: input.BottleIds,
		MixerIDs:  input.MixerIds,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	b := quote.Breakdown
	resp := api.QuoteResponse{
		TableId:     quote.Table.ID,
		TableNumber: quote.Table.Number,
		Bottles:     toApiLineItems(quote.Bottles),
		Mixers:      toApiLineItems(quote.Mixers),
		Breakdown: api.CostBreakdown{
			TablePrice:           b.TablePrice,
			BottlesCost:          b.BottlesCost,
			MixersCost:           b.MixersCost,
			Subtotal:             b.Subtotal,
			BottleGratuity:       b.BottleGratuity,
			SubtotalWithGratuity: b.SubtotalWithGratuity,
			ProcessorFee:         b.ProcessorFee,
			Total:                b.Total,
			LegacyServiceFee:     quote.LegacyServiceFee,
		},
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.CreateReservationRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	reservation, err := app.booking.Create(r.Context(), booking.CreateInput{
		EventID:    input.EventId,
		TableID:    input.TableId,
		UserID:     input.UserId,
		GuestCount: input.GuestCount,
		BottleIDs:  input.BottleIds,
		MixerIDs:   input.MixerIds,
	})
	if err != nil {
		logger.Warn("reservation was not created", "table_id", input.TableId, "error", err)
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.writeReservation(w, r, http.StatusCreated, reservation)
}

func (app *Application) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	app.reservationAction(w, r, app.booking.Get)
}

func (app *Application) CheckInReservationHandler(w http.ResponseWriter, r *http.Request) {
	app.reservationAction(w, r, app.booking.CheckIn)
}

func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	app.reservationAction(w, r, app.booking.Cancel)
}

func (app *Application) ChangeTableHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.ChangeTableRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	result, err := app.billing.ChangeTable(r.Context(), id, input.TableId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.ChangeTableResponse{
		Reservation:     toApiReservation(result.Reservation),
		AmountDue:       result.AmountDue,
		PaymentIntentId: result.PaymentIntentID,
		ClientSecret:    result.ClientSecret,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPendingTableChangePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	pending, err := app.billing.GetPendingTableChangePayment(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.PendingTableChangePaymentResponse{
		ClientSecret:    pending.ClientSecret,
		PaymentIntentId: pending.PaymentIntentID,
		AmountDue:       pending.AmountDue,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CompleteTableChangePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CompleteTableChangePaymentRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	reservation, err := app.billing.CompleteTableChangePayment(r.Context(), id, input.PaymentIntentId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.writeReservation(w, r, http.StatusOK, reservation)
}

func (app *Application) reservationAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, id string) (*domain.Reservation, error)) {

	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := action(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.writeReservation(w, r, http.StatusOK, reservation)
}

func (app *Application) writeReservation(w http.ResponseWriter, r *http.Request, status int, reservation *domain.Reservation) {
	resp := api.ReservationResponse{
		Reservation: toApiReservation(reservation),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
