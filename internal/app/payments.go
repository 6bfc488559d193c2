package app

import (
	"net/http"

	"github.com/trebla915/web1111-sub002/api"
	"github.com/trebla915/web1111-sub002/internal/billing"
)

func (app *Application) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.CreatePaymentIntentRequest

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

	result, err := app.billing.CreatePaymentIntent(r.Context(), billing.CreatePaymentIntentInput{
		Amount:        input.Amount,
		ReservationID: input.ReservationId,
		EventID:       input.EventId,
		UserID:        input.UserId,
		Metadata:      input.Metadata,
	})
	if err != nil {
		logger.Warn("payment intent was not created", "reservation_id", input.ReservationId, "error", err)
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.CreatePaymentIntentResponse{
		ClientSecret: result.ClientSecret,
		PaymentId:    result.PaymentID,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	status, err := app.billing.GetPaymentStatus(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentStatusResponse{
		Status:             string(status.Status),
		Amount:             status.Amount,
		ReservationId:      status.ReservationID,
		ReservationCreated: status.ReservationCreated,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ConfirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.billing.ConfirmPayment(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	app.writeReservation(w, r, http.StatusOK, reservation)
}
