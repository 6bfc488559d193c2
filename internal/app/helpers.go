package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/trebla915/web1111-sub002/api"
	"github.com/trebla915/web1111-sub002/internal/domain"
	"github.com/trebla915/web1111-sub002/internal/jsonutil"
)

type contextKey string

const loggerContextKey = contextKey("logger")

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	return jsonutil.WriteJSON(w, status, data, headers)
}

func (app *Application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return jsonutil.ReadJSON(w, r, dst)
}

func (app *Application) contextSetLogger(r *http.Request, logger *slog.Logger) *http.Request {
	ctx := context.WithValue(r.Context(), loggerContextKey, logger)
	return r.WithContext(ctx)
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}

func (app *Application) readIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", errors.New("id must not be empty")
	}

	return id, nil
}

func toApiLineItems(items []domain.LineItem) []api.LineItem {
	resp := make([]api.LineItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, api.LineItem{Id: item.ID, Name: item.Name, Price: item.Price})
	}

	return resp
}

func toApiReservation(res *domain.Reservation) api.Reservation {
	return api.Reservation{
		Id:            res.ID,
		EventId:       res.EventID,
		TableId:       res.TableID,
		TableNumber:   res.TableNumber,
		GuestCount:    res.GuestCount,
		Bottles:       toApiLineItems(res.Bottles),
		Mixers:        toApiLineItems(res.Mixers),
		TotalAmount:   res.TotalAmount,
		Status:        string(res.Status),
		PaymentId:     res.PaymentID,
		PaymentStatus: string(res.PaymentStatus),
		UserId:        res.UserID,

		PendingTableChangePaymentIntentId: res.PendingTableChangePaymentIntentID,
		PendingTableChangeAmount:          res.PendingTableChangeAmount,
		TableChangeInvoiceId:              res.TableChangeInvoiceID,
		TableChangeAmount:                 res.TableChangeAmount,

		CreatedAt: res.CreatedAt,
		UpdatedAt: res.UpdatedAt,
	}
}
