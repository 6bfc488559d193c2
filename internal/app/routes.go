package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/trebla915/web1111-sub002/internal/middleware"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(middleware.NotFoundHandler)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler)

	r.Use(chimiddleware.RequestID)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(chimiddleware.Logger)
	r.Use(middleware.RecoverPanic)
	r.Use(app.requestLogger)

	r.Get("/healthcheck", app.GetHealth)

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/quote", app.QuoteReservationHandler)
		r.Post("/", app.CreateReservationHandler)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetReservationHandler)
			r.Post("/check-in", app.CheckInReservationHandler)
			r.Post("/cancel", app.CancelReservationHandler)
			r.Put("/table", app.ChangeTableHandler)
			r.Get("/pending-table-change-payment", app.GetPendingTableChangePaymentHandler)
			r.Post("/complete-table-change-payment", app.CompleteTableChangePaymentHandler)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create-payment-intent", app.CreatePaymentIntentHandler)
		r.Get("/{id}/status", app.GetPaymentStatusHandler)
		r.Post("/{id}/confirm", app.ConfirmPaymentHandler)
	})

	r.Post("/webhook/stripe", app.StripeWebhookHandler)

	return r
}
