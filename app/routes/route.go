package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openeire/openeire-api/app/handlers"
	"github.com/openeire/openeire-api/app/middlewares"
)

type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Orders   *handlers.OrderHandler
}

func NewRouter(h Handlers, tokens middlewares.TokenValidator) *mux.Router {
	router := mux.NewRouter()
	router.Use(middlewares.Recoverer, middlewares.RequestLogger)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	checkout := router.PathPrefix("/api/checkout").Subrouter()

	// Signed by the processor, never by a user token.
	checkout.HandleFunc("/webhook/", h.Webhook.Handle).Methods(http.MethodPost)

	public := checkout.NewRoute().Subrouter()
	public.Use(middlewares.OptionalAuthMiddleware(tokens))
	public.HandleFunc("/create-payment-intent/", h.Checkout.CreatePaymentIntent).Methods(http.MethodPost)
	public.HandleFunc("/quote/", h.Checkout.Quote).Methods(http.MethodPost)

	private := checkout.NewRoute().Subrouter()
	private.Use(middlewares.AuthMiddleware(tokens))
	private.HandleFunc("/order-history/", h.Orders.OrderHistory).Methods(http.MethodGet)

	return router
}
