package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/openeire/openeire-api/app/helpers"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/render"
)

type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, req services.PaymentIntentRequest, customer string) (*services.PaymentIntentResult, error)
}

type CheckoutHandler struct {
	render     *render.Render
	validator  *validator.Validate
	payments   PaymentIntentCreator
	calculator services.TotalsCalculator
}

func NewCheckoutHandler(
	render *render.Render,
	validator *validator.Validate,
	payments PaymentIntentCreator,
	calculator services.TotalsCalculator,
) *CheckoutHandler {
	return &CheckoutHandler{
		render:     render,
		validator:  validator,
		payments:   payments,
		calculator: calculator,
	}
}

func (h *CheckoutHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*services.PaymentIntentRequest, bool) {
	var req services.PaymentIntentRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("CheckoutHandler: bad request body")
		writeError(h.render, w, http.StatusBadRequest, "Invalid request payload.")
		return nil, false
	}
	if err := h.validator.Struct(req); err != nil {
		writeValidationError(h.render, w, err)
		return nil, false
	}

	if claims, ok := helpers.ClaimsFromContext(r.Context()); ok && req.ShippingDetails.Email == "" {
		req.ShippingDetails.Email = claims.Email
	}
	return &req, true
}

// CreatePaymentIntent prices the cart and returns the client secret for it.
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	customer := helpers.CustomerFromContext(r.Context())

	result, err := h.payments.CreatePaymentIntent(r.Context(), *req, customer)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusBadRequest {
			log.Warn().Err(err).Str("customer", customer).Msg("CheckoutHandler: cart rejected")
			writeError(h.render, w, status, err.Error())
			return
		}
		log.Error().Err(err).Str("customer", customer).Msg("CheckoutHandler: failed to create payment intent")
		writeError(h.render, w, status, "Could not start payment. Please try again.")
		return
	}

	writeSuccess(h.render, w, http.StatusOK, "Payment intent created.", result)
}

// Quote returns the server-side totals without authorizing anything.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	totals, err := h.calculator.ComputeTotals(r.Context(), req.Cart, models.NormalizeCountry(req.ShippingDetails.Country), req.ShippingMethod)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusBadRequest {
			writeError(h.render, w, status, err.Error())
			return
		}
		log.Error().Err(err).Msg("CheckoutHandler: failed to compute quote")
		writeError(h.render, w, status, "Could not compute totals.")
		return
	}

	writeSuccess(h.render, w, http.StatusOK, "Totals computed.", totals)
}
