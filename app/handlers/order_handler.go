package handlers

import (
	"net/http"

	"github.com/openeire/openeire-api/app/helpers"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/render"
)

type OrderHandler struct {
	render   *render.Render
	orders   repositories.OrderRepository
	profiles repositories.ProfileRepository
}

func NewOrderHandler(render *render.Render, orders repositories.OrderRepository, profiles repositories.ProfileRepository) *OrderHandler {
	return &OrderHandler{
		render:   render,
		orders:   orders,
		profiles: profiles,
	}
}

// OrderHistory lists the caller's orders, newest first.
func (h *OrderHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := helpers.ClaimsFromContext(ctx)
	if !ok {
		writeError(h.render, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profiles.FindByUsername(ctx, claims.Username)
	if err != nil {
		log.Error().Err(err).Str("username", claims.Username).Msg("OrderHandler: failed to load profile")
		writeError(h.render, w, http.StatusInternalServerError, "Failed to load orders.")
		return
	}
	if profile == nil {
		writeSuccess(h.render, w, http.StatusOK, "No orders yet.", []models.Order{})
		return
	}

	orders, err := h.orders.FindByUserProfileID(ctx, profile.ID)
	if err != nil {
		log.Error().Err(err).Uint("profile_id", profile.ID).Msg("OrderHandler: failed to load orders")
		writeError(h.render, w, http.StatusInternalServerError, "Failed to load orders.")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	writeSuccess(h.render, w, http.StatusOK, "Orders loaded.", orders)
}
