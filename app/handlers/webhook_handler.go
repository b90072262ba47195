package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/openeire/openeire-api/app/helpers"
	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/render"
)

const stripeSignatureHeader = "Stripe-Signature"

type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*services.ConfirmationResult, error)
}

type WebhookHandler struct {
	render    *render.Render
	processor WebhookProcessor
}

func NewWebhookHandler(render *render.Render, processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{render: render, processor: processor}
}

// Handle answers 400 for anything the processor should not redeliver as is
// and 500 when a redelivery may succeed.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, helpers.MaxBodyBytes))
	if err != nil {
		writeError(h.render, w, http.StatusBadRequest, "Unreadable payload.")
		return
	}

	// Confirmation runs to completion even if the sender hangs up.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.processor.HandleWebhook(ctx, payload, r.Header.Get(stripeSignatureHeader))
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("WebhookHandler: confirmation failed")
			writeError(h.render, w, status, "Webhook processing failed.")
			return
		}
		writeError(h.render, w, status, err.Error())
		return
	}

	data := map[string]interface{}{"outcome": result.Outcome}
	if result.Order != nil {
		data["order_number"] = result.Order.OrderNumber
	}
	writeSuccess(h.render, w, http.StatusOK, "Webhook processed.", data)
}
