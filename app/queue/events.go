package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
)

type FulfillmentRetryEvent struct {
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failed_at"`
}

type Redispatcher interface {
	Redispatch(ctx context.Context, orderNumber string) (*services.FulfillmentResult, error)
}

// FulfillmentRetryHandler re-submits the order named by each retry event.
// A failed attempt is logged and left for the next event or a manual
// fulfill run.
func FulfillmentRetryHandler(fulfiller Redispatcher) MessageHandler {
	return func(ctx context.Context, _, value []byte) error {
		var event FulfillmentRetryEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("failed to decode fulfillment retry event: %w", err)
		}
		if event.OrderNumber == "" {
			return fmt.Errorf("fulfillment retry event without order number")
		}

		result, err := fulfiller.Redispatch(ctx, event.OrderNumber)
		if err != nil {
			return fmt.Errorf("redispatch %s: %w", event.OrderNumber, err)
		}

		ref := ""
		if result != nil {
			ref = result.Reference
		}
		log.Info().Str("order_number", event.OrderNumber).Str("reference", ref).Msg("Consumer: fulfillment retried")
		return nil
	}
}
