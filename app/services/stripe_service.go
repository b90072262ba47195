package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openeire/openeire-api/app/configs"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway talks to Stripe with its own API client, so credentials are
// never read from the package-level stripe.Key.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(cfg configs.StripeConfig) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, stripe.NewBackends(httpClient)),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (*AuthorizedPayment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if s := p.Shipping; s != nil {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:  stripe.String(s.Name),
			Phone: stripe.String(s.Phone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(s.StreetAddress1),
				Line2:      stripe.String(s.StreetAddress2),
				City:       stripe.String(s.Town),
				State:      stripe.String(s.County),
				PostalCode: stripe.String(s.Postcode),
				Country:    stripe.String(s.Country),
			},
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &AuthorizedPayment{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header before decoding anything.
func (g *StripeGateway) ParseWebhookEvent(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: payment intent payload: %v", ErrInvalidMetadata, err)
	}
	out.Payment = confirmedPaymentFromStripe(&pi)
	return out, nil
}

func (g *StripeGateway) RetrievePayment(ctx context.Context, paymentIntentID string) (*ConfirmedPayment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return confirmedPaymentFromStripe(pi), nil
}

func confirmedPaymentFromStripe(pi *stripe.PaymentIntent) *ConfirmedPayment {
	out := &ConfirmedPayment{
		ID:           pi.ID,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
	}
	if pi.Shipping != nil {
		out.Shipping.Name = pi.Shipping.Name
		out.Shipping.Phone = pi.Shipping.Phone
		if addr := pi.Shipping.Address; addr != nil {
			out.Shipping.StreetAddress1 = addr.Line1
			out.Shipping.StreetAddress2 = addr.Line2
			out.Shipping.Town = addr.City
			out.Shipping.County = addr.State
			out.Shipping.Postcode = addr.PostalCode
			out.Shipping.Country = addr.Country
		}
	}
	return out
}

// classifyStripeError marks 4xx answers as permanent rejections. Everything
// else, network failures included, is left as a plain error.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 && stripeErr.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrProcessorRejected, stripeErr.Msg)
	}
	return fmt.Errorf("stripe request failed: %w", err)
}
