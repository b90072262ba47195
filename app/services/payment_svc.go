package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/utils/calc"
	"github.com/rs/zerolog/log"
)

type ShippingDetails struct {
	Name           string `json:"name" validate:"max=100"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone" validate:"max=20"`
	StreetAddress1 string `json:"street_address1" validate:"max=80"`
	StreetAddress2 string `json:"street_address2" validate:"max=80"`
	Town           string `json:"town" validate:"max=40"`
	County         string `json:"county" validate:"max=80"`
	Postcode       string `json:"postcode" validate:"max=20"`
	Country        string `json:"country" validate:"omitempty,len=2"`
}

func (s ShippingDetails) HasAddress() bool {
	return s.Name != "" && s.StreetAddress1 != ""
}

type PaymentIntentRequest struct {
	Cart            []CartItem      `json:"cart" validate:"required,min=1,dive"`
	ShippingDetails ShippingDetails `json:"shipping_details"`
	ShippingMethod  string          `json:"shipping_method" validate:"omitempty,oneof=budget standard express"`
	SaveInfo        bool            `json:"save_info"`
}

type PaymentIntentResult struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Totals          *Totals `json:"totals"`
}

// PaymentIntentParams is what the processor is asked to authorize.
type PaymentIntentParams struct {
	AmountMinor  int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
	Shipping     *ShippingDetails
}

type AuthorizedPayment struct {
	ID           string
	ClientSecret string
}

// ConfirmedPayment is the processor's view of a payment at confirmation time.
type ConfirmedPayment struct {
	ID           string
	Status       string
	AmountMinor  int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
	Shipping     ShippingDetails
}

type PaymentEvent struct {
	ID      string
	Type    string
	Payment *ConfirmedPayment
}

const (
	EventPaymentSucceeded  = "payment_intent.succeeded"
	PaymentStatusSucceeded = "succeeded"
)

type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*AuthorizedPayment, error)
	ParseWebhookEvent(payload []byte, signature string) (*PaymentEvent, error)
	RetrievePayment(ctx context.Context, paymentIntentID string) (*ConfirmedPayment, error)
}

type PaymentService struct {
	calculator TotalsCalculator
	processor  PaymentProcessor
	currency   string
}

func NewPaymentService(calculator TotalsCalculator, processor PaymentProcessor, currency string) *PaymentService {
	return &PaymentService{
		calculator: calculator,
		processor:  processor,
		currency:   currency,
	}
}

// CreatePaymentIntent prices the cart server-side and authorizes the grand
// total. The whole validated cart rides along as payment metadata.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest, customer string) (*PaymentIntentResult, error) {
	country := models.NormalizeCountry(req.ShippingDetails.Country)

	totals, err := s.calculator.ComputeTotals(ctx, req.Cart, country, req.ShippingMethod)
	if err != nil {
		return nil, err
	}
	if !totals.GrandTotal.IsPositive() {
		return nil, ErrInvalidAmount
	}

	metadata, err := PackCheckoutMetadata(CheckoutMetadata{
		Cart:           totals.Cart(),
		Customer:       customer,
		SaveInfo:       req.SaveInfo,
		ShippingCost:   totals.ShippingTotal,
		ShippingMethod: totals.ShippingMethod,
		Country:        country,
	})
	if err != nil {
		return nil, err
	}

	params := PaymentIntentParams{
		AmountMinor:  calc.ToMinorUnits(totals.GrandTotal),
		Currency:     s.currency,
		ReceiptEmail: receiptEmail(req.ShippingDetails.Email, customer),
		Metadata:     metadata,
	}
	if req.ShippingDetails.HasAddress() {
		shipping := req.ShippingDetails
		shipping.Country = country
		params.Shipping = &shipping
	}

	authorized, err := s.processor.CreatePaymentIntent(ctx, params)
	if err != nil {
		log.Error().Err(err).Int64("amount", params.AmountMinor).Msg("PaymentService: failed to create payment intent")
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	log.Info().
		Str("payment_intent_id", authorized.ID).
		Int64("amount", params.AmountMinor).
		Str("currency", s.currency).
		Int("lines", len(totals.Lines)).
		Msg("PaymentService: payment intent created")

	return &PaymentIntentResult{
		ClientSecret:    authorized.ClientSecret,
		PaymentIntentID: authorized.ID,
		Totals:          totals,
	}, nil
}

func receiptEmail(shippingEmail, customer string) string {
	if strings.Contains(shippingEmail, "@") {
		return shippingEmail
	}
	if strings.Contains(customer, "@") {
		return customer
	}
	return ""
}
