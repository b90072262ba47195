package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/openeire/openeire-api/app/utils/calc"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const GuestEmail = "guest@example.com"

type ConfirmationOutcome string

const (
	OutcomeCreated   ConfirmationOutcome = "created"
	OutcomeDuplicate ConfirmationOutcome = "duplicate"
	OutcomeIgnored   ConfirmationOutcome = "ignored"
)

type ConfirmationResult struct {
	Outcome ConfirmationOutcome
	Order   *models.Order
}

type ConfirmationDeps struct {
	Orders     repositories.OrderRepository
	Profiles   repositories.ProfileRepository
	Calculator TotalsCalculator
	Processor  PaymentProcessor
	Notifier   OrderNotifier
	Fulfiller  OrderFulfiller

	// VerifyRetries bounds retries of the payment verification call.
	VerifyRetries uint64
	// NewBackOff overrides the retry schedule. Nil means exponential.
	NewBackOff func() backoff.BackOff
}

// ConfirmationService turns a succeeded payment into exactly one order.
type ConfirmationService struct {
	deps ConfirmationDeps
}

func NewConfirmationService(deps ConfirmationDeps) *ConfirmationService {
	if deps.NewBackOff == nil {
		deps.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		}
	}
	return &ConfirmationService{deps: deps}
}

// HandleWebhook authenticates the raw event before anything in it is trusted.
func (s *ConfirmationService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*ConfirmationResult, error) {
	event, err := s.deps.Processor.ParseWebhookEvent(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("ConfirmationService: webhook rejected")
		return nil, err
	}

	if event.Type != EventPaymentSucceeded || event.Payment == nil {
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("ConfirmationService: ignoring webhook event")
		return &ConfirmationResult{Outcome: OutcomeIgnored}, nil
	}

	return s.ConfirmPayment(ctx, event.Payment.ID)
}

// ConfirmPayment is safe to call any number of times for the same payment.
func (s *ConfirmationService) ConfirmPayment(ctx context.Context, paymentIntentID string) (*ConfirmationResult, error) {
	existing, err := s.deps.Orders.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order for payment %s: %w", paymentIntentID, err)
	}
	if existing != nil {
		log.Info().Str("payment_intent_id", paymentIntentID).Str("order_number", existing.OrderNumber).Msg("ConfirmationService: order already exists, skipping")
		return &ConfirmationResult{Outcome: OutcomeDuplicate, Order: existing}, nil
	}

	payment, err := s.verifyPayment(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	md, err := UnpackCheckoutMetadata(payment.Metadata)
	if err != nil {
		log.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ConfirmationService: unreadable payment metadata")
		return nil, err
	}

	order, err := s.buildOrder(ctx, payment, md)
	if err != nil {
		log.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ConfirmationService: failed to rebuild order")
		return nil, err
	}

	var profile *models.UserProfile
	if md.Customer != GuestCustomer {
		profile, err = s.deps.Profiles.FindByUsername(ctx, md.Customer)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %q: %w", md.Customer, err)
		}
		if profile != nil {
			order.UserProfileID = &profile.ID
		}
	}

	saved, created, err := s.deps.Orders.CreateOnce(ctx, order)
	if err != nil {
		log.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ConfirmationService: failed to persist order")
		return nil, err
	}
	if !created {
		log.Info().Str("payment_intent_id", paymentIntentID).Str("order_number", saved.OrderNumber).Msg("ConfirmationService: concurrent delivery already created the order")
		return &ConfirmationResult{Outcome: OutcomeDuplicate, Order: saved}, nil
	}

	log.Info().
		Str("payment_intent_id", paymentIntentID).
		Str("order_number", saved.OrderNumber).
		Str("total", saved.TotalPrice.StringFixed(2)).
		Msg("ConfirmationService: order created")

	s.afterCreate(ctx, saved, profile, md.SaveInfo, payment.Shipping)

	return &ConfirmationResult{Outcome: OutcomeCreated, Order: saved}, nil
}

// afterCreate runs the auxiliary steps. None of them can undo the order.
func (s *ConfirmationService) afterCreate(ctx context.Context, order *models.Order, profile *models.UserProfile, saveInfo bool, shipping ShippingDetails) {
	if saveInfo && profile != nil {
		applyProfileDefaults(profile, shipping)
		if err := s.deps.Profiles.UpdateDefaults(ctx, profile); err != nil {
			log.Error().Err(err).Str("username", profile.Username).Msg("ConfirmationService: failed to save profile defaults")
		}
	}

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.SendOrderConfirmation(ctx, order); err != nil {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("ConfirmationService: confirmation email failed")
		}
	}

	if order.HasPhysicalItems() && s.deps.Fulfiller != nil {
		if _, err := s.deps.Fulfiller.Dispatch(ctx, order); err != nil {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("ConfirmationService: fulfillment dispatch failed, left for retry")
		}
	}
}

func (s *ConfirmationService) verifyPayment(ctx context.Context, paymentIntentID string) (*ConfirmedPayment, error) {
	var payment *ConfirmedPayment
	operation := func() error {
		p, err := s.deps.Processor.RetrievePayment(ctx, paymentIntentID)
		if err != nil {
			if errors.Is(err, ErrProcessorRejected) {
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Str("payment_intent_id", paymentIntentID).Msg("ConfirmationService: payment verification failed, retrying")
			return err
		}
		payment = p
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.deps.NewBackOff(), s.deps.VerifyRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to verify payment %s: %w", paymentIntentID, err)
	}

	if payment.Status != PaymentStatusSucceeded {
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentNotSucceeded, paymentIntentID, payment.Status)
	}
	return payment, nil
}

func (s *ConfirmationService) buildOrder(ctx context.Context, payment *ConfirmedPayment, md *CheckoutMetadata) (*models.Order, error) {
	shipping := payment.Shipping
	country := models.NormalizeCountry(shipping.Country)
	if country == "" {
		country = md.Country
	}

	totals, err := s.deps.Calculator.ComputeTotals(ctx, md.Cart, country, string(md.ShippingMethod))
	if err != nil {
		return nil, err
	}

	deliveryCost := totals.ShippingTotal
	if md.HasShippingCost {
		if !md.ShippingCost.Equal(totals.ShippingTotal) {
			log.Warn().
				Str("payment_intent_id", payment.ID).
				Str("packed", md.ShippingCost.StringFixed(2)).
				Str("recomputed", totals.ShippingTotal.StringFixed(2)).
				Msg("ConfirmationService: shipping cost changed since authorization, keeping the charged amount")
		}
		deliveryCost = md.ShippingCost
	}

	charged := calc.FromMinorUnits(payment.AmountMinor)
	if expected := calc.CalculateGrandTotal(totals.Subtotal, deliveryCost); !expected.Equal(charged) {
		log.Warn().
			Str("payment_intent_id", payment.ID).
			Str("charged", charged.StringFixed(2)).
			Str("expected", expected.StringFixed(2)).
			Msg("ConfirmationService: captured amount differs from recomputed total")
	}

	order := &models.Order{
		FullName:        shipping.Name,
		Email:           orderEmail(payment.ReceiptEmail, md.Customer),
		PhoneNumber:     shipping.Phone,
		StreetAddress1:  shipping.StreetAddress1,
		StreetAddress2:  shipping.StreetAddress2,
		Town:            shipping.Town,
		County:          shipping.County,
		Postcode:        shipping.Postcode,
		Country:         country,
		ShippingMethod:  totals.ShippingMethod,
		DeliveryCost:    deliveryCost,
		OrderTotal:      totals.Subtotal,
		TotalPrice:      calc.CalculateGrandTotal(totals.Subtotal, deliveryCost),
		PaymentIntentID: payment.ID,
		Items:           make([]models.OrderItem, 0, len(totals.Lines)),
	}

	for _, line := range totals.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductType:  line.Product.Kind,
			ProductID:    line.Product.ID,
			ProductTitle: line.Title,
			ExternalSKU:  line.ExternalSKU,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			ItemTotal:    line.ItemTotal,
			Options:      datatypes.JSONMap(line.Options),
		})
	}

	order.FulfillmentStatus = models.FulfillmentNotRequired
	if order.HasPhysicalItems() {
		order.FulfillmentStatus = models.FulfillmentPending
	}
	return order, nil
}

func orderEmail(receipt, customer string) string {
	if strings.Contains(receipt, "@") {
		return receipt
	}
	if strings.Contains(customer, "@") {
		return customer
	}
	return GuestEmail
}

// applyProfileDefaults overwrites only the fields the payment actually carried.
func applyProfileDefaults(profile *models.UserProfile, shipping ShippingDetails) {
	set := func(dst *string, v string, width int) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = models.Clip(v, width)
		}
	}
	set(&profile.DefaultPhoneNumber, shipping.Phone, models.PhoneMaxLen)
	set(&profile.DefaultStreetAddress1, shipping.StreetAddress1, models.StreetMaxLen)
	set(&profile.DefaultStreetAddress2, shipping.StreetAddress2, models.StreetMaxLen)
	set(&profile.DefaultTown, shipping.Town, models.TownMaxLen)
	set(&profile.DefaultCounty, shipping.County, models.CountyMaxLen)
	set(&profile.DefaultPostcode, shipping.Postcode, models.PostcodeMaxLen)
	set(&profile.DefaultCountry, models.NormalizeCountry(shipping.Country), 2)
}
