package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/openeire/openeire-api/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmationFixture struct {
	svc       *ConfirmationService
	orders    *fakeOrders
	profiles  *fakeProfiles
	notifier  *fakeNotifier
	fulfiller *fakeFulfiller
	payment   *ConfirmedPayment
	retrieved int
	mu        sync.Mutex
}

func packedMetadata(t *testing.T, cart []CartItem, customer string, saveInfo bool, shipping string) map[string]string {
	t.Helper()
	md, err := PackCheckoutMetadata(CheckoutMetadata{
		Cart:           cart,
		Customer:       customer,
		SaveInfo:       saveInfo,
		ShippingCost:   dec(shipping),
		ShippingMethod: models.ShippingStandard,
		Country:        "IE",
	})
	require.NoError(t, err)
	return md
}

func newConfirmationFixture(t *testing.T, payment *ConfirmedPayment) *confirmationFixture {
	t.Helper()
	f := &confirmationFixture{
		orders:    newFakeOrders(),
		profiles:  &fakeProfiles{profiles: map[string]*models.UserProfile{"aoife": {ID: 5, Username: "aoife", DefaultTown: "Cork"}}},
		notifier:  &fakeNotifier{},
		fulfiller: &fakeFulfiller{},
		payment:   payment,
	}

	processor := &fakeProcessor{
		parseFn: func(payload []byte, signature string) (*PaymentEvent, error) {
			if signature != "valid" {
				return nil, ErrInvalidSignature
			}
			return &PaymentEvent{ID: "evt_1", Type: string(payload), Payment: &ConfirmedPayment{ID: payment.ID}}, nil
		},
		retrieveFn: func(context.Context, string) (*ConfirmedPayment, error) {
			f.mu.Lock()
			f.retrieved++
			f.mu.Unlock()
			return f.payment, nil
		},
	}

	f.svc = NewConfirmationService(ConfirmationDeps{
		Orders:        f.orders,
		Profiles:      f.profiles,
		Calculator:    testCalculator(),
		Processor:     processor,
		Notifier:      f.notifier,
		Fulfiller:     f.fulfiller,
		VerifyRetries: 2,
		NewBackOff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	return f
}

func physicalPayment(t *testing.T) *ConfirmedPayment {
	return &ConfirmedPayment{
		ID:           "pi_123",
		Status:       PaymentStatusSucceeded,
		AmountMinor:  7000,
		Currency:     "eur",
		ReceiptEmail: "aoife@example.com",
		Metadata:     packedMetadata(t, []CartItem{{ProductID: 1, ProductType: "physical_variant", Quantity: 2}}, "aoife", true, "10"),
		Shipping: ShippingDetails{
			Name:           "Aoife Byrne",
			Phone:          "+353861234567",
			StreetAddress1: "1 Main Street",
			Town:           "Galway",
			Postcode:       "H91 ABC1",
			Country:        "IE",
		},
	}
}

func digitalPayment(t *testing.T) *ConfirmedPayment {
	return &ConfirmedPayment{
		ID:          "pi_456",
		Status:      PaymentStatusSucceeded,
		AmountMinor: 2000,
		Metadata:    packedMetadata(t, []CartItem{{ProductID: 10, ProductType: "digital_photo", Quantity: 1, Options: map[string]any{"license": "4k"}}}, GuestCustomer, false, "0"),
	}
}

func TestConfirmPayment_CreatesOrder(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))

	result, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)

	order := result.Order
	assert.Equal(t, "pi_123", order.PaymentIntentID)
	assert.Equal(t, "aoife@example.com", order.Email)
	assert.Equal(t, "Aoife Byrne", order.FullName)
	assert.Equal(t, "IE", order.Country)
	assert.Equal(t, "60.00", order.OrderTotal.StringFixed(2))
	assert.Equal(t, "10.00", order.DeliveryCost.StringFixed(2))
	assert.Equal(t, "70.00", order.TotalPrice.StringFixed(2))
	assert.True(t, order.TotalPrice.Equal(order.OrderTotal.Add(order.DeliveryCost)))
	assert.Equal(t, models.FulfillmentPending, order.FulfillmentStatus)
	require.NotNil(t, order.UserProfileID)
	assert.Equal(t, uint(5), *order.UserProfileID)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, models.KindPhysicalVariant, item.ProductType)
	assert.Equal(t, "GLOBAL-CAN-A4", item.ExternalSKU)
	assert.Equal(t, "30.00", item.UnitPrice.StringFixed(2))

	assert.Equal(t, []string{order.OrderNumber}, f.notifier.sent)
	assert.Equal(t, []string{order.OrderNumber}, f.fulfiller.dispatched)

	require.Len(t, f.profiles.updated, 1)
	assert.Equal(t, "Galway", f.profiles.updated[0].DefaultTown)
	assert.Equal(t, "+353861234567", f.profiles.updated[0].DefaultPhoneNumber)
}

func TestConfirmPayment_DuplicateIsNoOp(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))

	first, err := f.svc.ConfirmPayment(context.Background(), "pi_123")
	require.NoError(t, err)
	second, err := f.svc.ConfirmPayment(context.Background(), "pi_123")
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.Order.OrderNumber, second.Order.OrderNumber)
	assert.Equal(t, 1, f.orders.count())
	assert.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.fulfiller.dispatched, 1)
	assert.Len(t, f.profiles.updated, 1)
}

func TestConfirmPayment_ConcurrentDeliveries(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))

	var wg sync.WaitGroup
	outcomes := make([]ConfirmationOutcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.ConfirmPayment(context.Background(), "pi_123")
			if assert.NoError(t, err) {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.orders.count())
	assert.Len(t, f.notifier.sent, 1)
	assert.Len(t, f.fulfiller.dispatched, 1)
}

func TestConfirmPayment_LongShippingAddress(t *testing.T) {
	payment := physicalPayment(t)
	payment.Shipping.Name = strings.Repeat("Ó", 200)
	payment.Shipping.StreetAddress1 = strings.Repeat("x", 300)
	payment.Shipping.Town = strings.Repeat("Baile ", 30)
	f := newConfirmationFixture(t, payment)

	result, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	order := result.Order
	assert.Equal(t, models.NameMaxLen, utf8.RuneCountInString(order.FullName))
	assert.Len(t, order.StreetAddress1, models.StreetMaxLen)
	assert.LessOrEqual(t, utf8.RuneCountInString(order.Town), models.TownMaxLen)
	assert.True(t, utf8.ValidString(order.FullName))

	require.Len(t, f.profiles.updated, 1)
	assert.Len(t, f.profiles.updated[0].DefaultStreetAddress1, models.StreetMaxLen)
}

func TestConfirmPayment_DigitalOnly(t *testing.T) {
	f := newConfirmationFixture(t, digitalPayment(t))

	result, err := f.svc.ConfirmPayment(context.Background(), "pi_456")

	require.NoError(t, err)
	assert.Equal(t, GuestEmail, result.Order.Email)
	assert.Nil(t, result.Order.UserProfileID)
	assert.True(t, result.Order.DeliveryCost.IsZero())
	assert.Equal(t, models.FulfillmentNotRequired, result.Order.FulfillmentStatus)
	assert.Equal(t, "4k", result.Order.Items[0].Options["license"])
	assert.Empty(t, f.fulfiller.dispatched)
	assert.Empty(t, f.profiles.updated)
}

func TestConfirmPayment_AuxiliaryFailuresDoNotFailOrder(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))
	f.notifier.err = errors.New("smtp down")
	f.fulfiller.err = &FulfillmentError{StatusCode: 502, Body: "bad gateway"}

	result, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 1, f.orders.count())
}

func TestConfirmPayment_ValidationFailureDoesNotPersist(t *testing.T) {
	payment := physicalPayment(t)
	payment.Metadata = packedMetadata(t, []CartItem{{ProductID: 999, ProductType: "photo", Quantity: 1}}, "aoife", true, "0")
	f := newConfirmationFixture(t, payment)

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, IsClientError(err))
	assert.Zero(t, f.orders.count())
	assert.Empty(t, f.profiles.updated)
	assert.Empty(t, f.notifier.sent)
}

func TestConfirmPayment_PersistFailureSkipsProfileUpdate(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))
	f.orders.createErr = errors.New("deadlock")

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Empty(t, f.profiles.updated)
	assert.Empty(t, f.notifier.sent)
}

func TestConfirmPayment_NotSucceeded(t *testing.T) {
	payment := physicalPayment(t)
	payment.Status = "processing"
	f := newConfirmationFixture(t, payment)

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	assert.ErrorIs(t, err, ErrPaymentNotSucceeded)
	assert.Zero(t, f.orders.count())
}

func TestConfirmPayment_VerificationRetries(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))
	calls := 0
	f.svc.deps.Processor = &fakeProcessor{
		retrieveFn: func(context.Context, string) (*ConfirmedPayment, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("stripe request failed: connection reset")
			}
			return f.payment, nil
		},
	}

	result, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 3, calls)
}

func TestConfirmPayment_RejectedVerificationIsNotRetried(t *testing.T) {
	f := newConfirmationFixture(t, physicalPayment(t))
	calls := 0
	f.svc.deps.Processor = &fakeProcessor{
		retrieveFn: func(context.Context, string) (*ConfirmedPayment, error) {
			calls++
			return nil, ErrProcessorRejected
		},
	}

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_123")

	assert.ErrorIs(t, err, ErrProcessorRejected)
	assert.Equal(t, 1, calls)
}

func TestHandleWebhook(t *testing.T) {
	t.Run("bad signature has no side effects", func(t *testing.T) {
		f := newConfirmationFixture(t, physicalPayment(t))

		_, err := f.svc.HandleWebhook(context.Background(), []byte(EventPaymentSucceeded), "forged")

		assert.ErrorIs(t, err, ErrInvalidSignature)
		assert.Zero(t, f.retrieved)
		assert.Zero(t, f.orders.count())
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		f := newConfirmationFixture(t, physicalPayment(t))

		result, err := f.svc.HandleWebhook(context.Background(), []byte("payment_intent.created"), "valid")

		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, result.Outcome)
		assert.Zero(t, f.orders.count())
	})

	t.Run("succeeded event creates order", func(t *testing.T) {
		f := newConfirmationFixture(t, physicalPayment(t))

		result, err := f.svc.HandleWebhook(context.Background(), []byte(EventPaymentSucceeded), "valid")

		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, result.Outcome)
		assert.Equal(t, 1, f.retrieved)
	})
}

func TestOrderEmail(t *testing.T) {
	assert.Equal(t, "r@example.com", orderEmail("r@example.com", "c@example.com"))
	assert.Equal(t, "c@example.com", orderEmail("", "c@example.com"))
	assert.Equal(t, GuestEmail, orderEmail("", "aoife"))
}

func TestApplyProfileDefaults_KeepsExistingWhenEmpty(t *testing.T) {
	profile := &models.UserProfile{DefaultTown: "Cork", DefaultPostcode: "T12"}

	applyProfileDefaults(profile, ShippingDetails{StreetAddress1: "2 Quay St", Country: "ie"})

	assert.Equal(t, "Cork", profile.DefaultTown)
	assert.Equal(t, "T12", profile.DefaultPostcode)
	assert.Equal(t, "2 Quay St", profile.DefaultStreetAddress1)
	assert.Equal(t, "IE", profile.DefaultCountry)
}
