package services

import (
	"context"
	"sync"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeCatalog struct {
	photos    map[uint]*models.Photo
	videos    map[uint]*models.Video
	variants  map[uint]*models.ProductVariant
	templates []models.ProductTemplate
	err       error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		photos:   map[uint]*models.Photo{},
		videos:   map[uint]*models.Video{},
		variants: map[uint]*models.ProductVariant{},
	}
}

func (f *fakeCatalog) FindPhotoByID(_ context.Context, id uint) (*models.Photo, error) {
	return f.photos[id], f.err
}

func (f *fakeCatalog) FindVideoByID(_ context.Context, id uint) (*models.Video, error) {
	return f.videos[id], f.err
}

func (f *fakeCatalog) FindVariantByID(_ context.Context, id uint) (*models.ProductVariant, error) {
	return f.variants[id], f.err
}

func (f *fakeCatalog) FindVariantByPhotoMaterialSize(_ context.Context, photoID uint, material models.Material, size models.Size) (*models.ProductVariant, error) {
	for _, v := range f.variants {
		if v.PhotoID == photoID && v.Material == material && v.Size == size {
			return v, nil
		}
	}
	return nil, f.err
}

func (f *fakeCatalog) FindTemplateByMaterialSize(_ context.Context, material models.Material, size models.Size) (*models.ProductTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.templates {
		if f.templates[i].Material == material && f.templates[i].Size == size {
			return &f.templates[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetActiveTemplates(_ context.Context) ([]models.ProductTemplate, error) {
	return f.templates, f.err
}

func (f *fakeCatalog) CreatePhoto(_ context.Context, _ *gorm.DB, _ *models.Photo) error {
	return nil
}

func (f *fakeCatalog) CreateVariant(_ context.Context, _ *gorm.DB, _ *models.ProductVariant) error {
	return nil
}

func (f *fakeCatalog) BulkCreateVariants(_ context.Context, _ *gorm.DB, _ []models.ProductVariant) error {
	return nil
}

func (f *fakeCatalog) UpsertTemplate(_ context.Context, _ *models.ProductTemplate) error {
	return nil
}

var _ repositories.CatalogRepository = (*fakeCatalog)(nil)

type ruleKey struct {
	templateID uint
	country    string
	method     models.ShippingMethod
}

type fakeRules struct {
	costs map[ruleKey]decimal.Decimal
	err   error
}

func (f *fakeRules) FindRule(_ context.Context, templateID uint, country string, method models.ShippingMethod) (*models.ShippingRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	cost, ok := f.costs[ruleKey{templateID, country, method}]
	if !ok {
		return nil, nil
	}
	return &models.ShippingRule{TemplateID: templateID, Country: country, Method: method, Cost: cost}, nil
}

func (f *fakeRules) Upsert(_ context.Context, _ *models.ShippingRule) error {
	return nil
}

// fakeOrders enforces payment_intent_id uniqueness like the real table.
type fakeOrders struct {
	mu        sync.Mutex
	byPI      map[string]*models.Order
	createErr error
	updates   []models.FulfillmentStatus
	nextID    uint
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byPI: map[string]*models.Order{}}
}

func (f *fakeOrders) CreateOnce(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, false, f.createErr
	}
	if existing, ok := f.byPI[order.PaymentIntentID]; ok {
		return existing, false, nil
	}
	_ = order.BeforeCreate(nil)
	f.nextID++
	order.ID = f.nextID
	f.byPI[order.PaymentIntentID] = order
	return order, true, nil
}

func (f *fakeOrders) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPI[paymentIntentID], nil
}

func (f *fakeOrders) FindByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byPI {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) FindByUserProfileID(_ context.Context, profileID uint) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.byPI {
		if o.UserProfileID != nil && *o.UserProfileID == profileID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateFulfillment(_ context.Context, orderNumber string, status models.FulfillmentStatus, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, status)
	for _, o := range f.byPI {
		if o.OrderNumber == orderNumber {
			o.FulfillmentStatus = status
			if reference != "" {
				o.FulfillmentReference = reference
			}
		}
	}
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byPI)
}

type fakeProfiles struct {
	profiles map[string]*models.UserProfile
	updated  []models.UserProfile
}

func (f *fakeProfiles) FindByUsername(_ context.Context, username string) (*models.UserProfile, error) {
	if f.profiles == nil {
		return nil, nil
	}
	return f.profiles[username], nil
}

func (f *fakeProfiles) UpdateDefaults(_ context.Context, profile *models.UserProfile) error {
	f.updated = append(f.updated, *profile)
	return nil
}

type fakeProcessor struct {
	createFn   func(ctx context.Context, params PaymentIntentParams) (*AuthorizedPayment, error)
	parseFn    func(payload []byte, signature string) (*PaymentEvent, error)
	retrieveFn func(ctx context.Context, id string) (*ConfirmedPayment, error)
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*AuthorizedPayment, error) {
	return f.createFn(ctx, params)
}

func (f *fakeProcessor) ParseWebhookEvent(payload []byte, signature string) (*PaymentEvent, error) {
	return f.parseFn(payload, signature)
}

func (f *fakeProcessor) RetrievePayment(ctx context.Context, id string) (*ConfirmedPayment, error) {
	return f.retrieveFn(ctx, id)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, order.OrderNumber)
	return f.err
}

type fakeFulfiller struct {
	mu         sync.Mutex
	dispatched []string
	err        error
}

func (f *fakeFulfiller) Dispatch(_ context.Context, order *models.Order) (*FulfillmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, order.OrderNumber)
	if f.err != nil {
		return nil, f.err
	}
	return &FulfillmentResult{Reference: "ord_test"}, nil
}

type fakeRetryPublisher struct {
	published []string
}

func (f *fakeRetryPublisher) PublishFulfillmentRetry(_ context.Context, orderNumber, _ string) error {
	f.published = append(f.published, orderNumber)
	return nil
}

// testCatalog holds one print, one photo and one video.
//
//	variant 1: canvas A4 print of photo 10, €30, template 7
//	photo 10: hd €10, 4k €20
//	video 20: hd €25, 4k €45
func testCatalog() *fakeCatalog {
	c := newFakeCatalog()
	photo := &models.Photo{
		ID:          10,
		Title:       "Cliffs",
		HighResFile: "https://media.example.com/cliffs.tif",
		PriceHD:     dec("10"),
		Price4K:     dec("20"),
		IsActive:    true,
	}
	c.photos[10] = photo
	c.videos[20] = &models.Video{ID: 20, Title: "Skellig", PriceHD: dec("25"), Price4K: dec("45"), IsActive: true}
	c.variants[1] = &models.ProductVariant{
		ID:          1,
		PhotoID:     10,
		Photo:       photo,
		Material:    models.MaterialCanvas,
		Size:        models.SizeA4,
		Price:       dec("30"),
		ExternalSKU: "GLOBAL-CAN-A4",
		IsActive:    true,
	}
	c.templates = []models.ProductTemplate{
		{ID: 7, Material: models.MaterialCanvas, Size: models.SizeA4, ProductionCost: dec("12"), SKUSuffix: "CAN-A4", ExternalSKU: "GLOBAL-CAN-A4", IsActive: true},
	}
	return c
}

func testRules() *fakeRules {
	return &fakeRules{costs: map[ruleKey]decimal.Decimal{
		{7, "IE", models.ShippingStandard}: dec("5"),
		{7, "IE", models.ShippingBudget}:   dec("4"),
		{7, "US", models.ShippingStandard}: dec("12"),
	}}
}

func testCalculator() *OrderCalculator {
	catalog := testCatalog()
	return NewOrderCalculator(catalog, NewShippingResolver(catalog, testRules(), decimal.Zero))
}
