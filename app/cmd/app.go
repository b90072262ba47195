package cmd

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openeire/openeire-api/app/configs"
	"github.com/openeire/openeire-api/app/handlers"
	"github.com/openeire/openeire-api/app/queue"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/openeire/openeire-api/app/routes"
	"github.com/openeire/openeire-api/app/services"
	"github.com/openeire/openeire-api/app/utils/renderer"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const accessTokenTTL = 15 * time.Minute

// application holds everything the commands share.
type application struct {
	env      configs.ENV
	db       *gorm.DB
	producer *queue.Producer

	orders   repositories.OrderRepository
	profiles repositories.ProfileRepository
	catalog  repositories.CatalogRepository

	calculator   *services.OrderCalculator
	payments     *services.PaymentService
	fulfillment  *services.FulfillmentService
	confirmation *services.ConfirmationService
	tokens       *services.TokenService
}

func newApplication(env configs.ENV) (*application, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	tokens, err := services.NewTokenService(env.JWT.Secret, accessTokenTTL)
	if err != nil {
		return nil, err
	}

	db, err := configs.OpenConnection(env.DB)
	if err != nil {
		return nil, err
	}

	app := &application{
		env:      env,
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		profiles: repositories.NewProfileRepository(db),
		catalog:  repositories.NewCatalogRepository(db),
		tokens:   tokens,
	}

	var retries services.FulfillmentRetryPublisher
	if env.Kafka.Enabled() {
		app.producer = queue.NewProducer(env.Kafka.Brokers, env.Kafka.FulfillmentRetryTopic)
		retries = app.producer
	} else {
		log.Warn().Msg("App: KAFKA_BROKERS not set, failed fulfillments need a manual fulfill run")
	}

	shipping := services.NewShippingResolver(app.catalog, repositories.NewShippingRuleRepository(db), env.Shipping.FallbackCost)
	gateway := services.NewStripeGateway(env.Stripe)

	app.calculator = services.NewOrderCalculator(app.catalog, shipping)
	app.payments = services.NewPaymentService(app.calculator, gateway, env.Stripe.Currency)
	app.fulfillment = services.NewFulfillmentService(env.Prodigi, app.catalog, app.orders, retries)
	app.confirmation = services.NewConfirmationService(services.ConfirmationDeps{
		Orders:        app.orders,
		Profiles:      app.profiles,
		Calculator:    app.calculator,
		Processor:     gateway,
		Notifier:      services.NewMailer(env.Mail),
		Fulfiller:     app.fulfillment,
		VerifyRetries: env.Stripe.VerifyRetries,
	})

	return app, nil
}

func (a *application) router() *routes.Handlers {
	rnd := renderer.New(a.env.AppEnv == "development")
	validate := validator.New()

	return &routes.Handlers{
		Checkout: handlers.NewCheckoutHandler(rnd, validate, a.payments, a.calculator),
		Webhook:  handlers.NewWebhookHandler(rnd, a.confirmation),
		Orders:   handlers.NewOrderHandler(rnd, a.orders, a.profiles),
	}
}

func (a *application) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Error().Err(err).Msg("App: failed to close kafka producer")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
