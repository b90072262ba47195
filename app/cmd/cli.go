package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openeire/openeire-api/app/configs"
	"github.com/openeire/openeire-api/app/db/seeders"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/models/migrations"
	"github.com/openeire/openeire-api/app/queue"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/openeire/openeire-api/app/routes"
	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func RunCli(env configs.ENV) {
	if err := newCommand(env).Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("CLI: command failed")
	}
}

func newCommand(env configs.ENV) *cli.Command {
	return &cli.Command{
		Name:  "openeire-api",
		Usage: "Checkout, payment confirmation and print fulfillment API",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, env)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, env)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := configs.OpenConnection(env.DB)
					if err != nil {
						return err
					}
					if err := migrations.AutoMigrate(db); err != nil {
						return err
					}
					log.Info().Msg("CLI: migration complete")
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "Seed print templates, shipping rules and sample media",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := configs.OpenConnection(env.DB)
					if err != nil {
						return err
					}
					if err := seeders.DBSeed(ctx, db); err != nil {
						return err
					}
					log.Info().Msg("CLI: seeding complete")
					return nil
				},
			},
			{
				Name:  "fulfill",
				Usage: "Re-submit a persisted order to the print partner",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "order",
						Usage:    "order number to submit",
						Required: true,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					app, err := newApplication(env)
					if err != nil {
						return err
					}
					defer app.Close()

					result, err := app.fulfillment.Redispatch(ctx, c.String("order"))
					if err != nil {
						return err
					}
					if result == nil {
						log.Info().Str("order_number", c.String("order")).Msg("CLI: order has nothing to print")
						return nil
					}
					log.Info().Str("order_number", c.String("order")).Str("reference", result.Reference).Msg("CLI: order submitted")
					return nil
				},
			},
			{
				Name:  "fulfillment-worker",
				Usage: "Consume fulfillment retry events from Kafka",
				Action: func(ctx context.Context, c *cli.Command) error {
					if !env.Kafka.Enabled() {
						return errors.New("KAFKA_BROKERS is not set")
					}
					app, err := newApplication(env)
					if err != nil {
						return err
					}
					defer app.Close()

					ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
					defer stop()

					consumer := queue.NewConsumer(env.Kafka.Brokers, env.Kafka.FulfillmentRetryTopic, env.Kafka.ConsumerGroup)
					defer consumer.Close()

					log.Info().Str("topic", env.Kafka.FulfillmentRetryTopic).Msg("CLI: fulfillment worker started")
					err = consumer.Consume(ctx, queue.FulfillmentRetryHandler(app.fulfillment))
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				},
			},
			{
				Name:  "add-variant",
				Usage: "Add a single print variant for an existing photo",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "photo", Usage: "photo id", Required: true},
					&cli.StringFlag{Name: "material", Usage: "canvas or framed", Required: true},
					&cli.StringFlag{Name: "size", Usage: "A4, A3 or A2", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := configs.OpenConnection(env.DB)
					if err != nil {
						return err
					}
					return addVariant(ctx, db, uint(c.Uint("photo")), c.String("material"), c.String("size"))
				},
			},
			{
				Name:  "issue-token",
				Usage: "Mint an access token for local testing of authenticated routes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Usage: "user id claim", Required: true},
					&cli.StringFlag{Name: "username", Usage: "username claim", Required: true},
					&cli.StringFlag{Name: "email", Usage: "email claim"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					tokens, err := services.NewTokenService(env.JWT.Secret, accessTokenTTL)
					if err != nil {
						return err
					}
					token, expiresAt, err := tokens.GenerateAccessToken(c.String("user-id"), c.String("username"), c.String("email"))
					if err != nil {
						return err
					}
					log.Info().Time("expires_at", expiresAt).Str("username", c.String("username")).Msg("CLI: token issued")
					fmt.Fprintln(c.Root().Writer, token)
					return nil
				},
			},
			{
				Name:  "generate-keys",
				Usage: "Generate JWT and webhook secrets for .env",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := configs.GenerateAndWriteSecrets(".env.new_keys"); err != nil {
						return err
					}
					log.Info().Msg("CLI: keys written to .env.new_keys, copy them to your .env file")
					return nil
				},
			},
		},
	}
}

func addVariant(ctx context.Context, db *gorm.DB, photoID uint, material, size string) error {
	catalog := services.NewCatalogService(db, repositories.NewCatalogRepository(db))

	variant, err := catalog.CreateVariant(ctx,
		photoID,
		models.Material(strings.ToLower(material)),
		models.Size(strings.ToUpper(size)),
	)
	if err != nil {
		return err
	}
	log.Info().
		Uint("variant_id", variant.ID).
		Str("sku", variant.InternalSKU).
		Str("price", variant.Price.StringFixed(2)).
		Msg("CLI: variant created")
	return nil
}

func serve(ctx context.Context, env configs.ENV) error {
	app, err := newApplication(env)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         env.Port,
		Handler:      routes.NewRouter(*app.router(), app.tokens),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server: starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Info().Msg("Server: stopped")
	return nil
}
