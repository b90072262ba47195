package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ENV struct {
	AppEnv   string
	LogLevel string
	Port     string

	DB       DBConfig
	Stripe   StripeConfig
	Prodigi  ProdigiConfig
	Mail     MailConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Shipping ShippingConfig
}

type DBConfig struct {
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	MaxRetries int
	RetryDelay time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
	VerifyRetries uint64
}

type ProdigiConfig struct {
	APIKey  string
	Sandbox bool
	BaseURL string
	SiteURL string
	Timeout time.Duration
}

type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers               []string
	FulfillmentRetryTopic string
	ConsumerGroup         string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type JWTConfig struct {
	Secret string
}

type ShippingConfig struct {
	// FallbackCost is charged per unit when no shipping rule matches.
	FallbackCost decimal.Decimal
}

const (
	prodigiSandboxURL = "https://api.sandbox.prodigi.com/v4.0/"
	prodigiLiveURL    = "https://api.prodigi.com/v4.0/"
)

func LoadEnv() ENV {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Msg("configs: no .env file found, using process environment")
	}

	sandbox := getEnvBool("PRODIGI_SANDBOX", true)
	prodigiURL := prodigiLiveURL
	if sandbox {
		prodigiURL = prodigiSandboxURL
	}

	fallback, err := decimal.NewFromString(getEnv("SHIPPING_FALLBACK_COST", "0"))
	if err != nil {
		log.Warn().Err(err).Msg("configs: invalid SHIPPING_FALLBACK_COST, using 0")
		fallback = decimal.Zero
	}

	return ENV{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("APP_PORT", ":8080"),
		DB: DBConfig{
			Host:       getEnv("DB_HOST", "127.0.0.1"),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       os.Getenv("DB_NAME"),
			Port:       getEnv("DB_PORT", "3306"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 10),
			RetryDelay: getEnvDuration("DB_RETRY_DELAY", 5*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      getEnv("STRIPE_CURRENCY", "eur"),
			Timeout:       getEnvDuration("STRIPE_TIMEOUT", 10*time.Second),
			VerifyRetries: uint64(getEnvInt("STRIPE_VERIFY_RETRIES", 3)),
		},
		Prodigi: ProdigiConfig{
			APIKey:  os.Getenv("PRODIGI_API_KEY"),
			Sandbox: sandbox,
			BaseURL: getEnv("PRODIGI_BASE_URL", prodigiURL),
			SiteURL: strings.TrimRight(getEnv("SITE_URL", "http://127.0.0.1:8000"), "/"),
			Timeout: getEnvDuration("PRODIGI_TIMEOUT", 15*time.Second),
		},
		Mail: MailConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     getEnv("EMAIL_PORT", "587"),
			Username: os.Getenv("EMAIL_USERNAME"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			From:     getEnv("EMAIL_FROM", os.Getenv("EMAIL_USERNAME")),
		},
		Kafka: KafkaConfig{
			Brokers:               splitList(os.Getenv("KAFKA_BROKERS")),
			FulfillmentRetryTopic: getEnv("KAFKA_FULFILLMENT_RETRY_TOPIC", "fulfillment.retry"),
			ConsumerGroup:         getEnv("KAFKA_CONSUMER_GROUP", "openeire-fulfillment"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Shipping: ShippingConfig{
			FallbackCost: fallback,
		},
	}
}

// Validate reports the secrets the API cannot run without.
func (e ENV) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"JWT_SECRET", e.JWT.Secret},
		{"STRIPE_SECRET_KEY", e.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", e.Stripe.WebhookSecret},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
