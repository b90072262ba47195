package configs

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecrets(t *testing.T) {
	first, err := GenerateSecrets()
	require.NoError(t, err)
	second, err := GenerateSecrets()
	require.NoError(t, err)

	assert.NotEqual(t, first.JWTSecret, second.JWTSecret)
	assert.True(t, strings.HasPrefix(first.WebhookSecret, "whsec_"))

	var buf bytes.Buffer
	require.NoError(t, first.WriteEnv(&buf))
	assert.Contains(t, buf.String(), "JWT_SECRET="+first.JWTSecret+"\n")
	assert.Contains(t, buf.String(), "STRIPE_WEBHOOK_SECRET="+first.WebhookSecret+"\n")
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PRODIGI_SANDBOX", "false")
	t.Setenv("SITE_URL", "https://shop.example.com/")
	t.Setenv("SHIPPING_FALLBACK_COST", "3.50")
	t.Setenv("STRIPE_TIMEOUT", "3s")
	t.Setenv("STRIPE_VERIFY_RETRIES", "nope")
	t.Setenv("PRODIGI_BASE_URL", "")

	env := LoadEnv()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, env.Kafka.Brokers)
	assert.True(t, env.Kafka.Enabled())
	assert.False(t, env.Prodigi.Sandbox)
	assert.Equal(t, prodigiLiveURL, env.Prodigi.BaseURL)
	assert.Equal(t, "https://shop.example.com", env.Prodigi.SiteURL)
	assert.Equal(t, "3.50", env.Shipping.FallbackCost.StringFixed(2))
	assert.Equal(t, 3*time.Second, env.Stripe.Timeout)
	assert.Equal(t, uint64(3), env.Stripe.VerifyRetries)
}

func TestLoadEnv_SandboxDefault(t *testing.T) {
	t.Setenv("PRODIGI_SANDBOX", "")
	t.Setenv("PRODIGI_BASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	env := LoadEnv()

	assert.True(t, env.Prodigi.Sandbox)
	assert.Equal(t, prodigiSandboxURL, env.Prodigi.BaseURL)
	assert.False(t, env.Kafka.Enabled())
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{Host: "db.internal", Port: "3307", User: "shop", Password: "p@ss:w/rd?x", Name: "openeire"}

	parsed, err := mysql.ParseDSN(cfg.DSN())

	require.NoError(t, err)
	assert.Equal(t, "shop", parsed.User)
	assert.Equal(t, "p@ss:w/rd?x", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "openeire", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
}

func TestENV_Validate(t *testing.T) {
	valid := ENV{
		JWT:    JWTConfig{Secret: "jwt"},
		Stripe: StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"},
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.JWT.Secret = ""
	missing.Stripe.WebhookSecret = "  "

	err := missing.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.NotContains(t, err.Error(), "STRIPE_SECRET_KEY")
}
