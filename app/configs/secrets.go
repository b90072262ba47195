package configs

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/gorilla/securecookie"
)

type GeneratedSecrets struct {
	JWTSecret     string
	WebhookSecret string
}

// GenerateSecrets produces random signing material for the JWT and local
// webhook-forwarding secrets.
func GenerateSecrets() (*GeneratedSecrets, error) {
	jwtKey := securecookie.GenerateRandomKey(64)
	if jwtKey == nil {
		return nil, fmt.Errorf("could not generate jwt secret")
	}

	webhookKey := securecookie.GenerateRandomKey(32)
	if webhookKey == nil {
		return nil, fmt.Errorf("could not generate webhook secret")
	}

	return &GeneratedSecrets{
		JWTSecret:     base64.URLEncoding.EncodeToString(jwtKey),
		WebhookSecret: "whsec_" + base64.RawURLEncoding.EncodeToString(webhookKey),
	}, nil
}

func (s *GeneratedSecrets) WriteEnv(w io.Writer) error {
	_, err := fmt.Fprintf(w, "JWT_SECRET=%s\nSTRIPE_WEBHOOK_SECRET=%s\n", s.JWTSecret, s.WebhookSecret)
	return err
}

func GenerateAndWriteSecrets(path string) error {
	secrets, err := GenerateSecrets()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := secrets.WriteEnv(file); err != nil {
		return fmt.Errorf("failed to write secrets to %s: %w", path, err)
	}
	return secrets.WriteEnv(os.Stdout)
}
