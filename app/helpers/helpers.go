package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openeire/openeire-api/app/services"
)

type contextKey string

const (
	ContextKeyClaims contextKey = "claims"
	ContextKeyReqID  contextKey = "requestID"

	AccessTokenCookieName = "access_token"

	// MaxBodyBytes caps JSON request bodies. Webhook payloads are well below it.
	MaxBodyBytes = 1 << 20
)

func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*services.Claims)
	return claims, ok && claims != nil
}

// CustomerFromContext returns the username of the caller, or the guest marker.
func CustomerFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok && claims.Username != "" {
		return claims.Username
	}
	return services.GuestCustomer
}

// DecodeJSON reads at most MaxBodyBytes and rejects unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMessages := make(map[string]string)
	for _, err := range errs {
		field := strings.ToLower(err.Field())
		switch err.Tag() {
		case "required":
			errorMessages[field] = fmt.Sprintf("%s is required.", err.Field())
		case "email":
			errorMessages[field] = fmt.Sprintf("%s must be a valid email address.", err.Field())
		case "min":
			errorMessages[field] = fmt.Sprintf("%s must be at least %s.", err.Field(), err.Param())
		case "max":
			errorMessages[field] = fmt.Sprintf("%s must be at most %s characters.", err.Field(), err.Param())
		case "len":
			errorMessages[field] = fmt.Sprintf("%s must be exactly %s characters.", err.Field(), err.Param())
		case "oneof":
			errorMessages[field] = fmt.Sprintf("%s must be one of: %s.", err.Field(), err.Param())
		case "gt":
			errorMessages[field] = fmt.Sprintf("%s must be greater than %s.", err.Field(), err.Param())
		default:
			errorMessages[field] = fmt.Sprintf("%s failed %s validation.", err.Field(), err.Tag())
		}
	}
	return errorMessages
}
