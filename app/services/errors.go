package services

import (
	"errors"
	"fmt"
)

// ErrCartValidation is the root of every error caused by client input.
var ErrCartValidation = errors.New("invalid cart")

var (
	ErrEmptyCart             = fmt.Errorf("%w: cart is empty", ErrCartValidation)
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be at least 1", ErrCartValidation)
	ErrUnknownProductType    = fmt.Errorf("%w: unknown product type", ErrCartValidation)
	ErrProductNotFound       = fmt.Errorf("%w: product not found", ErrCartValidation)
	ErrProductUnavailable    = fmt.Errorf("%w: product is not available", ErrCartValidation)
	ErrDisallowedCountry     = fmt.Errorf("%w: physical items cannot ship to country", ErrCartValidation)
	ErrInvalidShippingMethod = fmt.Errorf("%w: unknown shipping method", ErrCartValidation)
	ErrCartTooLarge          = fmt.Errorf("%w: cart is too large to authorize", ErrCartValidation)
	ErrInvalidAmount         = fmt.Errorf("%w: order total must be positive", ErrCartValidation)
	ErrInvalidMetadata       = fmt.Errorf("%w: payment metadata is malformed", ErrCartValidation)
)

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrProcessorRejected   = errors.New("payment processor rejected the request")

	ErrFulfillmentFailed        = errors.New("fulfillment dispatch failed")
	ErrFulfillmentNotConfigured = errors.New("fulfillment partner is not configured")
	ErrOrderNotFound            = errors.New("order not found")
)

// ErrNothingToFulfill means the order holds physical lines but none of them
// could be turned into a partner item.
var ErrNothingToFulfill = fmt.Errorf("%w: no printable lines", ErrFulfillmentFailed)

// FulfillmentError is returned when the print partner answers with a non-2xx status.
type FulfillmentError struct {
	StatusCode int
	Body       string
}

func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("prodigi api error: status %d: %s", e.StatusCode, e.Body)
}

func (e *FulfillmentError) Unwrap() error {
	return ErrFulfillmentFailed
}

// IsClientError reports whether err should be answered with a 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCartValidation) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrPaymentNotSucceeded)
}
