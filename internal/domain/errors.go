package domain

import "errors"

var (
	// ErrUnauthenticated is returned when a request carries no valid Shopify credentials
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidWebhookSignature is returned when a webhook HMAC does not match the body
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	// ErrMalformedResponse is returned when a successful upstream response cannot be decoded
	ErrMalformedResponse = errors.New("malformed response body")
)
