package providers

import "errors"

var (
	// ErrProviderNotFound is returned when a custom provider slug does not
	// resolve to a registered provider.
	ErrProviderNotFound = errors.New("custom provider not found for the given id")
	// ErrMalformedResponse is returned when a provider answers without a
	// "matches" array.
	ErrMalformedResponse = errors.New("custom provider returned malformed response")
	// ErrInvalidImage is returned when an image download is not usable.
	ErrInvalidImage = errors.New("invalid author image")
)
