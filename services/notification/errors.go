package notification

import "errors"

var (
	// ErrInvalidPayload marks a push payload without a title or body. Such pushes are dropped.
	ErrInvalidPayload   = errors.New("notification payload is missing title or body")
	// ErrMalformedPayload marks a push payload that could not be decoded at all.
	ErrMalformedPayload = errors.New("notification payload could not be decoded")
	// ErrNoSubscription is returned by a Displayer with nowhere to deliver.
	ErrNoSubscription   = errors.New("no push subscription for target")
	// ErrWorkerStopped is returned for events arriving after Shutdown.
	ErrWorkerStopped    = errors.New("service worker is shutting down")

	errKeySpaceExhausted = errors.New("no free event key near timestamp")
)
