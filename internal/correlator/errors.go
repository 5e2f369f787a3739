package correlator

import "errors"

// Domain-specific errors for correlation operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTransportRequired is returned by New when no transport is supplied.
	ErrTransportRequired = errors.New("correlator: transport is required")

	// ErrInvalidRequest is returned when a request is missing a topic,
	// a match function or a positive timeout.
	ErrInvalidRequest = errors.New("correlator: invalid request")

	// ErrEncodePayload is returned when a request payload cannot be serialised.
	ErrEncodePayload = errors.New("correlator: cannot encode payload")

	// ErrSubscribe wraps a transport failure while subscribing to the response topic.
	ErrSubscribe = errors.New("correlator: subscribe failed")

	// ErrPublish wraps a transport failure while publishing the request.
	ErrPublish = errors.New("correlator: publish failed")

	// ErrCancelled is returned when the caller's context ends before a match or timeout.
	ErrCancelled = errors.New("correlator: request cancelled")
)
