package bridge

import "errors"

var (
	// ErrTransportRequired is returned by New without a Transport.
	ErrTransportRequired = errors.New("bridge: transport is required")

	// ErrDiscovererRequired is returned by New without a Discoverer.
	ErrDiscovererRequired = errors.New("bridge: discoverer is required")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("bridge: already started")

	// ErrNotRunning is returned by Trigger before Start or after Stop.
	ErrNotRunning = errors.New("bridge: not running")
)
