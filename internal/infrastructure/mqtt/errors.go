package mqtt

import "errors"

// Sentinel errors returned by the hub session. Wrapped errors carry the
// broker URL or topic; match them with errors.Is.
var (
	// ErrConnectionFailed means the single connect attempt did not succeed.
	ErrConnectionFailed = errors.New("mqtt: cannot reach hub broker")

	// ErrNotConnected means the session is down.
	ErrNotConnected = errors.New("mqtt: not connected to hub broker")

	ErrInvalidTopic = errors.New("mqtt: empty topic")
	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")

	ErrPublishFailed     = errors.New("mqtt: publish rejected")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe rejected")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe rejected")
)
