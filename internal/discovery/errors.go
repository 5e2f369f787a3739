package discovery

import "errors"

var (
	// ErrPublisherRequired is returned by New without a Publisher.
	ErrPublisherRequired = errors.New("discovery: publisher is required")

	// ErrNoCatalog is returned when vinculum does not answer the catalog request.
	ErrNoCatalog = errors.New("discovery: no catalog response from hub")

	// ErrPublish wraps a failed config, report or status publish.
	ErrPublish = errors.New("discovery: publish failed")

	// ErrLedger wraps entity ledger failures.
	ErrLedger = errors.New("discovery: entity ledger failed")
)
