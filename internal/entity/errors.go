package entity

import "errors"

var (
	// ErrNotFound is returned when no record exists for a config topic.
	ErrNotFound = errors.New("entity record not found")

	// ErrInvalidRecord is returned when a record lacks a topic or cycle.
	ErrInvalidRecord = errors.New("invalid entity record")
)
