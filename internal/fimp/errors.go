package fimp

import "errors"

var (
	// ErrInvalidCatalog is returned when a vinculum response cannot be decoded.
	ErrInvalidCatalog = errors.New("fimp: invalid catalog response")
)
