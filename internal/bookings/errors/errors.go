package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidRef = errors.New("invalid booking reference format")

	ErrDuplicateRef = errors.New("booking reference already exists")

	ErrOutboxEntryNotFound = errors.New("outbox entry not found")
)
