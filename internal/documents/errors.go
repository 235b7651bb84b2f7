package documents

import "errors"

var (
	ErrNotFound             = errors.New("document not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateFingerprint = errors.New("fingerprint already exists for owner")
)
