package chat

import "errors"

var (
	// ErrEmptyMessage is returned when the user message has no content.
	ErrEmptyMessage = errors.New("message is empty")
)
