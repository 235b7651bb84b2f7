package llm

import (
	"errors"
	"fmt"
)

// Failure kinds a provider call can surface.
const (
	KindTimeout   = "timeout"
	KindQuota     = "quota"
	KindBadOutput = "bad_output"
	KindProvider  = "provider"
)

// CapabilityError classifies a provider failure. Timeout and quota failures
// are retryable; malformed output and hard provider errors are not.
type CapabilityError struct {
	Kind     string
	Provider string
	Err      error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the call could succeed.
func (e *CapabilityError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindQuota
}

// AsCapabilityError extracts a CapabilityError from an error chain.
func AsCapabilityError(err error) (*CapabilityError, bool) {
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr, true
	}
	return nil, false
}
