package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mpieniak01/venom/pkg/models"
)

// CallError wraps a backend failure with status metadata so governance can
// map it onto a fallback reason code.
type CallError struct {
	// Status is the HTTP status, when the backend reported one.
	Status int
	// Temporary marks errors safe to retry on another candidate.
	Temporary bool
	// Err is the underlying error.
	Err error
}

func (e *CallError) Error() string {
	if e == nil {
		return "provider call error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider call error (status=%d)", e.Status)
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry on a fallback
// candidate. Auth rejections count: another provider carries different
// credentials. Context cancellation does not: the caller gave up.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		if callErr.Temporary {
			return true
		}
		if callErr.Status == 401 || callErr.Status == 403 ||
			callErr.Status == 429 || (callErr.Status >= 500 && callErr.Status <= 599) {
			return true
		}
	}
	return false
}

// FallbackReason maps a call failure onto the fallback reason code recorded
// when governance moves past the failing candidate. A timeout is treated
// identically to a provider failure for circuit-breaker purposes.
func FallbackReason(err error) models.ReasonCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ReasonFallbackTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ReasonFallbackTimeout
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		switch {
		case callErr.Status == 401 || callErr.Status == 403:
			return models.ReasonFallbackAuthError
		case callErr.Status == 429:
			return models.ReasonFallbackRateLimit
		case callErr.Status >= 500:
			return models.ReasonFallbackProviderDegraded
		}
	}
	return models.ReasonFallbackProviderOffline
}
