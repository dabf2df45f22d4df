package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/time/rate"
)

// Kind classifies the outcome of a failed geocoding attempt.
type Kind string

const (
	KindNone              Kind = ""
	KindInvalidAddress    Kind = "invalid_address"
	KindNoResult          Kind = "no_result"
	KindProviderTimeout   Kind = "provider_timeout"
	KindProviderAuth      Kind = "provider_auth"
	KindProviderRateLimit Kind = "provider_rate_limited"
	KindProviderFailure   Kind = "provider_failure"
)

// Sentinel errors shared by every provider.
var (
	// ErrNoResult is returned when the provider answered but found nothing usable.
	// It is terminal: the address is remembered as not found.
	ErrNoResult = errors.New("geocoding provider returned no usable result")
	// ErrInvalidAddress is returned for blank input.
	ErrInvalidAddress = errors.New("address is empty")
	// ErrProviderTimeout is returned when the provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("geocoding provider timed out")
	// ErrProviderAuth is returned when the provider rejected the credentials.
	ErrProviderAuth = errors.New("geocoding provider rejected credentials")
	// ErrProviderRateLimited is returned when the provider throttled the request.
	ErrProviderRateLimited = errors.New("geocoding provider rate limit reached")
)

// Classify maps an error returned by a Provider to its Kind.
// Unknown errors (network failures, unexpected statuses) are KindProviderFailure.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrNoResult):
		return KindNoResult
	case errors.Is(err, ErrInvalidAddress):
		return KindInvalidAddress
	case errors.Is(err, ErrProviderAuth):
		return KindProviderAuth
	case errors.Is(err, ErrProviderRateLimited):
		return KindProviderRateLimit
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindProviderTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindProviderTimeout
	}

	return KindProviderFailure
}

// Terminal reports whether the outcome may be cached as "not found".
func (k Kind) Terminal() bool {
	return k == KindNoResult
}

// googleStatusError maps Google Maps API status codes embedded in the
// client error message to the shared sentinels.
func googleStatusError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "REQUEST_DENIED"):
		return errors.Join(ErrProviderAuth, err)
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "OVER_DAILY_LIMIT"):
		return errors.Join(ErrProviderRateLimited, err)
	case strings.Contains(msg, "ZERO_RESULTS"):
		return errors.Join(ErrNoResult, err)
	}
	return err
}

// waitLimiter waits for a rate limiter slot. A wait that cannot finish before
// the call deadline is reported as ErrProviderTimeout.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	err := limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline && !errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("rate limiter wait: %w: %w", ErrProviderTimeout, err)
	}
	return fmt.Errorf("rate limiter wait: %w", err)
}
