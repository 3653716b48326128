package alphavantage

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// ErrMissingAPIKey indicates the client was configured without an API key.
var ErrMissingAPIKey = errors.New("alphavantage: api key required")

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt time.Time
	Message string
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("alphavantage: rate limit exceeded: %s", e.Message)
	}
	return fmt.Sprintf("alphavantage: rate limit exceeded, retry after %s", e.ResetAt.Format(time.RFC3339))
}

// Is reports rate limiting as a transport failure of kind domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited || target == domain.ErrTransport
}

// APIError represents a non-success HTTP response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Is reports every API error as a transport failure.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrTransport
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}
