package llm

import (
	"fmt"
	"net/http"
)

// StatusError is returned when a backend answers with a non-200 status
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the status is one the backend uses for load
// shedding.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// GenerationError is returned by Client.Generate once retries are exhausted
// or a non-retryable failure occurs.
type GenerationError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s) on %s: %v", e.Attempts, e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
