package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunInProgress is returned when another invocation holds the run lock.
var ErrRunInProgress = errors.New("ingestion already in progress")

// ConfigurationError reports required settings that were not provided.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// AuthenticationError is returned when the token endpoint does not answer 200.
type AuthenticationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed with status code %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("authentication failed with status code %d: %s", e.StatusCode, e.Body)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// FetchError is returned when any page of the listing fails.
type FetchError struct {
	Page       int
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error fetching data on page %d with status code %d: %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("error fetching data on page %d with status code %d: %s", e.Page, e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LoaderError wraps a failed warehouse operation.
type LoaderError struct {
	Op    string
	Table string
	Err   error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("warehouse %s on %s failed: %v", e.Op, e.Table, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// ErrorKind names the category of err for logs and run history.
func ErrorKind(err error) string {
	var (
		cfgErr   *ConfigurationError
		authErr  *AuthenticationError
		fetchErr *FetchError
		loadErr  *LoaderError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &loadErr):
		return "loader"
	case errors.Is(err, ErrRunInProgress):
		return "lock"
	}
	return "unknown"
}
