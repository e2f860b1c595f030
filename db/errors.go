package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// NetworkError means the remote catalog (or an asset host) could not be
// reached, or answered with a retryable status.
type NetworkError struct {
	Url   string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for [%v] - %v", e.Url, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// ParseError means the remote answered but the payload is not what we expect.
type ParseError struct {
	Source string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %v - %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// StorageError means the local filesystem refused a read or write.
type StorageError struct {
	Path  string
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%v) on [%v] - %v", e.Op, e.Path, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// HttpStatusError keeps the status code around so retry logic can tell
// transient failures (5xx, 429) from permanent ones (404).
type HttpStatusError struct {
	Url        string
	StatusCode int
}

func (e *HttpStatusError) Error() string {
	return fmt.Sprintf("got HTTP %v from [%v]", e.StatusCode, e.Url)
}

// Only network level failures and server side hiccups are worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *HttpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429 || statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "connection reset")
}
