package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// CatalogError classifies catalog call failures as transient/permanent.
type CatalogError struct {
	StatusCode int
	Operation  string
	Message    string
	Transient  bool
	Cause      error
}

func (e *CatalogError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "catalog error")

	if op := strings.TrimSpace(e.Operation); op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", op))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *CatalogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a catalog call is worth re-running.
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

	var catalogErr *CatalogError
	if errors.As(err, &catalogErr) {
		return catalogErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
