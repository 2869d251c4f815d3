// Package errdefs defines the error kinds surfaced by the model archive
// pipeline. Callers match kinds with errors.Is against the package
// sentinels, or errors.As against the concrete types when they need the
// retained detail (e.g. the HTTP status code of a failed download).
package errdefs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrModelNotFound indicates a reference that cannot be resolved: a
	// missing store entry, a disallowed path, or a malformed URL.
	ErrModelNotFound = errors.New("model not found")

	// ErrDownloadFailed indicates a remote fetch that reached the network
	// but did not complete: a non-2xx response, a timeout, or a transfer
	// fault.
	ErrDownloadFailed = errors.New("model download failed")

	// ErrInvalidModel indicates an archive whose manifest is unparseable
	// or incomplete.
	ErrInvalidModel = errors.New("invalid model archive")
)

// NotFoundError reports a model reference that cannot be resolved.
type NotFoundError struct {
	// Reference is the offending model reference.
	Reference string
	// Reason describes why resolution failed.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Reference == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Reference)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// DownloadError reports a failed transfer from a remote URL. Code holds
// the HTTP status code when the failure was a non-2xx response, and is
// zero for connection or timeout faults.
type DownloadError struct {
	URL  string
	Code int
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("failed to download model from %s, code: %d", e.URL, e.Code)
	}
	return fmt.Sprintf("failed to download model from %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool { return target == ErrDownloadFailed }

// InvalidModelError reports a manifest that failed to parse or validate.
type InvalidModelError struct {
	Reason string
	Err    error
}

func (e *InvalidModelError) Error() string { return e.Reason }

func (e *InvalidModelError) Unwrap() error { return e.Err }

func (e *InvalidModelError) Is(target error) bool { return target == ErrInvalidModel }
