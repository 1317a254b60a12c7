package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfiguration marks a target whose shape (URL, platform
	// settings) cannot produce a working probe or download. Fatal to the
	// owning supervisor.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnsupportedPlatform marks a platform tag no collaborator handles.
	// Fatal to the owning supervisor.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNotFound marks a missing record or resource.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks any retryable failure.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes collaborator context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above; nil defaults to
// ErrTransient.
func Wrap(marker error, component, operation string, err error) error {
	detail := buildDetail(component, operation)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should permanently terminate the
// supervisor that observed it. Everything else is folded into the
// retry/backoff counter.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrUnsupportedPlatform)
}

func buildDetail(component, operation string) string {
	parts := make([]string, 0, 2)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "collaborator failure"
	}
	return strings.Join(parts, ": ")
}
