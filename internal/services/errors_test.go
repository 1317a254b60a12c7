package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"streamcap/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connect refused")
	err := services.Wrap(services.ErrTransient, "platform", "probe", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "platform: probe") {
		t.Fatalf("expected component context in %q", err.Error())
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "store", "save segment", errors.New("disk full"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"invalid configuration", services.Wrap(services.ErrInvalidConfiguration, "platform", "probe", nil), true},
		{"unsupported platform", services.Wrap(services.ErrUnsupportedPlatform, "registry", "lookup", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "platform", "download", errors.New("timeout")), false},
		{"not found", services.Wrap(services.ErrNotFound, "store", "find target", nil), false},
		{"plain", fmt.Errorf("unclassified"), false},
		{"nil-ish wrapped", errors.New("other"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsFatal(tc.err); got != tc.fatal {
				t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
			}
		})
	}
}
