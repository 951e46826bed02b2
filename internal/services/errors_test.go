package services_test

import (
	"errors"
	"strings"
	"testing"

	"shotreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "rendering", "submit", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"rendering", "submit", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(services.Wrap(services.ErrConfiguration, "render", "submit", "missing", nil)) {
		t.Fatal("configuration errors are not retryable")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTimeout, "render", "poll", "timeout", nil)) {
		t.Fatal("timeouts are retryable")
	}
	if services.IsRetryable(nil) {
		t.Fatal("nil error is not retryable")
	}
}
