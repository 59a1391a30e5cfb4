package hooks

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestContextHookTagsCallsite(t *testing.T) {
	logger := log.New()
	buf := &bytes.Buffer{}
	logger.Out = buf
	logger.Formatter = &log.TextFormatter{DisableColors: true}
	logger.AddHook(NewContextHook())

	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "file:line") {
		t.Fatalf("Expected file:line field, got %q", out)
	}
	if !strings.Contains(out, "context_hook_test.go:") {
		t.Fatalf("Expected callsite to be this test file, got %q", out)
	}
}

func TestStripOffset(t *testing.T) {
	if got := stripOffset("cache/store.go:112 +0x1f"); got != "cache/store.go:112" {
		t.Fatalf("Unexpected location %q", got)
	}
	if got := stripOffset("cache/store.go:112"); got != "cache/store.go:112" {
		t.Fatalf("Unexpected location %q", got)
	}
}
