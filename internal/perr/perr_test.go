package perr_test

import (
	"errors"
	"testing"

	"github.com/xyproto/woodpacker/internal/perr"
)

func TestErrorMessages(t *testing.T) {
	if got := perr.New(perr.NotAnElf).Error(); got == "" {
		t.Fatal("expected a non-empty message")
	}
	if got := perr.Offset(42).Error(); got != "corrupted file: offset 42 is out of bounds" {
		t.Fatalf("got %q", got)
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := perr.New(perr.NoExecSegment)
	if !errors.Is(err, perr.New(perr.NoExecSegment)) {
		t.Error("errors.Is should match same Kind")
	}
	if errors.Is(err, perr.New(perr.NotAnElf)) {
		t.Error("errors.Is should not match different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := perr.Wrap(perr.IO, cause)
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}
