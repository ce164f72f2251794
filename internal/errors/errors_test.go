package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestWrapPathClassifies(t *testing.T) {
	tests := []struct {
		err      error
		expected Kind
	}{
		{fs.ErrNotExist, NotFound},
		{fmt.Errorf("open: %w", fs.ErrPermission), PermissionDenied},
		{stderrors.New("disk full"), IOFailure},
	}

	for _, tt := range tests {
		err := WrapPath(IOFailure, "stat", "/data", tt.err)
		if got := KindOf(err); got != tt.expected {
			t.Errorf("WrapPath(%v) kind = %q, expected %q", tt.err, got, tt.expected)
		}
	}
	if WrapPath(IOFailure, "stat", "/data", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestCancelledSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("copy a.txt: %w", ErrCancelled)
	if !IsCancelled(err) {
		t.Fatalf("expected wrapped ErrCancelled to be recognised")
	}
	if IsCancelled(Wrap(IOFailure, "copy", "a.txt", stderrors.New("boom"))) {
		t.Fatalf("io failure must not read as cancelled")
	}
}

func TestUserMessage(t *testing.T) {
	err := Wrap(NotFound, "stat", "/missing", fs.ErrNotExist)
	if got := UserMessage(err); got != "Path not found: /missing" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Fatalf("unexpected message %q", got)
	}
}
