package app

import (
	"context"
	"testing"
	"time"

	appErrors "copyverify/internal/errors"
)

func TestControlCheckpointBlocksWhilePaused(t *testing.T) {
	ctl := NewControl(context.Background())
	ctl.poll = 5 * time.Millisecond
	ctl.Pause()

	done := make(chan error, 1)
	go func() { done <- ctl.Checkpoint() }()

	select {
	case err := <-done:
		t.Fatalf("checkpoint returned while paused: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	ctl.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after resume, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not return after resume")
	}
}

func TestControlCancelReleasesPausedCheckpoint(t *testing.T) {
	ctl := NewControl(context.Background())
	ctl.Pause()

	done := make(chan error, 1)
	go func() { done <- ctl.Checkpoint() }()
	ctl.Cancel()

	select {
	case err := <-done:
		if !appErrors.IsCancelled(err) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not observe cancel")
	}
	if ctl.Paused() {
		t.Fatal("cancel should clear pause")
	}
}

func TestControlSleepIsInterruptedByCancel(t *testing.T) {
	ctl := NewControl(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		ctl.Cancel()
	}()

	start := time.Now()
	if err := ctl.Sleep(time.Minute); !appErrors.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("sleep was not interrupted")
	}
}

func TestControlToggle(t *testing.T) {
	ctl := NewControl(context.Background())
	if !ctl.Toggle() || !ctl.Paused() {
		t.Fatal("first toggle should pause")
	}
	if ctl.Toggle() || ctl.Paused() {
		t.Fatal("second toggle should resume")
	}
	if ctl.ID() == "" {
		t.Fatal("expected a job id")
	}
}

func TestBindCancelsControlWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctl := NewControl(context.Background())
	bound, release := bind(ctx, ctl)
	defer release()

	if bound != ctl {
		t.Fatal("bind should return the given control")
	}
	cancel()

	select {
	case <-ctl.Done():
	case <-time.After(time.Second):
		t.Fatal("control was not cancelled with its context")
	}
}
