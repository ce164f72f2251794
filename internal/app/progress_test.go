package app

import (
	"testing"

	"copyverify/internal/domain"
)

func TestProgressEmitSwallowsPanics(t *testing.T) {
	var f ProgressFunc = func(int, int, string, int64, int64) { panic("boom") }
	f.emit(1, 1, "a", 1, 1)

	var nilFunc ProgressFunc
	nilFunc.emit(1, 1, "a", 1, 1)
}

func TestChannelProgressDropsIntermediateEventsWhenFull(t *testing.T) {
	ch := make(chan domain.ProgressEvent, 2)
	progress := ChannelProgress(ch)

	progress(1, 3, "a", 100, 10)
	progress(1, 3, "a", 100, 20)
	progress(1, 3, "a", 100, 30)

	if len(ch) != 2 {
		t.Fatalf("expected a full channel, got %d events", len(ch))
	}
	if first := <-ch; first.Copied != 10 {
		t.Fatalf("unexpected first event %+v", first)
	}
	if second := <-ch; second.Copied != 20 {
		t.Fatalf("unexpected second event %+v", second)
	}
}

func TestChannelProgressKeepsFinalEvents(t *testing.T) {
	ch := make(chan domain.ProgressEvent, 1)
	progress := ChannelProgress(ch)

	progress(1, 2, "a", 100, 50)
	progress(1, 2, "a", 100, 100)

	event := <-ch
	if !event.Done() || event.Copied != 100 {
		t.Fatalf("expected the final event to replace the stale one, got %+v", event)
	}
}

func TestChannelProgressNeverEvictsQueuedCompletions(t *testing.T) {
	ch := make(chan domain.ProgressEvent, 2)
	progress := ChannelProgress(ch)

	progress(1, 3, "a", 100, 100)
	progress(2, 3, "b", 100, 40)
	progress(3, 3, "c", 100, 100)

	first, second := <-ch, <-ch
	if first.Path != "a" || !first.Done() {
		t.Fatalf("expected the completion of a to stay queued first, got %+v", first)
	}
	if second.Path != "c" || !second.Done() {
		t.Fatalf("expected the completion of c to replace the update for b, got %+v", second)
	}
}

func TestChannelProgressReplacesSameFileEvent(t *testing.T) {
	ch := make(chan domain.ProgressEvent, 2)
	progress := ChannelProgress(ch)

	progress(1, 2, "a", 100, 100)
	progress(2, 2, "b", 100, 100)
	progress(2, 2, "b", 100, 100)

	if len(ch) != 2 {
		t.Fatalf("expected two queued events, got %d", len(ch))
	}
	if first := <-ch; first.Path != "a" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if second := <-ch; second.Path != "b" || !second.Done() {
		t.Fatalf("unexpected second event %+v", second)
	}
}
