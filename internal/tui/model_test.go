package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"copyverify/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeControl struct {
	paused    bool
	cancelled bool
}

func (f *fakeControl) Toggle() bool {
	f.paused = !f.paused
	return f.paused
}

func (f *fakeControl) Cancel() { f.cancelled = true }

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPhasesFollowJobMessages(t *testing.T) {
	m := NewModel(Config{Source: "/src", Destination: "/dst", Verify: true})
	if m.Phase != PhaseScanning {
		t.Fatalf("expected scanning, got %v", m.Phase)
	}

	m = update(t, m, ScanDoneMsg{Stats: domain.ScanStatistics{TotalFiles: 2, TotalSize: 200}})
	if m.Phase != PhaseCopying {
		t.Fatalf("expected copying, got %v", m.Phase)
	}

	m = update(t, m, CopyDoneMsg{Stats: domain.JobStats{TotalFiles: 2, CopiedFiles: 2}})
	if m.Phase != PhaseVerifying {
		t.Fatalf("expected verifying, got %v", m.Phase)
	}

	m = update(t, m, VerifyDoneMsg{Result: domain.VerificationResult{Total: 2, Verified: 2}})
	if m.Phase != PhaseDone || m.Verification == nil || m.Verification.Verified != 2 {
		t.Fatalf("unexpected final model: phase=%v verification=%+v", m.Phase, m.Verification)
	}
	if !strings.Contains(m.View(), "Copy completed successfully!") {
		t.Fatalf("expected success summary, got:\n%s", m.View())
	}
}

func TestCancelledCopySkipsVerification(t *testing.T) {
	m := NewModel(Config{Verify: true})
	m = update(t, m, ScanDoneMsg{})
	m = update(t, m, CopyDoneMsg{Stats: domain.JobStats{Cancelled: true}})
	if m.Phase != PhaseDone {
		t.Fatalf("expected done, got %v", m.Phase)
	}
}

func TestProgressAccounting(t *testing.T) {
	m := NewModel(Config{})
	m = update(t, m, ScanDoneMsg{Stats: domain.ScanStatistics{TotalFiles: 2, TotalSize: 300}})

	m = update(t, m, CopyProgressMsg{Event: domain.ProgressEvent{Index: 1, Total: 2, Path: "a", Size: 100, Copied: 50}})
	m = update(t, m, CopyProgressMsg{Event: domain.ProgressEvent{Index: 2, Total: 2, Path: "b", Size: 200, Copied: 100}})
	// A retry restarts file 2.
	m = update(t, m, CopyProgressMsg{Event: domain.ProgressEvent{Index: 2, Total: 2, Path: "b", Size: 200, Copied: 20}})
	m = update(t, m, CopyProgressMsg{Event: domain.ProgressEvent{Index: 1, Total: 2, Path: "a", Size: 100, Copied: 100}})
	// Duplicate completion events are ignored.
	m = update(t, m, CopyProgressMsg{Event: domain.ProgressEvent{Index: 1, Total: 2, Path: "a", Size: 100, Copied: 100}})

	if m.bytesDone != 120 {
		t.Fatalf("expected 120 bytes done, got %d", m.bytesDone)
	}
	if m.filesDone != 1 {
		t.Fatalf("expected 1 file done, got %d", m.filesDone)
	}
	if got := m.percent(); got != 0.4 {
		t.Fatalf("expected 40%%, got %v", got)
	}
}

func TestSpeedAndETA(t *testing.T) {
	m := NewModel(Config{})
	m.Scan.TotalSize = 1000
	m.bytesDone = 250
	m.copyStarted = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := m.copyStarted.Add(5 * time.Second)

	if got := m.Speed(now); got != 50 {
		t.Fatalf("expected 50 B/s, got %v", got)
	}
	if got := m.ETA(now); got != 15*time.Second {
		t.Fatalf("expected 15s, got %v", got)
	}
}

func TestPauseAndCancelKeys(t *testing.T) {
	ctl := &fakeControl{}
	m := NewModel(Config{Control: ctl})
	m = update(t, m, ScanDoneMsg{})

	m = update(t, m, key("p"))
	if !m.Paused || !ctl.paused {
		t.Fatal("expected paused job")
	}
	if !strings.Contains(m.View(), "Paused") {
		t.Fatal("expected paused indicator")
	}
	m = update(t, m, key("p"))
	if m.Paused || ctl.paused {
		t.Fatal("expected resumed job")
	}

	next, cmd := m.Update(key("q"))
	m = next.(Model)
	if !ctl.cancelled || !m.Cancelled || !m.Quitting {
		t.Fatal("q should cancel the job and quit")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestErrorMessage(t *testing.T) {
	m := NewModel(Config{})
	m = update(t, m, ErrorMsg{Err: errors.New("Path not found: /src")})
	if m.Phase != PhaseError || !strings.Contains(m.View(), "Path not found: /src") {
		t.Fatalf("unexpected error view:\n%s", m.View())
	}
}
