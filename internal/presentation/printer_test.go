package presentation

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"copyverify/internal/domain"
)

func TestTruncate(t *testing.T) {
	lines := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		lines = append(lines, fmt.Sprintf("Copy file%d", i))
	}

	out := truncate(lines)
	if len(out) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(out))
	}
	if out[2] != "..." {
		t.Fatalf("expected ellipsis, got %q", out[2])
	}
	if lines[2] != "Copy file2" {
		t.Fatal("truncate must not modify its input")
	}
}

func TestFormatExtensionLinesSortsBySize(t *testing.T) {
	lines := formatExtensionLines(map[string]domain.ExtensionStat{
		".txt":             {Count: 3, Size: 10},
		".jpg":             {Count: 1, Size: 2048},
		domain.NoExtension: {Count: 2, Size: 10},
	})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %v", lines)
	}
	if !strings.HasPrefix(lines[0], ".jpg") || !strings.HasPrefix(lines[1], ".txt") || !strings.HasPrefix(lines[2], domain.NoExtension) {
		t.Fatalf("unexpected order: %v", lines)
	}
}

func TestPrintJobIncludesSections(t *testing.T) {
	var buf bytes.Buffer
	printer := Printer{Writer: &buf}

	start := time.Date(2024, 10, 2, 15, 1, 0, 0, time.UTC)
	stats := domain.JobStats{
		TotalFiles:  3,
		CopiedFiles: 1,
		FailedFiles: 1,
		CopiedList:  []string{"/src/a.txt"},
		FailedList:  []domain.FailureRecord{{Path: "/src/b.txt", Message: "file not found"}},
		TotalSize:   1536,
		Cancelled:   true,
		StartedAt:   start,
		FinishedAt:  start.Add(1500 * time.Millisecond),
	}
	printer.PrintJob(stats)

	output := buf.String()
	for _, want := range []string{
		"Copied:",
		"Copy /src/a.txt",
		"Failed:",
		"/src/b.txt  file not found",
		"Copied 1 of 3 files (1.50 KB) in 1.5s.",
		"Cancelled with 1 files left untouched.",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestPrintVerification(t *testing.T) {
	var buf bytes.Buffer
	Printer{Writer: &buf}.PrintVerification(domain.VerificationResult{
		Total:         3,
		Verified:      2,
		Corrupted:     1,
		CorruptedList: []domain.Mismatch{{Path: "/src/c", Reason: "not found at destination"}},
	})
	output := buf.String()
	if !strings.Contains(output, "Verified 2 of 3 files, 1 corrupted.") || !strings.Contains(output, "/src/c  not found at destination") {
		t.Fatalf("unexpected output:\n%s", output)
	}

	buf.Reset()
	Printer{Writer: &buf}.PrintVerification(domain.VerificationResult{Total: 1, Verified: 1})
	if !strings.Contains(buf.String(), "All files match.") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestPrintScan(t *testing.T) {
	var buf bytes.Buffer
	Printer{Writer: &buf}.PrintScan(domain.ScanStatistics{
		Root:             "/src",
		TotalFiles:       2,
		TotalDirectories: 1,
		TotalSize:        2048,
		Extensions:       map[string]domain.ExtensionStat{".jpg": {Count: 2, Size: 2048}},
	})
	output := buf.String()
	if !strings.Contains(output, "Directory: /src") || !strings.Contains(output, "Found 2 files in 1 directories (2.00 KB).") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}
