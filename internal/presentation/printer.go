package presentation

import (
	"fmt"
	"io"
	"sort"
	"time"

	"copyverify/internal/domain"
)

type Printer struct {
	Writer  io.Writer
	Verbose bool
}

func (p Printer) PrintScan(stats domain.ScanStatistics) {
	switch {
	case stats.IsFile:
		fmt.Fprintf(p.Writer, "File: %s\n", stats.Root)
	case stats.Root != "":
		fmt.Fprintf(p.Writer, "Directory: %s\n", stats.Root)
	}
	fmt.Fprintf(p.Writer, "Found %d files in %d directories (%s).\n",
		stats.TotalFiles, stats.TotalDirectories, domain.FormatSize(stats.TotalSize))

	if len(stats.Extensions) == 0 {
		return
	}
	fmt.Fprintln(p.Writer)
	fmt.Fprintln(p.Writer, "Extensions:")
	lines := formatExtensionLines(stats.Extensions)
	if !p.Verbose {
		lines = truncate(lines)
	}
	for _, line := range lines {
		fmt.Fprintln(p.Writer, line)
	}
}

func (p Printer) PrintJob(stats domain.JobStats) {
	if len(stats.CopiedList) > 0 {
		fmt.Fprintln(p.Writer, "Copied:")
		fmt.Fprintln(p.Writer)
		lines := make([]string, 0, len(stats.CopiedList))
		for _, path := range stats.CopiedList {
			lines = append(lines, "Copy "+path)
		}
		if !p.Verbose {
			lines = truncate(lines)
		}
		for _, line := range lines {
			fmt.Fprintln(p.Writer, line)
		}
		fmt.Fprintln(p.Writer)
	}

	if len(stats.FailedList) > 0 {
		fmt.Fprintln(p.Writer, "Failed:")
		for _, failure := range stats.FailedList {
			fmt.Fprintf(p.Writer, "%s  %s\n", failure.Path, failure.Message)
		}
		fmt.Fprintln(p.Writer)
	}

	fmt.Fprintf(p.Writer, "Copied %d of %d files (%s) in %s.\n",
		stats.CopiedFiles, stats.TotalFiles, domain.FormatSize(stats.TotalSize), formatElapsed(stats.Elapsed()))
	if stats.FailedFiles > 0 {
		fmt.Fprintf(p.Writer, "%d files failed.\n", stats.FailedFiles)
	}
	if stats.Cancelled {
		fmt.Fprintf(p.Writer, "Cancelled with %d files left untouched.\n", stats.Untouched())
	}
}

func (p Printer) PrintVerification(result domain.VerificationResult) {
	if len(result.CorruptedList) > 0 {
		fmt.Fprintln(p.Writer, "Mismatches:")
		for _, m := range result.CorruptedList {
			fmt.Fprintf(p.Writer, "%s  %s\n", m.Path, m.Reason)
		}
		fmt.Fprintln(p.Writer)
	}

	fmt.Fprintf(p.Writer, "Verified %d of %d files, %d corrupted.\n", result.Verified, result.Total, result.Corrupted)
	switch {
	case result.Cancelled:
		fmt.Fprintln(p.Writer, "Verification was cancelled.")
	case result.OK():
		fmt.Fprintln(p.Writer, "All files match.")
	}
}

// formatExtensionLines lists extensions by total size, largest first.
func formatExtensionLines(extensions map[string]domain.ExtensionStat) []string {
	keys := make([]string, 0, len(extensions))
	for key := range extensions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := extensions[keys[i]], extensions[keys[j]]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return keys[i] < keys[j]
	})

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		ext := extensions[key]
		lines = append(lines, fmt.Sprintf("%-14s %6d files  %s", key, ext.Count, domain.FormatSize(ext.Size)))
	}
	return lines
}

func truncate(lines []string) []string {
	if len(lines) <= 4 {
		return lines
	}
	head := append([]string(nil), lines[:2]...)
	tail := lines[len(lines)-2:]
	return append(append(head, "..."), tail...)
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
