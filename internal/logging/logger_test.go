package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestVerbosefOnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Verbosef("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	New(&buf, true).Verbosef("shown %d", 2)
	if got := buf.String(); got != "Verbose: shown 2\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestZeroLoggerIsSilent(t *testing.T) {
	var l Logger
	l.Infof("nothing")
	l.Warnf("nothing")
	l.Measure("nothing")()
}

func TestWarnfPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Warnf("retrying %s", "a.txt")
	if !strings.HasPrefix(buf.String(), "Warning: retrying a.txt") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
