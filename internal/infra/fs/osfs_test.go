package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyFilePreservesContentAndMetadata(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "deeper", "dst.txt")

	if err := os.WriteFile(src, []byte("payload"), 0o640); err != nil {
		t.Fatalf("write source: %v", err)
	}
	mtime := time.Date(2023, 5, 17, 8, 30, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := (OSFS{}).CopyFile(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("expected mtime %v, got %v", mtime, info.ModTime())
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("expected mode 0640, got %v", info.Mode().Perm())
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := (OSFS{}).Exists(filepath.Join(dir, "missing"))
	if err != nil || exists {
		t.Fatalf("expected missing path, got exists=%v err=%v", exists, err)
	}
	exists, err = (OSFS{}).Exists(dir)
	if err != nil || !exists {
		t.Fatalf("expected existing path, got exists=%v err=%v", exists, err)
	}
}
