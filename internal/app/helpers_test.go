package app

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	osfs "copyverify/internal/infra/fs"
)

// faultFS is the real filesystem with injectable write failures and hooks.
type faultFS struct {
	osfs.OSFS

	mu sync.Mutex
	// failWrites is the number of attempts per destination whose writes fail
	// after the first chunk has been written.
	failWrites map[string]int
	creates    map[string]int
	removed    []string
	// onWrite runs before every chunk written to a destination.
	onWrite func(path string)
}

func newFaultFS() *faultFS {
	return &faultFS{failWrites: map[string]int{}, creates: map[string]int{}}
}

var errDiskFull = errors.New("no space left on device")

func (f *faultFS) Create(path string, perm fs.FileMode) (io.WriteCloser, error) {
	w, err := f.OSFS.Create(path, perm)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.creates[path]++
	fail := f.failWrites[path] > 0
	if fail {
		f.failWrites[path]--
	}
	f.mu.Unlock()
	return &faultWriter{WriteCloser: w, fsys: f, path: path, fail: fail}, nil
}

func (f *faultFS) Remove(path string) error {
	f.mu.Lock()
	f.removed = append(f.removed, path)
	f.mu.Unlock()
	return f.OSFS.Remove(path)
}

func (f *faultFS) createCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[path]
}

func (f *faultFS) removedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type faultWriter struct {
	io.WriteCloser
	fsys    *faultFS
	path    string
	fail    bool
	written int
}

func (w *faultWriter) Write(p []byte) (int, error) {
	if hook := w.fsys.onWrite; hook != nil {
		hook(w.path)
	}
	if w.fail && w.written > 0 {
		return 0, errDiskFull
	}
	n, err := w.WriteCloser.Write(p)
	w.written += n
	return n, err
}

func noBackoff(int) time.Duration { return 0 }

func writeFile(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + len(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// progressLog records every progress callback.
type progressLog struct {
	mu     sync.Mutex
	events map[string][]int64
}

func newProgressLog() *progressLog {
	return &progressLog{events: map[string][]int64{}}
}

func (p *progressLog) record(index, total int, path string, size, copied int64) {
	p.mu.Lock()
	p.events[path] = append(p.events[path], copied)
	p.mu.Unlock()
}

func (p *progressLog) forPath(path string) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.events[path]...)
}
