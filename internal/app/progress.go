package app

import (
	"sync"

	"copyverify/internal/domain"
)

// ProgressFunc receives per-file copy progress: the 1-based file index, the
// job's file count, the source path, the file size and the bytes written so far.
// It may be called from several workers at once.
type ProgressFunc func(index, total int, path string, size, copied int64)

// ScanProgressFunc is called while a scan walks the tree.
type ScanProgressFunc func(files, directories int, size int64)

// VerifyProgressFunc is called after each file is verified.
type VerifyProgressFunc func(current, total int, path string)

// emit calls f and swallows any panic so a faulty consumer cannot stop a copy.
func (f ProgressFunc) emit(index, total int, path string, size, copied int64) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f(index, total, path, size, copied)
}

func (f ScanProgressFunc) emit(files, directories int, size int64) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f(files, directories, size)
}

func (f VerifyProgressFunc) emit(current, total int, path string) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f(current, total, path)
}

// ChannelProgress adapts a bounded channel into a ProgressFunc. Sends never
// block: when the consumer falls behind, intermediate events are dropped.
// A final event (copied == size) that finds the channel full takes the place
// of the oldest queued intermediate event, or of a queued event for the same
// file. Queued final events are never evicted.
func ChannelProgress(ch chan domain.ProgressEvent) ProgressFunc {
	var mu sync.Mutex
	return func(index, total int, path string, size, copied int64) {
		event := domain.ProgressEvent{Index: index, Total: total, Path: path, Size: size, Copied: copied}
		mu.Lock()
		defer mu.Unlock()
		select {
		case ch <- event:
			return
		default:
		}
		if !event.Done() {
			return
		}
		evictFor(ch, event)
	}
}

// evictFor drains ch, drops one stale event and requeues the rest followed by
// event. Callers serialize producers, so the requeue always fits.
func evictFor(ch chan domain.ProgressEvent, event domain.ProgressEvent) {
	queued := make([]domain.ProgressEvent, 0, cap(ch))
drain:
	for len(queued) < cap(ch) {
		select {
		case e := <-ch:
			queued = append(queued, e)
		default:
			break drain
		}
	}

	victim := -1
	for i, e := range queued {
		if e.Path == event.Path || !e.Done() {
			victim = i
			break
		}
	}
	if victim >= 0 {
		queued = append(queued[:victim], queued[victim+1:]...)
	}
	if victim >= 0 || len(queued) < cap(ch) {
		queued = append(queued, event)
	}
	for _, e := range queued {
		select {
		case ch <- e:
		default:
		}
	}
}
