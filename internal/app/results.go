package app

import (
	"sync"
	"time"

	"copyverify/internal/domain"
)

// results is the only state workers of one job mutate together.
type results struct {
	mu     sync.Mutex
	copied []string
	failed []domain.FailureRecord
}

func (r *results) addCopied(path string) {
	r.mu.Lock()
	r.copied = append(r.copied, path)
	r.mu.Unlock()
}

func (r *results) addFailure(path, message string) {
	r.mu.Lock()
	r.failed = append(r.failed, domain.FailureRecord{Path: path, Message: message})
	r.mu.Unlock()
}

// fill copies the lists into stats and finishes it.
func (r *results) fill(stats *domain.JobStats) {
	r.mu.Lock()
	stats.CopiedList = append([]string(nil), r.copied...)
	stats.FailedList = append([]domain.FailureRecord(nil), r.failed...)
	r.mu.Unlock()
	stats.Finish(time.Now())
}
