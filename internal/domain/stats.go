package domain

import "time"

// JobStats aggregates the outcome of one copy job.
type JobStats struct {
	JobID       string
	TotalFiles  int
	CopiedFiles int
	FailedFiles int
	CopiedList  []string
	FailedList  []FailureRecord
	TotalSize   int64
	Cancelled   bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Finish stamps the end time and derives the counters from the detail lists.
func (s *JobStats) Finish(at time.Time) {
	s.CopiedFiles = len(s.CopiedList)
	s.FailedFiles = len(s.FailedList)
	s.FinishedAt = at
}

// Untouched is the number of files neither copied nor failed, which is only
// non-zero after cancellation.
func (s JobStats) Untouched() int {
	return s.TotalFiles - s.CopiedFiles - s.FailedFiles
}

func (s JobStats) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Mismatch is one file that failed verification.
type Mismatch struct {
	Path   string
	Reason string
}

type VerificationResult struct {
	Total         int
	Verified      int
	Corrupted     int
	CorruptedList []Mismatch
	Cancelled     bool
}

// OK reports whether every compared file matched.
func (r VerificationResult) OK() bool {
	return !r.Cancelled && r.Corrupted == 0 && r.Verified == r.Total
}
