package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"
	"copyverify/internal/logging"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxRetries is the number of attempts per file when none is configured.
const DefaultMaxRetries = 3

const (
	smallFileLimit  = 10 * 1024 * 1024
	mediumFileLimit = 100 * 1024 * 1024
)

// BackoffFunc returns the delay after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff waits 2^attempt seconds.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Copier copies one file or directory tree on the calling goroutine.
type Copier struct {
	FS         FileSystem
	MaxRetries int
	Backoff    BackoffFunc
	OnProgress ProgressFunc
	Control    *Control
	Logger     logging.Logger
}

// Run scans source and copies every file it holds to destination.
func (c *Copier) Run(ctx context.Context, source, destination string) (domain.JobStats, error) {
	if c.FS == nil {
		return domain.JobStats{}, errors.New("copier requires FS")
	}
	scanner := Scanner{FS: c.FS, Logger: c.Logger}
	inv, err := scanner.Scan(ctx, source)
	if err != nil {
		return domain.JobStats{}, err
	}
	return c.RunWithInventory(ctx, inv, destination)
}

// RunWithInventory copies the files of a previous scan, which may come from a cache.
func (c *Copier) RunWithInventory(ctx context.Context, inv domain.ScanStatistics, destination string) (domain.JobStats, error) {
	if c.FS == nil {
		return domain.JobStats{}, errors.New("copier requires FS")
	}
	if exists, err := c.FS.Exists(inv.Root); err != nil || !exists {
		return domain.JobStats{}, appErrors.WrapPath(appErrors.NotFound, "copy", inv.Root, notFoundUnless(err))
	}

	ctl, release := bind(ctx, c.Control)
	defer release()

	_, span := startSpan(ctx, "Copier.Run",
		attribute.String("job.id", ctl.ID()),
		attribute.String("source", inv.Root),
		attribute.Int("files", len(inv.Files)),
	)
	defer span.End()

	stop := c.Logger.Measure("Copying " + inv.Root)
	defer stop()

	total := len(inv.Files)
	stats := domain.JobStats{
		JobID:      ctl.ID(),
		TotalFiles: total,
		TotalSize:  inv.TotalSize,
		StartedAt:  time.Now(),
	}
	var res results

	for i, file := range inv.Files {
		if err := ctl.Checkpoint(); err != nil {
			stats.Cancelled = true
			break
		}

		target, err := targetPath(c.FS, inv, destination, file)
		if err != nil {
			res.addFailure(file, err.Error())
			continue
		}

		err = c.copyFile(ctl, domain.CopyTask{Index: i + 1, SourcePath: file, TargetPath: target}, total)
		switch {
		case err == nil:
			res.addCopied(file)
		case appErrors.IsCancelled(err):
			stats.Cancelled = true
		default:
			res.addFailure(file, err.Error())
		}
		if stats.Cancelled {
			break
		}
	}

	res.fill(&stats)
	span.SetAttributes(
		attribute.Int("copied", stats.CopiedFiles),
		attribute.Int("failed", stats.FailedFiles),
		attribute.Bool("cancelled", stats.Cancelled),
	)
	if stats.Cancelled {
		c.Logger.Verbosef("Job %s cancelled after %d of %d files", stats.JobID, stats.CopiedFiles+stats.FailedFiles, total)
	}
	return stats, nil
}

// CopyFile copies a single file with retries. It returns nil on success,
// ErrCancelled when the job was cancelled, or an IOFailure naming the number
// of attempts.
func (c *Copier) CopyFile(ctx context.Context, task domain.CopyTask, total int) error {
	if c.FS == nil {
		return errors.New("copier requires FS")
	}
	ctl, release := bind(ctx, c.Control)
	defer release()
	return c.copyFile(ctl, task, total)
}

func (c *Copier) copyFile(ctl *Control, task domain.CopyTask, total int) error {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := c.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctl.Checkpoint(); err != nil {
			return err
		}

		err := c.attempt(ctl, task, total)
		if err == nil {
			return nil
		}
		if appErrors.IsCancelled(err) {
			return err
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		if removeErr := c.FS.Remove(task.TargetPath); removeErr == nil {
			c.Logger.Verbosef("Removed partial copy %s", task.TargetPath)
		}
		delay := backoff(attempt)
		c.Logger.Verbosef("Attempt %d/%d for %s failed: %v (retrying in %s)", attempt, maxRetries, task.SourcePath, err, delay)
		if err := ctl.Sleep(delay); err != nil {
			return err
		}
	}

	c.Logger.Warnf("Giving up on %s after %d attempts: %v", task.SourcePath, maxRetries, lastErr)
	return appErrors.Wrap(appErrors.IOFailure, "copy", task.SourcePath,
		fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr))
}

// attempt performs one copy of task. Cancellation leaves the partial
// destination in place.
func (c *Copier) attempt(ctl *Control, task domain.CopyTask, total int) error {
	if err := c.FS.MkdirAll(filepath.Dir(task.TargetPath), 0o755); err != nil {
		return err
	}

	info, err := c.FS.Stat(task.SourcePath)
	if err != nil {
		return err
	}
	size := info.Size()

	if c.OnProgress == nil || size == 0 {
		return c.FS.CopyFile(task.SourcePath, task.TargetPath)
	}

	src, err := c.FS.Open(task.SourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.FS.Create(task.TargetPath, info.Mode().Perm())
	if err != nil {
		return err
	}

	chunk, interval := chunkPlan(size)
	buf := make([]byte, chunk)
	var copied, sinceUpdate int64
	for {
		if err := ctl.Checkpoint(); err != nil {
			dst.Close()
			return err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				dst.Close()
				return err
			}
			copied += int64(n)
			sinceUpdate += int64(n)
			if sinceUpdate >= interval {
				c.OnProgress.emit(task.Index, total, task.SourcePath, size, copied)
				sinceUpdate = 0
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			dst.Close()
			return readErr
		}
	}

	if err := dst.Close(); err != nil {
		return err
	}
	if sinceUpdate > 0 {
		c.OnProgress.emit(task.Index, total, task.SourcePath, size, copied)
	}
	return c.FS.CopyMetadata(task.SourcePath, task.TargetPath)
}

// chunkPlan picks the buffer size and the number of bytes between progress
// calls for a file of the given size.
func chunkPlan(size int64) (chunk int, interval int64) {
	switch {
	case size < smallFileLimit:
		return 512 * 1024, max(1, size/20)
	case size < mediumFileLimit:
		return 2 * 1024 * 1024, max(1, size/10)
	default:
		return 4 * 1024 * 1024, max(1, size/100)
	}
}

func notFoundUnless(err error) error {
	if err != nil {
		return err
	}
	return errors.New("source does not exist")
}
