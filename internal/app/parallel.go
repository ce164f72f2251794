package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultJoinTimeout bounds how long Run waits for workers after the queue drains.
	DefaultJoinTimeout = time.Second
	queueIdleTimeout   = 500 * time.Millisecond
)

// ParallelCopier fans the files of a directory tree out over a fixed pool of
// workers pulling from one shared queue. Each file goes through Copier.
type ParallelCopier struct {
	Copier      *Copier
	Workers     int
	JoinTimeout time.Duration
}

func (p *ParallelCopier) Run(ctx context.Context, source, destination string) (domain.JobStats, error) {
	if p.Copier == nil || p.Copier.FS == nil {
		return domain.JobStats{}, errors.New("parallel copier requires a Copier with FS")
	}
	scanner := Scanner{FS: p.Copier.FS, Logger: p.Copier.Logger}
	inv, err := scanner.Scan(ctx, source)
	if err != nil {
		return domain.JobStats{}, err
	}
	return p.RunWithInventory(ctx, inv, destination)
}

// RunWithInventory copies the files of a previous scan. Single-file
// inventories are handed to the sequential engine.
func (p *ParallelCopier) RunWithInventory(ctx context.Context, inv domain.ScanStatistics, destination string) (domain.JobStats, error) {
	if p.Copier == nil || p.Copier.FS == nil {
		return domain.JobStats{}, errors.New("parallel copier requires a Copier with FS")
	}
	if inv.IsFile {
		return p.Copier.RunWithInventory(ctx, inv, destination)
	}
	c := p.Copier
	if exists, err := c.FS.Exists(inv.Root); err != nil || !exists {
		return domain.JobStats{}, appErrors.WrapPath(appErrors.NotFound, "copy", inv.Root, notFoundUnless(err))
	}

	ctl, release := bind(ctx, c.Control)
	defer release()

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	_, span := startSpan(ctx, "ParallelCopier.Run",
		attribute.String("job.id", ctl.ID()),
		attribute.String("source", inv.Root),
		attribute.Int("files", len(inv.Files)),
		attribute.Int("workers", workers),
	)
	defer span.End()

	stop := c.Logger.Measure("Parallel copy of " + inv.Root)
	defer stop()

	total := len(inv.Files)
	stats := domain.JobStats{
		JobID:      ctl.ID(),
		TotalFiles: total,
		TotalSize:  inv.TotalSize,
		StartedAt:  time.Now(),
	}
	var res results

	queue := make(chan domain.CopyTask, total)
	var pending sync.WaitGroup
	var queued int64
	var settled atomic.Int64
	for i, file := range inv.Files {
		target, err := targetPath(c.FS, inv, destination, file)
		if err != nil {
			res.addFailure(file, err.Error())
			continue
		}
		pending.Add(1)
		queued++
		queue <- domain.CopyTask{Index: i + 1, SourcePath: file, TargetPath: target}
	}

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctl, id, queue, &pending, &settled, &res, total)
		}(id)
	}
	c.Logger.Verbosef("Started %d workers for %d files", workers, total)

	drained := make(chan struct{})
	go func() {
		pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctl.Done():
	}
	close(queue)

	joinTimeout := p.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(joinTimeout):
		c.Logger.Warnf("Workers did not stop within %s", joinTimeout)
	}

	// Items nobody picked up before cancellation.
	for range queue {
		pending.Done()
	}

	// A cancel that lands after every task settled does not undo the run.
	stats.Cancelled = ctl.Cancelled() && settled.Load() < queued
	res.fill(&stats)
	span.SetAttributes(
		attribute.Int("copied", stats.CopiedFiles),
		attribute.Int("failed", stats.FailedFiles),
		attribute.Bool("cancelled", stats.Cancelled),
	)
	return stats, nil
}

// worker copies tasks until the queue closes or the job is cancelled. settled
// counts tasks that ended copied or failed.
func (p *ParallelCopier) worker(ctl *Control, id int, queue <-chan domain.CopyTask, pending *sync.WaitGroup, settled *atomic.Int64, res *results, total int) {
	c := p.Copier
	idle := time.NewTimer(queueIdleTimeout)
	defer idle.Stop()

	for {
		if ctl.Cancelled() {
			return
		}
		if err := ctl.Checkpoint(); err != nil {
			return
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(queueIdleTimeout)

		var task domain.CopyTask
		select {
		case <-ctl.Done():
			return
		case <-idle.C:
			continue
		case t, ok := <-queue:
			if !ok {
				return
			}
			task = t
		}

		err := c.copyFile(ctl, task, total)
		switch {
		case err == nil:
			res.addCopied(task.SourcePath)
			settled.Add(1)
		case appErrors.IsCancelled(err):
		default:
			res.addFailure(task.SourcePath, err.Error())
			settled.Add(1)
		}
		pending.Done()
		c.Logger.Verbosef("Worker %d finished %s", id, task.SourcePath)
	}
}
