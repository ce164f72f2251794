package app

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"

	"go.opentelemetry.io/otel/attribute"
)

// MultiCopier copies an explicit selection of files into one directory,
// delegating each file to Copier.
type MultiCopier struct {
	Copier *Copier
}

func (m *MultiCopier) Run(ctx context.Context, sources []string, destination string) (domain.JobStats, error) {
	if m.Copier == nil || m.Copier.FS == nil {
		return domain.JobStats{}, errors.New("multi copier requires a Copier with FS")
	}
	c := m.Copier
	ctl, release := bind(ctx, c.Control)
	defer release()

	_, span := startSpan(ctx, "MultiCopier.Run",
		attribute.String("job.id", ctl.ID()),
		attribute.Int("files", len(sources)),
	)
	defer span.End()

	total := len(sources)
	stats := domain.JobStats{
		JobID:      ctl.ID(),
		TotalFiles: total,
		StartedAt:  time.Now(),
	}
	var res results

	for i, source := range sources {
		if err := ctl.Checkpoint(); err != nil {
			stats.Cancelled = true
			break
		}

		info, err := c.FS.Stat(source)
		if err != nil || !info.Mode().IsRegular() {
			res.addFailure(source, "file not found")
			continue
		}
		stats.TotalSize = addSize(stats.TotalSize, info.Size())

		task := domain.CopyTask{
			Index:      i + 1,
			SourcePath: source,
			TargetPath: filepath.Join(destination, filepath.Base(source)),
		}
		err = c.copyFile(ctl, task, total)
		if appErrors.IsCancelled(err) {
			stats.Cancelled = true
			break
		}
		if err != nil {
			res.addFailure(source, err.Error())
			continue
		}
		res.addCopied(source)
		c.OnProgress.emit(task.Index, total, source, info.Size(), info.Size())
	}

	res.fill(&stats)
	span.SetAttributes(
		attribute.Int("copied", stats.CopiedFiles),
		attribute.Int("failed", stats.FailedFiles),
	)
	return stats, nil
}
