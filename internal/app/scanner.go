package app

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"
	"copyverify/internal/logging"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultScanProgressEvery is the number of visited files between scan progress calls.
const DefaultScanProgressEvery = 50

type Scanner struct {
	FS            FileSystem
	Logger        logging.Logger
	OnProgress    ScanProgressFunc
	ProgressEvery int
}

// Scan classifies root as a file or a directory tree and inventories it.
func (s *Scanner) Scan(ctx context.Context, root string) (domain.ScanStatistics, error) {
	if s.FS == nil {
		return domain.ScanStatistics{}, errors.New("scanner requires FS")
	}

	ctx, span := startSpan(ctx, "Scanner.Scan", attribute.String("root", root))
	defer span.End()

	stop := s.Logger.Measure("Scanning " + root)
	defer stop()

	info, err := s.FS.Stat(root)
	if err != nil {
		err = appErrors.WrapPath(appErrors.IOFailure, "scan", root, err)
		endSpan(span, err)
		return domain.ScanStatistics{}, err
	}

	t := newTally(root, s.OnProgress, s.ProgressEvery)
	if !info.IsDir() {
		t.stats.IsFile = true
		t.addFile(root, info.Size())
		return t.finish(), nil
	}

	err = s.FS.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return appErrors.ErrCancelled
		}
		if walkErr != nil {
			switch {
			case errors.Is(walkErr, fs.ErrNotExist):
				s.Logger.Verbosef("Skipping %s: removed during scan", path)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			case errors.Is(walkErr, fs.ErrPermission):
				return appErrors.Wrap(appErrors.PermissionDenied, "scan", path, walkErr)
			default:
				return appErrors.Wrap(appErrors.IOFailure, "scan", path, walkErr)
			}
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			t.addDirectory(path)
			return nil
		}

		var size int64
		if fi, statErr := s.FS.Stat(path); statErr != nil {
			s.Logger.Verbosef("Counting %s as empty: %v", path, statErr)
		} else if fi.IsDir() {
			t.addDirectory(path)
			return nil
		} else {
			size = fi.Size()
		}
		t.addFile(path, size)
		return nil
	})
	if err != nil {
		endSpan(span, err)
		return domain.ScanStatistics{}, err
	}

	stats := t.finish()
	span.SetAttributes(
		attribute.Int("files", stats.TotalFiles),
		attribute.Int64("bytes", stats.TotalSize),
	)
	s.Logger.Verbosef("Scanned %s: %d files, %d directories, %s", root, stats.TotalFiles, stats.TotalDirectories, domain.FormatSize(stats.TotalSize))
	return stats, nil
}

// ScanFiles inventories an explicit list of files. Paths that are missing or
// are not regular files are left out of the inventory.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (domain.ScanStatistics, error) {
	if s.FS == nil {
		return domain.ScanStatistics{}, errors.New("scanner requires FS")
	}
	t := newTally("", s.OnProgress, s.ProgressEvery)
	for _, path := range paths {
		if ctx.Err() != nil {
			return domain.ScanStatistics{}, appErrors.ErrCancelled
		}
		info, err := s.FS.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			s.Logger.Verbosef("Leaving %s out of the selection inventory", path)
			continue
		}
		t.addFile(path, info.Size())
	}
	return t.finish(), nil
}

type tally struct {
	stats      domain.ScanStatistics
	onProgress ScanProgressFunc
	every      int
}

func newTally(root string, onProgress ScanProgressFunc, every int) *tally {
	if every <= 0 {
		every = DefaultScanProgressEvery
	}
	return &tally{
		stats: domain.ScanStatistics{
			Root:       root,
			Extensions: map[string]domain.ExtensionStat{},
		},
		onProgress: onProgress,
		every:      every,
	}
}

func (t *tally) addDirectory(path string) {
	t.stats.Directories = append(t.stats.Directories, path)
}

func (t *tally) addFile(path string, size int64) {
	if size < 0 {
		size = 0
	}
	t.stats.Files = append(t.stats.Files, path)
	t.stats.TotalSize = addSize(t.stats.TotalSize, size)

	key := domain.ExtensionKey(path)
	ext := t.stats.Extensions[key]
	ext.Count++
	ext.Size = addSize(ext.Size, size)
	t.stats.Extensions[key] = ext

	if len(t.stats.Files)%t.every == 0 {
		t.onProgress.emit(len(t.stats.Files), len(t.stats.Directories), t.stats.TotalSize)
	}
}

func (t *tally) finish() domain.ScanStatistics {
	t.stats.TotalFiles = len(t.stats.Files)
	t.stats.TotalDirectories = len(t.stats.Directories)
	if t.stats.TotalSize < 0 {
		t.stats.TotalSize = 0
	}
	t.stats.ScannedAt = time.Now()
	t.onProgress.emit(t.stats.TotalFiles, t.stats.TotalDirectories, t.stats.TotalSize)
	return t.stats
}

// addSize adds n to total, dropping the increment if the sum would wrap.
func addSize(total, n int64) int64 {
	next := total + n
	if next < total {
		return total
	}
	return next
}

// ShouldUseParallel reports whether an inventory benefits from the worker pool:
// only directory trees holding more than one file do.
func ShouldUseParallel(stats domain.ScanStatistics) bool {
	return !stats.IsFile && stats.TotalFiles > 1
}
