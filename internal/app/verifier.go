package app

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"
	"copyverify/internal/logging"

	"go.opentelemetry.io/otel/attribute"
)

const (
	AlgorithmSHA256 = "sha256"
	AlgorithmMD5    = "md5"

	DefaultAlgorithm     = AlgorithmSHA256
	DefaultHashChunkSize = 8 * 1024

	ReasonMissing = "not found at destination"
)

var hashes = map[string]func() hash.Hash{
	AlgorithmSHA256: sha256.New,
	AlgorithmMD5:    md5.New,
}

// Algorithms lists the supported digest names.
func Algorithms() []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAlgorithm returns an UnsupportedAlgorithm error for unknown names.
func ValidateAlgorithm(name string) error {
	if _, ok := hashes[strings.ToLower(name)]; ok {
		return nil
	}
	return appErrors.Wrap(appErrors.UnsupportedAlgorithm, "hash", "",
		fmt.Errorf("%q (supported: %s)", name, strings.Join(Algorithms(), ", ")))
}

// Verifier hashes files and compares copies against their sources. Digests
// are memoised per path for the verifier's lifetime, so a path must not change
// while one verifier is in use.
type Verifier struct {
	FS         FileSystem
	ChunkSize  int
	Workers    int
	OnProgress VerifyProgressFunc
	Logger     logging.Logger

	algorithm string
	newHash   func() hash.Hash

	mu    sync.Mutex
	cache map[string]string
}

func NewVerifier(fsys FileSystem, algorithm string) (*Verifier, error) {
	if fsys == nil {
		return nil, errors.New("verifier requires FS")
	}
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	algorithm = strings.ToLower(algorithm)
	newHash, ok := hashes[algorithm]
	if !ok {
		return nil, ValidateAlgorithm(algorithm)
	}
	return &Verifier{
		FS:        fsys,
		ChunkSize: DefaultHashChunkSize,
		algorithm: algorithm,
		newHash:   newHash,
		cache:     map[string]string{},
	}, nil
}

func (v *Verifier) Algorithm() string { return v.algorithm }

// Digest returns the hex digest of path, reading the file only the first time.
func (v *Verifier) Digest(path string) (string, error) {
	v.mu.Lock()
	cached, ok := v.cache[path]
	v.mu.Unlock()
	if ok {
		return cached, nil
	}

	sum, err := v.compute(path)
	if err != nil {
		return "", appErrors.Wrap(appErrors.IOFailure, "digest", path, err)
	}

	v.mu.Lock()
	if existing, ok := v.cache[path]; ok {
		sum = existing
	} else {
		v.cache[path] = sum
	}
	v.mu.Unlock()
	return sum, nil
}

func (v *Verifier) compute(path string) (string, error) {
	f, err := v.FS.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	chunk := v.ChunkSize
	if chunk <= 0 {
		chunk = DefaultHashChunkSize
	}
	h := v.newHash()
	if _, err := io.CopyBuffer(h, onlyReader{f}, make([]byte, chunk)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compare reports whether both files have the same digest. Failures are
// returned as the reason rather than as an error.
func (v *Verifier) Compare(sourcePath, destPath string) (bool, string) {
	sourceSum, err := v.Digest(sourcePath)
	if err != nil {
		return false, err.Error()
	}
	destSum, err := v.Digest(destPath)
	if err != nil {
		return false, err.Error()
	}
	if sourceSum != destSum {
		return false, fmt.Sprintf("hash mismatch: source=%s..., destination=%s...", shortSum(sourceSum), shortSum(destSum))
	}
	return true, ""
}

// VerifyTree scans source and checks every file against its copy under destination.
func (v *Verifier) VerifyTree(ctx context.Context, source, destination string) (domain.VerificationResult, error) {
	scanner := Scanner{FS: v.FS, Logger: v.Logger}
	inv, err := scanner.Scan(ctx, source)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	return v.VerifyInventory(ctx, inv, destination)
}

// VerifyInventory checks the files of a previous scan.
func (v *Verifier) VerifyInventory(ctx context.Context, inv domain.ScanStatistics, destination string) (domain.VerificationResult, error) {
	if exists, err := v.FS.Exists(inv.Root); err != nil || !exists {
		return domain.VerificationResult{}, appErrors.WrapPath(appErrors.NotFound, "verify", inv.Root, notFoundUnless(err))
	}
	pairs := make([]pair, len(inv.Files))
	for i, file := range inv.Files {
		target, err := targetPath(v.FS, inv, destination, file)
		pairs[i] = pair{source: file, target: target, err: err}
	}
	return v.verifyPairs(ctx, "Verifier.VerifyTree", pairs)
}

// VerifyFiles checks a multi-selection copied flat into destination.
func (v *Verifier) VerifyFiles(ctx context.Context, sources []string, destination string) (domain.VerificationResult, error) {
	pairs := make([]pair, len(sources))
	for i, source := range sources {
		pairs[i] = pair{source: source, target: filepath.Join(destination, filepath.Base(source))}
	}
	return v.verifyPairs(ctx, "Verifier.VerifyFiles", pairs)
}

type pair struct {
	source string
	target string
	err    error
}

type outcome struct {
	done   bool
	ok     bool
	reason string
}

func (v *Verifier) verifyPairs(ctx context.Context, name string, pairs []pair) (domain.VerificationResult, error) {
	ctx, span := startSpan(ctx, name,
		attribute.String("algorithm", v.algorithm),
		attribute.Int("files", len(pairs)),
	)
	defer span.End()

	stop := v.Logger.Measure("Verification")
	defer stop()

	workers := v.Workers
	if workers < 1 {
		workers = 1
	}

	total := len(pairs)
	outcomes := make([]outcome, total)
	var processed atomic.Int64

	check := func(i int) {
		p := pairs[i]
		var o outcome
		switch {
		case p.err != nil:
			o = outcome{reason: p.err.Error()}
		default:
			exists, err := v.FS.Exists(p.target)
			switch {
			case err != nil:
				o = outcome{reason: err.Error()}
			case !exists:
				o = outcome{reason: ReasonMissing}
			default:
				ok, reason := v.Compare(p.source, p.target)
				o = outcome{ok: ok, reason: reason}
			}
		}
		o.done = true
		outcomes[i] = o
		v.OnProgress.emit(int(processed.Add(1)), total, p.source)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				check(i)
			}
		}()
	}

	cancelled := false
feed:
	for i := range pairs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	result := domain.VerificationResult{Total: total, Cancelled: cancelled}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.ok {
			result.Verified++
			continue
		}
		result.CorruptedList = append(result.CorruptedList, domain.Mismatch{Path: pairs[i].source, Reason: o.reason})
	}
	result.Corrupted = len(result.CorruptedList)

	span.SetAttributes(
		attribute.Int("verified", result.Verified),
		attribute.Int("corrupted", result.Corrupted),
	)
	v.Logger.Verbosef("Verified %d of %d files (%d corrupted)", result.Verified, result.Total, result.Corrupted)
	if cancelled {
		endSpan(span, appErrors.ErrCancelled)
		return result, appErrors.ErrCancelled
	}
	return result, nil
}

func shortSum(sum string) string {
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer honours the chunk size.
type onlyReader struct {
	io.Reader
}
