package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"copyverify/internal/app"
	"copyverify/internal/config"
	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"
	"copyverify/internal/infra/fs"
	"copyverify/internal/infra/report"
	"copyverify/internal/infra/scancache"
	"copyverify/internal/logging"
	"copyverify/internal/presentation"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type cli struct {
	cfg    config.Config
	out    io.Writer
	errOut io.Writer
	fs     fs.OSFS
	tp     *sdktrace.TracerProvider
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{cfg: config.Defaults(), out: out, errOut: errOut}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "copyverify",
		Short:         "Copy files and directory trees, then prove the copies match",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			if c.cfg.Trace {
				tp, err := initTracer(c.errOut)
				if err != nil {
					return appErrors.Wrap(appErrors.Internal, "trace", "", err)
				}
				c.tp = tp
			}
			return nil
		},
	}
	c.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(c.scanCommand(), c.copyCommand(), c.verifyCommand(), c.cacheCommand())
	return root
}

func (c *cli) shutdown() {
	if c.tp == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.tp.Shutdown(ctx); err != nil {
		fmt.Fprintf(c.errOut, "Error shutting down tracer provider: %v\n", err)
	}
}

func (c *cli) scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [source]",
		Short: "Inventory a file or directory tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.ApplyArgs(args, false)
			if err := c.cfg.Validate(false); err != nil {
				return err
			}
			logger := c.logger()
			cache := c.openCache(logger)
			if cache != nil {
				defer cache.Close()
			}

			stats, err := c.inventory(cmd.Context(), cache, logger, nil)
			if err != nil {
				return err
			}
			c.printer().PrintScan(stats)
			return nil
		},
	}
}

func (c *cli) copyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "copy [source...] [destination]",
		Short: "Copy a file, a directory tree or a list of files",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.ApplyArgs(args, true)
			if err := c.cfg.Validate(true); err != nil {
				return err
			}
			if c.cfg.TUI {
				return c.runInteractive(cmd.Context())
			}
			return c.runCopy(cmd.Context())
		},
	}
}

func (c *cli) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [source...] [destination]",
		Short: "Compare a destination against its source by content hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.ApplyArgs(args, true)
			if err := c.cfg.Validate(true); err != nil {
				return err
			}
			logger := c.logger()
			cache := c.openCache(logger)
			if cache != nil {
				defer cache.Close()
			}

			var inv *domain.ScanStatistics
			if !c.cfg.MultiSelection() {
				stats, err := c.inventory(cmd.Context(), cache, logger, nil)
				if err != nil {
					return err
				}
				inv = &stats
			}

			result, err := c.verify(cmd.Context(), inv, logger, nil)
			if err != nil && !appErrors.IsCancelled(err) {
				return err
			}
			c.printer().PrintVerification(result)
			if err := c.writeReport(domain.JobStats{}, &result); err != nil {
				return err
			}
			return verificationError(result)
		},
	}
}

func (c *cli) cacheCommand() *cobra.Command {
	var expiredOnly bool
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove cached scan results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.CacheDB == "" {
				return appErrors.Wrap(appErrors.InvalidConfig, "config", "", fmt.Errorf("--cache is required"))
			}
			store, err := scancache.Open(c.cfg.CacheDB, c.cfg.CacheTTL)
			if err != nil {
				return appErrors.Wrap(appErrors.IOFailure, "cache", c.cfg.CacheDB, err)
			}
			defer store.Close()

			if expiredOnly {
				n, err := store.ClearExpired(cmd.Context())
				if err != nil {
					return appErrors.Wrap(appErrors.IOFailure, "cache", c.cfg.CacheDB, err)
				}
				fmt.Fprintf(c.out, "Removed %d expired scans.\n", n)
				return nil
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return appErrors.Wrap(appErrors.IOFailure, "cache", c.cfg.CacheDB, err)
			}
			fmt.Fprintln(c.out, "Cache cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "Only remove entries older than the cache TTL")
	return cmd
}

func (c *cli) logger() logging.Logger {
	return logging.New(c.errOut, c.cfg.Verbose)
}

func (c *cli) printer() presentation.Printer {
	return presentation.Printer{Writer: c.out, Verbose: c.cfg.Verbose}
}

// openCache returns nil when caching is off or the database cannot be used.
func (c *cli) openCache(logger logging.Logger) *scancache.Store {
	if c.cfg.CacheDB == "" {
		return nil
	}
	store, err := scancache.Open(c.cfg.CacheDB, c.cfg.CacheTTL)
	if err != nil {
		logger.Warnf("scan cache disabled: %v", err)
		return nil
	}
	return store
}

// inventory scans the configured source or file selection, going through the
// cache when one is open. Selections are keyed by their sorted file list.
func (c *cli) inventory(ctx context.Context, cache *scancache.Store, logger logging.Logger, onProgress app.ScanProgressFunc) (domain.ScanStatistics, error) {
	scanner := app.Scanner{FS: c.fs, Logger: logger, OnProgress: onProgress}
	scan := func() (domain.ScanStatistics, error) {
		if c.cfg.MultiSelection() {
			return scanner.ScanFiles(ctx, c.cfg.Sources)
		}
		return scanner.Scan(ctx, c.cfg.Source)
	}
	if cache == nil {
		return scan()
	}

	key := scancache.Key(c.cfg.Source)
	if c.cfg.MultiSelection() {
		key = scancache.SelectionKey(c.cfg.Sources)
	}
	if stats, ok, err := cache.Get(ctx, key); err != nil {
		logger.Warnf("reading scan cache: %v", err)
	} else if ok {
		logger.Verbosef("Using cached scan of %s from %s", c.sourceLabel(), stats.ScannedAt.Format(time.RFC3339))
		return stats, nil
	}

	stats, err := scan()
	if err != nil {
		return stats, err
	}
	if err := cache.Put(ctx, key, stats); err != nil {
		logger.Warnf("writing scan cache: %v", err)
	}
	return stats, nil
}

// useParallel reports whether a scanned source goes to the worker pool.
// Single files always copy sequentially.
func (c *cli) useParallel(inv domain.ScanStatistics) bool {
	switch c.cfg.Parallel {
	case config.ParallelOn:
		return !inv.IsFile
	case config.ParallelOff:
		return false
	default:
		return app.ShouldUseParallel(inv)
	}
}

func (c *cli) newCopier(ctl *app.Control, logger logging.Logger, onProgress app.ProgressFunc) *app.Copier {
	return &app.Copier{
		FS:         c.fs,
		MaxRetries: c.cfg.MaxRetries,
		OnProgress: onProgress,
		Control:    ctl,
		Logger:     logger,
	}
}

// copyJob runs the configured copy. inv is nil for a multi-selection.
func (c *cli) copyJob(ctx context.Context, copier *app.Copier, inv *domain.ScanStatistics) (domain.JobStats, error) {
	if inv == nil {
		multi := app.MultiCopier{Copier: copier}
		return multi.Run(ctx, c.cfg.Sources, c.cfg.Destination)
	}
	if c.useParallel(*inv) {
		p := app.ParallelCopier{Copier: copier, Workers: c.cfg.Workers}
		return p.RunWithInventory(ctx, *inv, c.cfg.Destination)
	}
	return copier.RunWithInventory(ctx, *inv, c.cfg.Destination)
}

func (c *cli) verify(ctx context.Context, inv *domain.ScanStatistics, logger logging.Logger, onProgress app.VerifyProgressFunc) (domain.VerificationResult, error) {
	verifier, err := app.NewVerifier(c.fs, c.cfg.Algorithm)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	verifier.ChunkSize = c.cfg.HashChunkSize
	verifier.Logger = logger
	verifier.OnProgress = onProgress
	if c.cfg.Parallel != config.ParallelOff {
		verifier.Workers = c.cfg.Workers
	}

	if inv == nil {
		return verifier.VerifyFiles(ctx, c.cfg.Sources, c.cfg.Destination)
	}
	return verifier.VerifyInventory(ctx, *inv, c.cfg.Destination)
}

func (c *cli) runCopy(ctx context.Context) error {
	logger := c.logger()
	cache := c.openCache(logger)
	if cache != nil {
		defer cache.Close()
	}

	scanned, err := c.inventory(ctx, cache, logger, nil)
	if err != nil {
		return err
	}
	logger.Verbosef("%s: %d files (%s)", c.sourceLabel(), scanned.TotalFiles, domain.FormatSize(scanned.TotalSize))
	var inv *domain.ScanStatistics
	if !c.cfg.MultiSelection() {
		inv = &scanned
	}

	ctl := app.NewControl(ctx)
	stats, err := c.copyJob(ctx, c.newCopier(ctl, logger, nil), inv)
	if err != nil {
		return err
	}
	c.printer().PrintJob(stats)

	var verification *domain.VerificationResult
	if c.cfg.Verify && !stats.Cancelled {
		fmt.Fprintln(c.out)
		result, err := c.verify(ctl.Context(), inv, logger, nil)
		if err != nil && !appErrors.IsCancelled(err) {
			return err
		}
		c.printer().PrintVerification(result)
		verification = &result
	}

	if err := c.writeReport(stats, verification); err != nil {
		return err
	}
	return jobError(stats, verification)
}

func (c *cli) writeReport(stats domain.JobStats, verification *domain.VerificationResult) error {
	if c.cfg.ReportPath == "" {
		return nil
	}
	err := report.Write(c.cfg.ReportPath, report.Report{
		Source:       c.sourceLabel(),
		Destination:  c.cfg.Destination,
		Algorithm:    c.cfg.Algorithm,
		Stats:        stats,
		Verification: verification,
	})
	if err != nil {
		return appErrors.Wrap(appErrors.IOFailure, "report", c.cfg.ReportPath, err)
	}
	return nil
}

func jobError(stats domain.JobStats, verification *domain.VerificationResult) error {
	if stats.Cancelled {
		return appErrors.ErrCancelled
	}
	if stats.FailedFiles > 0 {
		return appErrors.Wrap(appErrors.IOFailure, "copy", "", fmt.Errorf("%d of %d files failed", stats.FailedFiles, stats.TotalFiles))
	}
	if verification != nil {
		return verificationError(*verification)
	}
	return nil
}

func verificationError(result domain.VerificationResult) error {
	if result.Cancelled {
		return appErrors.ErrCancelled
	}
	if result.Corrupted > 0 {
		return appErrors.Wrap(appErrors.IOFailure, "verify", "", fmt.Errorf("%d of %d files do not match", result.Corrupted, result.Total))
	}
	return nil
}
