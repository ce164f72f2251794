package main

import (
	"context"
	"errors"
	"fmt"

	"copyverify/internal/app"
	"copyverify/internal/domain"
	appErrors "copyverify/internal/errors"
	"copyverify/internal/infra/scancache"
	"copyverify/internal/logging"
	"copyverify/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

type interactiveResult struct {
	stats        domain.JobStats
	verification *domain.VerificationResult
	err          error
}

// runInteractive runs the copy on a background goroutine and renders it with
// the TUI. Quitting the TUI cancels the job.
func (c *cli) runInteractive(ctx context.Context) error {
	logger := logging.Logger{}
	cache := c.openCache(logger)
	if cache != nil {
		defer cache.Close()
	}

	ctl := app.NewControl(ctx)
	events := make(chan tea.Msg, 64)
	progress := make(chan domain.ProgressEvent, 256)
	uiDone := make(chan struct{})

	post := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-uiDone:
		}
	}
	offer := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	finished := make(chan interactiveResult, 1)
	go func() {
		defer close(events)
		res := c.interactiveJob(ctl, cache, logger, app.ChannelProgress(progress), post, offer)
		if res.err != nil && !appErrors.IsCancelled(res.err) {
			post(tui.ErrorMsg{Err: errors.New(appErrors.UserMessage(res.err))})
		}
		finished <- res
	}()

	model := tui.NewModel(tui.Config{
		Source:      c.sourceLabel(),
		Destination: c.cfg.Destination,
		Verify:      c.cfg.Verify,
		Control:     ctl,
		Events:      events,
		Progress:    progress,
	})
	_, runErr := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	close(uiDone)
	if runErr != nil {
		ctl.Cancel()
	}

	res := <-finished
	if res.err != nil {
		return res.err
	}
	if res.stats.Cancelled {
		c.printer().PrintJob(res.stats)
	}
	if err := c.writeReport(res.stats, res.verification); err != nil {
		return err
	}
	return jobError(res.stats, res.verification)
}

func (c *cli) interactiveJob(ctl *app.Control, cache *scancache.Store, logger logging.Logger, onProgress app.ProgressFunc, post, offer func(tea.Msg)) interactiveResult {
	ctx := ctl.Context()

	scanned, err := c.inventory(ctx, cache, logger, func(files, directories int, size int64) {
		offer(tui.ScanProgressMsg{Files: files, Directories: directories, Size: size})
	})
	if err != nil {
		return interactiveResult{err: err}
	}
	post(tui.ScanDoneMsg{Stats: scanned})
	var inv *domain.ScanStatistics
	if !c.cfg.MultiSelection() {
		inv = &scanned
	}

	stats, err := c.copyJob(ctx, c.newCopier(ctl, logger, onProgress), inv)
	if err != nil {
		return interactiveResult{err: err}
	}
	post(tui.CopyDoneMsg{Stats: stats})
	if !c.cfg.Verify || stats.Cancelled {
		return interactiveResult{stats: stats}
	}

	result, err := c.verify(ctx, inv, logger, func(current, total int, path string) {
		offer(tui.VerifyProgressMsg{Current: current, Total: total, Path: path})
	})
	if err != nil && !appErrors.IsCancelled(err) {
		return interactiveResult{stats: stats, err: err}
	}
	post(tui.VerifyDoneMsg{Result: result})
	return interactiveResult{stats: stats, verification: &result}
}

func (c *cli) sourceLabel() string {
	if c.cfg.MultiSelection() {
		return fmt.Sprintf("%d selected files", len(c.cfg.Sources))
	}
	return c.cfg.Source
}
