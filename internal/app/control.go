package app

import (
	"context"
	"sync/atomic"
	"time"

	appErrors "copyverify/internal/errors"

	"github.com/google/uuid"
)

// PausePollInterval is how often a paused worker re-checks its job state.
const PausePollInterval = 100 * time.Millisecond

// Control carries the pause and cancel state of one job. It is shared by
// pointer between the caller and every worker of that job.
type Control struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	paused atomic.Bool
	poll   time.Duration
}

// NewControl returns a running, unpaused control. Cancelling parent cancels the job.
func NewControl(parent context.Context) *Control {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Control{
		id:     uuid.New().String(),
		ctx:    ctx,
		cancel: cancel,
		poll:   PausePollInterval,
	}
}

func (c *Control) ID() string { return c.id }

func (c *Control) Pause() { c.paused.Store(true) }

func (c *Control) Resume() { c.paused.Store(false) }

// Cancel is terminal. It also releases anyone blocked in a pause.
func (c *Control) Cancel() {
	c.cancel()
	c.paused.Store(false)
}

// Toggle flips the pause state and reports whether the job is now paused.
func (c *Control) Toggle() bool {
	for {
		old := c.paused.Load()
		if c.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (c *Control) Paused() bool { return c.paused.Load() }

func (c *Control) Cancelled() bool { return c.ctx.Err() != nil }

func (c *Control) Done() <-chan struct{} { return c.ctx.Done() }

func (c *Control) Context() context.Context { return c.ctx }

// Checkpoint returns ErrCancelled if the job is cancelled and otherwise
// blocks while the job is paused.
func (c *Control) Checkpoint() error {
	if c.Cancelled() {
		return appErrors.ErrCancelled
	}
	if !c.paused.Load() {
		return nil
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for c.paused.Load() {
		select {
		case <-c.ctx.Done():
			return appErrors.ErrCancelled
		case <-ticker.C:
		}
	}
	if c.Cancelled() {
		return appErrors.ErrCancelled
	}
	return nil
}

// Sleep waits for d unless the job is cancelled first.
func (c *Control) Sleep(d time.Duration) error {
	if d <= 0 {
		if c.Cancelled() {
			return appErrors.ErrCancelled
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return appErrors.ErrCancelled
	case <-timer.C:
		return nil
	}
}

// bind returns ctl, or a fresh control when ctl is nil, tied to ctx.
// The returned stop function detaches ctx from the control.
func bind(ctx context.Context, ctl *Control) (*Control, func()) {
	if ctl == nil {
		ctl = NewControl(ctx)
		return ctl, func() {}
	}
	stop := context.AfterFunc(ctx, ctl.Cancel)
	return ctl, func() { stop() }
}
