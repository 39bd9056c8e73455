// Package session drives the remote analysis call for one accepted file at a
// time: at most one pending upload, cooperative cancellation, and a guard
// that drops settlements from superseded uploads.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"beatscope/internal/analyze"
)

// State is the lifecycle state of one upload.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Analyzer performs the remote analysis call. *analyze.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, path, filename string) (analyze.Result, error)
}

// Upload is one accepted file's journey through analysis.
type Upload struct {
	ID       uuid.UUID
	Filename string

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// State returns the upload's current lifecycle state.
func (u *Upload) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// settle moves a pending upload to a terminal state. Returns false if the
// upload already settled; an upload settles exactly once.
func (u *Upload) settle(s State) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != Pending {
		return false
	}
	u.state = s
	return true
}

// Outcome is the settlement of an upload that was still current when its
// request finished. Err is nil on success.
type Outcome struct {
	Session  uuid.UUID
	Filename string
	Result   analyze.Result
	Err      error
}

// Controller issues analysis requests and enforces the single-pending-upload
// invariant. Settlements of current uploads are delivered on Outcomes();
// settlements of superseded uploads are observed and dropped.
type Controller struct {
	analyzer Analyzer

	mu      sync.Mutex
	current *Upload

	outcomes chan Outcome
}

// NewController creates a controller around the given analyzer.
func NewController(a Analyzer) *Controller {
	return &Controller{
		analyzer: a,
		outcomes: make(chan Outcome, 4),
	}
}

// Outcomes returns the channel of settlements for current uploads.
func (c *Controller) Outcomes() <-chan Outcome { return c.outcomes }

// Submit accepts a new file for analysis. Any pending upload is cancelled
// first: its in-flight request is aborted and its eventual settlement will be
// dropped. The returned upload is current until the next Submit or Cancel.
func (c *Controller) Submit(path, filename string) *Upload {
	ctx, cancel := context.WithCancel(context.Background())
	up := &Upload{
		ID:       uuid.New(),
		Filename: filename,
		state:    Pending,
		cancel:   cancel,
	}

	c.mu.Lock()
	if prev := c.current; prev != nil {
		if prev.settle(Cancelled) {
			prev.cancel()
			log.Printf("upload %s superseded by %s", prev.ID, up.ID)
		}
	}
	c.current = up
	c.mu.Unlock()

	go c.run(ctx, up, path)
	return up
}

// Cancel aborts the pending upload, if any, without replacing it. Used on
// teardown; no message is surfaced for it.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.current; cur != nil && cur.settle(Cancelled) {
		cur.cancel()
		log.Printf("upload %s cancelled", cur.ID)
	}
}

// Current returns the upload accepted most recently, or nil.
func (c *Controller) Current() *Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) run(ctx context.Context, up *Upload, path string) {
	defer up.cancel()

	result, err := c.analyzer.Analyze(ctx, path, up.Filename)

	c.mu.Lock()
	stale := c.current != up
	c.mu.Unlock()

	// Stale-result guard: a settlement for a non-current upload is observed
	// here and goes no further.
	if stale || !settleFromError(up, err) {
		return
	}

	c.publish(Outcome{Session: up.ID, Filename: up.Filename, Result: result, Err: err})
}

// settleFromError records the terminal state for a still-current upload.
// Returns false when the upload had already been cancelled, or when the
// request itself settled as a cancellation (nothing to surface either way).
func settleFromError(up *Upload, err error) bool {
	switch {
	case err == nil:
		return up.settle(Succeeded)
	case analyze.IsCancelled(err):
		up.settle(Cancelled)
		return false
	default:
		return up.settle(Failed)
	}
}

// publish delivers an outcome without ever blocking the request goroutine.
// If the buffer is full the oldest undelivered outcome is discarded; the
// receiver re-checks session identity anyway.
func (c *Controller) publish(o Outcome) {
	for {
		select {
		case c.outcomes <- o:
			return
		default:
		}
		select {
		case <-c.outcomes:
		default:
		}
	}
}
