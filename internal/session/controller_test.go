package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beatscope/internal/analyze"
)

// fakeAnalyzer lets a test hold requests open and settle them on demand.
type fakeAnalyzer struct {
	mu      sync.Mutex
	results map[string]analyze.Result
	errs    map[string]error
	release map[string]chan struct{}
	started chan string
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		results: make(map[string]analyze.Result),
		errs:    make(map[string]error),
		release: make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

// hold makes the request for filename block until the returned channel closes.
func (f *fakeAnalyzer) hold(filename string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.release[filename] = ch
	return ch
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, path, filename string) (analyze.Result, error) {
	f.started <- filename

	f.mu.Lock()
	gate := f.release[filename]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return analyze.Result{}, &analyze.Error{Kind: analyze.KindCancelled}
		}
	}
	if ctx.Err() != nil {
		return analyze.Result{}, &analyze.Error{Kind: analyze.KindCancelled}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[filename]; ok {
		return analyze.Result{}, err
	}
	return f.results[filename], nil
}

func waitOutcome(t *testing.T, c *Controller) Outcome {
	t.Helper()
	select {
	case o := <-c.Outcomes():
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outcome")
		return Outcome{}
	}
}

func TestSubmitSuccess(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.results["song.mp3"] = analyze.Result{BPM: 128.3, Key: "A minor"}
	c := NewController(fa)

	up := c.Submit("/tmp/song.mp3", "song.mp3")
	if up.State() != Pending && up.State() != Succeeded {
		t.Errorf("fresh upload state = %v", up.State())
	}

	o := waitOutcome(t, c)
	if o.Session != up.ID {
		t.Errorf("outcome session = %v, want %v", o.Session, up.ID)
	}
	if o.Err != nil {
		t.Errorf("outcome err = %v, want nil", o.Err)
	}
	if o.Result.BPM != 128.3 {
		t.Errorf("outcome BPM = %v, want 128.3", o.Result.BPM)
	}
	if up.State() != Succeeded {
		t.Errorf("upload state = %v, want Succeeded", up.State())
	}
}

func TestSubmitFailure(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.errs["bad.wav"] = &analyze.Error{Kind: analyze.KindUnsupportedMedia, Status: 415}
	c := NewController(fa)

	up := c.Submit("/tmp/bad.wav", "bad.wav")
	o := waitOutcome(t, c)
	if o.Err == nil {
		t.Fatal("outcome err = nil, want classified failure")
	}
	var ae *analyze.Error
	if !errors.As(o.Err, &ae) || ae.Kind != analyze.KindUnsupportedMedia {
		t.Errorf("outcome err = %v, want KindUnsupportedMedia", o.Err)
	}
	if up.State() != Failed {
		t.Errorf("upload state = %v, want Failed", up.State())
	}
}

func TestNewSubmitCancelsPending(t *testing.T) {
	fa := newFakeAnalyzer()
	gateA := fa.hold("a.mp3")
	fa.results["a.mp3"] = analyze.Result{BPM: 100}
	fa.results["b.mp3"] = analyze.Result{BPM: 200}
	c := NewController(fa)

	upA := c.Submit("/tmp/a.mp3", "a.mp3")
	<-fa.started

	upB := c.Submit("/tmp/b.mp3", "b.mp3")
	<-fa.started

	if upA.State() != Cancelled {
		t.Errorf("upload A state = %v, want Cancelled", upA.State())
	}
	if c.Current() != upB {
		t.Error("Current() is not upload B")
	}

	// Let A's in-flight call settle late; its result must never surface.
	close(gateA)

	o := waitOutcome(t, c)
	if o.Session != upB.ID {
		t.Fatalf("outcome session = %v, want B (%v)", o.Session, upB.ID)
	}
	if o.Result.BPM != 200 {
		t.Errorf("visible BPM = %v, want B's 200", o.Result.BPM)
	}

	// No second outcome may arrive for A.
	select {
	case o := <-c.Outcomes():
		t.Errorf("unexpected extra outcome for session %v", o.Session)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLateResponseAfterReplacementIsDropped(t *testing.T) {
	fa := newFakeAnalyzer()
	gateA := fa.hold("a.mp3")
	gateB := fa.hold("b.mp3")
	fa.results["a.mp3"] = analyze.Result{BPM: 100}
	fa.results["b.mp3"] = analyze.Result{BPM: 200}
	c := NewController(fa)

	c.Submit("/tmp/a.mp3", "a.mp3")
	<-fa.started
	upB := c.Submit("/tmp/b.mp3", "b.mp3")
	<-fa.started

	// A settles first, then B: acceptance order must win regardless.
	close(gateA)
	close(gateB)

	o := waitOutcome(t, c)
	if o.Session != upB.ID || o.Result.BPM != 200 {
		t.Errorf("outcome = session %v bpm %v, want B's", o.Session, o.Result.BPM)
	}
}

func TestAtMostOnePending(t *testing.T) {
	fa := newFakeAnalyzer()
	gates := []chan struct{}{fa.hold("0"), fa.hold("1"), fa.hold("2")}
	c := NewController(fa)

	uploads := []*Upload{
		c.Submit("/tmp/0", "0"),
		c.Submit("/tmp/1", "1"),
		c.Submit("/tmp/2", "2"),
	}

	pending := 0
	for _, up := range uploads {
		if up.State() == Pending {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("pending uploads = %d, want 1", pending)
	}
	if uploads[2].State() != Pending {
		t.Errorf("newest upload state = %v, want Pending", uploads[2].State())
	}

	for _, g := range gates {
		close(g)
	}
}

func TestCancelIsSilent(t *testing.T) {
	fa := newFakeAnalyzer()
	gate := fa.hold("a.mp3")
	c := NewController(fa)

	up := c.Submit("/tmp/a.mp3", "a.mp3")
	<-fa.started
	c.Cancel()

	if up.State() != Cancelled {
		t.Errorf("upload state = %v, want Cancelled", up.State())
	}

	close(gate)
	select {
	case o := <-c.Outcomes():
		t.Errorf("cancelled upload produced an outcome: %+v", o)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelWithoutSubmit(t *testing.T) {
	c := NewController(newFakeAnalyzer())
	c.Cancel() // must not panic
	if c.Current() != nil {
		t.Error("Current() != nil before any submit")
	}
}

func TestSettleExactlyOnce(t *testing.T) {
	up := &Upload{state: Pending, cancel: func() {}}
	if !up.settle(Succeeded) {
		t.Fatal("first settle returned false")
	}
	if up.settle(Failed) {
		t.Error("second settle returned true; an upload settles exactly once")
	}
	if up.State() != Succeeded {
		t.Errorf("state = %v, want Succeeded", up.State())
	}
}
