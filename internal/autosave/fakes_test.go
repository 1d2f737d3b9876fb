package autosave

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ── manual clock ──

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now + d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due callbacks on the caller's goroutine
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	var due []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped && !t.fired && t.at <= f.now {
			t.fired = true
			due = append(due, t)
		}
	}
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// ── saver ──

type saveCall struct {
	recordID string
	scores   map[string]*float64
	texts    map[string]*string
}

type fakeSaver struct {
	mu      sync.Mutex
	calls   []saveCall
	ctxs    []context.Context
	failOn  map[string]bool // field name → fail any write containing it
	block   chan struct{}   // writes wait for it to close
	started chan struct{}   // receives once per write, when non-nil
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{failOn: make(map[string]bool)}
}

func (s *fakeSaver) SaveGrade(ctx context.Context, gradeID string, fields map[string]*float64) error {
	fail := false
	s.mu.Lock()
	s.calls = append(s.calls, saveCall{recordID: gradeID, scores: fields})
	s.ctxs = append(s.ctxs, ctx)
	for f := range fields {
		fail = fail || s.failOn[f]
	}
	s.mu.Unlock()
	return s.finish(ctx, fail)
}

func (s *fakeSaver) SaveStudent(ctx context.Context, studentID string, fields map[string]*string) error {
	fail := false
	s.mu.Lock()
	s.calls = append(s.calls, saveCall{recordID: studentID, texts: fields})
	s.ctxs = append(s.ctxs, ctx)
	for f := range fields {
		fail = fail || s.failOn[f]
	}
	s.mu.Unlock()
	return s.finish(ctx, fail)
}

func (s *fakeSaver) finish(ctx context.Context, fail bool) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.New("server unavailable")
	}
	return nil
}

func (s *fakeSaver) snapshot() []saveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]saveCall(nil), s.calls...)
}

// ── notifier ──

type noted struct {
	key    Key
	status Status
	msg    string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []noted
}

func (n *recordingNotifier) StatusChanged(key Key, status Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, noted{key: key, status: status})
}

func (n *recordingNotifier) Error(key Key, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, noted{key: key, msg: message})
}

func (n *recordingNotifier) statuses(key Key) []Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Status
	for _, e := range n.events {
		if e.key == key && e.msg == "" {
			out = append(out, e.status)
		}
	}
	return out
}

func (n *recordingNotifier) messages(key Key) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.key == key && e.msg != "" {
			out = append(out, e.msg)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
