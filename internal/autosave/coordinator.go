package autosave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
)

// Editable student fields
const (
	FieldName      = "name"
	FieldGender    = "gender"
	FieldNotes     = "notes"
	FieldClassName = "class_name"
)

const (
	DefaultDebounce     = time.Second
	DefaultStatusWindow = 2 * time.Second
)

// Options tunes a Coordinator; zero values select the defaults
type Options struct {
	Debounce     time.Duration
	StatusWindow time.Duration
	Clock        Clock
	Logger       *zap.Logger
}

// Coordinator per-cell autosave state for one editing session
type Coordinator struct {
	saver    Saver
	notifier Notifier
	clock    Clock
	debounce time.Duration
	window   time.Duration
	logger   *zap.Logger

	// scope is handed to every save and cancelled on Close
	scope  context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool // no new edits
	disposed bool // results are dropped
	grades   map[string]grading.Scores
	students map[string]map[string]*string
	cells    map[Key]*cell
	pending  map[Key]struct{}

	inflight int
	drained  chan struct{} // closed when inflight drops to zero

	// outbox holds notifications in the order the state changed; deliverMu
	// lets one goroutine at a time hand them to the notifier
	outbox    []event
	deliverMu sync.Mutex
}

type cell struct {
	status Status
	dirty  bool // edited since the last commit

	timer     Timer
	timerSeq  uint64
	revert    Timer
	revertSeq uint64

	sending bool
	queued  *payload
}

type payload struct {
	scores map[string]*float64
	texts  map[string]*string
}

type value struct {
	score *float64
	text  *string
}

type event struct {
	key    Key
	status Status
	toast  string
}

// New creates a Coordinator. notifier may be nil.
func New(saver Saver, notifier Notifier, opts Options) *Coordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.StatusWindow <= 0 {
		opts.StatusWindow = DefaultStatusWindow
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	scope, cancel := context.WithCancel(context.Background())
	drained := make(chan struct{})
	close(drained)
	return &Coordinator{
		saver:    saver,
		notifier: notifier,
		clock:    opts.Clock,
		debounce: opts.Debounce,
		window:   opts.StatusWindow,
		logger:   opts.Logger,
		scope:    scope,
		cancel:   cancel,
		grades:   make(map[string]grading.Scores),
		students: make(map[string]map[string]*string),
		cells:    make(map[Key]*cell),
		pending:  make(map[Key]struct{}),
		drained:  drained,
	}
}

// ── local records ──

// LoadGrade seeds the local copy of a grade, replacing any previous one
func (c *Coordinator) LoadGrade(gradeID string, scores grading.Scores) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if scores == nil {
		scores = grading.Scores{}
	}
	c.grades[gradeID] = scores.Clone()
}

// LoadStudent seeds the local copy of a student's text fields
func (c *Coordinator) LoadStudent(studentID string, fields map[string]*string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local := make(map[string]*string, len(fields))
	for k, v := range fields {
		local[k] = cloneText(v)
	}
	c.students[studentID] = local
}

// Score local value of a grade field, including the recomputed final_score
func (c *Coordinator) Score(gradeID, field string) *float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneScore(c.grades[gradeID][field])
}

// Text local value of a student field
func (c *Coordinator) Text(studentID, field string) *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneText(c.students[studentID][field])
}

// Status current save state of a cell
func (c *Coordinator) Status(key Key) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.cells[key]; ok {
		return cl.status
	}
	return StatusIdle
}

// Pending keys with a save in flight, sorted
func (c *Coordinator) Pending() []Key {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sortKeys(keys)
	return keys
}

// PendingCount number of keys with a save in flight
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ── edits ──

// OnChange applies raw to the local record and (re)starts the debounce
// timer of the cell. A rejected value leaves every piece of state alone.
func (c *Coordinator) OnChange(recordID, field, raw string) error {
	key := Key{RecordID: recordID, Field: field}
	v, err := parse(key, raw)
	if err != nil {
		return c.reject(key, err)
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	c.apply(key, v)
	cl := c.cell(key)
	cl.dirty = true
	c.schedule(key, cl)
	c.mu.Unlock()
	return nil
}

// OnBlur cancels the debounce timer and commits the latest value now.
// A cell without an uncommitted edit is left alone.
func (c *Coordinator) OnBlur(recordID, field, raw string) error {
	key := Key{RecordID: recordID, Field: field}
	v, err := parse(key, raw)
	if err != nil {
		return c.reject(key, err)
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	cl := c.cell(key)
	if !c.same(key, v) {
		c.apply(key, v)
		cl.dirty = true
	}
	if !cl.dirty {
		c.mu.Unlock()
		return nil
	}
	c.commitLocked(key, cl)
	c.mu.Unlock()

	c.drain()
	return nil
}

// Flush commits every cell still waiting on its debounce timer and waits
// for all in-flight saves
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.commitDirtyLocked()
	c.mu.Unlock()

	c.drain()
	return c.wait(ctx)
}

// Close flushes, then disposes the coordinator. Saves still running when
// ctx ends are cancelled and their results no longer touch any state.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.commitDirtyLocked()
	c.mu.Unlock()

	c.drain()
	err := c.wait(ctx)

	c.mu.Lock()
	c.disposed = true
	for _, cl := range c.cells {
		c.stopTimer(cl)
		c.stopRevert(cl)
	}
	c.mu.Unlock()
	c.cancel()
	return err
}

// ── commit path ──

func (c *Coordinator) schedule(key Key, cl *cell) {
	c.stopTimer(cl)
	seq := cl.timerSeq
	cl.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(key, seq) })
}

// fire debounce timer callback
func (c *Coordinator) fire(key Key, seq uint64) {
	c.mu.Lock()
	cl, ok := c.cells[key]
	if !ok || c.disposed || cl.timer == nil || cl.timerSeq != seq {
		c.mu.Unlock()
		return
	}
	cl.timer = nil
	if !cl.dirty {
		c.mu.Unlock()
		return
	}
	c.commitLocked(key, cl)
	c.mu.Unlock()

	c.drain()
}

// commitLocked the single path from a dirty cell to a network write, used
// by the timer, blur, Flush and Close
func (c *Coordinator) commitLocked(key Key, cl *cell) {
	c.stopTimer(cl)
	c.stopRevert(cl)
	cl.dirty = false
	p := c.payload(key)

	cl.status = StatusSaving
	c.pending[key] = struct{}{}
	c.emitLocked(event{key: key, status: StatusSaving})

	if cl.sending {
		// the running sender picks it up once the current write returns
		cl.queued = &p
		return
	}
	cl.sending = true
	c.begin()
	go c.run(key, cl, p)
}

func (c *Coordinator) commitDirtyLocked() {
	keys := make([]Key, 0, len(c.cells))
	for k, cl := range c.cells {
		if cl.dirty {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)

	for _, k := range keys {
		c.commitLocked(k, c.cells[k])
	}
}

// payload snapshot of what to send for key. Edits to an aggregate input
// carry the recomputed final_score in the same request.
func (c *Coordinator) payload(key Key) payload {
	if grading.IsGradeField(key.Field) {
		scores, ok := c.grades[key.RecordID]
		if !ok {
			scores = grading.Scores{}
			c.grades[key.RecordID] = scores
		}
		fields := map[string]*float64{key.Field: cloneScore(scores[key.Field])}
		if grading.IsAggregateInput(key.Field) {
			agg := grading.Aggregate(scores.Components())
			scores[grading.FieldFinalScore] = agg
			fields[grading.FieldFinalScore] = cloneScore(agg)
		}
		return payload{scores: fields}
	}
	return payload{texts: map[string]*string{key.Field: cloneText(c.students[key.RecordID][key.Field])}}
}

// run sends p, then whatever got queued for key meanwhile, in order
func (c *Coordinator) run(key Key, cl *cell, p payload) {
	defer c.end()
	for {
		err := c.save(key, p)
		next, more := c.settle(key, cl, err)
		c.drain()
		if !more {
			return
		}
		p = next
	}
}

func (c *Coordinator) save(key Key, p payload) error {
	c.logger.Debug("autosave commit", zap.Stringer("key", key))
	if p.scores != nil {
		return c.saver.SaveGrade(c.scope, key.RecordID, p.scores)
	}
	return c.saver.SaveStudent(c.scope, key.RecordID, p.texts)
}

// settle records the outcome of a write. It returns the queued payload
// and true when another write for key must follow.
func (c *Coordinator) settle(key Key, cl *cell, err error) (payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return payload{}, false
	}

	if err != nil {
		c.logger.Warn("autosave failed", zap.Stringer("key", key), zap.Error(err))
		c.emitLocked(event{key: key, toast: MsgSaveFailed})
	}

	if cl.queued != nil {
		next := *cl.queued
		cl.queued = nil
		return next, true
	}

	cl.sending = false
	delete(c.pending, key)
	if err != nil {
		cl.status = StatusError
	} else {
		cl.status = StatusSaved
	}
	c.emitLocked(event{key: key, status: cl.status})
	c.scheduleRevert(key, cl)
	return payload{}, false
}

func (c *Coordinator) scheduleRevert(key Key, cl *cell) {
	c.stopRevert(cl)
	seq := cl.revertSeq
	cl.revert = c.clock.AfterFunc(c.window, func() { c.revertIdle(key, seq) })
}

// revertIdle ends the saved/error display window
func (c *Coordinator) revertIdle(key Key, seq uint64) {
	c.mu.Lock()
	cl, ok := c.cells[key]
	if !ok || c.disposed || cl.revert == nil || cl.revertSeq != seq {
		c.mu.Unlock()
		return
	}
	cl.revert = nil
	if cl.status != StatusSaved && cl.status != StatusError {
		c.mu.Unlock()
		return
	}
	cl.status = StatusIdle
	c.emitLocked(event{key: key, status: StatusIdle})
	c.mu.Unlock()

	c.drain()
}

// stopTimer cancels the debounce timer; a callback already waiting on the
// lock sees a stale sequence number and returns
func (c *Coordinator) stopTimer(cl *cell) {
	if cl.timer != nil {
		cl.timer.Stop()
		cl.timer = nil
	}
	cl.timerSeq++
}

func (c *Coordinator) stopRevert(cl *cell) {
	if cl.revert != nil {
		cl.revert.Stop()
		cl.revert = nil
	}
	cl.revertSeq++
}

func (c *Coordinator) emitLocked(events ...event) {
	c.outbox = append(c.outbox, events...)
}

// drain hands queued notifications to the notifier outside c.mu. Batches
// are taken under deliverMu, so they reach the notifier in emit order, and
// once drain returns every event emitted before the call was delivered.
func (c *Coordinator) drain() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	events := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	for _, e := range events {
		if e.toast != "" {
			c.notifier.Error(e.key, e.toast)
			continue
		}
		c.notifier.StatusChanged(e.key, e.status)
	}
}

// ── in-flight tracking ──

func (c *Coordinator) begin() {
	if c.inflight == 0 {
		c.drained = make(chan struct{})
	}
	c.inflight++
}

func (c *Coordinator) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.drained)
	}
}

// wait blocks until no save is in flight or ctx ends
func (c *Coordinator) wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			c.mu.Unlock()
			return nil
		}
		drained := c.drained
		c.mu.Unlock()

		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ── local state ──

func (c *Coordinator) cell(key Key) *cell {
	cl, ok := c.cells[key]
	if !ok {
		cl = &cell{status: StatusIdle}
		c.cells[key] = cl
	}
	return cl
}

func (c *Coordinator) apply(key Key, v value) {
	if grading.IsGradeField(key.Field) {
		scores, ok := c.grades[key.RecordID]
		if !ok {
			scores = grading.Scores{}
			c.grades[key.RecordID] = scores
		}
		scores[key.Field] = v.score
		if grading.IsAggregateInput(key.Field) {
			scores[grading.FieldFinalScore] = grading.Aggregate(scores.Components())
		}
		return
	}
	fields, ok := c.students[key.RecordID]
	if !ok {
		fields = make(map[string]*string)
		c.students[key.RecordID] = fields
	}
	fields[key.Field] = v.text
}

func (c *Coordinator) same(key Key, v value) bool {
	if grading.IsGradeField(key.Field) {
		cur := c.grades[key.RecordID][key.Field]
		if cur == nil || v.score == nil {
			return cur == nil && v.score == nil
		}
		return *cur == *v.score
	}
	cur := c.students[key.RecordID][key.Field]
	if cur == nil || v.text == nil {
		return cur == nil && v.text == nil
	}
	return *cur == *v.text
}

func (c *Coordinator) reject(key Key, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.mu.Lock()
		c.emitLocked(event{key: key, toast: verr.Message})
		c.mu.Unlock()
		c.drain()
	}
	return err
}

func parse(key Key, raw string) (value, error) {
	switch key.Field {
	case grading.FieldFinalScore:
		return value{}, fmt.Errorf("%w: %s", ErrReadOnlyField, key.Field)
	case FieldName:
		name := strings.TrimSpace(raw)
		if name == "" {
			return value{}, &ValidationError{Key: key, Message: MsgNameEmpty}
		}
		return value{text: &name}, nil
	case FieldGender:
		g := strings.ToUpper(strings.TrimSpace(raw))
		switch g {
		case "":
			return value{}, nil
		case "L", "P":
			return value{text: &g}, nil
		}
		return value{}, &ValidationError{Key: key, Message: MsgGender}
	case FieldNotes, FieldClassName:
		s := strings.TrimSpace(raw)
		if s == "" {
			return value{}, nil
		}
		return value{text: &s}, nil
	}

	if !grading.IsGradeField(key.Field) {
		return value{}, fmt.Errorf("%w: %s", ErrUnknownField, key.Field)
	}
	score, err := grading.ParseScore(raw)
	if err != nil {
		msg := MsgScoreNumber
		if errors.Is(err, grading.ErrScoreOutOfRange) {
			msg = MsgScoreRange
		}
		return value{}, &ValidationError{Key: key, Message: msg}
	}
	return value{score: score}, nil
}

func cloneScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneText(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RecordID != keys[j].RecordID {
			return keys[i].RecordID < keys[j].RecordID
		}
		return keys[i].Field < keys[j].Field
	})
}
