// Package autosave keeps an edited document in sync with its store.
//
// A Session owns the edit buffer of one open document. Edits arm a debounce timer; when it
// fires the buffer is saved. Every save takes a fresh sequence number and its outcome is
// applied only if no newer save was issued meanwhile, so a slow stale write can never
// overwrite the state of a fresher one. Network calls may overlap; results are reconciled,
// not serialized.
package autosave

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the inactivity window after the last edit before a save is issued.
const DefaultDebounce = 2 * time.Second

// State is the lifecycle of an open document.
type State int

const (
	Idle State = iota
	Dirty
	Saving
	Saved
	SaveError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case SaveError:
		return "error"
	default:
		return "unknown"
	}
}

// SaveFunc persists v and returns the stored representation.
type SaveFunc[T, R any] func(ctx context.Context, v T) (R, error)

// Timer is the subset of *time.Timer a Session needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Status is a snapshot of a Session.
type Status[R any] struct {
	State State
	// Dirty is true while the buffer holds edits not yet confirmed saved.
	Dirty bool
	// Seq is the number of the most recently issued save.
	Seq uint64
	// Result is the outcome of the last accepted successful save.
	Result R
	// Err is set in SaveError.
	Err error
}

// Option configures a Session.
type Option func(*options)

type options struct {
	debounce  time.Duration
	afterFunc AfterFunc
	ctx       context.Context
}

// WithDebounce sets the inactivity window. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithAfterFunc replaces the timer source, e.g. with a manual clock in tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(o *options) {
		if f != nil {
			o.afterFunc = f
		}
	}
}

// WithContext sets the context used by debounce-triggered saves.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// Session is the autosave controller for one open document. It is safe for concurrent use.
type Session[T, R any] struct {
	save SaveFunc[T, R]
	opts options

	mu    sync.Mutex
	buf   T
	dirty bool
	// edits counts Edit calls; a save clears dirty only if no edit happened after it captured the buffer.
	edits    uint64
	seq      uint64
	inFlight int
	idle     chan struct{}
	// deferred is set when the debounce fired while a save was in flight.
	deferred bool
	timer    Timer
	// timerGen identifies the armed timer; callbacks of stopped timers see a newer value.
	timerGen uint64
	state    State
	result   R
	err      error
	closed   bool
}

// New returns an idle Session that persists through save.
func New[T, R any](save SaveFunc[T, R], opts ...Option) *Session[T, R] {
	o := options{
		debounce:  DefaultDebounce,
		afterFunc: realAfterFunc,
		ctx:       context.Background(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	idle := make(chan struct{})
	close(idle)
	return &Session[T, R]{save: save, opts: o, idle: idle}
}

// Load replaces the buffer with a freshly loaded document. The buffer is clean and any save
// still in flight for the previous content is disregarded.
func (s *Session[T, R]) Load(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.buf = v
	s.dirty = false
	s.deferred = false
	s.seq++
	s.state = Idle
	s.err = nil
	var zero R
	s.result = zero
}

// Edit replaces the buffer and re-arms the debounce timer.
func (s *Session[T, R]) Edit(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.buf = v
	s.dirty = true
	s.edits++
	if s.state != Saving {
		s.state = Dirty
	}
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = s.opts.afterFunc(s.opts.debounce, func() { s.onDebounce(gen) })
}

// Value returns the current buffer.
func (s *Session[T, R]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// Status returns a snapshot of the session.
func (s *Session[T, R]) Status() Status[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status[R]{
		State:  s.state,
		Dirty:  s.dirty,
		Seq:    s.seq,
		Result: s.result,
		Err:    s.err,
	}
}

// FlushNow saves the buffer immediately, bypassing the debounce timer. It is a no-op when
// the buffer is clean. The returned error is the save's own error, even when a newer save
// has since superseded it.
func (s *Session[T, R]) FlushNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	s.mu.Unlock()

	_, err := s.run(ctx)
	return err
}

// OnNavigateAway must be awaited before the document is switched away from or deleted.
// It flushes pending edits and waits for every save in flight, then reports the error of
// the last accepted save, if any.
func (s *Session[T, R]) OnNavigateAway(ctx context.Context) error {
	if err := s.FlushNow(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SaveError {
		return s.err
	}
	return nil
}

// Close stops the debounce timer. Later edits are ignored; saves in flight still settle.
func (s *Session[T, R]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.deferred = false
	s.stopTimerLocked()
}

// onDebounce runs when the timer armed at generation gen fires. A timer that was already
// firing when it got replaced or stopped finds a newer generation and does nothing.
func (s *Session[T, R]) onDebounce(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.closed || !s.dirty {
		s.mu.Unlock()
		return
	}
	if s.inFlight > 0 {
		s.deferred = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.run(s.opts.ctx)
}

func (s *Session[T, R]) run(ctx context.Context) (accepted bool, err error) {
	return s.saveOnce(ctx, false)
}

// saveOnce issues one save of the current buffer and reconciles its outcome against the
// sequence guard. accepted is false when a newer save or a Load happened meanwhile.
// holdsSlot is set when the caller already owns an inFlight slot handed over by a
// previous save.
func (s *Session[T, R]) saveOnce(ctx context.Context, holdsSlot bool) (accepted bool, err error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	v := s.buf
	edits := s.edits
	if !holdsSlot {
		if s.inFlight == 0 {
			s.idle = make(chan struct{})
		}
		s.inFlight++
	}
	s.state = Saving
	s.mu.Unlock()

	r, err := s.save(ctx, v)

	s.mu.Lock()
	accepted = seq == s.seq
	if accepted {
		switch {
		case err != nil:
			s.state = SaveError
			s.err = err
		case edits == s.edits:
			s.result = r
			s.err = nil
			s.dirty = false
			s.state = Saved
		default:
			// edited while saving; the newer buffer still needs a save
			s.result = r
			s.err = nil
			s.state = Dirty
		}
	}

	again := false
	if s.inFlight == 1 {
		again = s.deferred && s.dirty && !s.closed
		s.deferred = false
	}
	if !again {
		s.inFlight--
		if s.inFlight == 0 {
			close(s.idle)
		}
	}
	s.mu.Unlock()

	if again {
		// the slot passes to the deferred save so idle stays open until it settles
		go s.saveOnce(s.opts.ctx, true)
	}
	return accepted, err
}

func (s *Session[T, R]) stopTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
