// Package lookahead schedules a repeating musical pattern on a sequencer one
// window ahead of playback.
//
// Each window covers the half-open tick interval [start, start+D). All notes
// of a window are queued at once, followed by a timer event at start+D/2
// addressed to the scheduler itself. When that timer fires the next window is
// queued, so the sequencer always holds at least half a window of music and
// the callback never has to meet a tight deadline.
package lookahead

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zurustar/gofluid/pkg/fluid"
)

var (
	// ErrAlreadyPrimed is returned by a second call to Prime.
	ErrAlreadyPrimed = errors.New("scheduler already primed")

	// ErrNoteOutsideWindow is returned for a note offset outside [0, D).
	ErrNoteOutsideWindow = errors.New("note offset outside window")
)

// Note is one note of a window. Offset is relative to the window start.
// A zero Duration sends a bare note-on and leaves the release to the
// instrument.
type Note struct {
	Offset   uint32
	Channel  int
	Key      int
	Velocity int
	Duration uint32
}

// Pattern provides the notes of each window.
type Pattern interface {
	Window(index int) []Note
}

// Loop repeats the same notes in every window.
type Loop []Note

// Window returns the loop notes.
func (l Loop) Window(int) []Note {
	return l
}

// Sequencer is the part of fluid.Sequencer used by the scheduler.
type Sequencer interface {
	Send(ev fluid.Event, tick uint32, absolute bool) error
	RegisterClient(name string, callback fluid.EventCallback) (*fluid.Client, error)
}

// Config configures a Scheduler.
type Config struct {
	// Duration is the window length D in ticks. It must be at least 1.
	Duration uint32
	// Dest receives the note events, usually the synth client.
	Dest fluid.ClientID
	// Pattern provides the notes.
	Pattern Pattern
	// Name is the sequencer client name. Empty means "lookahead".
	Name   string
	Logger *slog.Logger
}

// Scheduler keeps a sequencer one window ahead.
type Scheduler struct {
	seq     Sequencer
	dest    fluid.ClientID
	d       uint32
	pattern Pattern
	name    string
	log     *slog.Logger

	mu        sync.Mutex
	client    *fluid.Client
	nextStart uint32
	index     int
	primed    bool
	closed    bool
	err       error
}

// New creates a scheduler. A Loop pattern is validated against the window
// length here; notes of other patterns outside the window are dropped when
// emitted.
func New(seq Sequencer, cfg Config) (*Scheduler, error) {
	if cfg.Duration < 1 {
		return nil, fmt.Errorf("window duration must be at least 1 tick")
	}
	if cfg.Pattern == nil {
		return nil, fmt.Errorf("pattern is required")
	}
	if loop, ok := cfg.Pattern.(Loop); ok {
		if err := validate(loop, cfg.Duration); err != nil {
			return nil, err
		}
	}
	s := &Scheduler{
		seq:     seq,
		dest:    cfg.Dest,
		d:       cfg.Duration,
		pattern: cfg.Pattern,
		name:    cfg.Name,
		log:     cfg.Logger,
	}
	if s.name == "" {
		s.name = "lookahead"
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s, nil
}

func validate(notes []Note, d uint32) error {
	for i, n := range notes {
		if n.Offset >= d {
			return fmt.Errorf("%w: note %d at %d, window is %d ticks", ErrNoteOutsideWindow, i, n.Offset, d)
		}
	}
	return nil
}

// WakeupTick is the tick of the timer that requests the window after the one
// starting at start.
func WakeupTick(start, d uint32) uint32 {
	return start + d/2
}

// ordered returns the notes of a window sorted by offset, keeping declaration
// order for equal offsets.
func ordered(notes []Note, d uint32) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.Offset < d {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// WindowTicks returns the absolute ticks the first n windows starting at
// start produce, in emission order: each window's notes, then its wake-up.
func WindowTicks(start, d uint32, n int, pattern Pattern) []uint32 {
	var ticks []uint32
	for i := 0; i < n; i++ {
		for _, note := range ordered(pattern.Window(i), d) {
			ticks = append(ticks, start+note.Offset)
		}
		ticks = append(ticks, WakeupTick(start, d))
		start += d
	}
	return ticks
}

// Prime registers the scheduler on the sequencer and queues the first window
// at start.
func (s *Scheduler) Prime(start uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fluid.ErrClosed
	}
	if s.primed {
		return ErrAlreadyPrimed
	}
	client, err := s.seq.RegisterClient(s.name, s.callback)
	if err != nil {
		return fmt.Errorf("register %s: %w", s.name, err)
	}
	s.client = client
	s.primed = true
	s.nextStart = start
	s.log.Debug("lookahead primed", "start", start, "window", s.d, "client", client.ID())
	return s.emitWindowLocked()
}

func (s *Scheduler) callback(tick uint32, ev fluid.Event) {
	if ev.Type != fluid.EventTimer {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.emitWindowLocked(); err != nil {
		s.log.Error("failed to queue window", "tick", tick, "error", err)
	}
}

// emitWindowLocked queues the notes of the current window and its wake-up,
// then moves to the next window. A note that cannot be queued is skipped so
// the wake-up still keeps the stream going. s.mu must be held.
func (s *Scheduler) emitWindowLocked() error {
	start := s.nextStart
	var errs []error
	for _, n := range ordered(s.pattern.Window(s.index), s.d) {
		var ev fluid.Event
		if n.Duration > 0 {
			ev = fluid.Note(n.Channel, n.Key, n.Velocity, n.Duration)
		} else {
			ev = fluid.NoteOn(n.Channel, n.Key, n.Velocity)
		}
		if err := s.seq.Send(ev.To(s.dest).From(s.client.ID()), start+n.Offset, true); err != nil {
			errs = append(errs, fmt.Errorf("note %d at tick %d: %w", n.Key, start+n.Offset, err))
		}
	}
	wake := fluid.Timer(nil).To(s.client.ID()).From(s.client.ID())
	if err := s.seq.Send(wake, WakeupTick(start, s.d), true); err != nil {
		errs = append(errs, fmt.Errorf("wake-up at tick %d: %w", WakeupTick(start, s.d), err))
	}
	s.nextStart = start + s.d
	s.index++
	if err := errors.Join(errs...); err != nil {
		s.err = err
		return err
	}
	return nil
}

// Err returns the last error met while queuing a window. A failed wake-up
// ends the stream; failed notes only leave gaps.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// NextStart returns the start tick of the next window to be queued.
func (s *Scheduler) NextStart() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Windows returns the number of windows queued so far.
func (s *Scheduler) Windows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Close unregisters the scheduler. Once it returns the callback does not run
// again. It is safe before Prime and more than once.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	client := s.client
	s.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}
