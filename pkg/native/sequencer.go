package native

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// DefaultTimeScale is the initial sequencer scale in ticks per second.
const DefaultTimeScale = 1000

// synthClientName is the name given to synth destinations.
const synthClientName = "fluidsynth"

type queued struct {
	ev    fluid.Event
	tick  uint32
	order uint64
}

// eventQueue orders events by tick, then by submission order.
type eventQueue []queued

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].tick != q[j].tick {
		return q[i].tick < q[j].tick
	}
	return q[i].order < q[j].order
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(queued)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

type client struct {
	name     string
	callback fluid.EventCallback
	synth    *Synth
}

// Sequencer implements fluid.RawSequencer.
//
// The clock follows either the samples rendered by the first registered synth
// or wall time. Due events are dispatched from the render goroutine or the
// timer goroutine respectively, outside the queue lock.
type Sequencer struct {
	log *slog.Logger

	mu       sync.Mutex
	scale    float64
	queue    eventQueue
	order    uint64
	clients  map[fluid.ClientID]*client
	nextID   fluid.ClientID
	deleted  bool
	baseTick uint32
	// clock reference: wall time for the system timer, samples otherwise
	baseTime   time.Time
	baseSample int64
	clockSynth *Synth

	dispatchMu sync.Mutex

	useSystemTimer bool
	timer          *timer
	now            func() time.Time
}

func newSequencer(lib *Library, useSystemTimer bool) *Sequencer {
	s := &Sequencer{
		log:            lib.log,
		scale:          DefaultTimeScale,
		clients:        make(map[fluid.ClientID]*client),
		useSystemTimer: useSystemTimer,
		now:            time.Now,
	}
	s.baseTime = s.now()
	if useSystemTimer {
		s.timer = newTimer(DefaultTimerInterval, func(time.Duration) {
			s.process(s.Tick())
		})
		s.timer.Start()
	}
	return s
}

// tickLocked computes the current tick. s.mu must be held.
func (s *Sequencer) tickLocked() uint32 {
	var elapsed float64
	if s.useSystemTimer {
		elapsed = s.now().Sub(s.baseTime).Seconds()
	} else if s.clockSynth != nil {
		elapsed = float64(s.clockSynth.Samples()-s.baseSample) / float64(s.clockSynth.SampleRate())
	}
	return s.baseTick + uint32(elapsed*s.scale)
}

func (s *Sequencer) Tick() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

// SetTimeScale changes the scale without moving the current tick.
func (s *Sequencer) SetTimeScale(ticksPerSecond float64) {
	if ticksPerSecond <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebaseLocked()
	s.scale = ticksPerSecond
}

func (s *Sequencer) rebaseLocked() {
	s.baseTick = s.tickLocked()
	s.baseTime = s.now()
	if s.clockSynth != nil {
		s.baseSample = s.clockSynth.Samples()
	}
}

func (s *Sequencer) TimeScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// RegisterSynth adds synth as a destination. Without the system timer the
// first registered synth drives the clock.
func (s *Sequencer) RegisterSynth(synth fluid.RawSynth) fluid.ClientID {
	sy, ok := synth.(*Synth)
	if !ok {
		return fluid.CodeFailed
	}
	s.mu.Lock()
	if s.deleted {
		s.mu.Unlock()
		return fluid.CodeFailed
	}
	id := s.addClientLocked(&client{name: synthClientName, synth: sy})
	drive := !s.useSystemTimer && s.clockSynth == nil
	if drive {
		s.rebaseLocked()
		s.clockSynth = sy
		s.baseSample = sy.Samples()
	}
	s.mu.Unlock()

	if drive {
		sy.addHook(s)
	}
	return id
}

func (s *Sequencer) RegisterClient(name string, callback fluid.EventCallback) fluid.ClientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return fluid.CodeFailed
	}
	return s.addClientLocked(&client{name: name, callback: callback})
}

func (s *Sequencer) addClientLocked(c *client) fluid.ClientID {
	id := s.nextID
	s.nextID++
	s.clients[id] = c
	return id
}

// UnregisterClient removes the client and its pending events. If a dispatch
// is in flight it waits for it to return, so the callback is never invoked
// afterwards. It must not be called from inside a callback.
func (s *Sequencer) UnregisterClient(id fluid.ClientID) {
	s.mu.Lock()
	delete(s.clients, id)
	kept := s.queue[:0]
	for _, it := range s.queue {
		if it.ev.Dest != id {
			kept = append(kept, it)
		}
	}
	s.queue = kept
	heap.Init(&s.queue)
	s.mu.Unlock()

	s.dispatchMu.Lock()
	s.dispatchMu.Unlock()
}

func (s *Sequencer) ClientName(id fluid.ClientID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok {
		return c.name
	}
	return ""
}

// Send queues ev at tick, relative to the current tick unless absolute.
func (s *Sequencer) Send(ev fluid.Event, tick uint32, absolute bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return fluid.CodeFailed
	}
	if _, ok := s.clients[ev.Dest]; !ok {
		return fluid.CodeFailed
	}
	if !absolute {
		tick += s.tickLocked()
	}
	s.pushLocked(ev, tick)
	return fluid.CodeOK
}

func (s *Sequencer) pushLocked(ev fluid.Event, tick uint32) {
	heap.Push(&s.queue, queued{ev: ev, tick: tick, order: s.order})
	s.order++
}

func (s *Sequencer) beforeBlock(int64, int) {
	s.process(s.Tick())
}

// process dispatches every event due at now, including events queued by
// callbacks during the dispatch.
func (s *Sequencer) process(now uint32) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for {
		s.mu.Lock()
		if s.deleted || len(s.queue) == 0 || s.queue[0].tick > now {
			s.mu.Unlock()
			return
		}
		it := heap.Pop(&s.queue).(queued)
		c := s.clients[it.ev.Dest]
		if c != nil && c.synth != nil && it.ev.Type == fluid.EventNote {
			off := fluid.NoteOff(it.ev.Channel, it.ev.Key).To(it.ev.Dest).From(it.ev.Source)
			s.pushLocked(off, it.tick+it.ev.Duration)
		}
		s.mu.Unlock()

		switch {
		case c == nil:
		case c.synth != nil:
			s.apply(c.synth, it.ev)
		case c.callback != nil:
			c.callback(it.tick, it.ev)
		}
	}
}

func (s *Sequencer) apply(synth *Synth, ev fluid.Event) {
	switch ev.Type {
	case fluid.EventNoteOn, fluid.EventNote:
		synth.NoteOn(ev.Channel, ev.Key, ev.Velocity)
	case fluid.EventNoteOff:
		synth.NoteOff(ev.Channel, ev.Key)
	case fluid.EventProgramChange:
		synth.ProgramChange(ev.Channel, ev.Value)
	case fluid.EventAllNotesOff:
		synth.AllNotesOff(ev.Channel)
	}
}

// Delete stops the clock and drops every client and pending event.
func (s *Sequencer) Delete() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Lock()
	s.deleted = true
	s.queue = nil
	s.clients = make(map[fluid.ClientID]*client)
	synth := s.clockSynth
	s.mu.Unlock()

	if synth != nil {
		synth.removeHook(s)
	}
	s.dispatchMu.Lock()
	s.dispatchMu.Unlock()
}
