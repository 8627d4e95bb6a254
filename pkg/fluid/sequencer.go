package fluid

import (
	"fmt"
	"sync"
)

// Default sequencer timing: 500 ticks per beat at 120 beats per minute gives
// the library's default scale of 1000 ticks per second.
const (
	DefaultTicksPerBeat = 500
	DefaultBPM          = 120
)

// Sequencer schedules events in ticks. Tempo is expressed as ticks per beat
// and beats per minute and forwarded to the library as ticks per second.
type Sequencer struct {
	h   *Handle
	raw RawSequencer

	mu           sync.Mutex
	ticksPerBeat int
	bpm          float64
	clients      map[ClientID]*Client
	closed       bool
}

// NewSequencer creates a sequencer. With useSystemTimer the clock follows wall
// time; otherwise it follows the samples rendered by the registered synth.
func NewSequencer(h *Handle, useSystemTimer bool) (*Sequencer, error) {
	raw, err := h.lib.NewSequencer(useSystemTimer)
	if err != nil {
		return nil, fmt.Errorf("create sequencer: %w", err)
	}
	s := &Sequencer{
		h:            h,
		raw:          raw,
		ticksPerBeat: DefaultTicksPerBeat,
		bpm:          DefaultBPM,
		clients:      make(map[ClientID]*Client),
	}
	s.applyScale()
	return s, nil
}

func (s *Sequencer) applyScale() {
	s.raw.SetTimeScale(float64(s.ticksPerBeat) * s.bpm / 60)
}

// SetTicksPerBeat sets the beat resolution.
func (s *Sequencer) SetTicksPerBeat(tpb int) error {
	if tpb <= 0 {
		return fmt.Errorf("ticks per beat must be positive, got %d", tpb)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticksPerBeat = tpb
	s.applyScale()
	return nil
}

// TicksPerBeat returns the beat resolution.
func (s *Sequencer) TicksPerBeat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticksPerBeat
}

// SetBPM sets the tempo in beats per minute.
func (s *Sequencer) SetBPM(bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("beats per minute must be positive, got %v", bpm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = bpm
	s.applyScale()
	return nil
}

// BPM returns the tempo in beats per minute.
func (s *Sequencer) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// TicksPerSecond returns the time scale forwarded to the library.
func (s *Sequencer) TicksPerSecond() float64 {
	return s.raw.TimeScale()
}

// Ticks returns the current tick.
func (s *Sequencer) Ticks() uint32 {
	return s.raw.Tick()
}

// AddSynth registers synth as a destination and returns its id and name.
func (s *Sequencer) AddSynth(synth *Synth) (ClientID, string, error) {
	id := s.raw.RegisterSynth(synth.raw)
	if id < 0 {
		return NoClient, "", &CallError{Call: "sequencer_register_fluidsynth", Code: int(id)}
	}
	return id, s.raw.ClientName(id), nil
}

// RegisterClient registers callback as a destination. The returned Client
// must be closed before the owner of callback goes away; Close on the
// sequencer closes every client still registered.
func (s *Sequencer) RegisterClient(name string, callback EventCallback) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	id := s.raw.RegisterClient(name, callback)
	if id < 0 {
		return nil, &CallError{Call: "sequencer_register_client", Code: int(id)}
	}
	c := &Client{seq: s, id: id, name: name}
	s.clients[id] = c
	s.h.log.Debug("sequencer client registered", "name", name, "id", id)
	return c, nil
}

// Send schedules ev at tick, absolute or relative to the current tick.
func (s *Sequencer) Send(ev Event, tick uint32, absolute bool) error {
	return check("sequencer_send_at", s.raw.Send(ev, tick, absolute))
}

func (s *Sequencer) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()
	if !ok {
		return
	}
	// outside the lock: the library waits for an in-flight callback, which
	// may itself use the sequencer
	s.raw.UnregisterClient(c.id)
	s.h.log.Debug("sequencer client unregistered", "name", c.name, "id", c.id)
}

// Close unregisters remaining clients and deletes the sequencer.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	s.raw.Delete()
	return nil
}

// Client is a callback registration on a sequencer.
type Client struct {
	seq  *Sequencer
	id   ClientID
	name string
	once sync.Once
}

// ID returns the client id used as event destination.
func (c *Client) ID() ClientID {
	return c.id
}

// Name returns the registered name.
func (c *Client) Name() string {
	return c.name
}

// Close unregisters the client. Once it returns, the callback is not invoked
// again. It must not be called from inside the callback.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.seq.unregister(c)
	})
	return nil
}
