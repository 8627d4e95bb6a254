// Package fluidtest provides an in-memory fluid.Library for tests. It records
// every call so tests can assert on what the wrapper layer forwarded.
package fluidtest

import (
	"errors"
	"sort"
	"sync"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// Library is a fake library emulating the return-code convention of Major.
type Library struct {
	Major int

	mu        sync.Mutex
	defaults  map[string]Value
	rejected  map[string]bool
	settings  []*Settings
	synths    []*Synth
	players   []*Player
	sequences []*Sequencer
	drivers   []*Driver
	// FailNewSynth makes NewSynth fail.
	FailNewSynth bool
	// RejectExternalTempo makes new players refuse BPM and MIDI tempos.
	RejectExternalTempo bool
}

// Value is a typed settings entry.
type Value struct {
	Type fluid.SettingType
	Num  float64
	Int  int
	Str  string
}

// New returns a fake library of the given major version with a small default
// settings table.
func New(major int) *Library {
	return &Library{
		Major: major,
		defaults: map[string]Value{
			"synth.gain":          {Type: fluid.NumType, Num: 0.2},
			"synth.sample-rate":   {Type: fluid.NumType, Num: 44100},
			"synth.chorus.active": {Type: fluid.IntType, Int: 1},
			"synth.reverb.active": {Type: fluid.IntType, Int: 1},
			"synth.polyphony":     {Type: fluid.IntType, Int: 256},
			"audio.driver":        {Type: fluid.StrType, Str: "null"},
		},
		rejected: make(map[string]bool),
	}
}

// Reject makes every write to key fail.
func (l *Library) Reject(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejected[key] = true
}

// Define adds a key to the default table of future settings objects.
func (l *Library) Define(key string, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaults[key] = v
}

func (l *Library) Version() (int, int, int) {
	if l.Major == 1 {
		return 1, 1, 11
	}
	return l.Major, 3, 4
}

func (l *Library) okCode() int {
	if l.Major == 1 {
		return 1
	}
	return fluid.CodeOK
}

func (l *Library) failCode() int {
	if l.Major == 1 {
		return 0
	}
	return fluid.CodeFailed
}

func (l *Library) NewSettings() fluid.RawSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := &Settings{lib: l, values: make(map[string]Value, len(l.defaults))}
	for k, v := range l.defaults {
		s.values[k] = v
	}
	l.settings = append(l.settings, s)
	if l.Major == 1 {
		return &SettingsV1{s}
	}
	return s
}

func (l *Library) NewSynth(settings fluid.RawSettings) (fluid.RawSynth, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNewSynth {
		return nil, errors.New("synth creation failed")
	}
	s := &Synth{gain: 0.2}
	l.synths = append(l.synths, s)
	return s, nil
}

func (l *Library) NewAudioDriver(settings fluid.RawSettings, synth fluid.RawSynth) (fluid.RawAudioDriver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &Driver{}
	l.drivers = append(l.drivers, d)
	return d, nil
}

func (l *Library) NewPlayer(synth fluid.RawSynth) (fluid.RawPlayer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := NewPlayer()
	p.rejectExternal = l.RejectExternalTempo
	l.players = append(l.players, p)
	return p, nil
}

func (l *Library) NewSequencer(useSystemTimer bool) (fluid.RawSequencer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := NewSequencer()
	l.sequences = append(l.sequences, s)
	return s, nil
}

// LastSettings returns the most recently created settings table.
func (l *Library) LastSettings() *Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.settings) == 0 {
		return nil
	}
	return l.settings[len(l.settings)-1]
}

// Synths returns the created synths.
func (l *Library) Synths() []*Synth {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Synth(nil), l.synths...)
}

// Players returns the created players.
func (l *Library) Players() []*Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Player(nil), l.players...)
}

// Sequencers returns the created sequencers.
func (l *Library) Sequencers() []*Sequencer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Sequencer(nil), l.sequences...)
}

// Drivers returns the created drivers.
func (l *Library) Drivers() []*Driver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Driver(nil), l.drivers...)
}

// Settings is a fake settings table of the second major version: it has no
// string getter.
type Settings struct {
	lib     *Library
	mu      sync.Mutex
	values  map[string]Value
	deleted bool
	// Writes counts successful writes per key.
	Writes map[string]int
}

// SettingsV1 adds the string getter of the first major version.
type SettingsV1 struct {
	*Settings
}

func (s *Settings) Type(name string) fluid.SettingType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[name]; ok {
		return v.Type
	}
	for k := range s.values {
		if len(k) > len(name) && k[:len(name)] == name && k[len(name)] == '.' {
			return fluid.SetType
		}
	}
	return fluid.NoType
}

// Value returns the raw entry for key.
func (s *Settings) Value(name string) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Deleted reports whether Delete was called.
func (s *Settings) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

func (s *Settings) GetNum(name string) (float64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok || v.Type != fluid.NumType {
		return 0, s.lib.failCode()
	}
	return v.Num, s.lib.okCode()
}

func (s *Settings) GetInt(name string) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok || v.Type != fluid.IntType {
		return 0, s.lib.failCode()
	}
	return v.Int, s.lib.okCode()
}

func (s *SettingsV1) GetStr(name string) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok || v.Type != fluid.StrType {
		return "", s.lib.failCode()
	}
	return v.Str, s.lib.okCode()
}

func (s *Settings) set(name string, t fluid.SettingType, apply func(*Value)) int {
	s.lib.mu.Lock()
	rejected := s.lib.rejected[name]
	s.lib.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok || v.Type != t || rejected {
		return s.lib.failCode()
	}
	apply(&v)
	s.values[name] = v
	if s.Writes == nil {
		s.Writes = make(map[string]int)
	}
	s.Writes[name]++
	return s.lib.okCode()
}

func (s *Settings) SetStr(name, value string) int {
	return s.set(name, fluid.StrType, func(v *Value) { v.Str = value })
}

func (s *Settings) SetNum(name string, value float64) int {
	return s.set(name, fluid.NumType, func(v *Value) { v.Num = value })
}

func (s *Settings) SetInt(name string, value int) int {
	return s.set(name, fluid.IntType, func(v *Value) { v.Int = value })
}

func (s *Settings) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
}

// Call is a recorded synth call.
type Call struct {
	Name string
	Args []int
}

// Synth records every call it receives.
type Synth struct {
	mu      sync.Mutex
	calls   []Call
	gain    float64
	fonts   int
	deleted bool
}

func (s *Synth) record(name string, args ...int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Name: name, Args: args})
	return fluid.CodeOK
}

// Calls returns the recorded calls.
func (s *Synth) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Deleted reports whether Delete was called.
func (s *Synth) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

func (s *Synth) SFLoad(path string, resetPresets bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == "" {
		return fluid.CodeFailed
	}
	s.fonts++
	s.calls = append(s.calls, Call{Name: "sfload", Args: []int{s.fonts}})
	return s.fonts
}

func (s *Synth) NoteOn(channel, key, velocity int) int {
	return s.record("noteon", channel, key, velocity)
}

func (s *Synth) NoteOff(channel, key int) int {
	return s.record("noteoff", channel, key)
}

func (s *Synth) ProgramChange(channel, program int) int {
	return s.record("program_change", channel, program)
}

func (s *Synth) CC(channel, ctrl, value int) int {
	return s.record("cc", channel, ctrl, value)
}

func (s *Synth) PitchBend(channel, value int) int {
	return s.record("pitch_bend", channel, value)
}

func (s *Synth) AllNotesOff(channel int) int {
	return s.record("all_notes_off", channel)
}

func (s *Synth) SystemReset() int {
	return s.record("system_reset")
}

func (s *Synth) SetGain(gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = gain
}

func (s *Synth) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *Synth) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
}

// Driver is a fake audio driver.
type Driver struct {
	mu      sync.Mutex
	deleted bool
}

func (d *Driver) Delete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = true
}

// Deleted reports whether Delete was called.
func (d *Driver) Deleted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleted
}

// Player is a fake MIDI player. Seeks stay pending until CompleteSeek.
type Player struct {
	mu          sync.Mutex
	Files       []string
	status      fluid.PlayerStatus
	loop        int
	tempoType   fluid.TempoType
	tempo       float64
	fileBPM     float64
	pendingSeek int
	current     int
	total       int
	deleted     bool

	rejectExternal bool
	// Ops records Play, Stop, Join and Delete in call order.
	Ops []string
}

// NewPlayer returns a fake player with a 120 BPM, 1920 tick file.
func NewPlayer() *Player {
	return &Player{loop: 1, fileBPM: 120, pendingSeek: -1, total: 1920, tempo: 1}
}

func (p *Player) Add(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == "" {
		return fluid.CodeFailed
	}
	p.Files = append(p.Files, path)
	return fluid.CodeOK
}

func (p *Player) AddMem(data []byte) int {
	if len(data) == 0 {
		return fluid.CodeFailed
	}
	return p.Add("<memory>")
}

func (p *Player) Play() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ops = append(p.Ops, "play")
	if len(p.Files) == 0 {
		p.status = fluid.PlayerDone
		return fluid.CodeOK
	}
	p.status = fluid.PlayerPlaying
	return fluid.CodeOK
}

func (p *Player) Stop() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ops = append(p.Ops, "stop")
	if p.status == fluid.PlayerPlaying {
		p.status = fluid.PlayerReady
	}
	return fluid.CodeOK
}

func (p *Player) Join() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ops = append(p.Ops, "join")
	return fluid.CodeOK
}

// Finish marks the player done.
func (p *Player) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = fluid.PlayerDone
}

func (p *Player) Status() fluid.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Player) SetLoop(loop int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
	return fluid.CodeOK
}

// Loop returns the loop count last set.
func (p *Player) Loop() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// RejectExternalTempo makes later BPM and MIDI tempo changes fail.
func (p *Player) RejectExternalTempo(reject bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectExternal = reject
}

func (p *Player) SetTempo(tempoType fluid.TempoType, tempo float64) int {
	if !fluid.TempoInRange(tempoType, tempo) {
		return fluid.CodeFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch tempoType {
	case fluid.TempoDefault:
		p.tempoType, p.tempo = fluid.TempoRelative, 1
	case fluid.TempoRelative:
		p.tempoType, p.tempo = fluid.TempoRelative, tempo
	case fluid.TempoBPM, fluid.TempoMIDI:
		if p.rejectExternal {
			return fluid.CodeFailed
		}
		p.tempoType, p.tempo = tempoType, tempo
	default:
		return fluid.CodeFailed
	}
	return fluid.CodeOK
}

func (p *Player) bpmLocked() float64 {
	switch p.tempoType {
	case fluid.TempoBPM:
		return p.tempo
	case fluid.TempoMIDI:
		return 60e6 / p.tempo
	default:
		return p.fileBPM * p.tempo
	}
}

func (p *Player) Tempo(tempoType fluid.TempoType) (float64, fluid.SyncMode, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mode := fluid.SyncInternal
	if p.tempoType == fluid.TempoBPM || p.tempoType == fluid.TempoMIDI {
		mode = fluid.SyncExternal
	}
	switch tempoType {
	case fluid.TempoDefault:
		return p.fileBPM, mode, fluid.CodeOK
	case fluid.TempoBPM:
		return p.bpmLocked(), mode, fluid.CodeOK
	case fluid.TempoMIDI:
		return 60e6 / p.bpmLocked(), mode, fluid.CodeOK
	case fluid.TempoRelative:
		if mode == fluid.SyncExternal {
			return 1, mode, fluid.CodeOK
		}
		return p.tempo, mode, fluid.CodeOK
	}
	return 0, mode, fluid.CodeFailed
}

func (p *Player) Seek(tick int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tick < 0 || tick > p.total || p.pendingSeek >= 0 {
		return fluid.CodeFailed
	}
	p.pendingSeek = tick
	return fluid.CodeOK
}

// CompleteSeek applies a pending seek.
func (p *Player) CompleteSeek() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingSeek >= 0 {
		p.current = p.pendingSeek
		p.pendingSeek = -1
	}
}

func (p *Player) TotalTicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func (p *Player) CurrentTick() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Delete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ops = append(p.Ops, "delete")
	p.deleted = true
}

// Deleted reports whether Delete was called.
func (p *Player) Deleted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleted
}

// Sent is an event accepted by the fake sequencer, with its absolute tick.
type Sent struct {
	Event fluid.Event
	Tick  uint32
	order int
}

// Sequencer is a fake sequencer with a manual clock. Advance dispatches due
// events to client callbacks in (tick, submission) order.
type Sequencer struct {
	mu       sync.Mutex
	tick     uint32
	scale    float64
	nextID   fluid.ClientID
	names    map[fluid.ClientID]string
	clients  map[fluid.ClientID]fluid.EventCallback
	synthIDs map[fluid.ClientID]bool
	pending  []Sent
	sent     []Sent
	order    int
	// Delivered holds events dispatched to synth destinations.
	delivered []Sent
	deleted   bool
	// Unregistered lists client ids in unregistration order.
	unregistered []fluid.ClientID
}

// NewSequencer returns a fake sequencer at tick 0.
func NewSequencer() *Sequencer {
	return &Sequencer{
		scale:    1000,
		names:    make(map[fluid.ClientID]string),
		clients:  make(map[fluid.ClientID]fluid.EventCallback),
		synthIDs: make(map[fluid.ClientID]bool),
	}
}

func (s *Sequencer) SetTimeScale(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = scale
}

func (s *Sequencer) TimeScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *Sequencer) Tick() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// SetTick moves the clock without dispatching.
func (s *Sequencer) SetTick(t uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = t
}

func (s *Sequencer) RegisterSynth(synth fluid.RawSynth) fluid.ClientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.names[id] = "fluidsynth"
	s.synthIDs[id] = true
	return id
}

func (s *Sequencer) RegisterClient(name string, cb fluid.EventCallback) fluid.ClientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return fluid.CodeFailed
	}
	id := s.nextID
	s.nextID++
	s.names[id] = name
	s.clients[id] = cb
	return id
}

func (s *Sequencer) UnregisterClient(id fluid.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	delete(s.synthIDs, id)
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.Event.Dest != id {
			kept = append(kept, p)
		}
	}
	s.pending = kept
	s.unregistered = append(s.unregistered, id)
}

// Unregistered returns the ids passed to UnregisterClient.
func (s *Sequencer) Unregistered() []fluid.ClientID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fluid.ClientID(nil), s.unregistered...)
}

// Registered reports whether id is a registered callback client.
func (s *Sequencer) Registered(id fluid.ClientID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.clients[id]
	return ok
}

func (s *Sequencer) ClientName(id fluid.ClientID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[id]
}

func (s *Sequencer) Send(ev fluid.Event, tick uint32, absolute bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return fluid.CodeFailed
	}
	if !absolute {
		tick += s.tick
	}
	entry := Sent{Event: ev, Tick: tick, order: s.order}
	s.order++
	s.sent = append(s.sent, entry)
	s.pending = append(s.pending, entry)
	return fluid.CodeOK
}

// SentEvents returns every accepted event in submission order.
func (s *Sequencer) SentEvents() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// Delivered returns events dispatched to synth destinations.
func (s *Sequencer) Delivered() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.delivered...)
}

// Advance moves the clock to tick and dispatches every due event, including
// events sent by callbacks during the dispatch.
func (s *Sequencer) Advance(to uint32) {
	for {
		s.mu.Lock()
		if to > s.tick {
			s.tick = to
		}
		sort.SliceStable(s.pending, func(i, j int) bool {
			if s.pending[i].Tick != s.pending[j].Tick {
				return s.pending[i].Tick < s.pending[j].Tick
			}
			return s.pending[i].order < s.pending[j].order
		})
		if len(s.pending) == 0 || s.pending[0].Tick > s.tick {
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		cb := s.clients[next.Event.Dest]
		if s.synthIDs[next.Event.Dest] {
			s.delivered = append(s.delivered, next)
		}
		s.mu.Unlock()
		if cb != nil {
			cb(next.Tick, next.Event)
		}
	}
}

func (s *Sequencer) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	s.pending = nil
}

// Deleted reports whether Delete was called.
func (s *Sequencer) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}
