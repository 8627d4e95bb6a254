package native

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/gofluid/pkg/fluid"
)

type source struct {
	path string
	data []byte
}

// midiOp is a message collected under the player lock and sent to the synth
// after releasing it.
type midiOp struct {
	ev    midiEvent
	reset bool
}

// Player implements fluid.RawPlayer. Its position advances with the samples
// rendered by the synth, or with wall time when player.timing-source is
// "system".
type Player struct {
	lib   *Library
	synth *Synth
	log   *slog.Logger

	resetSynth   bool
	textEncoding string
	systemTiming bool

	mu         sync.Mutex
	cond       *sync.Cond
	playlist   []source
	index      int
	file       *midiFile
	status     fluid.PlayerStatus
	loop       int
	loopsLeft  int
	tick       float64
	evIdx      int
	fileMicros int
	relative   float64
	external   bool
	extMicros  int
	pending    int
	hooked     bool
	lastWall   time.Duration
	deleted    bool

	timer *timer
}

func newPlayer(lib *Library, synth *Synth) *Player {
	p := &Player{
		lib:          lib,
		synth:        synth,
		log:          lib.log,
		resetSynth:   synth.settings.integer(KeyResetSynth) != 0,
		textEncoding: synth.settings.str(KeyTextEncoding),
		systemTiming: synth.settings.str(KeyTimingSource) == "system",
		status:       fluid.PlayerReady,
		loop:         1,
		relative:     1,
		fileMicros:   defaultMicrosPerBeat,
		pending:      -1,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Player) Add(path string) int {
	if path == "" {
		return fluid.CodeFailed
	}
	data, err := p.lib.fs.ReadFile(path)
	if err != nil {
		p.log.Error("failed to read MIDI file", "path", path, "error", err)
		return fluid.CodeFailed
	}
	if _, err := parseSMF(data, p.textEncoding); err != nil {
		p.log.Error("failed to parse MIDI file", "path", path, "error", err)
		return fluid.CodeFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist = append(p.playlist, source{path: path, data: data})
	return fluid.CodeOK
}

func (p *Player) AddMem(data []byte) int {
	if _, err := parseSMF(data, p.textEncoding); err != nil {
		p.log.Error("failed to parse MIDI data", "error", err)
		return fluid.CodeFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist = append(p.playlist, source{path: "<memory>", data: append([]byte(nil), data...)})
	return fluid.CodeOK
}

// loadLocked makes playlist entry i current.
func (p *Player) loadLocked(i int) bool {
	mf, err := parseSMF(p.playlist[i].data, p.textEncoding)
	if err != nil {
		p.log.Error("failed to parse MIDI file", "path", p.playlist[i].path, "error", err)
		return false
	}
	p.index = i
	p.file = mf
	p.tick = 0
	p.evIdx = 0
	p.fileMicros = mf.tempoAt(0)
	p.log.Debug("player loaded file", "path", p.playlist[i].path, "division", mf.Division, "ticks", mf.TotalTicks)
	return true
}

// Play starts playback, or resumes it after Stop.
func (p *Player) Play() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return fluid.CodeFailed
	}
	if len(p.playlist) == 0 {
		p.status = fluid.PlayerDone
		p.cond.Broadcast()
		return fluid.CodeOK
	}
	if p.file == nil || p.status == fluid.PlayerDone {
		p.loopsLeft = p.loop
		if !p.loadLocked(0) {
			p.status = fluid.PlayerDone
			p.cond.Broadcast()
			return fluid.CodeFailed
		}
	}
	p.status = fluid.PlayerPlaying
	p.startClockLocked()
	return fluid.CodeOK
}

func (p *Player) startClockLocked() {
	if p.hooked {
		return
	}
	p.hooked = true
	if p.systemTiming {
		p.lastWall = 0
		p.timer = newTimer(DefaultTimerInterval, p.wallTick)
		p.timer.Start()
		return
	}
	p.synth.addHook(p)
}

// stopClock detaches the player from its clock. p.mu must not be held.
func (p *Player) stopClock() {
	p.mu.Lock()
	if !p.hooked {
		p.mu.Unlock()
		return
	}
	p.hooked = false
	t := p.timer
	p.timer = nil
	p.mu.Unlock()

	if t != nil {
		t.Stop()
	} else {
		p.synth.removeHook(p)
	}
}

// Stop halts playback and silences the synth. The position is kept.
func (p *Player) Stop() int {
	p.mu.Lock()
	if p.status == fluid.PlayerPlaying {
		p.status = fluid.PlayerReady
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	p.stopClock()
	p.synth.AllNotesOff(-1)
	return fluid.CodeOK
}

// Join waits until the player is no longer playing.
func (p *Player) Join() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.status == fluid.PlayerPlaying {
		p.cond.Wait()
	}
	return fluid.CodeOK
}

func (p *Player) Status() fluid.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetLoop sets the number of times the playlist is played; -1 is infinite.
func (p *Player) SetLoop(loop int) int {
	if loop < -1 {
		return fluid.CodeFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = loop
	p.loopsLeft = loop
	return fluid.CodeOK
}

func (p *Player) SetTempo(tempoType fluid.TempoType, tempo float64) int {
	if !fluid.TempoInRange(tempoType, tempo) {
		return fluid.CodeFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch tempoType {
	case fluid.TempoDefault:
		p.external = false
		p.relative = 1
	case fluid.TempoRelative:
		p.external = false
		p.relative = tempo
	case fluid.TempoBPM:
		p.external = true
		p.extMicros = int(60e6 / tempo)
	case fluid.TempoMIDI:
		p.external = true
		p.extMicros = int(tempo)
	default:
		return fluid.CodeFailed
	}
	return fluid.CodeOK
}

// effectiveMicrosLocked returns the microseconds per beat used to advance.
func (p *Player) effectiveMicrosLocked() float64 {
	if p.external {
		return float64(p.extMicros)
	}
	return float64(p.fileMicros) / p.relative
}

func (p *Player) Tempo(tempoType fluid.TempoType) (float64, fluid.SyncMode, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mode := fluid.SyncInternal
	if p.external {
		mode = fluid.SyncExternal
	}
	switch tempoType {
	case fluid.TempoDefault:
		return 60e6 / float64(p.fileMicros), mode, fluid.CodeOK
	case fluid.TempoBPM:
		return 60e6 / p.effectiveMicrosLocked(), mode, fluid.CodeOK
	case fluid.TempoMIDI:
		return p.effectiveMicrosLocked(), mode, fluid.CodeOK
	case fluid.TempoRelative:
		if p.external {
			return 1, mode, fluid.CodeOK
		}
		return p.relative, mode, fluid.CodeOK
	}
	return 0, mode, fluid.CodeFailed
}

// Seek requests a new position, applied before the next block. A second seek
// while one is pending fails.
func (p *Player) Seek(tick int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil || tick < 0 || tick > p.file.TotalTicks || p.pending >= 0 {
		return fluid.CodeFailed
	}
	p.pending = tick
	return fluid.CodeOK
}

func (p *Player) TotalTicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return 0
	}
	return p.file.TotalTicks
}

func (p *Player) CurrentTick() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.tick)
}

// TrackNames returns the decoded names of the tracks of the current file.
func (p *Player) TrackNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	return append([]string(nil), p.file.TrackNames...)
}

func (p *Player) beforeBlock(_ int64, frames int) {
	p.advance(float64(frames) / float64(p.synth.SampleRate()))
}

func (p *Player) wallTick(elapsed time.Duration) {
	p.mu.Lock()
	delta := elapsed - p.lastWall
	p.lastWall = elapsed
	p.mu.Unlock()
	p.advance(delta.Seconds())
}

// advance moves the position by seconds and sends the events passed to the
// synth.
func (p *Player) advance(seconds float64) {
	p.mu.Lock()
	if p.status != fluid.PlayerPlaying || p.file == nil {
		p.mu.Unlock()
		return
	}
	var ops []midiOp
	if p.pending >= 0 {
		ops = p.seekLocked(p.pending, ops)
		p.pending = -1
	}
	// a playlist of empty files must not spin forever
	ends := 0
	for seconds > 0 && p.status == fluid.PlayerPlaying && ends <= len(p.playlist) {
		ticksPerSecond := float64(p.file.Division) * 1e6 / p.effectiveMicrosLocked()
		if p.evIdx >= len(p.file.Events) {
			if p.tick >= float64(p.file.TotalTicks) {
				ops = p.endOfFileLocked(ops)
				ends++
				continue
			}
			dt := (float64(p.file.TotalTicks) - p.tick) / ticksPerSecond
			if dt > seconds {
				p.tick += seconds * ticksPerSecond
				break
			}
			p.tick = float64(p.file.TotalTicks)
			seconds -= dt
			continue
		}
		next := p.file.Events[p.evIdx].Tick
		dt := (float64(next) - p.tick) / ticksPerSecond
		if dt > seconds {
			p.tick += seconds * ticksPerSecond
			break
		}
		if dt > 0 {
			p.tick = float64(next)
			seconds -= dt
		}
		for p.evIdx < len(p.file.Events) && p.file.Events[p.evIdx].Tick == next {
			ev := p.file.Events[p.evIdx]
			p.evIdx++
			if ev.Status == 0xFF {
				if ev.Meta == metaTempo && len(ev.Data) == 3 {
					if micros := int(ev.Data[0])<<16 | int(ev.Data[1])<<8 | int(ev.Data[2]); micros > 0 {
						p.fileMicros = micros
					}
				}
				continue
			}
			ops = append(ops, midiOp{ev: ev})
		}
	}
	if p.status != fluid.PlayerPlaying {
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	p.send(ops)
}

// endOfFileLocked moves to the next file, loops or finishes.
func (p *Player) endOfFileLocked(ops []midiOp) []midiOp {
	next := p.index + 1
	if next >= len(p.playlist) {
		if p.loopsLeft > 0 {
			p.loopsLeft--
		}
		if p.loopsLeft == 0 {
			p.status = fluid.PlayerDone
			p.log.Debug("player done")
			return append(ops, midiOp{reset: true})
		}
		next = 0
	}
	if !p.loadLocked(next) {
		p.status = fluid.PlayerDone
		return ops
	}
	if p.resetSynth {
		ops = append(ops, midiOp{reset: true})
	}
	return ops
}

// seekLocked moves to target, silencing notes and replaying the controller,
// program and pitch state that precedes it.
func (p *Player) seekLocked(target int, ops []midiOp) []midiOp {
	ops = append(ops, midiOp{reset: true})
	p.evIdx = 0
	p.fileMicros = p.file.tempoAt(target)
	for p.evIdx < len(p.file.Events) && p.file.Events[p.evIdx].Tick < target {
		ev := p.file.Events[p.evIdx]
		p.evIdx++
		switch ev.command() {
		case 0xB0, 0xC0, 0xE0:
			ops = append(ops, midiOp{ev: ev})
		}
	}
	p.tick = float64(target)
	return ops
}

func (p *Player) send(ops []midiOp) {
	for _, op := range ops {
		if op.reset {
			p.synth.AllNotesOff(-1)
			continue
		}
		ev := op.ev
		ch := ev.channel()
		switch ev.command() {
		case 0x80:
			p.synth.NoteOff(ch, int(ev.Data1))
		case 0x90:
			if ev.Data2 == 0 {
				p.synth.NoteOff(ch, int(ev.Data1))
			} else {
				p.synth.NoteOn(ch, int(ev.Data1), int(ev.Data2))
			}
		case 0xB0:
			p.synth.CC(ch, int(ev.Data1), int(ev.Data2))
		case 0xC0:
			p.synth.ProgramChange(ch, int(ev.Data1))
		case 0xE0:
			p.synth.PitchBend(ch, int(ev.Data1)|int(ev.Data2)<<7)
		}
	}
}

// Delete stops the player and detaches it from the synth.
func (p *Player) Delete() {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = true
	p.playlist = nil
	p.file = nil
}
