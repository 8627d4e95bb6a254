package fluid

import (
	"fmt"
	"sync"
)

// Player plays MIDI files through a synth.
//
// The paused flag mirrors the player state: it is true until Play is called
// and after Stop.
type Player struct {
	h   *Handle
	raw RawPlayer

	mu     sync.Mutex
	paused bool
	closed bool
}

// NewPlayer creates a player bound to synth.
func NewPlayer(h *Handle, synth *Synth) (*Player, error) {
	raw, err := h.lib.NewPlayer(synth.raw)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return &Player{h: h, raw: raw, paused: true}, nil
}

// Add appends a MIDI file to the play queue.
func (p *Player) Add(path string) error {
	if err := check("player_add", p.raw.Add(path)); err != nil {
		return fmt.Errorf("add %s: %w", path, err)
	}
	return nil
}

// AddData appends an in-memory MIDI file to the play queue.
func (p *Player) AddData(data []byte) error {
	return check("player_add_mem", p.raw.AddMem(data))
}

// Play starts or resumes playback.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked()
}

// PlayFile adds path to the queue and starts playback.
func (p *Player) PlayFile(path string) error {
	if err := p.Add(path); err != nil {
		return err
	}
	return p.Play()
}

func (p *Player) playLocked() error {
	if err := check("player_play", p.raw.Play()); err != nil {
		return err
	}
	p.paused = false
	return nil
}

// Stop halts playback. The position is kept, so Play resumes.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	if err := check("player_stop", p.raw.Stop()); err != nil {
		return err
	}
	p.paused = true
	return nil
}

// Pause stops a playing player, or resumes a paused one.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return p.playLocked()
	}
	return p.stopLocked()
}

// Paused reports the bookkeeping flag.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Join blocks until the player is no longer playing.
func (p *Player) Join() error {
	return check("player_join", p.raw.Join())
}

// Status returns the player status.
func (p *Player) Status() PlayerStatus {
	return p.raw.Status()
}

// SetLoop sets how many times the playlist is played; -1 loops forever.
func (p *Player) SetLoop(loop int) error {
	return check("player_set_loop", p.raw.SetLoop(loop))
}

// SetTempo changes the playback tempo.
func (p *Player) SetTempo(tempoType TempoType, tempo float64) error {
	if !tempoType.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTempoType, int(tempoType))
	}
	return check("player_set_tempo", p.raw.SetTempo(tempoType, tempo))
}

// Tempo returns the tempo expressed as tempoType, and whether the player
// currently follows the MIDI file tempo.
func (p *Player) Tempo(tempoType TempoType) (float64, SyncMode, error) {
	if !tempoType.valid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidTempoType, int(tempoType))
	}
	v, mode, code := p.raw.Tempo(tempoType)
	if err := check("player_get_tempo", code); err != nil {
		return 0, 0, err
	}
	return v, mode, nil
}

// Seek moves playback to an absolute tick of the current file. It fails with
// ErrSeekRejected when the tick is out of range or a seek is already pending;
// the caller may retry later.
func (p *Player) Seek(tick int) error {
	if code := p.raw.Seek(tick); code < 0 {
		return fmt.Errorf("%w: tick %d", ErrSeekRejected, tick)
	}
	return nil
}

// TotalTicks returns the length of the current file in ticks.
func (p *Player) TotalTicks() int {
	return p.raw.TotalTicks()
}

// CurrentTick returns the position in the current file.
func (p *Player) CurrentTick() int {
	return p.raw.CurrentTick()
}

// TrackNames returns the decoded track names of the current file, if the
// library provides them.
func (p *Player) TrackNames() []string {
	if tn, ok := p.raw.(TrackNamer); ok {
		return tn.TrackNames()
	}
	return nil
}

// Close stops the player, waits for it to finish and deletes it.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	stopErr := p.stopLocked()
	joinErr := p.Join()
	p.raw.Delete()
	if stopErr != nil {
		return stopErr
	}
	return joinErr
}
