package fluid

import (
	"fmt"
	"sync"
)

// Synth is a synthesizer created from a settings table.
type Synth struct {
	h        *Handle
	raw      RawSynth
	settings *Settings

	mu     sync.Mutex
	closed bool
}

// NewSynth creates a synthesizer configured by settings.
func NewSynth(h *Handle, settings *Settings) (*Synth, error) {
	raw, err := h.lib.NewSynth(settings.raw)
	if err != nil {
		return nil, fmt.Errorf("create synth: %w", err)
	}
	return &Synth{h: h, raw: raw, settings: settings}, nil
}

// Raw returns the underlying synth.
func (s *Synth) Raw() RawSynth {
	return s.raw
}

// Settings returns the settings the synth was created with.
func (s *Synth) Settings() *Settings {
	return s.settings
}

// LoadSoundFont loads a SoundFont file and returns its id.
func (s *Synth) LoadSoundFont(path string, resetPresets bool) (int, error) {
	id := s.raw.SFLoad(path, resetPresets)
	if id < 0 {
		return 0, fmt.Errorf("load soundfont %s: %w", path, &CallError{Call: "sfload", Code: id})
	}
	s.h.log.Debug("soundfont loaded", "path", path, "id", id)
	return id, nil
}

// NoteOn starts a note.
func (s *Synth) NoteOn(channel, key, velocity int) error {
	return check("noteon", s.raw.NoteOn(channel, key, velocity))
}

// NoteOff releases a note.
func (s *Synth) NoteOff(channel, key int) error {
	return check("noteoff", s.raw.NoteOff(channel, key))
}

// ProgramChange selects the instrument of a channel.
func (s *Synth) ProgramChange(channel, program int) error {
	return check("program_change", s.raw.ProgramChange(channel, program))
}

// ControlChange sends a MIDI controller value.
func (s *Synth) ControlChange(channel, ctrl, value int) error {
	return check("cc", s.raw.CC(channel, ctrl, value))
}

// PitchBend sets the pitch wheel of a channel (0..16383, center 8192).
func (s *Synth) PitchBend(channel, value int) error {
	return check("pitch_bend", s.raw.PitchBend(channel, value))
}

// AllNotesOff releases every note of a channel. A negative channel means all.
func (s *Synth) AllNotesOff(channel int) error {
	return check("all_notes_off", s.raw.AllNotesOff(channel))
}

// SystemReset resets every channel.
func (s *Synth) SystemReset() error {
	return check("system_reset", s.raw.SystemReset())
}

// Gain returns the master gain.
func (s *Synth) Gain() float64 {
	return s.raw.Gain()
}

// SetGain sets the master gain.
func (s *Synth) SetGain(gain float64) {
	s.raw.SetGain(gain)
}

// Close deletes the synth. Drivers, players and sequencers using it must be
// closed first.
func (s *Synth) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.raw.Delete()
	return nil
}
