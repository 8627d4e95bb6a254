package native

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/gofluid/pkg/fluid"
)

// BlockSize is the number of frames rendered between two render hook calls.
const BlockSize = 64

// gainScale maps synth.gain onto the meltysynth master volume so that the
// default gain of 0.2 matches meltysynth's default volume of 0.5.
const gainScale = 2.5

// meltysynth synthesizes 16 channels regardless of synth.midi-channels.
const engineChannels = 16

// renderHook runs before each block, outside the synth lock. sample is the
// number of frames rendered so far; frames is the size of the coming block.
type renderHook interface {
	beforeBlock(sample int64, frames int)
}

// Synth implements fluid.RawSynth on a meltysynth Synthesizer.
type Synth struct {
	lib      *Library
	settings *Settings
	log      *slog.Logger

	sampleRate int
	polyphony  int
	channels   int
	effects    bool
	verbose    bool

	mu      sync.Mutex
	engine  *meltysynth.Synthesizer
	fonts   []*meltysynth.SoundFont
	gain    float64
	samples int64
	deleted bool

	hooksMu sync.Mutex
	hooks   []renderHook

	removeGainHook func()
}

func newSynth(lib *Library, settings *Settings) (*Synth, error) {
	s := &Synth{
		lib:        lib,
		settings:   settings,
		log:        lib.log,
		sampleRate: int(settings.num(fluid.KeySampleRate)),
		polyphony:  settings.integer(KeyPolyphony),
		channels:   min(settings.integer(KeyMIDIChannels), engineChannels),
		effects:    settings.integer(fluid.KeyReverbActive) != 0 || settings.integer(fluid.KeyChorusActive) != 0,
		verbose:    settings.integer(KeyVerbose) != 0,
		gain:       settings.num(fluid.KeyGain),
	}
	if s.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", s.sampleRate)
	}
	s.removeGainHook = settings.onChange(fluid.KeyGain, func() {
		s.SetGain(settings.num(fluid.KeyGain))
	})
	return s, nil
}

// SampleRate returns the output sample rate.
func (s *Synth) SampleRate() int {
	return s.sampleRate
}

// Samples returns the number of frames rendered so far.
func (s *Synth) Samples() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// SFLoad parses a SoundFont and rebuilds the engine around it. meltysynth
// plays a single font, so the most recently loaded one is used.
func (s *Synth) SFLoad(path string, resetPresets bool) int {
	data, err := s.lib.fs.ReadFile(path)
	if err != nil {
		s.log.Error("failed to read soundfont", "path", path, "error", err)
		return fluid.CodeFailed
	}
	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		s.log.Error("failed to parse soundfont", "path", path, "error", err)
		return fluid.CodeFailed
	}

	settings := meltysynth.NewSynthesizerSettings(int32(s.sampleRate))
	settings.BlockSize = BlockSize
	settings.MaximumPolyphony = int32(s.polyphony)
	settings.EnableReverbAndChorus = s.effects
	engine, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		s.log.Error("failed to create synthesizer", "path", path, "error", err)
		return fluid.CodeFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	engine.MasterVolume = float32(s.gain * gainScale)
	s.engine = engine
	s.fonts = append(s.fonts, font)
	s.log.Debug("soundfont loaded", "path", path, "id", len(s.fonts), "reset", resetPresets)
	return len(s.fonts)
}

// message forwards a channel message to the engine.
func (s *Synth) message(channel int, fn func(e *meltysynth.Synthesizer)) int {
	if channel < 0 || channel >= s.channels {
		return fluid.CodeFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || s.deleted {
		return fluid.CodeFailed
	}
	fn(s.engine)
	return fluid.CodeOK
}

func (s *Synth) NoteOn(channel, key, velocity int) int {
	if key < 0 || key > 127 || velocity < 0 || velocity > 127 {
		return fluid.CodeFailed
	}
	if s.verbose {
		s.log.Debug("noteon", "channel", channel, "key", key, "velocity", velocity)
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.NoteOn(int32(channel), int32(key), int32(velocity))
	})
}

func (s *Synth) NoteOff(channel, key int) int {
	if key < 0 || key > 127 {
		return fluid.CodeFailed
	}
	if s.verbose {
		s.log.Debug("noteoff", "channel", channel, "key", key)
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.NoteOff(int32(channel), int32(key))
	})
}

func (s *Synth) ProgramChange(channel, program int) int {
	if program < 0 || program > 127 {
		return fluid.CodeFailed
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.ProcessMidiMessage(int32(channel), 0xC0, int32(program), 0)
	})
}

func (s *Synth) CC(channel, ctrl, value int) int {
	if ctrl < 0 || ctrl > 127 || value < 0 || value > 127 {
		return fluid.CodeFailed
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.ProcessMidiMessage(int32(channel), 0xB0, int32(ctrl), int32(value))
	})
}

func (s *Synth) PitchBend(channel, value int) int {
	if value < 0 || value > 0x3FFF {
		return fluid.CodeFailed
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.ProcessMidiMessage(int32(channel), 0xE0, int32(value&0x7F), int32(value>>7))
	})
}

// AllNotesOff releases the notes of channel, or of every channel when
// channel is negative.
func (s *Synth) AllNotesOff(channel int) int {
	if channel < 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.engine == nil || s.deleted {
			return fluid.CodeFailed
		}
		s.engine.NoteOffAll(false)
		return fluid.CodeOK
	}
	return s.message(channel, func(e *meltysynth.Synthesizer) {
		e.NoteOffAllChannel(int32(channel), false)
	})
}

func (s *Synth) SystemReset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || s.deleted {
		return fluid.CodeFailed
	}
	s.engine.Reset()
	return fluid.CodeOK
}

func (s *Synth) SetGain(gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = gain
	if s.engine != nil {
		s.engine.MasterVolume = float32(gain * gainScale)
	}
}

func (s *Synth) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *Synth) addHook(h renderHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *Synth) removeHook(h renderHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = slices.DeleteFunc(s.hooks, func(x renderHook) bool { return x == h })
}

// Render fills left and right with the next frames. Before every block of
// BlockSize frames the render hooks run, so sequencers and players see a
// clock that advances in block steps.
func (s *Synth) Render(left, right []float32) {
	n := min(len(left), len(right))
	for off := 0; off < n; off += BlockSize {
		end := min(off+BlockSize, n)

		s.hooksMu.Lock()
		hooks := slices.Clone(s.hooks)
		s.hooksMu.Unlock()
		start := s.Samples()
		for _, h := range hooks {
			h.beforeBlock(start, end-off)
		}

		s.mu.Lock()
		if s.engine != nil && !s.deleted {
			s.engine.Render(left[off:end], right[off:end])
		} else {
			clear(left[off:end])
			clear(right[off:end])
		}
		s.samples += int64(end - off)
		s.mu.Unlock()
	}
}

func (s *Synth) Delete() {
	s.removeGainHook()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	s.engine = nil
}
