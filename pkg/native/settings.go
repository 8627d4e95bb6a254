package native

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// Settings keys understood by the native library, beyond those named in
// package fluid.
const (
	KeyPolyphony    = "synth.polyphony"
	KeyMIDIChannels = "synth.midi-channels"
	KeyVerbose      = "synth.verbose"
	KeyPeriodSize   = "audio.period-size"
	KeyPeriods      = "audio.periods"
	KeySampleFormat = "audio.sample-format"
	KeyFileName     = "audio.file.name"
	KeyTimingSource = "player.timing-source"
	KeyResetSynth   = "player.reset-synth"
	KeyTextEncoding = "player.text-encoding"
)

// Audio driver names accepted by audio.driver.
const (
	DriverEbiten = "ebiten"
	DriverOto    = "oto"
	DriverFile   = "file"
	DriverNull   = "null"
)

type entry struct {
	kind fluid.SettingType

	num, numMin, numMax float64
	i, intMin, intMax   int
	str                 string
	// options restricts string values; nil accepts anything.
	options []string
}

func numEntry(def, lo, hi float64) entry {
	return entry{kind: fluid.NumType, num: def, numMin: lo, numMax: hi}
}

func intEntry(def, lo, hi int) entry {
	return entry{kind: fluid.IntType, i: def, intMin: lo, intMax: hi}
}

func strEntry(def string, options ...string) entry {
	return entry{kind: fluid.StrType, str: def, options: options}
}

// registry holds every known key with its default and range.
var registry = map[string]entry{
	fluid.KeyGain:         numEntry(0.2, 0, 10),
	fluid.KeySampleRate:   numEntry(44100, 8000, 96000),
	KeyPolyphony:          intEntry(256, 1, 65535),
	KeyMIDIChannels:       intEntry(16, 16, 256),
	fluid.KeyChorusActive: intEntry(1, 0, 1),
	fluid.KeyReverbActive: intEntry(1, 0, 1),
	KeyVerbose:            intEntry(0, 0, 1),
	fluid.KeyAudioDriver:  strEntry(DriverEbiten, DriverEbiten, DriverOto, DriverFile, DriverNull),
	KeyPeriodSize:         intEntry(64, 64, 8192),
	KeyPeriods:            intEntry(16, 2, 64),
	KeySampleFormat:       strEntry("16bits", "16bits", "float"),
	KeyFileName:           strEntry("fluidsynth.wav"),
	KeyTimingSource:       strEntry("sample", "sample", "system"),
	KeyResetSynth:         intEntry(1, 0, 1),
	KeyTextEncoding:       strEntry("utf-8", "utf-8", "shift_jis", "latin1"),
}

// Keys returns every known key in lexical order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings is the native settings table. It returns codes in the convention
// of the emulated major version.
type Settings struct {
	api int

	mu      sync.Mutex
	values  map[string]entry
	hooks   map[string][]func()
	deleted bool
}

// settingsV1 adds string retrieval, which the second major version removed.
type settingsV1 struct {
	*Settings
}

func newSettings(api int) *Settings {
	values := make(map[string]entry, len(registry))
	for k, e := range registry {
		values[k] = e
	}
	return &Settings{api: api, values: values, hooks: make(map[string][]func())}
}

func (s *Settings) ok() int {
	if s.api == 1 {
		return 1
	}
	return fluid.CodeOK
}

func (s *Settings) failed() int {
	if s.api == 1 {
		return 0
	}
	return fluid.CodeFailed
}

// Type reports the kind of name. Prefixes of known keys are set nodes.
func (s *Settings) Type(name string) fluid.SettingType {
	if e, ok := registry[name]; ok {
		return e.kind
	}
	if name == "" {
		return fluid.NoType
	}
	prefix := name + "."
	for k := range registry {
		if strings.HasPrefix(k, prefix) {
			return fluid.SetType
		}
	}
	return fluid.NoType
}

func (s *Settings) lookup(name string, kind fluid.SettingType) (entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[name]
	if !ok || e.kind != kind {
		return entry{}, false
	}
	return e, true
}

func (s *Settings) GetNum(name string) (float64, int) {
	e, ok := s.lookup(name, fluid.NumType)
	if !ok {
		return 0, s.failed()
	}
	return e.num, s.ok()
}

func (s *Settings) GetInt(name string) (int, int) {
	e, ok := s.lookup(name, fluid.IntType)
	if !ok {
		return 0, s.failed()
	}
	return e.i, s.ok()
}

func (s *settingsV1) GetStr(name string) (string, int) {
	e, ok := s.lookup(name, fluid.StrType)
	if !ok {
		return "", s.failed()
	}
	return e.str, s.ok()
}

// num, integer and str read values for the library itself, whatever the
// emulated version.
func (s *Settings) num(name string) float64 {
	e, _ := s.lookup(name, fluid.NumType)
	return e.num
}

func (s *Settings) integer(name string) int {
	e, _ := s.lookup(name, fluid.IntType)
	return e.i
}

func (s *Settings) str(name string) string {
	e, _ := s.lookup(name, fluid.StrType)
	return e.str
}

func (s *Settings) write(name string, kind fluid.SettingType, accept func(*entry) bool) int {
	s.mu.Lock()
	e, ok := s.values[name]
	if !ok || e.kind != kind || s.deleted || !accept(&e) {
		s.mu.Unlock()
		return s.failed()
	}
	s.values[name] = e
	hooks := slices.Clone(s.hooks[name])
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return s.ok()
}

func (s *Settings) SetStr(name, value string) int {
	return s.write(name, fluid.StrType, func(e *entry) bool {
		if e.options != nil && !slices.Contains(e.options, value) {
			return false
		}
		e.str = value
		return true
	})
}

func (s *Settings) SetNum(name string, value float64) int {
	return s.write(name, fluid.NumType, func(e *entry) bool {
		if math.IsNaN(value) || value < e.numMin || value > e.numMax {
			return false
		}
		e.num = value
		return true
	})
}

func (s *Settings) SetInt(name string, value int) int {
	return s.write(name, fluid.IntType, func(e *entry) bool {
		if value < e.intMin || value > e.intMax {
			return false
		}
		e.i = value
		return true
	})
}

// onChange registers fn to run after every successful write to name. It
// returns a function removing the registration.
func (s *Settings) onChange(name string, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[name] = append(s.hooks[name], fn)
	idx := len(s.hooks[name]) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if hs := s.hooks[name]; idx < len(hs) {
			hs[idx] = func() {}
		}
	}
}

func (s *Settings) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	s.hooks = make(map[string][]func())
}
