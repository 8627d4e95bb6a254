// Package native is a pure-Go implementation of the fluid.Library call
// surface. Synthesis and SoundFont parsing are delegated to go-meltysynth;
// audio output goes through Ebitengine audio, oto, a WAV file or nowhere.
//
// The library can emulate either major ABI version of the settings calls so
// that both return-code conventions of the wrapper layer are exercised.
package native

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zurustar/gofluid/pkg/fileutil"
	"github.com/zurustar/gofluid/pkg/fluid"
)

// Emulated library versions.
var (
	VersionV1 = fluid.Version{Major: 1, Minor: 1, Micro: 11}
	VersionV2 = fluid.Version{Major: 2, Minor: 3, Micro: 4}
)

var (
	// ErrWrongObject is returned when an object of another library is passed in.
	ErrWrongObject = errors.New("object was not created by the native library")

	// ErrUnknownDriver is returned for an audio.driver value without a driver.
	ErrUnknownDriver = errors.New("unknown audio driver")
)

// Options configures New.
type Options struct {
	// APIVersion selects the emulated major version, 1 or 2. Zero means 2.
	APIVersion int
	// FS is used for SoundFont and MIDI file access. Nil means the working
	// directory of the process.
	FS fileutil.FileSystem
	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Library implements fluid.Library.
type Library struct {
	api int
	fs  fileutil.FileSystem
	log *slog.Logger
}

// New creates a library.
func New(opts Options) (*Library, error) {
	api := opts.APIVersion
	if api == 0 {
		api = 2
	}
	if api != 1 && api != 2 {
		return nil, fmt.Errorf("unsupported API version %d", api)
	}
	lib := &Library{api: api, fs: opts.FS, log: opts.Logger}
	if lib.fs == nil {
		lib.fs = fileutil.NewRealFS("")
	}
	if lib.log == nil {
		lib.log = slog.Default()
	}
	return lib, nil
}

// Version reports the emulated library version.
func (l *Library) Version() (int, int, int) {
	v := VersionV2
	if l.api == 1 {
		v = VersionV1
	}
	return v.Major, v.Minor, v.Micro
}

// NewSettings creates a settings table with every known key at its default.
func (l *Library) NewSettings() fluid.RawSettings {
	s := newSettings(l.api)
	if l.api == 1 {
		return &settingsV1{s}
	}
	return s
}

// NewSynth creates a synthesizer. The meltysynth engine is created when the
// first SoundFont is loaded.
func (l *Library) NewSynth(settings fluid.RawSettings) (fluid.RawSynth, error) {
	s, err := nativeSettings(settings)
	if err != nil {
		return nil, err
	}
	return newSynth(l, s)
}

// NewAudioDriver starts the driver named by audio.driver.
func (l *Library) NewAudioDriver(settings fluid.RawSettings, synth fluid.RawSynth) (fluid.RawAudioDriver, error) {
	s, err := nativeSettings(settings)
	if err != nil {
		return nil, err
	}
	sy, ok := synth.(*Synth)
	if !ok {
		return nil, ErrWrongObject
	}
	return newDriver(l, s, sy)
}

// NewPlayer creates a MIDI file player bound to synth.
func (l *Library) NewPlayer(synth fluid.RawSynth) (fluid.RawPlayer, error) {
	sy, ok := synth.(*Synth)
	if !ok {
		return nil, ErrWrongObject
	}
	return newPlayer(l, sy), nil
}

// NewSequencer creates a sequencer. Without the system timer its clock
// follows the samples rendered by the first registered synth.
func (l *Library) NewSequencer(useSystemTimer bool) (fluid.RawSequencer, error) {
	return newSequencer(l, useSystemTimer), nil
}

func nativeSettings(raw fluid.RawSettings) (*Settings, error) {
	switch s := raw.(type) {
	case *Settings:
		return s, nil
	case *settingsV1:
		return s.Settings, nil
	}
	return nil, ErrWrongObject
}
