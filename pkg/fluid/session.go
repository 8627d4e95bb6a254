package fluid

import (
	"errors"
	"fmt"
	"sync"
)

// SessionOptions configures NewSession.
type SessionOptions struct {
	// Configure is called on the settings before the synth is created.
	Configure func(*Settings) error
	// SoundFont is loaded into the synth when not empty.
	SoundFont string
	// AudioDriver overrides audio.driver. Empty keeps the table value.
	AudioDriver string
	// NoAudio skips creating an audio driver.
	NoAudio bool
	// Sequencer creates a sequencer with the synth registered as destination.
	Sequencer bool
	// SystemTimer makes the sequencer follow wall time instead of samples.
	SystemTimer bool
	// Player creates a MIDI file player.
	Player bool
}

// Session owns every library object of one synthesizer session. Close
// releases them in dependency order so that no callback or render can reach
// an object that is already deleted.
type Session struct {
	Handle    *Handle
	Settings  *Settings
	Synth     *Synth
	Driver    *AudioDriver
	Sequencer *Sequencer
	Player    *Player

	// SynthID is the sequencer destination of Synth.
	SynthID ClientID

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates the objects requested by opts. On failure everything
// created so far is released.
func NewSession(h *Handle, opts SessionOptions) (sess *Session, err error) {
	sess = &Session{Handle: h, SynthID: NoClient}
	defer func() {
		if err != nil {
			sess.Close()
			sess = nil
		}
	}()

	if sess.Settings, err = NewSettings(h); err != nil {
		return sess, err
	}
	if opts.Configure != nil {
		if err = opts.Configure(sess.Settings); err != nil {
			return sess, fmt.Errorf("configure settings: %w", err)
		}
	}
	if sess.Synth, err = NewSynth(h, sess.Settings); err != nil {
		return sess, err
	}
	if opts.SoundFont != "" {
		if _, err = sess.Synth.LoadSoundFont(opts.SoundFont, true); err != nil {
			return sess, err
		}
	}
	if !opts.NoAudio {
		if opts.AudioDriver != "" {
			if err = sess.Settings.Set(KeyAudioDriver, opts.AudioDriver); err != nil {
				return sess, err
			}
		}
		if sess.Driver, err = NewAudioDriver(h, sess.Settings, sess.Synth); err != nil {
			return sess, err
		}
	}
	if opts.Sequencer {
		if sess.Sequencer, err = NewSequencer(h, opts.SystemTimer); err != nil {
			return sess, err
		}
		if sess.SynthID, _, err = sess.Sequencer.AddSynth(sess.Synth); err != nil {
			return sess, err
		}
	}
	if opts.Player {
		if sess.Player, err = NewPlayer(h, sess.Synth); err != nil {
			return sess, err
		}
	}
	return sess, nil
}

// Close releases the session: sequencer (with its clients), player, driver,
// synth, settings. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.Sequencer != nil {
			errs = append(errs, s.Sequencer.Close())
		}
		if s.Player != nil {
			errs = append(errs, s.Player.Close())
		}
		if s.Driver != nil {
			errs = append(errs, s.Driver.Close())
		}
		if s.Synth != nil {
			errs = append(errs, s.Synth.Close())
		}
		if s.Settings != nil {
			errs = append(errs, s.Settings.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
