// Package jukebox plays a playlist of MIDI files through a synth and exposes
// the transport, repeat and tempo controls of a simple media player.
package jukebox

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// DefaultReleaseDelay is how long Stop waits after stopping the player before
// deleting it, so that released notes can fade out.
const DefaultReleaseDelay = 200 * time.Millisecond

// RepeatForever plays the playlist until stopped.
const RepeatForever = -1

var (
	// ErrInvalidRepeat is returned for a repeat count that is neither
	// positive nor RepeatForever.
	ErrInvalidRepeat = errors.New("repeat count must be > 0 or -1 (infinite)")

	// ErrInvalidTempo is returned for a tempo outside the range the player
	// accepts.
	ErrInvalidTempo = errors.New("tempo out of range")

	// ErrEmptyPlaylist is returned by Play when there is nothing to play.
	ErrEmptyPlaylist = errors.New("playlist is empty")
)

// State is the transport state reported by Status.
type State string

const (
	StateStopped State = "stopped"
	StatePaused  State = "paused"
	StatePlaying State = "playing"
	StateDone    State = "done"
)

// Tempo is the tempo of the current player.
type Tempo struct {
	BPM        float64 `json:"bpm"`
	MIDITempo  float64 `json:"midi_tempo"`
	DefaultBPM float64 `json:"default_bpm"`
	SyncMode   string  `json:"sync_mode"`
}

// Status is a snapshot of the jukebox.
type Status struct {
	State      State    `json:"state"`
	Playlist   []string `json:"playlist"`
	Repeat     int      `json:"repeat"`
	TempoBPM   *int     `json:"tempo_bpm,omitempty"`
	MIDITempo  *int     `json:"midi_tempo,omitempty"`
	Tick       int      `json:"tick"`
	TotalTicks int      `json:"total_ticks"`
	Tracks     []string `json:"tracks,omitempty"`
}

// Option configures a Jukebox.
type Option func(*Jukebox)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Jukebox) {
		if l != nil {
			j.log = l
		}
	}
}

// WithReleaseDelay overrides DefaultReleaseDelay.
func WithReleaseDelay(d time.Duration) Option {
	return func(j *Jukebox) {
		j.releaseDelay = d
	}
}

// Jukebox owns at most one player at a time. The player is created by the
// first Play and deleted by Stop.
type Jukebox struct {
	h            *fluid.Handle
	synth        *fluid.Synth
	log          *slog.Logger
	releaseDelay time.Duration
	sleep        func(time.Duration)

	mu        sync.Mutex
	playlist  []string
	player    *fluid.Player
	repeat    int
	tempoBPM  *int
	midiTempo *int
}

// New creates a jukebox playing through synth.
func New(h *fluid.Handle, synth *fluid.Synth, opts ...Option) *Jukebox {
	j := &Jukebox{
		h:            h,
		synth:        synth,
		log:          slog.Default(),
		releaseDelay: DefaultReleaseDelay,
		sleep:        time.Sleep,
		repeat:       1,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AddFiles appends files to the playlist. Files added while a player exists
// are queued on the next player.
func (j *Jukebox) AddFiles(files ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, f := range files {
		j.log.Info("playlist: add midi file", "file", f)
		j.playlist = append(j.playlist, f)
	}
}

// Playlist returns a copy of the playlist.
func (j *Jukebox) Playlist() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.playlist...)
}

// Play starts the playlist, or resumes after Pause.
func (j *Jukebox) Play() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: play")

	if j.player != nil {
		return j.player.Play()
	}
	if len(j.playlist) == 0 {
		return ErrEmptyPlaylist
	}
	p, err := fluid.NewPlayer(j.h, j.synth)
	if err != nil {
		return err
	}
	if err := j.setup(p); err != nil {
		p.Close()
		return err
	}
	j.player = p
	return nil
}

func (j *Jukebox) setup(p *fluid.Player) error {
	if err := p.SetLoop(j.repeat); err != nil {
		return fmt.Errorf("set loop: %w", err)
	}
	if err := applyTempo(p, j.tempoBPM, j.midiTempo); err != nil {
		// a stored tempo never blocks playback
		j.log.Warn("jukebox: tempo rejected, using file tempo", "error", err)
		j.tempoBPM, j.midiTempo = nil, nil
		if err := p.SetTempo(fluid.TempoDefault, 0); err != nil {
			return fmt.Errorf("set tempo: %w", err)
		}
	}
	for _, f := range j.playlist {
		if err := p.Add(f); err != nil {
			return err
		}
	}
	return p.Play()
}

// Pause stops playback and keeps the position.
func (j *Jukebox) Pause() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: pause")
	if j.player == nil {
		return nil
	}
	return j.player.Stop()
}

// Stop stops playback, waits for the release delay and deletes the player.
// The next Play starts from the beginning of the playlist.
func (j *Jukebox) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: stop")
	if j.player == nil {
		return nil
	}
	stopErr := j.player.Stop()
	j.sleep(j.releaseDelay)
	closeErr := j.player.Close()
	j.player = nil
	return errors.Join(stopErr, closeErr)
}

// SetRepeat sets how many times the playlist is played.
func (j *Jukebox) SetRepeat(n int) error {
	if n == 0 || n < RepeatForever {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, n)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: repeat", "count", n)
	j.repeat = n
	if j.player != nil {
		return j.player.SetLoop(n)
	}
	return nil
}

// Repeat returns the repeat count.
func (j *Jukebox) Repeat() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.repeat
}

// SetTempoBPM sets an external tempo in beats per minute. Nil returns to the
// tempo of the MIDI file. It clears any MIDI tempo. With a live player the
// tempo is kept only if the player accepts it.
func (j *Jukebox) SetTempoBPM(bpm *int) error {
	if bpm != nil && !fluid.TempoInRange(fluid.TempoBPM, float64(*bpm)) {
		return fmt.Errorf("%w: %d bpm, want %d..%d", ErrInvalidTempo, *bpm, fluid.MinTempoBPM, fluid.MaxTempoBPM)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: set tempo", intAttr("bpm", bpm))
	return j.commitTempo(cloneInt(bpm), nil)
}

// SetMIDITempo sets an external tempo in microseconds per quarter note. Nil
// returns to the tempo of the MIDI file. It clears any BPM tempo.
func (j *Jukebox) SetMIDITempo(micros *int) error {
	if micros != nil && !fluid.TempoInRange(fluid.TempoMIDI, float64(*micros)) {
		return fmt.Errorf("%w: %d us per quarter note, want %d..%d", ErrInvalidTempo, *micros, fluid.MinMIDITempo, fluid.MaxMIDITempo)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log.Info("jukebox: set midi tempo", intAttr("us_per_quarter", micros))
	return j.commitTempo(nil, cloneInt(micros))
}

func (j *Jukebox) commitTempo(bpm, midiTempo *int) error {
	if j.player != nil {
		if err := applyTempo(j.player, bpm, midiTempo); err != nil {
			return err
		}
	}
	j.tempoBPM, j.midiTempo = bpm, midiTempo
	return nil
}

func applyTempo(p *fluid.Player, bpm, midiTempo *int) error {
	switch {
	case bpm != nil:
		return p.SetTempo(fluid.TempoBPM, float64(*bpm))
	case midiTempo != nil:
		return p.SetTempo(fluid.TempoMIDI, float64(*midiTempo))
	default:
		return p.SetTempo(fluid.TempoDefault, 0)
	}
}

// Tempo reports the tempo of the current player. It returns false when no
// player exists.
func (j *Jukebox) Tempo() (Tempo, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.player == nil {
		return Tempo{}, false, nil
	}
	bpm, mode, err := j.player.Tempo(fluid.TempoBPM)
	if err != nil {
		return Tempo{}, true, err
	}
	midi, _, err := j.player.Tempo(fluid.TempoMIDI)
	if err != nil {
		return Tempo{}, true, err
	}
	def, _, err := j.player.Tempo(fluid.TempoDefault)
	if err != nil {
		return Tempo{}, true, err
	}
	return Tempo{BPM: bpm, MIDITempo: midi, DefaultBPM: def, SyncMode: mode.String()}, true, nil
}

// Status returns a snapshot of the jukebox.
func (j *Jukebox) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := Status{
		State:     StateStopped,
		Playlist:  append([]string(nil), j.playlist...),
		Repeat:    j.repeat,
		TempoBPM:  cloneInt(j.tempoBPM),
		MIDITempo: cloneInt(j.midiTempo),
	}
	if j.player == nil {
		return st
	}
	switch j.player.Status() {
	case fluid.PlayerPlaying:
		st.State = StatePlaying
	case fluid.PlayerDone:
		st.State = StateDone
	default:
		st.State = StatePaused
	}
	st.Tick = j.player.CurrentTick()
	st.TotalTicks = j.player.TotalTicks()
	st.Tracks = j.player.TrackNames()
	return st
}

// Wait blocks until the current player finishes. It returns at once when no
// player exists.
func (j *Jukebox) Wait() error {
	j.mu.Lock()
	p := j.player
	j.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Join()
}

// Close stops and deletes the player.
func (j *Jukebox) Close() error {
	return j.Stop()
}

func intAttr(key string, v *int) slog.Attr {
	if v == nil {
		return slog.Any(key, nil)
	}
	return slog.Int(key, *v)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
