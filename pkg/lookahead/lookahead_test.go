package lookahead

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/fluid/fluidtest"
)

const synthDest fluid.ClientID = 0

// musicBox is the four-beat bar played by the musicbox command at 240 ticks
// per beat: bass on channel 0, melody on channel 1.
var musicBox = Loop{
	{Offset: 0, Channel: 0, Key: 60, Velocity: 127},
	{Offset: 480, Channel: 0, Key: 55, Velocity: 127},
	{Offset: 0, Channel: 1, Key: 72, Velocity: 127},
	{Offset: 240, Channel: 1, Key: 76, Velocity: 127},
	{Offset: 480, Channel: 1, Key: 79, Velocity: 127},
	{Offset: 720, Channel: 1, Key: 76, Velocity: 127},
}

func newFakeSequencer(t *testing.T) (*fluid.Sequencer, *fluidtest.Sequencer) {
	t.Helper()
	lib := fluidtest.New(2)
	h := fluid.NewHandle(lib)
	seq, err := fluid.NewSequencer(h, false)
	require.NoError(t, err)
	t.Cleanup(func() { seq.Close() })

	settings, err := fluid.NewSettings(h)
	require.NoError(t, err)
	synth, err := fluid.NewSynth(h, settings)
	require.NoError(t, err)
	id, _, err := seq.AddSynth(synth)
	require.NoError(t, err)
	require.Equal(t, synthDest, id)
	return seq, lib.Sequencers()[0]
}

func sentTicks(raw *fluidtest.Sequencer) []uint32 {
	var ticks []uint32
	for _, s := range raw.SentEvents() {
		ticks = append(ticks, s.Tick)
	}
	return ticks
}

func TestPrimeEmitsFirstWindow(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 960, Dest: synthDest, Pattern: musicBox})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Prime(10))

	sent := raw.SentEvents()
	require.Len(t, sent, 7)

	// offset ascending, bass before melody on ties
	wantKeys := []int{60, 72, 76, 55, 79, 76}
	wantTicks := []uint32{10, 10, 250, 490, 490, 730}
	for i, ev := range sent[:6] {
		assert.Equal(t, fluid.EventNoteOn, ev.Event.Type)
		assert.Equal(t, wantKeys[i], ev.Event.Key, "key %d", i)
		assert.Equal(t, wantTicks[i], ev.Tick, "tick %d", i)
		assert.Equal(t, synthDest, ev.Event.Dest)
	}

	timer := sent[6]
	assert.Equal(t, fluid.EventTimer, timer.Event.Type)
	assert.Equal(t, uint32(10+480), timer.Tick)
	assert.NotEqual(t, synthDest, timer.Event.Dest)
	assert.Equal(t, uint32(970), s.NextStart())
}

func TestTimerQueuesNextWindow(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 960, Dest: synthDest, Pattern: musicBox})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prime(10))

	raw.Advance(489)
	assert.Equal(t, 1, s.Windows(), "wake-up must not fire early")

	raw.Advance(490)
	assert.Equal(t, 2, s.Windows())
	assert.Equal(t, uint32(1930), s.NextStart())

	// wake-ups at 1450 and 2410 fire, the one at 3370 does not
	raw.Advance(10 + 960*3)
	assert.Equal(t, 4, s.Windows())
	assert.Equal(t, WindowTicks(10, 960, 4, musicBox), sentTicks(raw))
}

func TestNoteDurations(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	pattern := Loop{{Offset: 0, Channel: 0, Key: 60, Velocity: 100, Duration: 450}}
	s, err := New(seq, Config{Duration: 500, Dest: synthDest, Pattern: pattern})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prime(0))

	ev := raw.SentEvents()[0].Event
	assert.Equal(t, fluid.EventNote, ev.Type)
	assert.Equal(t, uint32(450), ev.Duration)
}

func TestCloseStopsCallbacks(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 100, Dest: synthDest, Pattern: Loop{{Key: 60, Velocity: 1}}})
	require.NoError(t, err)

	require.NoError(t, s.Close(), "close before prime")
	assert.ErrorIs(t, s.Prime(0), fluid.ErrClosed)

	s, err = New(seq, Config{Duration: 100, Dest: synthDest, Pattern: Loop{{Key: 60, Velocity: 1}}})
	require.NoError(t, err)
	require.NoError(t, s.Prime(0))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	raw.Advance(1000)
	assert.Equal(t, 1, s.Windows())
	assert.Len(t, raw.Unregistered(), 1)
}

func TestPrimeTwice(t *testing.T) {
	seq, _ := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 100, Dest: synthDest, Pattern: Loop{}})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prime(0))
	assert.True(t, errors.Is(s.Prime(0), ErrAlreadyPrimed))
}

func TestNewValidates(t *testing.T) {
	seq, _ := newFakeSequencer(t)

	_, err := New(seq, Config{Duration: 0, Pattern: Loop{}})
	assert.Error(t, err)

	_, err = New(seq, Config{Duration: 100})
	assert.Error(t, err)

	_, err = New(seq, Config{Duration: 100, Pattern: Loop{{Offset: 100}}})
	assert.ErrorIs(t, err, ErrNoteOutsideWindow)
}

type alternating struct{}

func (alternating) Window(i int) []Note {
	if i%2 == 0 {
		return []Note{{Offset: 0, Key: 60, Velocity: 90}, {Offset: 150, Key: 99}}
	}
	return []Note{{Offset: 50, Key: 62, Velocity: 90}}
}

func TestPatternWindowsAndOutOfRangeNotes(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 100, Dest: synthDest, Pattern: alternating{}})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prime(0))
	raw.Advance(50)

	var keys []int
	for _, ev := range raw.SentEvents() {
		if ev.Event.Type == fluid.EventNoteOn {
			keys = append(keys, ev.Event.Key)
		}
	}
	assert.Equal(t, []int{60, 62}, keys)
	assert.Equal(t, []uint32{0, 50, 150, 150}, sentTicks(raw))
}

// dropKey fails every note event for one key.
type dropKey struct {
	*fluid.Sequencer
	key int
}

func (d dropKey) Send(ev fluid.Event, tick uint32, absolute bool) error {
	if ev.Type != fluid.EventTimer && ev.Key == d.key {
		return errors.New("queue full")
	}
	return d.Sequencer.Send(ev, tick, absolute)
}

func TestFailedNoteKeepsStreamGoing(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(dropKey{Sequencer: seq, key: 76}, Config{Duration: 960, Dest: synthDest, Pattern: musicBox})
	require.NoError(t, err)
	defer s.Close()

	err = s.Prime(10)
	require.Error(t, err)
	assert.Equal(t, err, s.Err())
	assert.Equal(t, 1, s.Windows())
	assert.Equal(t, uint32(970), s.NextStart())

	sent := raw.SentEvents()
	require.Len(t, sent, 5, "two notes dropped, wake-up still queued")
	assert.Equal(t, fluid.EventTimer, sent[4].Event.Type)
	assert.Equal(t, uint32(490), sent[4].Tick)

	raw.Advance(490)
	assert.Equal(t, 2, s.Windows())
	assert.Equal(t, uint32(1930), s.NextStart())
}

func TestErrNilWhenQueued(t *testing.T) {
	seq, raw := newFakeSequencer(t)
	s, err := New(seq, Config{Duration: 960, Dest: synthDest, Pattern: musicBox})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prime(10))
	raw.Advance(490)
	assert.NoError(t, s.Err())
}
