package native

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// smfTrack builds the body of one MTrk chunk.
type smfTrack struct {
	buf bytes.Buffer
}

func (t *smfTrack) delta(d int) {
	var tmp [4]byte
	n := 0
	tmp[3] = byte(d & 0x7F)
	n++
	for d >>= 7; d > 0; d >>= 7 {
		tmp[3-n] = byte(d&0x7F) | 0x80
		n++
	}
	t.buf.Write(tmp[4-n:])
}

func (t *smfTrack) event(d int, b ...byte) *smfTrack {
	t.delta(d)
	t.buf.Write(b)
	return t
}

func (t *smfTrack) meta(d int, typ byte, body []byte) *smfTrack {
	t.delta(d)
	t.buf.Write([]byte{0xFF, typ, byte(len(body))})
	t.buf.Write(body)
	return t
}

func (t *smfTrack) end(d int) *smfTrack {
	return t.meta(d, metaEndTrack, nil)
}

func buildSMF(format, division int, tracks ...*smfTrack) []byte {
	var out bytes.Buffer
	out.WriteString("MThd")
	binary.Write(&out, binary.BigEndian, uint32(6))
	binary.Write(&out, binary.BigEndian, uint16(format))
	binary.Write(&out, binary.BigEndian, uint16(len(tracks)))
	binary.Write(&out, binary.BigEndian, uint16(division))
	for _, t := range tracks {
		out.WriteString("MTrk")
		binary.Write(&out, binary.BigEndian, uint32(t.buf.Len()))
		out.Write(t.buf.Bytes())
	}
	return out.Bytes()
}

// oneSecondSong is 960 ticks at 480 ticks per beat and 120 bpm.
func oneSecondSong() []byte {
	tr := new(smfTrack).
		meta(0, metaTrackName, []byte("piano")).
		event(0, 0xC0, 5).
		event(0, 0x90, 60, 100).
		event(480, 0x80, 60, 0).
		end(480)
	return buildSMF(0, 480, tr)
}

func newTestLibrary(t *testing.T, api int) *Library {
	t.Helper()
	lib, err := New(Options{APIVersion: api})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return lib
}

func newTestSynth(t *testing.T, lib *Library) *Synth {
	t.Helper()
	raw, err := lib.NewSynth(lib.NewSettings())
	if err != nil {
		t.Fatalf("NewSynth failed: %v", err)
	}
	t.Cleanup(raw.Delete)
	return raw.(*Synth)
}

// render renders seconds of audio in 4410-frame chunks.
func render(s *Synth, seconds float64) {
	frames := int(seconds * float64(s.SampleRate()))
	left := make([]float32, 4410)
	right := make([]float32, 4410)
	for frames > 0 {
		n := min(frames, len(left))
		s.Render(left[:n], right[:n])
		frames -= n
	}
}

var _ fluid.Library = (*Library)(nil)
