package native

import (
	"encoding/binary"
	"math"
	"sync"
)

// stream is an io.Reader rendering a synth as interleaved stereo, either
// 16-bit signed or 32-bit float little endian.
type stream struct {
	synth *Synth
	float bool

	mu          sync.Mutex
	left, right []float32
	stopped     bool
}

func newStream(synth *Synth, float bool) *stream {
	return &stream{synth: synth, float: float}
}

func (s *stream) frameSize() int {
	if s.float {
		return 8
	}
	return 4
}

// Read renders len(p)/frameSize frames. After Stop it returns silence.
func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / s.frameSize()
	if frames == 0 {
		return 0, nil
	}
	n := frames * s.frameSize()
	if s.stopped {
		clear(p[:n])
		return n, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	s.synth.Render(left, right)

	for i := 0; i < frames; i++ {
		if s.float {
			binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(left[i]))
			binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(right[i]))
			continue
		}
		binary.LittleEndian.PutUint16(p[i*4:], uint16(toInt16(left[i])))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(toInt16(right[i])))
	}
	return n, nil
}

// Stop makes Read return silence.
func (s *stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func toInt16(v float32) int16 {
	return int16(clamp(v, -1, 1) * 32767)
}

// clamp restricts a value to the range [lo, hi].
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
