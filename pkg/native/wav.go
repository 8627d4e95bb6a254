package native

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const wavHeaderSize = 44

// wavWriter writes 16-bit stereo PCM and patches the RIFF sizes on Close.
type wavWriter struct {
	f    *os.File
	data int64
}

func newWAVWriter(f *os.File, sampleRate int) (*wavWriter, error) {
	w := &wavWriter{f: f}
	if _, err := f.Write(wavHeader(sampleRate, 0)); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return w, nil
}

func (w *wavWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.data += int64(n)
	return n, err
}

func (w *wavWriter) Close() error {
	if _, err := w.f.Seek(4, io.SeekStart); err != nil {
		w.f.Close()
		return err
	}
	var sizes [4]byte
	binary.LittleEndian.PutUint32(sizes[:], uint32(36+w.data))
	if _, err := w.f.Write(sizes[:]); err != nil {
		w.f.Close()
		return err
	}
	binary.LittleEndian.PutUint32(sizes[:], uint32(w.data))
	if _, err := w.f.WriteAt(sizes[:], 40); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// wavHeader returns the canonical 44-byte header for 16-bit stereo PCM.
func wavHeader(sampleRate int, dataSize int) []byte {
	const channels = 2
	const bits = 16
	out := make([]byte, wavHeaderSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], channels)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*bits/8))
	binary.LittleEndian.PutUint16(out[32:], channels*bits/8)
	binary.LittleEndian.PutUint16(out[34:], bits)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	return out
}
