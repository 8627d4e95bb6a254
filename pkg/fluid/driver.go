package fluid

import (
	"fmt"
	"sync"
)

// AudioDriver renders a synth to the output selected by audio.driver.
type AudioDriver struct {
	raw RawAudioDriver

	mu     sync.Mutex
	closed bool
}

// NewAudioDriver starts audio output for synth.
func NewAudioDriver(h *Handle, settings *Settings, synth *Synth) (*AudioDriver, error) {
	raw, err := h.lib.NewAudioDriver(settings.raw, synth.raw)
	if err != nil {
		return nil, fmt.Errorf("create audio driver: %w", err)
	}
	return &AudioDriver{raw: raw}, nil
}

// Close stops audio output.
func (d *AudioDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.raw.Delete()
	return nil
}
