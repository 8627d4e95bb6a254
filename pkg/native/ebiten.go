package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// ebitenDriver plays the synth through the process-wide Ebitengine audio
// context.
type ebitenDriver struct {
	src    *stream
	player *audio.Player
	once   sync.Once
}

// ebitenContext returns the audio context, creating it at sampleRate on first
// use. Ebitengine allows a single context per process.
func ebitenContext(sampleRate int) (*audio.Context, error) {
	ctx := audio.CurrentContext()
	if ctx == nil {
		return audio.NewContext(sampleRate), nil
	}
	if ctx.SampleRate() != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, synth wants %d Hz", ctx.SampleRate(), sampleRate)
	}
	return ctx, nil
}

func newEbitenDriver(synth *Synth, cfg driverConfig) (*ebitenDriver, error) {
	if cfg.float {
		return nil, fmt.Errorf("%s driver supports 16bits sample format only", DriverEbiten)
	}
	ctx, err := ebitenContext(cfg.sampleRate)
	if err != nil {
		return nil, err
	}
	src := newStream(synth, false)
	player, err := ctx.NewPlayer(src)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}
	frames := cfg.periodSize * cfg.periods
	player.SetBufferSize(time.Duration(frames) * time.Second / time.Duration(cfg.sampleRate))
	player.Play()
	return &ebitenDriver{src: src, player: player}, nil
}

func (d *ebitenDriver) Delete() {
	d.once.Do(func() {
		d.src.Stop()
		d.player.Close()
	})
}
