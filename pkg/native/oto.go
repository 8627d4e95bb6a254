package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoMu      sync.Mutex
	otoCtx     *oto.Context
	otoRate    int
	otoFormat  oto.Format
	otoInitErr error
)

// otoContext returns the process-wide oto context, creating it on first use.
// oto allows a single context per process, so later callers must ask for the
// same format.
func otoContext(sampleRate int, format oto.Format, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if otoCtx != nil {
		if otoRate != sampleRate || otoFormat != format {
			return nil, fmt.Errorf("oto context already running at %d Hz with another format", otoRate)
		}
		return otoCtx, nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       format,
		BufferSize:   buffer,
	})
	if err != nil {
		otoInitErr = fmt.Errorf("create oto context: %w", err)
		return nil, otoInitErr
	}
	<-ready
	otoCtx, otoRate, otoFormat = ctx, sampleRate, format
	return ctx, nil
}

// otoDriver plays the synth through oto directly.
type otoDriver struct {
	src    *stream
	player *oto.Player
	once   sync.Once
}

func newOtoDriver(synth *Synth, cfg driverConfig) (*otoDriver, error) {
	format := oto.FormatSignedInt16LE
	if cfg.float {
		format = oto.FormatFloat32LE
	}
	buffer := time.Duration(cfg.periodSize*cfg.periods) * time.Second / time.Duration(cfg.sampleRate)
	ctx, err := otoContext(cfg.sampleRate, format, buffer)
	if err != nil {
		return nil, err
	}
	src := newStream(synth, cfg.float)
	player := ctx.NewPlayer(src)
	player.Play()
	return &otoDriver{src: src, player: player}, nil
}

func (d *otoDriver) Delete() {
	d.once.Do(func() {
		d.src.Stop()
		d.player.Pause()
		if err := d.player.Close(); err != nil {
			d.src.synth.log.Error("failed to close oto player", "error", err)
		}
	})
}
