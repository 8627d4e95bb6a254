package native

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zurustar/gofluid/pkg/fluid"
)

// maxCatchUp bounds the audio rendered in one tick of a pacing driver after
// the process was stalled.
const maxCatchUp = 250 * time.Millisecond

type driverConfig struct {
	sampleRate int
	periodSize int
	periods    int
	float      bool
	fileName   string
}

func newDriver(lib *Library, settings *Settings, synth *Synth) (fluid.RawAudioDriver, error) {
	cfg := driverConfig{
		sampleRate: synth.SampleRate(),
		periodSize: settings.integer(KeyPeriodSize),
		periods:    settings.integer(KeyPeriods),
		float:      settings.str(KeySampleFormat) == "float",
		fileName:   settings.str(KeyFileName),
	}
	name := settings.str(fluid.KeyAudioDriver)
	lib.log.Debug("starting audio driver", "driver", name, "sample_rate", cfg.sampleRate, "period_size", cfg.periodSize)

	switch name {
	case DriverEbiten:
		return newEbitenDriver(synth, cfg)
	case DriverOto:
		return newOtoDriver(synth, cfg)
	case DriverFile:
		f, err := os.Create(cfg.fileName)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", cfg.fileName, err)
		}
		w, err := newWAVWriter(f, cfg.sampleRate)
		if err != nil {
			f.Close()
			return nil, err
		}
		return newPacingDriver(synth, cfg, w), nil
	case DriverNull:
		return newPacingDriver(synth, cfg, nil), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}

// pacingDriver renders the synth in real time from a timer goroutine. The
// output goes to a WAV writer, or nowhere.
type pacingDriver struct {
	synth *Synth
	out   io.WriteCloser
	rate  int
	buf   []byte
	src   *stream
	timer *timer

	mu       sync.Mutex
	rendered int64
	closeErr error
	once     sync.Once
}

func newPacingDriver(synth *Synth, cfg driverConfig, out io.WriteCloser) *pacingDriver {
	d := &pacingDriver{
		synth: synth,
		out:   out,
		rate:  cfg.sampleRate,
		src:   newStream(synth, false),
	}
	period := time.Duration(cfg.periodSize) * time.Second / time.Duration(cfg.sampleRate)
	d.timer = newTimer(max(period, DefaultTimerInterval), d.tick)
	d.timer.Start()
	return d
}

func (d *pacingDriver) tick(elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	due := int64(elapsed.Seconds() * float64(d.rate))
	frames := due - d.rendered
	if limit := int64(maxCatchUp.Seconds() * float64(d.rate)); frames > limit {
		d.rendered = due - limit
		frames = limit
	}
	if frames <= 0 {
		return
	}
	size := int(frames) * d.src.frameSize()
	if cap(d.buf) < size {
		d.buf = make([]byte, size)
	}
	buf := d.buf[:size]
	d.src.Read(buf)
	d.rendered += frames
	if d.out != nil && d.closeErr == nil {
		if _, err := d.out.Write(buf); err != nil {
			d.closeErr = err
		}
	}
}

// Delete stops rendering and finalizes the output file.
func (d *pacingDriver) Delete() {
	d.once.Do(func() {
		d.timer.Stop()
		d.src.Stop()
		if d.out != nil {
			if err := d.out.Close(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
		}
		if d.closeErr != nil {
			d.synth.log.Error("audio output failed", "error", d.closeErr)
		}
	})
}

// Rendered returns the number of frames rendered so far.
func (d *pacingDriver) Rendered() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rendered
}
