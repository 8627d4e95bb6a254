package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/fluid"
)

const (
	chordsBPM     = 120
	chordsRelease = 3 * time.Second
)

// chordProgression は C メジャースケール（60〜71）上の度数で表した和音の並び
// 1拍に1和音: C, F, C, G7, C
var chordProgression = [][]int{
	{0, 4, 7},
	{0, 5, 9},
	{0, 4, 7},
	{2, 5, 7, 11},
	{0, 4, 7},
}

func (app *Application) chordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chords",
		Short: "Schedule a chord progression on the sequencer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runChords(cmd.Context())
		},
	}
}

func (app *Application) runChords(ctx context.Context) error {
	opts, err := app.sessionOptions(nil)
	if err != nil {
		return err
	}
	opts.Sequencer = true
	sess, err := app.openSession(opts)
	if err != nil {
		return err
	}
	defer app.closeSession(sess)

	seq := sess.Sequencer
	if err := seq.SetBPM(chordsBPM); err != nil {
		return err
	}
	beat := uint32(seq.TicksPerBeat())

	fmt.Fprintf(app.out, "BPM: %v\n", seq.BPM())
	fmt.Fprintf(app.out, "TPB: %d\n", seq.TicksPerBeat())
	fmt.Fprintf(app.out, "TPS: %v\n", seq.TicksPerSecond())

	scale := make([]fluid.Event, 12)
	for i := range scale {
		scale[i] = fluid.Note(0, 60+i, 127, uint32(float64(beat)*0.9)).To(sess.SynthID)
	}

	tick := seq.Ticks() + 10
	for _, chord := range chordProgression {
		for _, degree := range chord {
			if err := seq.Send(scale[degree], tick, true); err != nil {
				return fmt.Errorf("send chord at tick %d: %w", tick, err)
			}
		}
		tick += beat
	}

	ctx, cancel := app.withTimeout(ctx)
	defer cancel()
	if err := app.sleep(ctx, chordsRelease); err != nil && !interrupted(err) {
		return err
	}
	return nil
}
