package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/lookahead"
)

const (
	musicBoxTPB = 240
	// musicBoxWindow は 4拍
	musicBoxWindow = 4 * musicBoxTPB
	musicBoxBPM    = 90
)

// musicBoxBar はベース（C2 G,2）とメロディ（c e g e）の1小節
var musicBoxBar = lookahead.Loop{
	{Offset: 0, Channel: 0, Key: 60, Velocity: 127},
	{Offset: 2 * musicBoxTPB, Channel: 0, Key: 55, Velocity: 127},
	{Offset: 0, Channel: 1, Key: 72, Velocity: 127},
	{Offset: musicBoxTPB, Channel: 1, Key: 76, Velocity: 127},
	{Offset: 2 * musicBoxTPB, Channel: 1, Key: 79, Velocity: 127},
	{Offset: 3 * musicBoxTPB, Channel: 1, Key: 76, Velocity: 127},
}

func (app *Application) musicBoxCommand() *cobra.Command {
	var bpm int
	cmd := &cobra.Command{
		Use:   "musicbox",
		Short: "Repeat a bar forever with the look-ahead scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runMusicBox(cmd.Context(), bpm)
		},
	}
	cmd.Flags().IntVarP(&bpm, "bpm", "b", musicBoxBPM, "テンポ（拍/分）")
	return cmd
}

func (app *Application) runMusicBox(ctx context.Context, bpm int) error {
	if bpm <= 0 {
		return fmt.Errorf("bpm must be positive, got %d", bpm)
	}

	opts, err := app.sessionOptions(func(s *fluid.Settings) error {
		if err := s.Set(fluid.KeyGain, 0.2); err != nil {
			return err
		}
		if err := s.Set(fluid.KeyReverbActive, "yes"); err != nil {
			return err
		}
		return s.Set(fluid.KeyChorusActive, "no")
	})
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
	if err := seq.SetTicksPerBeat(musicBoxTPB); err != nil {
		return err
	}
	if err := seq.SetBPM(float64(bpm)); err != nil {
		return err
	}

	sched, err := lookahead.New(seq, lookahead.Config{
		Duration: musicBoxWindow,
		Dest:     sess.SynthID,
		Pattern:  musicBoxBar,
		Name:     "me",
		Logger:   app.log,
	})
	if err != nil {
		return err
	}
	// コールバックを止めてからセッションを閉じる
	defer sched.Close()

	now := seq.Ticks()
	app.log.Debug("current tick", "tick", now)
	if err := sched.Prime(now + 10); err != nil {
		return err
	}

	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	fmt.Fprintln(app.out, "Playing...")
	fmt.Fprintln(app.out, "Hit Ctrl+C to stop")
	if err := app.idle(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "Done playing")
	return nil
}
