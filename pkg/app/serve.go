package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/control"
	"github.com/zurustar/gofluid/pkg/jukebox"
)

func (app *Application) serveCommand() *cobra.Command {
	var (
		listen    string
		repeat    int
		autoplay  bool
		accessLog bool
	)
	cmd := &cobra.Command{
		Use:   "serve FILE|DIR...",
		Short: "Control a playlist over an HTTP JSON API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runServe(cmd.Context(), args, serveOptions{
				listen:    listen,
				repeat:    repeat,
				autoplay:  autoplay,
				accessLog: accessLog,
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", control.DefaultAddr, "待ち受けアドレス")
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 1, "再生回数（-1 で無限）")
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "起動時に再生を始める")
	cmd.Flags().BoolVar(&accessLog, "access-log", false, "リクエストログを出力する")
	return cmd
}

type serveOptions struct {
	listen    string
	repeat    int
	autoplay  bool
	accessLog bool
}

func (app *Application) runServe(ctx context.Context, args []string, so serveOptions) error {
	files, err := expandMIDIFiles(args)
	if err != nil {
		return err
	}

	opts, err := app.sessionOptions(nil)
	if err != nil {
		return err
	}
	sess, err := app.openSession(opts)
	if err != nil {
		return err
	}
	defer app.closeSession(sess)

	jb := jukebox.New(sess.Handle, sess.Synth,
		jukebox.WithLogger(app.log),
		jukebox.WithReleaseDelay(app.releaseDelay))
	defer jb.Close()

	if err := jb.SetRepeat(so.repeat); err != nil {
		return err
	}
	jb.AddFiles(files...)
	if so.autoplay {
		if err := jb.Play(); err != nil {
			return err
		}
	}

	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	srv := control.New(jb, control.Config{
		Addr:      so.listen,
		Logger:    app.log,
		AccessLog: so.accessLog,
	})
	fmt.Fprintf(app.out, "Control API on http://%s (Ctrl+C to stop)\n", so.listen)
	return srv.Run(ctx)
}
