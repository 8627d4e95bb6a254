package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/fileutil"
	"github.com/zurustar/gofluid/pkg/jukebox"
)

func (app *Application) playCommand() *cobra.Command {
	var repeat int
	cmd := &cobra.Command{
		Use:   "play FILE|DIR...",
		Short: "Play MIDI files",
		Long:  "Play MIDI files. Directories are searched recursively for .mid and .midi files.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runPlay(cmd.Context(), args, repeat)
		},
	}
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 1, "再生回数（-1 で無限）")
	return cmd
}

func (app *Application) runPlay(ctx context.Context, args []string, repeat int) error {
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

	if err := jb.SetRepeat(repeat); err != nil {
		return err
	}
	jb.AddFiles(files...)

	ctx, cancel := app.withTimeout(ctx)
	defer cancel()

	fmt.Fprintf(app.out, "Playing %s, repeat %d time(s)\n", strings.Join(files, ", "), repeat)
	if err := jb.Play(); err != nil {
		return err
	}

	if err := app.waitFinished(ctx, jb); err != nil {
		if interrupted(err) {
			fmt.Fprintln(app.out, "Playback aborted")
			return nil
		}
		return err
	}
	fmt.Fprintln(app.out, "Playback finished")
	return nil
}

// waitFinished プレイヤーが最後まで再生するか ctx が終わるまで待つ
// Join と違い Ctrl+C で中断できる
func (app *Application) waitFinished(ctx context.Context, jb *jukebox.Jukebox) error {
	ticker := time.NewTicker(app.pollInterval)
	defer ticker.Stop()
	for {
		if st := jb.Status(); st.State == jukebox.StateDone || st.State == jukebox.StateStopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// expandMIDIFiles ディレクトリ引数を配下の MIDI ファイルに展開する
func expandMIDIFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// 存在しないファイルはプレイヤーへの追加時にエラーになる
			files = append(files, arg)
			continue
		}

		var found []string
		err = fileutil.WalkDir(fileutil.NewRealFS(""), arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isMIDIFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no MIDI files in %s", arg)
		}
		files = append(files, found...)
	}
	return files, nil
}

func isMIDIFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".mid" || ext == ".midi"
}
