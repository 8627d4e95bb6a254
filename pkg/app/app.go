// Package app は gofluid コマンドのサブコマンドとサンプルプログラムを実装する
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zurustar/gofluid/pkg/cli"
	"github.com/zurustar/gofluid/pkg/fileutil"
	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/jukebox"
	"github.com/zurustar/gofluid/pkg/logger"
	"github.com/zurustar/gofluid/pkg/native"
)

// LibraryFunc はライブラリを生成する関数
type LibraryFunc func(apiVersion int, log *slog.Logger) (fluid.Library, error)

func nativeLibrary(apiVersion int, log *slog.Logger) (fluid.Library, error) {
	return native.New(native.Options{APIVersion: apiVersion, Logger: log})
}

// Option は Application の設定を変更する
type Option func(*Application)

// WithLibrary ライブラリの生成方法を差し替える
func WithLibrary(fn LibraryFunc) Option {
	return func(app *Application) { app.newLibrary = fn }
}

// WithSoundFontSearch SoundFont の探索先（カレントディレクトリとカタログ）を差し替える
func WithSoundFontSearch(cwd fileutil.FileSystem, catalog []string) Option {
	return func(app *Application) {
		app.cwd = cwd
		app.catalog = catalog
	}
}

// WithWait 再生の待ち方を差し替える
// sleep はデモの音符間隔に、idle は Ctrl+C まで鳴らし続けるコマンドに使う
func WithWait(sleep func(ctx context.Context, d time.Duration) error, idle func(ctx context.Context) error) Option {
	return func(app *Application) {
		if sleep != nil {
			app.sleep = sleep
		}
		if idle != nil {
			app.idle = idle
		}
	}
}

// WithReleaseDelay jukebox の停止後の待ち時間を変える
func WithReleaseDelay(d time.Duration) Option {
	return func(app *Application) { app.releaseDelay = d }
}

// WithPollInterval プレイヤー終了の監視間隔を変える
func WithPollInterval(d time.Duration) Option {
	return func(app *Application) { app.pollInterval = d }
}

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	out    io.Writer

	newLibrary LibraryFunc
	cwd        fileutil.FileSystem
	root       fileutil.FileSystem
	catalog    []string
	sleep      func(ctx context.Context, d time.Duration) error
	idle       func(ctx context.Context) error
	// pollInterval はプレイヤー終了の監視間隔
	pollInterval time.Duration
	// releaseDelay は jukebox の停止後の待ち時間
	releaseDelay time.Duration
}

// New Applicationを作成
func New(out io.Writer, opts ...Option) *Application {
	app := &Application{
		config:       &cli.Config{},
		log:          slog.Default(),
		out:          out,
		newLibrary:   nativeLibrary,
		cwd:          fileutil.NewRealFS(""),
		root:         fileutil.NewRealFS(""),
		catalog:      DefaultSoundFontCatalog,
		sleep:        sleepContext,
		idle:         waitDone,
		pollInterval: 100 * time.Millisecond,
		releaseDelay: jukebox.DefaultReleaseDelay,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(ctx context.Context, args []string) error {
	root := app.Command()
	root.SetArgs(args)
	root.SetOut(app.out)
	return root.ExecuteContext(ctx)
}

// Command cobra のコマンドツリーを組み立てる
func (app *Application) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "gofluid",
		Short: "SoundFont synthesizer, MIDI player and sequencer demos",
		Long: `gofluid drives a SoundFont synthesizer through the fluid wrapper layer.

` + cli.EnvHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.config.Finalize(cmd.Flags()); err != nil {
				return err
			}
			return app.initLogger()
		},
	}
	app.config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		app.playCommand(),
		app.synthCommand(),
		app.chordsCommand(),
		app.musicBoxCommand(),
		app.serveCommand(),
		app.settingsCommand(),
	)
	return root
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// withTimeout --timeout が指定されていれば ctx に期限を付ける
func (app *Application) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if app.config.Timeout > 0 {
		app.log.Info("timeout set", "duration", app.config.Timeout)
		return context.WithTimeout(ctx, app.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// openHandle ライブラリを生成してハンドルを返す
func (app *Application) openHandle() (*fluid.Handle, error) {
	lib, err := app.newLibrary(app.config.APIVersion, app.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	h := fluid.NewHandle(lib, fluid.WithLogger(app.log))
	app.log.Info("library opened", "version", h.Version().String())
	return h, nil
}

// sessionOptions SoundFont を解決し、共通フラグを反映したセッション設定を返す
// configure はフラグの設定の後に呼ばれる
func (app *Application) sessionOptions(configure func(*fluid.Settings) error) (fluid.SessionOptions, error) {
	sf, err := FindSoundFont(app.config.SoundFont, app.cwd, app.root, app.catalog)
	if err != nil {
		return fluid.SessionOptions{}, err
	}
	fmt.Fprintln(app.out, "Using sound font:", sf)
	if d := app.config.Driver(); d != "" {
		fmt.Fprintln(app.out, "Using audio driver:", d)
	}

	return fluid.SessionOptions{
		SoundFont:   sf,
		AudioDriver: app.config.Driver(),
		Configure: func(s *fluid.Settings) error {
			if app.config.Quality != "" {
				if err := s.SetQuality(fluid.Quality(app.config.Quality)); err != nil {
					return err
				}
			}
			if configure != nil {
				if err := configure(s); err != nil {
					return err
				}
			}
			if app.config.GainSet {
				return s.Set(fluid.KeyGain, app.config.Gain)
			}
			return nil
		},
	}, nil
}

// openSession ハンドルとセッションを作る
func (app *Application) openSession(opts fluid.SessionOptions) (*fluid.Session, error) {
	h, err := app.openHandle()
	if err != nil {
		return nil, err
	}
	sess, err := fluid.NewSession(h, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// closeSession セッションを閉じ、エラーはログに残す
func (app *Application) closeSession(sess *fluid.Session) {
	if err := sess.Close(); err != nil {
		app.log.Error("failed to close session", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// interrupted ctx のキャンセル（Ctrl+C やタイムアウト）を正常終了として扱う
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Main は cmd/gofluid から呼ばれるエントリーポイント
func Main(ctx context.Context, args []string) int {
	if err := New(os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
