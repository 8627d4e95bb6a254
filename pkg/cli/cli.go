// Package cli はコマンドラインフラグと環境変数から実行設定を組み立てる
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zurustar/gofluid/pkg/fluid"
	"github.com/zurustar/gofluid/pkg/logger"
)

// 環境変数名
const (
	EnvHeadless    = "HEADLESS"
	EnvTimeout     = "TIMEOUT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvSoundFont   = "SOUNDFONT"
	EnvAudioDriver = "AUDIO_DRIVER"
)

// HeadlessDriver はヘッドレスモードで使うオーディオドライバ
const HeadlessDriver = "null"

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	SoundFont   string        // SoundFontファイルのパス（空なら自動検出）
	AudioDriver string        // audio.driver の値（空ならライブラリの既定値）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード（音を出さない）
	APIVersion  int           // ライブラリのAPIバージョン（0は既定値）
	Quality     string        // 音質プリセット（low, med, high）
	Gain        float64       // マスターゲイン
	GainSet     bool          // Gain がフラグで指定されたか
	ShowHelp    bool          // ヘルプ表示フラグ

	timeoutSec int
}

// BindFlags 共通フラグを fs に登録する
// cobra では PersistentFlags() を渡す
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.SoundFont, "soundfont", "s", "", "SoundFont (.sf2) のパス")
	fs.StringVarP(&c.AudioDriver, "audio-driver", "a", "", "オーディオドライバ（ebiten, oto, file, null）")
	fs.StringVarP(&c.LogLevel, "log-level", "l", "info", "ログレベル（debug, info, warn, error）")
	fs.IntVarP(&c.timeoutSec, "timeout", "t", 0, "タイムアウト時間（秒）")
	fs.BoolVar(&c.Headless, "headless", false, "ヘッドレスモード（null ドライバで再生）")
	fs.IntVar(&c.APIVersion, "api", 0, "ライブラリのAPIバージョン（1 または 2）")
	fs.StringVar(&c.Quality, "quality", "", "音質プリセット（low, med, high）")
	fs.Float64Var(&c.Gain, "gain", 0.2, "マスターゲイン（0〜10）")
}

// Finalize 環境変数を反映して設定を検証する
// 環境変数はフラグが明示されていない項目にだけ適用する
func (c *Config) Finalize(fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	if !changed("headless") {
		if v := os.Getenv(EnvHeadless); v != "" {
			c.Headless = v == "1" || strings.EqualFold(v, "true")
		}
	}
	if !changed("timeout") {
		if v := os.Getenv(EnvTimeout); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				c.timeoutSec = t
			}
		}
	}
	if !changed("log-level") {
		if v := os.Getenv(EnvLogLevel); v != "" {
			c.LogLevel = strings.ToLower(v)
		}
	}
	if !changed("soundfont") {
		if v := os.Getenv(EnvSoundFont); v != "" {
			c.SoundFont = v
		}
	}
	if !changed("audio-driver") {
		if v := os.Getenv(EnvAudioDriver); v != "" {
			c.AudioDriver = v
		}
	}
	c.GainSet = changed("gain")

	// タイムアウトの検証
	if c.timeoutSec < 0 {
		return fmt.Errorf("timeout must be non-negative, got %d", c.timeoutSec)
	}
	c.Timeout = time.Duration(c.timeoutSec) * time.Second

	// ログレベルの検証
	c.LogLevel = strings.ToLower(c.LogLevel)
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w (must be %s)", err, strings.Join(logger.Levels, ", "))
	}

	if c.APIVersion != 0 && c.APIVersion != 1 && c.APIVersion != 2 {
		return fmt.Errorf("invalid api version: %d (must be 1 or 2)", c.APIVersion)
	}
	if c.Quality != "" {
		q, err := fluid.ParseQuality(c.Quality)
		if err != nil {
			return err
		}
		c.Quality = string(q)
	}
	if c.Gain < 0 || c.Gain > 10 {
		return fmt.Errorf("gain must be between 0 and 10, got %v", c.Gain)
	}
	return nil
}

// Driver 実際に使うオーディオドライバ名を返す
// ヘッドレスモードでは常に null ドライバ
func (c *Config) Driver() string {
	if c.Headless {
		return HeadlessDriver
	}
	return c.AudioDriver
}

// ParseArgs コマンドライン引数を解析してConfigと位置引数を返す
// フラグと位置引数は順不同
func ParseArgs(args []string) (*Config, []string, error) {
	fs := pflag.NewFlagSet("gofluid", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}
	config.BindFlags(fs)
	fs.BoolVarP(&config.ShowHelp, "help", "h", false, "ヘルプを表示")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := config.Finalize(fs); err != nil {
		return nil, nil, err
	}
	return config, fs.Args(), nil
}

// EnvHelp ヘルプに表示する環境変数の説明
const EnvHelp = `Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SOUNDFONT=<path>            SoundFont (.sf2) のパス
  AUDIO_DRIVER=<name>         オーディオドライバ（ebiten, oto, file, null）

Flags take precedence over environment variables.`
