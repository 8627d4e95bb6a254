package cli

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvHeadless, EnvTimeout, EnvLogLevel, EnvSoundFont, EnvAudioDriver} {
		t.Setenv(k, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name     string
		args     []string
		expected Config
		rest     []string
	}{
		{
			name:     "デフォルト設定",
			args:     []string{},
			expected: Config{LogLevel: "info", Gain: 0.2},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5"},
			expected: Config{LogLevel: "info", Gain: 0.2, Timeout: 5 * time.Second},
		},
		{
			name:     "ログレベル指定",
			args:     []string{"--log-level", "DEBUG"},
			expected: Config{LogLevel: "debug", Gain: 0.2},
		},
		{
			name:     "SoundFont とドライバ",
			args:     []string{"-s", "/usr/share/sounds/sf2/FluidR3_GM.sf2", "-a", "oto"},
			expected: Config{LogLevel: "info", Gain: 0.2, SoundFont: "/usr/share/sounds/sf2/FluidR3_GM.sf2", AudioDriver: "oto"},
		},
		{
			name:     "音質とゲイン",
			args:     []string{"--quality", "medium", "--gain", "0.5", "--api", "1"},
			expected: Config{LogLevel: "info", Gain: 0.5, GainSet: true, Quality: "med", APIVersion: 1},
		},
		{
			name:     "ヘルプ表示",
			args:     []string{"-h"},
			expected: Config{LogLevel: "info", Gain: 0.2, ShowHelp: true},
		},
		{
			name:     "位置引数とフラグは順不同",
			args:     []string{"a.mid", "--headless", "b.mid", "--timeout", "30"},
			expected: Config{LogLevel: "info", Gain: 0.2, Headless: true, Timeout: 30 * time.Second},
			rest:     []string{"a.mid", "b.mid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, rest, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := *config
			got.timeoutSec = 0
			if got != tt.expected {
				t.Errorf("config = %+v, want %+v", got, tt.expected)
			}
			if len(rest) != len(tt.rest) {
				t.Fatalf("rest = %v, want %v", rest, tt.rest)
			}
			for i := range rest {
				if rest[i] != tt.rest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tt.rest[i])
				}
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"負のタイムアウト", []string{"--timeout", "-10"}},
		{"無効なログレベル", []string{"--log-level", "invalid"}},
		{"無効なログレベル（短縮形）", []string{"-l", "trace"}},
		{"無効なAPIバージョン", []string{"--api", "3"}},
		{"無効な音質", []string{"--quality", "ultra"}},
		{"範囲外のゲイン", []string{"--gain", "11"}},
		{"未知のフラグ", []string{"--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	clearEnv(t)
	config, _, err := ParseArgs([]string{"--help"})
	if err != nil {
		t.Fatal(err)
	}
	if !config.ShowHelp {
		t.Error("ShowHelp not set")
	}
}

func TestFinalize_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvTimeout, "7")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvSoundFont, "/tmp/env.sf2")
	t.Setenv(EnvAudioDriver, "file")

	config, _, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !config.Headless || config.Timeout != 7*time.Second || config.LogLevel != "warn" {
		t.Errorf("environment not applied: %+v", config)
	}
	if config.SoundFont != "/tmp/env.sf2" || config.AudioDriver != "file" {
		t.Errorf("environment not applied: %+v", config)
	}
	if config.Driver() != HeadlessDriver {
		t.Errorf("Driver() = %q, want %q", config.Driver(), HeadlessDriver)
	}
}

func TestFinalize_FlagsWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTimeout, "7")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvSoundFont, "/tmp/env.sf2")
	t.Setenv(EnvAudioDriver, "file")

	// フラグの値が既定値と同じでも明示されていれば優先する
	config, _, err := ParseArgs([]string{"-l", "info", "-t", "0", "-s", "flag.sf2", "-a", "null"})
	if err != nil {
		t.Fatal(err)
	}
	if config.LogLevel != "info" || config.Timeout != 0 {
		t.Errorf("flags overridden by environment: %+v", config)
	}
	if config.SoundFont != "flag.sf2" || config.Driver() != "null" {
		t.Errorf("flags overridden by environment: %+v", config)
	}
}

func TestFinalize_InvalidEnvironmentTimeoutIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTimeout, "soon")

	config, _, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if config.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", config.Timeout)
	}
}
