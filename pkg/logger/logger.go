// Package logger はアプリケーション全体で使う slog ロガーを管理する
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger
)

// Levels は受け付けるログレベル名
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel ログレベル名を slog.Level に変換する（大文字小文字は無視）
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// New は w に出力するテキスト形式のロガーを作る
func New(level string, w io.Writer) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})
	return slog.New(handler), nil
}

// InitLogger ログレベルに応じてslogを初期化
// 標準出力はコマンドの結果に使うので、ログは標準エラーに出す
func InitLogger(level string) error {
	return InitLoggerWriter(level, os.Stderr)
}

// InitLoggerWriter 出力先を指定してグローバルロガーを初期化
func InitLoggerWriter(level string, w io.Writer) error {
	l, err := New(level, w)
	if err != nil {
		return err
	}
	mu.Lock()
	globalLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Discard は何も出力しないロガー（テスト用）
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
