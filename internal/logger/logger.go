// Package logger は charmbracelet/log を使った構造化ロガーを作成します。
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todo-list-api/backend/internal/config"
)

// New は設定に従ってロガーを作成し、標準出力へ書き出します。
func New(cfg config.LogConfig) *log.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter は書き込み先を指定してロガーを作成します。テストで使います。
func NewWithWriter(w io.Writer, cfg config.LogConfig) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       ParseFormatter(cfg.Format),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "todo-api",
	})
}

// ParseLevel は文字列をログレベルに変換します。不明な値は info になります。
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter は "json" / "logfmt" / "text" をフォーマッタに変換します。
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
