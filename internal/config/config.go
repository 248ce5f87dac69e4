// Package config は環境変数からアプリケーション設定を読み込みます。
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// MaxListLimit は一覧取得件数の上限です。
const MaxListLimit = 1000

// Duration は "10s", "5m" または単位なしの秒数 ("10" -> 10s) を受け付けます。
type Duration time.Duration

// SetValue は cleanenv.Setter を実装します。
func (d *Duration) SetValue(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Log      LogConfig
}

type AppConfig struct {
	Env string `env:"APP_ENV" env-default:"dev"`
}

// Production は本番環境かどうかを返します。本番ではエラー詳細を隠します。
func (a AppConfig) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

type HTTPConfig struct {
	Port            string   `env:"PORT" env-default:"8000"`
	ReadTimeout     Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DatabaseConfig struct {
	URL            string   `env:"DATABASE_URL" env-required:"true"`
	Name           string   `env:"DATABASE_NAME" env-default:"todo_db"`
	Collection     string   `env:"DATABASE_COLLECTION" env-default:"todos"`
	ConnectTimeout Duration `env:"DATABASE_CONNECT_TIMEOUT" env-default:"10s"`
	ListLimit      int64    `env:"LIST_LIMIT" env-default:"100"`
}

// CORSConfig の既定値はすべてのオリジンを許可します (本番では絞り込むこと)。
type CORSConfig struct {
	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"*"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load は環境変数から設定を読み込みます。
// .env の読み込みは main で godotenv.Load() を呼び出して行います。
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Database.ListLimit <= 0 || cfg.Database.ListLimit > MaxListLimit {
		return Config{}, fmt.Errorf("LIST_LIMIT must be between 1 and %d, got %d", MaxListLimit, cfg.Database.ListLimit)
	}
	return cfg, nil
}
