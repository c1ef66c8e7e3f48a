// Package config загружает конфигурацию сервера из yaml файла и переменных
// окружения (переменные имеют приоритет).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — конфигурация сервера синхронизации
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Audit     AuditConfig     `yaml:"audit"`
	Sync      SyncConfig      `yaml:"sync"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// HTTPConfig настраивает HTTP listener
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StorageConfig настраивает хранилище сущностей
type StorageConfig struct {
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"entsync.db"`
}

// AuditConfig настраивает audit sink
type AuditConfig struct {
	Path    string `yaml:"path" env:"AUDIT_PATH" env-default:"entsync-audit.db"`
	Enabled bool   `yaml:"enabled" env:"AUDIT_ENABLED" env-default:"false"`
}

// SyncConfig настраивает движок синхронизации
type SyncConfig struct {
	// MaxParallel ограничивает число одновременно обрабатываемых сущностей
	MaxParallel int `yaml:"max_parallel" env:"SYNC_MAX_PARALLEL" env-default:"8"`
}

// AuthConfig настраивает проверку JWT токенов
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
}

// RateLimitConfig настраивает лимит запросов на актора/IP
type RateLimitConfig struct {
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"120"`
	Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
}

// LogConfig настраивает логирование
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load читает конфигурацию из файла (если путь задан и файл существует)
// с наложением переменных окружения, иначе только из окружения
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	return &cfg, nil
}
