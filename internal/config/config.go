// Package config загружает настройки клиента и сервера.
//
// Приоритет: значения по умолчанию < YAML файл < переменные окружения
// с префиксом MILKLEDGER_ (точка в ключе заменяется на "_":
// client.remote_url → MILKLEDGER_CLIENT_REMOTE_URL).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "MILKLEDGER"

// Значения client.backend
const (
	BackendAuto   = "auto"   // SQLite, при ошибке bbolt
	BackendSQLite = "sqlite" // только SQLite
	BackendBolt   = "bolt"   // только bbolt
)

// Config holds all application configuration
type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ClientConfig настройки точки сбора
type ClientConfig struct {
	DataDir       string          `mapstructure:"data_dir"`       // каталог локальных баз
	SQLiteFile    string          `mapstructure:"sqlite_file"`    // имя файла индексированного хранилища
	BoltFile      string          `mapstructure:"bolt_file"`      // имя файла плоского хранилища
	Backend       string          `mapstructure:"backend"`        // auto|sqlite|bolt
	RemoteURL     string          `mapstructure:"remote_url"`     // пусто: пробный режим без синхронизации
	SigningSecret string          `mapstructure:"signing_secret"` // секрет ключа подписи журнала
	PushSecret    string          `mapstructure:"push_secret"`    // секрет токенов устройства
	UserAgent     string          `mapstructure:"user_agent"`
	AuditPriority string          `mapstructure:"audit_priority"` // приоритет записей журнала в очереди
	Sync          SyncConfig      `mapstructure:"sync"`
	Retention     RetentionConfig `mapstructure:"retention"`
}

// SQLitePath возвращает путь к файлу SQLite
func (c ClientConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, c.SQLiteFile)
}

// BoltPath возвращает путь к файлу bbolt
func (c ClientConfig) BoltPath() string {
	return filepath.Join(c.DataDir, c.BoltFile)
}

// SyncEnabled сообщает, настроен ли сервер синхронизации
func (c ClientConfig) SyncEnabled() bool {
	return strings.TrimSpace(c.RemoteURL) != ""
}

// SyncConfig настройки драйвера синхронизации
type SyncConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	PushTimeout   time.Duration `mapstructure:"push_timeout"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// RetentionConfig настройки хранения журнала
type RetentionConfig struct {
	DaysToKeep int `mapstructure:"days_to_keep"`
	MaxEntries int `mapstructure:"max_entries"`
}

// ServerConfig настройки сервера журнала
type ServerConfig struct {
	Addr            string          `mapstructure:"addr"`
	DBPath          string          `mapstructure:"db_path"`
	PushSecret      string          `mapstructure:"push_secret"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	MaxBatchSize    int             `mapstructure:"max_batch_size"`
	VerifyHashes    bool            `mapstructure:"verify_hashes"` // пересчитывать хеш принятых записей
}

// RateLimitConfig ограничение частоты запросов на устройство
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

// Load загружает конфигурацию. Пустой configPath ищет milkledger.yaml
// в текущем каталоге и /etc/milkledger; отсутствие файла не ошибка.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("milkledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/milkledger")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет: значения по умолчанию и окружение
	}

	// Все ключи имеют значения по умолчанию, поэтому AutomaticEnv
	// подхватывает их и при Unmarshal
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Client.SigningSecret = os.ExpandEnv(cfg.Client.SigningSecret)
	cfg.Client.PushSecret = os.ExpandEnv(cfg.Client.PushSecret)
	cfg.Server.PushSecret = os.ExpandEnv(cfg.Server.PushSecret)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Client defaults
	v.SetDefault("client.data_dir", ".")
	v.SetDefault("client.sqlite_file", "milkledger.sqlite")
	v.SetDefault("client.bolt_file", "milkledger.db")
	v.SetDefault("client.backend", BackendAuto)
	v.SetDefault("client.remote_url", "")
	v.SetDefault("client.signing_secret", "")
	v.SetDefault("client.push_secret", "")
	v.SetDefault("client.user_agent", "milkledger-client")
	v.SetDefault("client.audit_priority", "low")
	v.SetDefault("client.sync.interval", "30s")
	v.SetDefault("client.sync.push_timeout", "10s")
	v.SetDefault("client.sync.probe_interval", "5s")
	v.SetDefault("client.sync.token_ttl", "15m")
	v.SetDefault("client.sync.batch_size", 20)
	v.SetDefault("client.sync.max_retries", 5)
	v.SetDefault("client.retention.days_to_keep", 90)
	v.SetDefault("client.retention.max_entries", 10000)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "milkledger-server.sqlite")
	v.SetDefault("server.push_secret", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.requests_per_second", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("server.max_batch_size", 500)
	v.SetDefault("server.verify_hashes", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Client.Backend {
	case BackendAuto, BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("client.backend must be one of auto, sqlite, bolt; got %q", c.Client.Backend)
	}

	if c.Client.Sync.Interval <= 0 {
		return fmt.Errorf("client.sync.interval must be positive")
	}
	if c.Client.Sync.PushTimeout <= 0 {
		return fmt.Errorf("client.sync.push_timeout must be positive")
	}
	if c.Client.Sync.BatchSize <= 0 {
		return fmt.Errorf("client.sync.batch_size must be positive")
	}
	if c.Client.Sync.MaxRetries <= 0 {
		return fmt.Errorf("client.sync.max_retries must be positive")
	}
	if c.Client.Retention.DaysToKeep < 0 {
		return fmt.Errorf("client.retention.days_to_keep must not be negative")
	}
	if c.Client.Retention.MaxEntries <= 0 {
		return fmt.Errorf("client.retention.max_entries must be positive")
	}

	if c.Server.RateLimit.RequestsPerSecond <= 0 || c.Server.RateLimit.Burst <= 0 {
		return fmt.Errorf("server.rate_limit requires positive requests_per_second and burst")
	}
	if c.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("server.max_batch_size must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}

	return nil
}
