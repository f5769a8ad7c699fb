package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	MemoryStorage   = "memory"
	PostgresStorage = "postgres"

	LogNotifier   = "log"
	NATSNotifier  = "nats"
	RedisNotifier = "redis"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	Notifier      string `mapstructure:"NOTIFIER"`

	NATSURL           string `mapstructure:"NATS_URL"`
	NATSSubjectPrefix string `mapstructure:"NATS_SUBJECT_PREFIX"`

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	RedisChannelPrefix string `mapstructure:"REDIS_CHANNEL_PREFIX"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AllowBidsInEvaluation bool          `mapstructure:"ALLOW_BIDS_IN_EVALUATION"`
}

// defaults перечисляет все ключи Config: ключ без значения по умолчанию
// не читается из окружения при Unmarshal.
var defaults = map[string]any{
	"SERVER_ADDRESS":           "0.0.0.0:8080",
	"POSTGRES_CONN":            "",
	"POSTGRES_USERNAME":        "",
	"POSTGRES_PASSWORD":        "",
	"POSTGRES_HOST":            "",
	"POSTGRES_PORT":            "5432",
	"POSTGRES_DATABASE":        "",
	"MIGRATION_URL":            "file://migrations",
	"STORAGE_DRIVER":           PostgresStorage,
	"NOTIFIER":                 LogNotifier,
	"NATS_URL":                 "nats://localhost:4222",
	"NATS_SUBJECT_PREFIX":      "licitaciones",
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"REDIS_CHANNEL_PREFIX":     "licitaciones",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"REQUEST_TIMEOUT":          "5s",
	"ALLOW_BIDS_IN_EVALUATION": false,
}

// LoadConfig загружает конфигурацию из файла app.env и переменных окружения.
// Файл необязателен, переменные окружения имеют приоритет.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case MemoryStorage, PostgresStorage:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.Notifier {
	case LogNotifier, NATSNotifier, RedisNotifier:
	default:
		return fmt.Errorf("unsupported NOTIFIER %q", c.Notifier)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
