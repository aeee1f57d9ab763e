// Package config loads engine configuration from a YAML file and environment
// variables via viper. Everything has a working default so the daemon comes
// up in a development environment with no configuration at all.
package config

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Valkey   ValkeyConfig   `mapstructure:"valkey"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Provider ProviderConfig `mapstructure:"provider"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type AMQPConfig struct {
	URL string `mapstructure:"url"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ProviderConfig struct {
	AnalyzeURL string `mapstructure:"analyze_url"`
	NVDBaseURL string `mapstructure:"nvd_base_url"`
}

type NotifyConfig struct {
	Queue   string `mapstructure:"queue"`
	Enabled bool   `mapstructure:"enabled"`
}

var cfg *Config

// InitConfig reads the given config file (or /etc/fileguard/config.yaml by
// default) plus the environment bindings.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(filepath.Join("/etc", "fileguard"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("")
	viper.BindEnv("http.addr", "HTTP_ADDR")
	viper.BindEnv("valkey.addr", "VALKEY_ADDR")
	viper.BindEnv("amqp.url", "AMQP_URL")
	viper.BindEnv("postgres.dsn", "POSTGRES_DSN")
	viper.BindEnv("provider.analyze_url", "ANALYZE_URL")
	viper.BindEnv("provider.nvd_base_url", "NVD_BASE_URL")
	viper.BindEnv("notify.queue", "NOTIFY_QUEUE")
	viper.BindEnv("notify.enabled", "NOTIFICATIONS_ENABLED")

	viper.SetDefault("http.addr", ":9080")
	viper.SetDefault("provider.analyze_url", "http://fileguard-analysis:8090")
	viper.SetDefault("notify.enabled", true)

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		// An operator-named file that cannot be read must not fail silently.
		slog.Warn("Failed to read config file, using defaults", "file", cfgFile, "error", err)
	}

	cfg = &Config{}
	viper.Unmarshal(cfg)
}

// Get returns the loaded configuration, initializing with defaults if needed.
func Get() *Config {
	if cfg == nil {
		InitConfig("")
	}
	return cfg
}
