// Package config loads taskdeck configuration from file, environment, and
// defaults, and supports hot reload of the config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full server and CLI configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Mail   MailConfig   `mapstructure:"mail"`
	Log    LogConfig    `mapstructure:"log"`

	// CLI-side settings.
	APIURL string `mapstructure:"api_url"`
}

// ServerConfig configures the HTTP API and live hub.
type ServerConfig struct {
	Addr             string `mapstructure:"addr"`
	LivePort         int    `mapstructure:"live_port"`
	DBPath           string `mapstructure:"db_path"`
	CategorySeedPath string `mapstructure:"category_seed_path"`
	VerifyBaseURL    string `mapstructure:"verify_base_url"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	TokenTTL string `mapstructure:"token_ttl"`
}

// AgentConfig configures the assistant.
type AgentConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// MailConfig configures outbound mail. An empty host selects the log-only
// sender.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LogConfig configures server log rotation.
type LogConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultStateDir returns the per-user directory for the database, cached
// token, and cooldown state.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskdeck"
	}
	return filepath.Join(home, ".taskdeck")
}

func setDefaults(v *viper.Viper) {
	stateDir := DefaultStateDir()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.live_port", 8090)
	v.SetDefault("server.db_path", filepath.Join(stateDir, "taskdeck.db"))
	v.SetDefault("server.verify_base_url", "http://localhost:8080/verify")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("agent.model", "claude-sonnet-4-20250514")
	v.SetDefault("mail.port", 587)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("api_url", "http://localhost:8080")
}

// Load reads configuration. path may be empty, in which case the default
// location ($HOME/.taskdeck/config.yaml) is tried; a missing file is fine
// and leaves env and defaults in charge. Environment variables use the
// TASKDECK_ prefix with underscores (TASKDECK_SERVER_ADDR, and so on).
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultStateDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, v, nil
}

// Watch re-reads the config file on change and hands the fresh Config to
// onChange. Callers decide which settings can take effect live.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
