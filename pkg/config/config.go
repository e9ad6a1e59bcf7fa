// Package config loads isbridge process configuration.
//
// Values are resolved in this order, later sources winning:
//
//  1. Built-in defaults (Default)
//  2. YAML config file (--config, or $XDG_CONFIG_HOME/isbridge/config.yaml)
//  3. .env file in the working directory
//  4. ISBRIDGE_* environment variables (ISBRIDGE_SERVER_ADDR, ISBRIDGE_STORAGE_TYPE, ...)
//  5. Command-line flags that were explicitly set
//
// The Infusionsoft application credentials are not part of this file; they
// live in the key-value store and are edited at runtime.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/holtech/isbridge/pkg/infusionsoft"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG directories, the env prefix and keyring service.
const AppName = "isbridge"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ISBRIDGE"

// Config is the complete process configuration.
type Config struct {
	Environment  string              `mapstructure:"environment" yaml:"environment"`
	LogLevel     string              `mapstructure:"log_level" yaml:"log_level"`
	Server       ServerConfig        `mapstructure:"server" yaml:"server"`
	Storage      types.StorageConfig `mapstructure:"storage" yaml:"storage"`
	Infusionsoft infusionsoft.Config `mapstructure:"infusionsoft" yaml:"infusionsoft"`
	Auth         AuthConfig          `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	SessionSecret string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionName   string        `mapstructure:"session_name" yaml:"session_name"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age" yaml:"session_max_age"`
	AdminUser     string        `mapstructure:"admin_user" yaml:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password" yaml:"admin_password"`
}

// AuthConfig configures the token lifecycle manager.
type AuthConfig struct {
	PendingCodeLimit int `mapstructure:"pending_code_limit" yaml:"pending_code_limit"`
	// RefreshSchedule is a cron expression for the background refresh
	// sweep. Empty disables the sweep.
	RefreshSchedule string `mapstructure:"refresh_schedule" yaml:"refresh_schedule"`
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "production",
		LogLevel:    "info",
		Server: ServerConfig{
			Addr:          ":8080",
			SessionName:   "isbridge_session",
			SessionMaxAge: 24 * time.Hour,
		},
		Storage: types.StorageConfig{
			Type:           types.StorageTypeFile,
			KeyringService: AppName,
			RedisPrefix:    AppName + ":",
		},
		Infusionsoft: infusionsoft.DefaultConfig(),
		Auth: AuthConfig{
			PendingCodeLimit: auth.DefaultPendingCodeLimit,
		},
	}
}

// DefaultPath returns the XDG config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"environment":      "environment",
	"addr":             "server.addr",
	"storage":          "storage.type",
	"storage-path":     "storage.path",
	"redis-url":        "storage.redis_url",
	"refresh-schedule": "auth.refresh_schedule",
}

// Load resolves the configuration. path may be empty to use DefaultPath
// when it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads path into the environment when it exists. Variables
// already set are not overridden.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("environment", d.Environment)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.session_secret", d.Server.SessionSecret)
	v.SetDefault("server.session_name", d.Server.SessionName)
	v.SetDefault("server.session_max_age", d.Server.SessionMaxAge)
	v.SetDefault("server.admin_user", d.Server.AdminUser)
	v.SetDefault("server.admin_password", d.Server.AdminPassword)

	v.SetDefault("storage.type", string(d.Storage.Type))
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.keyring_service", d.Storage.KeyringService)
	v.SetDefault("storage.keyring_user", d.Storage.KeyringUser)
	v.SetDefault("storage.redis_url", d.Storage.RedisURL)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)

	v.SetDefault("infusionsoft.auth_url", d.Infusionsoft.AuthURL)
	v.SetDefault("infusionsoft.token_url", d.Infusionsoft.TokenURL)
	v.SetDefault("infusionsoft.api_base_url", d.Infusionsoft.APIBaseURL)
	v.SetDefault("infusionsoft.scopes", d.Infusionsoft.Scopes)
	v.SetDefault("infusionsoft.timeout", d.Infusionsoft.Timeout)
	v.SetDefault("infusionsoft.retry_max", d.Infusionsoft.RetryMax)

	v.SetDefault("auth.pending_code_limit", d.Auth.PendingCodeLimit)
	v.SetDefault("auth.refresh_schedule", d.Auth.RefreshSchedule)
}

// WriteFile saves c as YAML at path.
func (c *Config) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
