// Package config loads cleanlink's runtime configuration from flags, the
// environment and an optional YAML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/cleanlink/pkg/settings"
)

// EnvPrefix is prepended to every environment variable, e.g.
// CLEANLINK_STORE_BACKEND.
const EnvPrefix = "CLEANLINK"

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// StoreConfig selects where settings and stats live.
type StoreConfig struct {
	Backend  string `mapstructure:"backend" validate:"required,oneof=memory file redis"`
	Path     string `mapstructure:"path" validate:"required_if=Backend file"`
	RedisURL string `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	RedisKey string `mapstructure:"redis_key"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

type FetchConfig struct {
	Mode      string        `mapstructure:"mode" validate:"oneof=static dynamic"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DefaultSettingsPath is the settings file used by the file backend when
// store.path is not set.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".cleanlink-settings.yaml"
	}
	return filepath.Join(dir, "cleanlink", "settings.yaml")
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.json", false)
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", DefaultSettingsPath())
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.redis_key", settings.DefaultRedisKey)
	v.SetDefault("server.addr", "127.0.0.1:8484")
	v.SetDefault("fetch.mode", "static")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "")
}

// Setup points v at the config file and the environment. An explicit
// cfgFile wins over the search path ($HOME then the working directory).
func Setup(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".cleanlink")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// ReadFile reads the config file. A missing file is not an error unless it
// was named explicitly.
func ReadFile(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && !explicit {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

// LoadDotEnv loads variables from the given .env files that exist. Variables
// already set in the environment are not overridden.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their mapstructure names so messages match
// the keys used in the config file.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and reports every violation at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatValidationError(e validator.FieldError) string {
	key := configKey(e.Namespace())
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, e.Param(), e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", key, e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, e.Tag())
	}
}

// configKey turns "Config.store.redis_url" into "store.redis_url".
func configKey(namespace string) string {
	return strings.TrimPrefix(namespace, "Config.")
}

// OpenStore opens the settings store selected by c.
func (c StoreConfig) OpenStore(ctx context.Context) (settings.Store, error) {
	switch c.Backend {
	case "memory":
		return settings.NewMemoryStore(), nil
	case "file":
		s, err := settings.NewFileStore(c.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := settings.NewRedisStore(ctx, c.RedisURL, c.RedisKey)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}
}
