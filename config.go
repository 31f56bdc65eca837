package userkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig,
// e.g. USERKIT_DATABASE_URL or USERKIT_POOL_MAX_OPEN_CONNECTIONS.
const EnvPrefix = "USERKIT"

// Config is the file and environment configuration of a userkit deployment.
type Config struct {
	DatabaseURL string     `mapstructure:"database_url" validate:"required"`
	LogLevel    string     `mapstructure:"log_level" validate:"omitempty,oneof=panic fatal error warn warning info debug trace"`
	Pool        PoolConfig `mapstructure:"pool"`

	// CatalogFile points to a YAML plugin catalog. When empty, Plugins is used.
	CatalogFile string         `mapstructure:"catalog_file"`
	Plugins     []PluginConfig `mapstructure:"plugins" validate:"dive"`

	AccessCache AccessCacheConfig `mapstructure:"access_cache"`

	ResetPasswordWithin time.Duration `mapstructure:"reset_password_within" validate:"gte=0"`
	ResetTokenSecret    string        `mapstructure:"reset_token_secret"`
}

// AccessCacheConfig enables the access snapshot cache when Size is positive.
type AccessCacheConfig struct {
	Size int           `mapstructure:"size" validate:"gte=0"`
	TTL  time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// LoadConfig reads the configuration file at path (any format viper knows) and
// overlays USERKIT_* environment variables. path may be empty to use only the
// environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setConfigDefaults registers every key so environment variables are picked up
// by Unmarshal even when the file does not mention them.
func setConfigDefaults(v *viper.Viper) {
	pool := DefaultPoolConfig()
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("pool.max_open_connections", pool.MaxOpenConnections)
	v.SetDefault("pool.max_idle_connections", pool.MaxIdleConnections)
	v.SetDefault("pool.connection_max_lifetime", pool.ConnectionMaxLifetime)
	v.SetDefault("pool.connection_max_idle_time", pool.ConnectionMaxIdleTime)
	v.SetDefault("catalog_file", "")
	v.SetDefault("access_cache.size", 0)
	v.SetDefault("access_cache.ttl", time.Minute)
	v.SetDefault("reset_password_within", DefaultResetPasswordWithin)
	v.SetDefault("reset_token_secret", "")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Catalog builds the plugin catalog from CatalogFile or, when it is empty,
// from the inline Plugins list.
func (c *Config) Catalog() (*Catalog, error) {
	if c.CatalogFile != "" {
		return LoadCatalogFile(c.CatalogFile)
	}
	return CatalogFromConfig(c.Plugins)
}

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	logger := logrus.New()
	if c.LogLevel == "" {
		return logger, nil
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	return logger, nil
}

// Options returns the service options implied by the configuration.
func (c *Config) Options() []Option {
	var opts []Option
	if c.AccessCache.Size > 0 {
		opts = append(opts, WithAccessCache(c.AccessCache.Size, c.AccessCache.TTL))
	}
	if c.ResetPasswordWithin > 0 {
		opts = append(opts, WithResetPasswordWithin(c.ResetPasswordWithin))
	}
	if c.ResetTokenSecret != "" {
		opts = append(opts, WithTokenGenerator(NewHMACTokenGenerator([]byte(c.ResetTokenSecret))))
	}
	return opts
}
