// Package config loads the projections binary configuration from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/spf13/viper"
)

// Config holds the projections binary configuration.
type Config struct {
	RunMode                  string        `mapstructure:"run_mode"`
	WorkerCount              int           `mapstructure:"worker_count"`
	StartStandardProjections bool          `mapstructure:"start_standard_projections"`
	TickInterval             time.Duration `mapstructure:"tick_interval"`
	Metrics                  MetricsConfig
	Database                 DatabaseConfig
	Node                     NodeConfig
	Log                      LogConfig
}

// MetricsConfig holds metrics server settings.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// DatabaseConfig holds transition journal settings. An empty Driver keeps the journal in memory.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// NodeConfig holds the initial cluster role.
type NodeConfig struct {
	Role string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool
}

// Load reads configuration from file and env. Env var overrides use prefix PROJECTIONS_,
// e.g. PROJECTIONS_DATABASE_DSN. path may be empty, in which case ./projections.{toml,yaml}
// is read if present.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("run_mode", "none")
	v.SetDefault("worker_count", 1)
	v.SetDefault("start_standard_projections", false)
	v.SetDefault("tick_interval", 100*time.Millisecond)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("node.role", "leader")
	v.SetDefault("log.debug", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("projections")
	}

	v.SetEnvPrefix("PROJECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// ParsedRunMode returns the configured run mode.
func (c Config) ParsedRunMode() (projections.RunMode, error) {
	return projections.ParseRunMode(c.RunMode)
}

// ParsedRole returns the configured initial node role.
func (c Config) ParsedRole() (projections.NodeRole, error) {
	return projections.ParseNodeRole(c.Node.Role)
}
