package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MQLDB_LOG_LEVEL
// sets log.level.
const EnvPrefix = "MQLDB"

// Config is the runtime configuration of the query engine and console.
type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	Engine   EngineConfig  `mapstructure:"engine"`
	Triggers TriggerConfig `mapstructure:"triggers"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Shell    ShellConfig   `mapstructure:"shell"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

type EngineConfig struct {
	// SequenceAlloc is the growth increment of the row index.
	SequenceAlloc int `mapstructure:"sequence_alloc"`
	// StatementCache is the number of parsed statements kept for reuse;
	// 0 disables the cache.
	StatementCache int `mapstructure:"statement_cache"`
}

type TriggerConfig struct {
	// Async delivers trigger callbacks from a worker pool instead of the
	// goroutine that made the change.
	Async    bool `mapstructure:"async"`
	PoolSize int  `mapstructure:"pool_size"`
}

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `mapstructure:"addr"`
}

type ShellConfig struct {
	History string `mapstructure:"history"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)
	v.SetDefault("engine.sequence_alloc", 16)
	v.SetDefault("engine.statement_cache", 128)
	v.SetDefault("triggers.async", false)
	v.SetDefault("triggers.pool_size", 4)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("shell.history", "")
}

// Load reads the configuration: defaults, then the optional file at path
// (any format viper understands), then MQLDB_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Engine.SequenceAlloc <= 0 {
		return nil, fmt.Errorf("engine.sequence_alloc must be positive, got %d", cfg.Engine.SequenceAlloc)
	}
	if cfg.Triggers.Async && cfg.Triggers.PoolSize <= 0 {
		return nil, fmt.Errorf("triggers.pool_size must be positive, got %d", cfg.Triggers.PoolSize)
	}

	return &cfg, nil
}
