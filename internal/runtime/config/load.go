package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides of top-level keys, e.g.
// BINDFLOW_DEFAULT_BINDER.
const EnvPrefix = "BINDFLOW"

// keyDelimiter separates nested viper keys. Destination and binder names
// routinely contain dots, so the default "." cannot be used.
const keyDelimiter = "::"

var scalarKeys = []string{
	"default_binder",
	"sender_max_retries",
	"sender_initial_interval",
	"sender_max_interval",
	"metrics_enabled",
}

// Load reads the configuration file at path. The format is inferred from the
// file extension. Viper lower-cases map keys, so binder and destination names
// read from a file are lower case.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadBytes reads configuration from memory. configType is a format supported
// by viper ("yaml", "json", "toml").
func LoadBytes(configType string, data []byte) (*Config, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
	for _, key := range scalarKeys {
		_ = v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
