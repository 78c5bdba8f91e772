package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// ARROWLOAD_PERFORMANCE_CHUNK_SIZE=5000.
const EnvPrefix = "ARROWLOAD"

// NewViper returns a viper instance seeded with the defaults, the optional
// YAML file at path and ARROWLOAD_* environment overrides. Callers bind
// command-line flags on top before calling FromViper.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(NewBaseConfig(""))
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --config flag
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.MergeConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// FromViper decodes the merged settings into a validated BaseConfig.
func FromViper(v *viper.Viper) (*BaseConfig, error) {
	cfg := NewBaseConfig("")
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
