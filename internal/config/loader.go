package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the service's environment variables,
// e.g. PULSEECHO_DB__HOST or PULSEECHO_MODEL__MODE.
const EnvPrefix = "PULSEECHO_"

// ConfigPathEnv names an optional YAML config file.
const ConfigPathEnv = "PULSEECHO_CONFIG"

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New())
//  2. YAML file named by PULSEECHO_CONFIG, if set
//  3. environment variables with the PULSEECHO_ prefix
//
// Nested keys in env vars use a double underscore: PULSEECHO_DB__HOST
// maps to db.host. Single underscores stay part of the key so that
// PULSEECHO_UPLOAD__MAX_BYTES maps to upload.max_bytes.
func Load() (*Config, error) {
	cfg := *New()

	k := koanf.New(".")

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Model.Mode {
	case ModelModeMock, ModelModeLocal:
	case ModelModeRemote:
		if cfg.Model.APIURL == "" {
			return errors.New("model.api_url must be set when model.mode is remote")
		}
	default:
		return fmt.Errorf("unknown model.mode %q (want mock, local, or remote)", cfg.Model.Mode)
	}

	if cfg.Upload.MaxBytes <= 0 {
		return errors.New("upload.max_bytes must be positive")
	}
	if len(cfg.Upload.AllowedFormats) == 0 {
		return errors.New("upload.allowed_formats must not be empty")
	}
	if cfg.Alert.Threshold < 0 || cfg.Alert.Threshold > 1 {
		return fmt.Errorf("alert.threshold must be in [0,1], got %v", cfg.Alert.Threshold)
	}
	return nil
}
