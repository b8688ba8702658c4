package cleaning

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tabclean/domain/core"
)

// LoadConfig reads a YAML pipeline configuration and returns it with the raw bytes.
// Unknown fields are rejected so typos fail loudly instead of silently disabling a stage.
func LoadConfig(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// ParseConfig decodes and validates a YAML pipeline configuration
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Stage: "decode", Reason: err.Error(), kind: core.ErrInvalidConfig}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Fingerprint hashes the canonical JSON form of cfg
func Fingerprint(cfg *Config) (core.ConfigHash, error) {
	return core.ComputeConfigHash(cfg)
}
