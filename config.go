// config.go: Loader configuration and environment variable support
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"os"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadConfigFromEnv.
const EnvPrefix = "VEXILLA_"

// Config groups the settings a Loader can take from the environment:
//
//	VEXILLA_KEY_PREFIX          global key prefix
//	VEXILLA_KEY_SEPARATOR       key path separator (default "/")
//	VEXILLA_KEY_TRANSFORM       snake, kebab or none
//	VEXILLA_AUDIT_ENABLED       enable the audit trail
//	VEXILLA_AUDIT_OUTPUT_FILE   .jsonl file or .db database
//	VEXILLA_AUDIT_MIN_LEVEL     info, warn or critical
//	VEXILLA_AUDIT_BUFFER_SIZE   events buffered before a flush
//	VEXILLA_AUDIT_FLUSH_INTERVAL background flush period
type Config struct {
	Keys  KeyConfig   `json:"keys" envPrefix:"KEY_"`
	Audit AuditConfig `json:"audit" envPrefix:"AUDIT_"`
}

// WithDefaults applies sensible defaults to the configuration
func (c *Config) WithDefaults() *Config {
	config := *c
	config.Keys = config.Keys.WithDefaults()
	if config.Audit.Enabled {
		config.Audit = config.Audit.WithDefaults()
	}
	return &config
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Keys.Separator) == "" && c.Keys.Separator != "" {
		return errors.New(ErrCodeInvalidConfig, "key separator cannot be blank").
			WithContext("separator", c.Keys.Separator)
	}
	return c.Audit.Validate()
}

// LoadConfigFromEnv reads VEXILLA_* variables from the process environment.
func LoadConfigFromEnv() (*Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix, Environment: env.ToMap(os.Environ())})
}

// LoadConfigFromMap reads VEXILLA_* variables from vars instead of the
// process environment.
func LoadConfigFromMap(vars map[string]string) (*Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func loadConfig(opts env.Options) (*Config, error) {
	config := &Config{}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
