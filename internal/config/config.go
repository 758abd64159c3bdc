// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the service's flat key/value configuration
// (spec §6 "Configuration is by key/value map with the recognized
// options") via a koanf-based loader, layering defaults under a
// single unprefixed environment-variable source.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const environmentKeyPrefix = "RESOURCE_ENVIRONMENT_"

// Config is the service's recognized configuration (spec §6 table).
type Config struct {
	CustomerID string `koanf:"RESOURCE_CUSTOMER_ID"`
	Domain     string `koanf:"RESOURCE_DOMAIN"`

	// Environments maps environment name -> source locator, one entry
	// per RESOURCE_ENVIRONMENT_<name> key.
	Environments map[string]string `koanf:"-"`

	CacheTimeoutSeconds int64 `koanf:"RESOURCE_CACHE_TIMEOUT"`

	BackendConnectTimeoutSeconds int64 `koanf:"BACKEND_CONNECT_TIMEOUT"`
	BackendReadTimeoutSeconds    int64 `koanf:"BACKEND_READ_TIMEOUT"`
	BackendWriteTimeoutSeconds   int64 `koanf:"BACKEND_WRITE_TIMEOUT"`

	SMTPHost     string `koanf:"SMTP_HOST"`
	SMTPPort     int64  `koanf:"SMTP_PORT"`
	SMTPUsername string `koanf:"SMTP_USERNAME"`
	SMTPPassword string `koanf:"SMTP_PASSWORD"`

	// LogLevel/LogFormat/LogAddSource are not in spec.md's recognized
	// options table but are carried as ambient logging configuration
	// (SPEC_FULL §2.1), defaulted if unset.
	LogLevel     string `koanf:"LOG_LEVEL"`
	LogFormat    string `koanf:"LOG_FORMAT"`
	LogAddSource bool   `koanf:"LOG_ADD_SOURCE"`

	// DeferralSigningKey/DeferralTokenValiditySeconds configure the
	// HMAC token signer the Deferral protocol (spec §4.7) signs and
	// verifies delegated-approval tokens with.
	DeferralSigningKey           string `koanf:"DEFERRAL_SIGNING_KEY"`
	DeferralTokenValiditySeconds int64  `koanf:"DEFERRAL_TOKEN_VALIDITY"`
}

func defaults() Config {
	return Config{
		CacheTimeoutSeconds:           300,
		BackendConnectTimeoutSeconds: 10,
		BackendReadTimeoutSeconds:    30,
		BackendWriteTimeoutSeconds:   30,
		LogLevel:                     "info",
		LogFormat:                    "json",
		DeferralTokenValiditySeconds: 86400,
	}
}

// Loader loads Config from an environment-variable provider.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader builds a Loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// Load reads defaults, then every environment variable as-is (no
// prefix, no case folding, no nesting — the recognized options are a
// flat map per spec §6), into a Config.
func (l *Loader) Load() (*Config, error) {
	d := defaults()
	if err := l.k.Load(structs.Provider(d, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}

	if err := l.k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Environments = make(map[string]string)
	for key, value := range l.k.Raw() {
		if name, ok := strings.CutPrefix(key, environmentKeyPrefix); ok && name != "" {
			if s, ok := value.(string); ok {
				cfg.Environments[name] = s
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces spec §6's required keys and value ranges.
func (c *Config) Validate() error {
	var missing []string
	if c.CustomerID == "" {
		missing = append(missing, "RESOURCE_CUSTOMER_ID")
	}
	if c.Domain == "" {
		missing = append(missing, "RESOURCE_DOMAIN")
	}
	if c.DeferralSigningKey == "" {
		missing = append(missing, "DEFERRAL_SIGNING_KEY")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.CacheTimeoutSeconds <= 0 {
		return fmt.Errorf("RESOURCE_CACHE_TIMEOUT must be positive, got %d", c.CacheTimeoutSeconds)
	}
	if c.DeferralTokenValiditySeconds <= 0 {
		return fmt.Errorf("DEFERRAL_TOKEN_VALIDITY must be positive, got %d", c.DeferralTokenValiditySeconds)
	}
	return nil
}

// CacheTimeout returns the environment cache TTL as a time.Duration.
func (c *Config) CacheTimeout() time.Duration {
	return time.Duration(c.CacheTimeoutSeconds) * time.Second
}

// BackendConnectTimeout returns the configured connect timeout.
func (c *Config) BackendConnectTimeout() time.Duration {
	return time.Duration(c.BackendConnectTimeoutSeconds) * time.Second
}

// BackendReadTimeout returns the configured read timeout.
func (c *Config) BackendReadTimeout() time.Duration {
	return time.Duration(c.BackendReadTimeoutSeconds) * time.Second
}

// BackendWriteTimeout returns the configured write timeout.
func (c *Config) BackendWriteTimeout() time.Duration {
	return time.Duration(c.BackendWriteTimeoutSeconds) * time.Second
}

// SMTPPortString renders SMTPPort for use in a host:port dial address.
func (c *Config) SMTPPortString() string {
	return strconv.FormatInt(c.SMTPPort, 10)
}

// DeferralTokenValidity returns how long a minted deferral token
// remains pickup-able.
func (c *Config) DeferralTokenValidity() time.Duration {
	return time.Duration(c.DeferralTokenValiditySeconds) * time.Second
}
