// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a race client binary.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Transport   *TransportConfig `yaml:"transport" json:"transport"`
	KeyStore    *KeyStoreConfig `yaml:"keystore" json:"keystore"`
	Reconnect   *ReconnectConfig `yaml:"reconnect" json:"reconnect"`
	Logging     *LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// TransportConfig configures the connection to a game's transactor.
type TransportConfig struct {
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// KeyStoreConfig configures where this node's encryption keypair lives.
type KeyStoreConfig struct {
	Type          string `yaml:"type" json:"type"`
	Directory     string `yaml:"directory" json:"directory"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// ReconnectConfig configures the base client's reconnect policy:
// bounded retries after a Disconnected transition.
type ReconnectConfig struct {
	MaxRetries          int           `yaml:"max_retries" json:"max_retries"`
	AccountFetchRetries int           `yaml:"account_fetch_retries" json:"account_fetch_retries"`
	AccountFetchBackoff time.Duration `yaml:"account_fetch_backoff" json:"account_fetch_backoff"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads cfg from path, trying YAML then JSON, substitutes
// ${VAR}/${VAR:default} environment references, and fills unset fields
// with defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}

	SubstituteEnvVarsInConfig(cfg)
	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, in YAML unless the extension is .json.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error
	if len(path) >= 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Transport == nil {
		cfg.Transport = &TransportConfig{}
	}
	if cfg.Transport.RequestTimeout == 0 {
		cfg.Transport.RequestTimeout = 30 * time.Second
	}

	if cfg.KeyStore == nil {
		cfg.KeyStore = &KeyStoreConfig{}
	}
	if cfg.KeyStore.Type == "" {
		cfg.KeyStore.Type = "encrypted-file"
	}
	if cfg.KeyStore.Directory == "" {
		cfg.KeyStore.Directory = ".race/keys"
	}

	if cfg.Reconnect == nil {
		cfg.Reconnect = &ReconnectConfig{}
	}
	if cfg.Reconnect.MaxRetries == 0 {
		cfg.Reconnect.MaxRetries = 5
	}
	if cfg.Reconnect.AccountFetchRetries == 0 {
		cfg.Reconnect.AccountFetchRetries = 3
	}
	if cfg.Reconnect.AccountFetchBackoff == 0 {
		cfg.Reconnect.AccountFetchBackoff = 3 * time.Second
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
