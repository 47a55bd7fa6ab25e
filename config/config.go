// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	mtls "github.com/absmach/stomp/pkg/tls"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a STOMP client.
type Config struct {
	Broker         BrokerConfig         `yaml:"broker"`
	Inactivity     InactivityConfig     `yaml:"inactivity"`
	Producer       ProducerConfig       `yaml:"producer"`
	Consumer       ConsumerConfig       `yaml:"consumer"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Log            LogConfig            `yaml:"log"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

// BrokerConfig holds broker addresses and credentials.
type BrokerConfig struct {
	// URLs are tried in order until one connects.
	// Supported schemes: tcp, stomp, ssl, tls, ws, wss.
	URLs           []string      `yaml:"urls"`
	Login          string        `yaml:"login"`
	Passcode       string        `yaml:"passcode"`
	ClientID       string        `yaml:"client_id"` // Generated when empty
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	WSPath         string        `yaml:"ws_path"` // Used when a ws URL has no path
	TLS            mtls.Config   `yaml:"tls"`
}

// InactivityConfig holds heartbeat and dead connection detection settings.
type InactivityConfig struct {
	// MaxInactivityDuration is the write check period. Zero disables
	// monitoring.
	MaxInactivityDuration time.Duration `yaml:"max_inactivity_duration"`
	InitialDelay          time.Duration `yaml:"initial_delay"`
	StopTimeout           time.Duration `yaml:"stop_timeout"`
	ReadCheck             bool          `yaml:"read_check"`
}

// ProducerConfig holds send defaults.
type ProducerConfig struct {
	SendRate         float64 `yaml:"send_rate"` // Messages per second, 0 = unlimited
	SendBurst        int     `yaml:"send_burst"`
	DestinationRate  float64 `yaml:"destination_rate"` // Messages per second per destination, 0 = unlimited
	DestinationBurst int     `yaml:"destination_burst"`
	Priority         int     `yaml:"priority"`
	Persistent       bool    `yaml:"persistent"`
}

// ConsumerConfig holds subscription defaults.
type ConsumerConfig struct {
	PrefetchSize  int  `yaml:"prefetch_size"`
	DispatchAsync bool `yaml:"dispatch_async"`
	MessageBuffer int  `yaml:"message_buffer"`
}

// CircuitBreakerConfig holds per-broker dial circuit breaker settings.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds OpenTelemetry export configuration.
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint"` // OTLP gRPC endpoint
	ServiceName     string        `yaml:"service_name"`
	ServiceVersion  string        `yaml:"service_version"`
	Interval        time.Duration `yaml:"interval"`
	TracesEnabled   bool          `yaml:"traces_enabled"`
	TraceSampleRate float64       `yaml:"trace_sample_rate"` // 0.0 to 1.0
}

var schemes = map[string]bool{
	"tcp":   true,
	"stomp": true,
	"ssl":   true,
	"tls":   true,
	"ws":    true,
	"wss":   true,
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			URLs:           []string{"tcp://localhost:61613"},
			ConnectTimeout: 10 * time.Second,
			RequestTimeout: 30 * time.Second,
			WSPath:         "/stomp",
		},
		Inactivity: InactivityConfig{
			MaxInactivityDuration: 10 * time.Second,
			InitialDelay:          10 * time.Second,
			StopTimeout:           2 * time.Second,
			ReadCheck:             false,
		},
		Producer: ProducerConfig{
			SendRate:         0,
			SendBurst:        1,
			DestinationRate:  0,
			DestinationBurst: 1,
			Priority:         4,
			Persistent:       true,
		},
		Consumer: ConsumerConfig{
			PrefetchSize:  1000,
			DispatchAsync: true,
			MessageBuffer: 256,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			ServiceName:     "stomp-client",
			ServiceVersion:  "1.0.0",
			Interval:        10 * time.Second,
			TracesEnabled:   false,
			TraceSampleRate: 0.1,
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Broker.URLs) == 0 {
		return fmt.Errorf("broker.urls cannot be empty")
	}
	for i, raw := range c.Broker.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("broker.urls[%d] is not a valid URL: %w", i, err)
		}
		if !schemes[u.Scheme] {
			return fmt.Errorf("broker.urls[%d] scheme must be one of: tcp, stomp, ssl, tls, ws, wss", i)
		}
		if u.Host == "" {
			return fmt.Errorf("broker.urls[%d] must include a host", i)
		}
	}
	if c.Broker.ConnectTimeout <= 0 {
		return fmt.Errorf("broker.connect_timeout must be positive")
	}
	if c.Broker.RequestTimeout <= 0 {
		return fmt.Errorf("broker.request_timeout must be positive")
	}
	if (c.Broker.TLS.CertFile == "") != (c.Broker.TLS.KeyFile == "") {
		return fmt.Errorf("broker.tls.cert_file and broker.tls.key_file must be set together")
	}

	if c.Inactivity.MaxInactivityDuration < 0 {
		return fmt.Errorf("inactivity.max_inactivity_duration cannot be negative")
	}
	if c.Inactivity.MaxInactivityDuration > 0 && c.Inactivity.MaxInactivityDuration < 10*time.Millisecond {
		return fmt.Errorf("inactivity.max_inactivity_duration must be at least 10ms")
	}
	if c.Inactivity.InitialDelay < 0 {
		return fmt.Errorf("inactivity.initial_delay cannot be negative")
	}
	if c.Inactivity.StopTimeout <= 0 {
		return fmt.Errorf("inactivity.stop_timeout must be positive")
	}

	if c.Producer.SendRate < 0 {
		return fmt.Errorf("producer.send_rate cannot be negative")
	}
	if c.Producer.SendRate > 0 && c.Producer.SendBurst < 1 {
		return fmt.Errorf("producer.send_burst must be at least 1 when send_rate is set")
	}
	if c.Producer.DestinationRate < 0 {
		return fmt.Errorf("producer.destination_rate cannot be negative")
	}
	if c.Producer.Priority < 0 || c.Producer.Priority > 9 {
		return fmt.Errorf("producer.priority must be between 0 and 9")
	}

	if c.Consumer.PrefetchSize < 0 {
		return fmt.Errorf("consumer.prefetch_size cannot be negative")
	}
	if c.Consumer.MessageBuffer < 1 {
		return fmt.Errorf("consumer.message_buffer must be at least 1")
	}

	if c.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be at least 1")
	}
	if c.CircuitBreaker.ResetTimeout < time.Second {
		return fmt.Errorf("circuit_breaker.reset_timeout must be at least 1 second")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	// OpenTelemetry validation (only if metrics enabled)
	if c.Metrics.Enabled {
		if c.Metrics.Endpoint == "" {
			return fmt.Errorf("metrics.endpoint cannot be empty when metrics enabled")
		}
		if c.Metrics.ServiceName == "" {
			return fmt.Errorf("metrics.service_name cannot be empty when metrics enabled")
		}
		if c.Metrics.Interval < time.Second {
			return fmt.Errorf("metrics.interval must be at least 1 second")
		}
		if c.Metrics.TraceSampleRate < 0.0 || c.Metrics.TraceSampleRate > 1.0 {
			return fmt.Errorf("metrics.trace_sample_rate must be between 0.0 and 1.0")
		}
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
