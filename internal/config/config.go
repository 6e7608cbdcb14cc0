// Package config loads node startup configuration from an optional
// YAML file, layered under command-line flags (flags always win).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/retorded/chordring/internal/logger"
)

// LoggerConfig controls the zap-backed logger factory in
// internal/logger/zap.
type LoggerConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
	File     string `yaml:"file"`     // empty means stdout
}

// RingConfig controls the ring engine's sizing and timing knobs.
type RingConfig struct {
	M                int `yaml:"m"`         // identifier bit width
	SuccessorListLen int `yaml:"successors"` // r
}

// BootstrapConfig selects and parameterizes peer discovery for join.
type BootstrapConfig struct {
	Mode         string   `yaml:"mode"` // static or route53
	Peers        []string `yaml:"peers"`
	HostedZoneID string   `yaml:"hostedZoneID"`
	DomainSuffix string   `yaml:"domainSuffix"`
	Port         int      `yaml:"port"`
}

// TracingConfig controls the optional OpenTelemetry tracer.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "" or stdout; telemetry.Init rejects any other value
	Endpoint string `yaml:"endpoint"`
}

// Config is the full node configuration. Most fields also have a
// corresponding flag in cmd/node; a flag explicitly set by the caller
// overrides whatever was loaded from file. The Route53 settings
// (HostedZoneID, DomainSuffix, Port) and Tracing.Exporter/Endpoint have
// no flag and are set only from file.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Ring      RingConfig      `yaml:"ring"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// Default returns the configuration used when no file and no
// overriding flags are supplied.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Level: "info", Encoding: "console"},
		Ring:   RingConfig{M: 8, SuccessorListLen: 4},
		Bootstrap: BootstrapConfig{
			Mode: "static",
		},
	}
}

// Load reads path as YAML into a copy of Default(). An empty path is
// not an error: it simply returns the defaults unchanged, since a
// config file is optional (cmd/node can be driven entirely by flags).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Log emits the resolved configuration at debug level.
func (c Config) Log(lgr logger.Logger) {
	lgr.Debug("resolved configuration",
		logger.F("log_level", c.Logger.Level),
		logger.F("log_encoding", c.Logger.Encoding),
		logger.F("m", c.Ring.M),
		logger.F("successors", c.Ring.SuccessorListLen),
		logger.F("bootstrap_mode", c.Bootstrap.Mode),
		logger.F("tracing_enabled", c.Tracing.Enabled),
	)
}
