// Package config loads connagent settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"connman-agent/internal/inputlog"
)

// Config is the root of the YAML file.
type Config struct {
	// LogInputRequest enables the append-only input-request log.
	LogInputRequest bool   `yaml:"log_input_request"`
	InputLogPath    string `yaml:"input_log_path"`
	// Register calls the daemons' RegisterAgent/RegisterCounter on startup.
	Register bool `yaml:"register"`

	Agent   ObjectConfig  `yaml:"agent"`
	VPN     ObjectConfig  `yaml:"vpn"`
	Counter CounterConfig `yaml:"counter"`
}

// ObjectConfig places one exported object.
type ObjectConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CounterConfig places the counter object and sets its update cadence.
type CounterConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Accuracy uint32 `yaml:"accuracy"` // KB
	Period   uint32 `yaml:"period"`   // seconds
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		InputLogPath: inputlog.DefaultPath,
		Register:     true,
		Agent: ObjectConfig{
			Enabled: true,
			Path:    "/net/connman/connagent/Agent",
		},
		VPN: ObjectConfig{
			Enabled: false,
			Path:    "/net/connman/connagent/VPNAgent",
		},
		Counter: CounterConfig{
			Enabled:  true,
			Path:     "/net/connman/connagent/Counter",
			Accuracy: 1024,
			Period:   10,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail at export time.
func (c Config) Validate() error {
	var errs []error
	for _, o := range []struct {
		name    string
		enabled bool
		path    string
	}{
		{"agent", c.Agent.Enabled, c.Agent.Path},
		{"vpn", c.VPN.Enabled, c.VPN.Path},
		{"counter", c.Counter.Enabled, c.Counter.Path},
	} {
		if !o.enabled {
			continue
		}
		if o.path == "" {
			errs = append(errs, fmt.Errorf("%s.path is required", o.name))
		} else if !strings.HasPrefix(o.path, "/") {
			errs = append(errs, fmt.Errorf("%s.path must be absolute, got %q", o.name, o.path))
		}
	}
	if c.Counter.Enabled && c.Counter.Period == 0 {
		errs = append(errs, errors.New("counter.period must be positive"))
	}
	if !c.Agent.Enabled && !c.VPN.Enabled && !c.Counter.Enabled {
		errs = append(errs, errors.New("nothing to serve: agent, vpn and counter are all disabled"))
	}
	if c.LogInputRequest && c.InputLogPath == "" {
		errs = append(errs, errors.New("input_log_path is required when log_input_request is set"))
	}
	return errors.Join(errs...)
}
