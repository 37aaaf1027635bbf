// Package config loads the wextctl configuration file.
package config

import (
	"os"
	"strconv"

	"github.com/mdlayher/wext"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Limits on the driver command buffer. The smallest buffer holds a CSCAN
// command without repeats and the largest is bounded by the 16-bit iw_point
// length.
const (
	MinBufferSize = 22
	MaxBufferSize = 0xffff
)

// Config is the complete wextctl configuration.
type Config struct {
	// The wireless interface to operate on.
	Interface string `yaml:"interface"`

	Debug bool `yaml:"debug"`

	Log      LogConfig    `yaml:"log"`
	Driver   DriverConfig `yaml:"driver"`
	Networks []Network    `yaml:"networks"`
}

// LogConfig configures the optional rotated log file.
type LogConfig struct {
	// An empty File logs to standard error.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// DriverConfig configures the driver command layer.
type DriverConfig struct {
	// Size of the command and response buffer passed to the driver.
	BufferSize int `yaml:"bufferSize"`

	// Set if the driver is known to report scan completion events.
	ScanCompleteEvents bool `yaml:"scanCompleteEvents"`
}

// A Network is a configured wireless network.
type Network struct {
	SSID     string `yaml:"ssid"`
	Disabled bool   `yaml:"disabled"`
}

// Load returns the default configuration, overlaid with the YAML file at path
// if path is not empty and then with WEXT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load config from %s", path)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Interface: "wlan0",
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Driver: DriverConfig{
			BufferSize: 256,
		},
	}
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if ifname := os.Getenv("WEXT_INTERFACE"); ifname != "" {
		cfg.Interface = ifname
	}

	if debug := os.Getenv("WEXT_DEBUG"); debug != "" {
		v, err := strconv.ParseBool(debug)
		if err != nil {
			return errors.Wrap(err, "invalid WEXT_DEBUG")
		}
		cfg.Debug = v
	}

	if file := os.Getenv("WEXT_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}

	if size := os.Getenv("WEXT_BUFFER_SIZE"); size != "" {
		v, err := strconv.Atoi(size)
		if err != nil {
			return errors.Wrap(err, "invalid WEXT_BUFFER_SIZE")
		}
		cfg.Driver.BufferSize = v
	}

	return nil
}

// Validate checks the configuration for values the driver cannot use.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return errors.New("interface name is required")
	}

	if c.Driver.BufferSize < MinBufferSize || c.Driver.BufferSize > MaxBufferSize {
		return errors.Errorf("buffer size %d is outside range [%d, %d]",
			c.Driver.BufferSize, MinBufferSize, MaxBufferSize)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits must not be negative")
	}

	for i, n := range c.Networks {
		if n.SSID == "" || len(n.SSID) > wext.MaxSSIDLen {
			return errors.Errorf("network %d: SSID must be 1 to %d bytes",
				i, wext.MaxSSIDLen)
		}
	}

	return nil
}

// NetworkConfig returns the configured networks in the form used by the
// driver's background scan setup.
func (c *Config) NetworkConfig() *wext.NetworkConfig {
	nc := &wext.NetworkConfig{
		Profiles: make([]wext.Profile, 0, len(c.Networks)),
	}
	for _, n := range c.Networks {
		nc.Profiles = append(nc.Profiles, wext.Profile{
			SSID:     []byte(n.SSID),
			Disabled: n.Disabled,
		})
	}

	return nc
}
