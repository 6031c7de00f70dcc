// go-twi
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-twi.
//
// go-twi is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-twi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-twi; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads the twictl configuration from YAML files and
// TWICTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Adapter kinds.
const (
	AdapterSim    = "sim"
	AdapterPeriph = "periph"
	AdapterSerial = "serial"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root twictl configuration.
type Config struct {
	Bus    BusConfig    `mapstructure:"bus"`
	Serial SerialConfig `mapstructure:"serial"`
	Log    LogConfig    `mapstructure:"log"`
}

// BusConfig selects the adapter and the engine settings.
type BusConfig struct {
	// Adapter is sim, periph or serial.
	Adapter string `mapstructure:"adapter"`
	// Device is the periph bus name or the serial port path. Empty picks
	// the first detected one.
	Device string `mapstructure:"device"`
	// InactiveTimeout is disabled, 50us, 100us or 200us.
	InactiveTimeout string        `mapstructure:"inactive_timeout"`
	SystemClockHz   int64         `mapstructure:"system_clock_hz"`
	SpeedHz         int64         `mapstructure:"speed_hz"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SerialConfig configures the serial bridge link.
type SerialConfig struct {
	BaudRate  int           `mapstructure:"baud_rate"`
	RoundTrip time.Duration `mapstructure:"round_trip"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr or file paths
	Outputs  []string       `mapstructure:"outputs"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig controls rotation of file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Adapter:         AdapterSim,
			InactiveTimeout: "disabled",
			SystemClockHz:   2_000_000,
			SpeedHz:         100_000,
			Timeout:         time.Millisecond,
		},
		Serial: SerialConfig{
			BaudRate:  115200,
			RoundTrip: time.Millisecond,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load reads the configuration from path, or from twictl.yaml in the
// working directory or ~/.twictl when path is empty. A missing file is not
// an error. Environment variables override the file, with the prefix TWICTL
// and dots replaced by underscores, e.g. TWICTL_BUS_SPEED_HZ=400000.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TWICTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("bus.adapter", cfg.Bus.Adapter)
	v.SetDefault("bus.device", cfg.Bus.Device)
	v.SetDefault("bus.inactive_timeout", cfg.Bus.InactiveTimeout)
	v.SetDefault("bus.system_clock_hz", cfg.Bus.SystemClockHz)
	v.SetDefault("bus.speed_hz", cfg.Bus.SpeedHz)
	v.SetDefault("bus.timeout", cfg.Bus.Timeout)
	v.SetDefault("serial.baud_rate", cfg.Serial.BaudRate)
	v.SetDefault("serial.round_trip", cfg.Serial.RoundTrip)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		path = os.Getenv("TWICTL_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("twictl")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".twictl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Bus.Adapter = strings.ToLower(strings.TrimSpace(c.Bus.Adapter))
	switch c.Bus.Adapter {
	case AdapterSim, AdapterPeriph, AdapterSerial:
	default:
		return fmt.Errorf("%w: bus.adapter %q", ErrInvalid, c.Bus.Adapter)
	}

	switch strings.ToLower(c.Bus.InactiveTimeout) {
	case "", "disabled", "50us", "100us", "200us":
	default:
		return fmt.Errorf("%w: bus.inactive_timeout %q", ErrInvalid, c.Bus.InactiveTimeout)
	}

	if c.Bus.SystemClockHz <= 0 || c.Bus.SpeedHz <= 0 {
		return fmt.Errorf("%w: clock and speed must be positive", ErrInvalid)
	}
	if c.Bus.Timeout <= 0 {
		return fmt.Errorf("%w: bus.timeout %v", ErrInvalid, c.Bus.Timeout)
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}
