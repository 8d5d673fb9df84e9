// Copyright 2026 The OpenGalaxy Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// deviceConfig selects the serial port and bus addressing
type deviceConfig struct {
	// Path is the serial device node. Empty means auto-detect.
	Path string `mapstructure:"path"`
	// Slot is the screen slot the engine claims on the bus (1-4)
	Slot int `mapstructure:"slot"`
	// TXEnablePin names a GPIO driving the RS485 transceiver DE/RE pair
	TXEnablePin string `mapstructure:"txEnablePin"`
	// KernelRS485 asks the kernel to toggle RTS around transmissions
	KernelRS485 bool `mapstructure:"kernelRS485"`
}

type displayConfig struct {
	// Text is the startup screen content, lines joined by '|'
	Text string `mapstructure:"text"`
	// BacklightTimeout turns the backlight off this long after activity
	BacklightTimeout time.Duration `mapstructure:"backlightTimeout"`
}

type beepConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Period and Quiet are sounder on/off times in keypad units (0-127)
	Period uint8 `mapstructure:"period"`
	Quiet  uint8 `mapstructure:"quiet"`
}

type loggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type cliConfig struct {
	Device  deviceConfig  `mapstructure:"device"`
	Display displayConfig `mapstructure:"display"`
	Beep    beepConfig    `mapstructure:"beep"`
	Logging loggingConfig `mapstructure:"logging"`
}

// loadConfig reads configuration from a YAML file and the environment.
// With an empty path it searches the working directory and /etc/galaxyctl
// for galaxyctl.yaml; a missing file there falls back to defaults.
// Environment variables use the GALAXY_ prefix with dots as underscores,
// e.g. GALAXY_DEVICE_PATH.
func loadConfig(path string) (*cliConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/galaxyctl")
		v.SetConfigName("galaxyctl")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("GALAXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.path", "")
	v.SetDefault("device.slot", 2)
	v.SetDefault("device.txEnablePin", "")
	v.SetDefault("device.kernelRS485", false)

	v.SetDefault("display.text", "")
	v.SetDefault("display.backlightTimeout", "15s")

	v.SetDefault("beep.enabled", false)
	v.SetDefault("beep.period", 0)
	v.SetDefault("beep.quiet", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
