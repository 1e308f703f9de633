// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"github.com/linuxdeepin/gesture-sensors/daemon"
	"github.com/linuxdeepin/gesture-sensors/sensorfw"
	"github.com/linuxdeepin/gesture-sensors/virtkey"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("gesture-sensors/config")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch daemon.Mode(c.Mode) {
	case daemon.ModePoll, daemon.ModeIdleHint:
	default:
		return xerrors.Errorf("unknown mode %q", c.Mode)
	}

	if c.PollInterval <= 0 {
		return xerrors.Errorf("%s must be positive, got %v", KeyPollInterval, c.PollInterval)
	}
	if c.ScreenOnDelay < 0 {
		return xerrors.Errorf("%s must not be negative, got %v", KeyScreenOnDelay, c.ScreenOnDelay)
	}
	if c.SessionRetry <= 0 {
		return xerrors.Errorf("%s must be positive, got %v", KeySessionRetry, c.SessionRetry)
	}
	if c.Seat == "" {
		return xerrors.Errorf("%s must not be empty", KeySeat)
	}

	if len(c.Sensors) == 0 {
		return xerrors.Errorf("%s must not be empty", KeySensors)
	}
	seen := make(map[string]bool)
	for _, name := range c.Sensors {
		_, err := sensorfw.LookupSensor(name)
		if err != nil {
			return err
		}
		if seen[name] {
			return xerrors.Errorf("sensor %s listed twice", name)
		}
		seen[name] = true
	}

	switch c.ScreenProbe {
	case ProbeCommand:
		if c.ProbeCommand == "" {
			return xerrors.Errorf("%s must not be empty", KeyProbeCommand)
		}
	case ProbeDRM, ProbeX11:
	default:
		return xerrors.Errorf("unknown screen probe %q", c.ScreenProbe)
	}

	switch c.Injector {
	case virtkey.BackendWayland, virtkey.BackendUinput:
	default:
		return xerrors.Errorf("unknown injector %q", c.Injector)
	}
	_, err := virtkey.LookupKey(c.WakeKey)
	if err != nil {
		return err
	}

	_, err = ParseLevel(c.LogLevel)
	return err
}

// SensorList resolves the configured sensor names.
func (c *Config) SensorList() []sensorfw.Sensor {
	var ret []sensorfw.Sensor
	for _, name := range c.Sensors {
		s, err := sensorfw.LookupSensor(name)
		if err != nil {
			continue
		}
		ret = append(ret, s)
	}
	return ret
}
