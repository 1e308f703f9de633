// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings exposes the gesture feature switches stored in GSettings.
package settings

import (
	gio "github.com/linuxdeepin/go-gir/gio-2.0"
	"github.com/linuxdeepin/go-lib/utils"
	"golang.org/x/xerrors"
)

const (
	DefaultSchema = "io.furios.gesture"

	gsKeyWakeSensorEnabled = "wake-sensor-enabled"
	gsKeyTiltSensorEnabled = "tilt-sensor-enabled"
)

// Settings reads the switches on every call, so changes made while the
// daemon runs apply on the next check.
type Settings struct {
	gs *gio.Settings
}

func New(schema string) (*Settings, error) {
	gs, err := utils.CheckAndNewGSettings(schema)
	if err != nil {
		return nil, xerrors.Errorf("failed to create settings %s: %w", schema, err)
	}
	return &Settings{gs: gs}, nil
}

func (s *Settings) WakeEnabled() bool {
	return s.gs.GetBoolean(gsKeyWakeSensorEnabled)
}

func (s *Settings) TiltEnabled() bool {
	return s.gs.GetBoolean(gsKeyTiltSensorEnabled)
}

func (s *Settings) Close() {
	if s.gs == nil {
		return
	}
	s.gs.Unref()
	s.gs = nil
}
