// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sensorfw

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("gesture-sensors/sensorfw")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// Warnings collects the failures of steps that are all attempted regardless
// of each other's outcome.
type Warnings []error

func (w Warnings) Error() string {
	msgs := make([]string, 0, len(w))
	for _, err := range w {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when no step failed.
func (w Warnings) Err() error {
	if len(w) == 0 {
		return nil
	}
	return w
}

// Client issues session requests on behalf of one process.
type Client struct {
	bus Bus
	pid int64
}

func NewClient(bus Bus, pid int) *Client {
	return &Client{
		bus: bus,
		pid: int64(pid),
	}
}

// Acquire loads the plugin of s, requests a session and starts it.
//
// A failing start is only logged: the handle from requestSensor is returned
// anyway and the session may not be running.
func (c *Client) Acquire(s Sensor) (SessionID, error) {
	err := c.bus.Call(managerPath, methodLoadPlugin, []interface{}{s.Name})
	if err != nil {
		return InvalidSession, xerrors.Errorf("failed to load plugin %s: %w", s.Name, err)
	}

	var sid int32
	err = c.bus.Call(managerPath, methodRequestSensor, []interface{}{s.Name, c.pid}, &sid)
	if err != nil {
		return InvalidSession, xerrors.Errorf("failed to request sensor %s: %w", s.Name, err)
	}

	err = c.bus.Call(s.path(), s.method("start"), []interface{}{sid})
	if err != nil {
		logger.Warningf("failed to start sensor %s session %d: %v", s.Name, sid, err)
	}

	logger.Debugf("acquired %s session %d", s.Name, sid)
	return SessionID(sid), nil
}

// Release stops the session and hands it back. Both calls are always made.
func (c *Client) Release(s Sensor, sid SessionID) error {
	var warnings Warnings

	err := c.bus.Call(s.path(), s.method("stop"), []interface{}{int32(sid)})
	if err != nil {
		warnings = append(warnings, xerrors.Errorf("failed to stop sensor %s: %w", s.Name, err))
	}

	err = c.bus.Call(managerPath, methodReleaseSensor, []interface{}{s.Name, int32(sid), c.pid})
	if err != nil {
		warnings = append(warnings, xerrors.Errorf("failed to release sensor %s: %w", s.Name, err))
	}

	logger.Debugf("released %s session %d", s.Name, sid)
	return warnings.Err()
}

// Latched returns the latched value of s, 0 on any error.
func (c *Client) Latched(s Sensor) (uint32, error) {
	v, err := c.bus.GetProperty(s.path(), s.Interface, s.Property)
	if err != nil {
		return 0, xerrors.Errorf("failed to get %s reading: %w", s.Name, err)
	}

	value, err := latchedValue(v)
	if err != nil {
		return 0, xerrors.Errorf("failed to decode %s reading: %w", s.Name, err)
	}
	return value, nil
}

// Reset clears the latched value of s.
func (c *Client) Reset(s Sensor) error {
	err := c.bus.Call(s.path(), s.method(s.ResetMethod), nil)
	if err != nil {
		return xerrors.Errorf("failed to reset sensor %s: %w", s.Name, err)
	}
	return nil
}

// latchedValue unpacks the (timestamp, value) pair carried by the property.
func latchedValue(v dbus.Variant) (uint32, error) {
	inner := v.Value()
	if nested, ok := inner.(dbus.Variant); ok {
		inner = nested.Value()
	}

	fields, ok := inner.([]interface{})
	if !ok || len(fields) != 2 {
		return 0, xerrors.Errorf("unexpected signature %s", v.Signature())
	}

	value, ok := fields[1].(uint32)
	if !ok {
		return 0, xerrors.Errorf("unexpected value type %T", fields[1])
	}
	return value, nil
}
