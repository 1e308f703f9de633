// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sensorfw talks to the sensor framework daemon (com.nokia.SensorService)
// on the system bus and manages per-sensor sessions.
package sensorfw

import (
	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

const (
	ServiceName = "com.nokia.SensorService"

	managerPath = dbus.ObjectPath("/SensorManager")
	managerIFC  = "local.SensorManager"

	methodLoadPlugin    = managerIFC + ".loadPlugin"
	methodRequestSensor = managerIFC + ".requestSensor"
	methodReleaseSensor = managerIFC + ".releaseSensor"
)

// SessionID is the handle returned by requestSensor.
type SessionID int32

// InvalidSession marks a sensor whose session is not held.
const InvalidSession SessionID = -1

// Valid reports whether id refers to a held session.
func (id SessionID) Valid() bool {
	return id >= 0
}

// Sensor describes one sensorfw plugin and the object it exports.
type Sensor struct {
	Name        string
	Interface   string
	Property    string
	ResetMethod string
}

var (
	WakeGesture = Sensor{
		Name:        "wakegesturesensor",
		Interface:   "local.WakeGestureSensor",
		Property:    "wakegesture",
		ResetMethod: "resetWakeGesture",
	}

	TiltDetector = Sensor{
		Name:        "tiltdetectorsensor",
		Interface:   "local.TiltDetectorSensor",
		Property:    "tiltdetector",
		ResetMethod: "resetTiltDetector",
	}

	knownSensors = []Sensor{WakeGesture, TiltDetector}
)

// LookupSensor returns the descriptor of a known sensor plugin.
func LookupSensor(name string) (Sensor, error) {
	for _, s := range knownSensors {
		if s.Name == name {
			return s, nil
		}
	}
	return Sensor{}, xerrors.Errorf("unknown sensor %q", name)
}

func (s Sensor) path() dbus.ObjectPath {
	return managerPath + "/" + dbus.ObjectPath(s.Name)
}

func (s Sensor) method(name string) string {
	return s.Interface + "." + name
}

func (s Sensor) String() string {
	return s.Name
}
