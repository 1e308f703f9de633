// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package virtkey synthesizes a single key press to wake the session.
package virtkey

import (
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("gesture-sensors/virtkey")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

const (
	BackendWayland = "wayland"
	BackendUinput  = "uinput"

	DefaultKey = "Escape"
)

// Injector sends the wake key once per Inject call.
type Injector interface {
	Inject() error
	Close() error
}

// New returns the injector of the given backend for the named key.
// uinputPath is only used by the uinput backend; empty means /dev/uinput.
func New(backend, keyName, uinputPath string) (Injector, error) {
	key, err := LookupKey(keyName)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendWayland:
		return NewWaylandInjector(key), nil
	case BackendUinput:
		if uinputPath == "" {
			uinputPath = DefaultUinputPath
		}
		return NewUinputInjector(key, uinputPath), nil
	}
	return nil, xerrors.Errorf("unknown injector backend %q", backend)
}
