// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sensorfw

import (
	"github.com/godbus/dbus/v5"
)

// Bus is the subset of a D-Bus connection the client needs. Every call is a
// synchronous round trip to ServiceName.
type Bus interface {
	Call(path dbus.ObjectPath, method string, args []interface{}, ret ...interface{}) error
	GetProperty(path dbus.ObjectPath, ifc, name string) (dbus.Variant, error)
}

type connBus struct {
	conn *dbus.Conn
}

// NewBus wraps a system bus connection.
func NewBus(conn *dbus.Conn) Bus {
	return &connBus{conn: conn}
}

func (b *connBus) Call(path dbus.ObjectPath, method string, args []interface{}, ret ...interface{}) error {
	call := b.conn.Object(ServiceName, path).Call(method, 0, args...)
	if len(ret) == 0 {
		return call.Err
	}
	return call.Store(ret...)
}

func (b *connBus) GetProperty(path dbus.ObjectPath, ifc, name string) (dbus.Variant, error) {
	return b.conn.Object(ServiceName, path).GetProperty(ifc + "." + name)
}
