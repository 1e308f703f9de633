// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package virtkey

import (
	"github.com/ThomasT75/uinput"
	"golang.org/x/xerrors"
)

const DefaultUinputPath = "/dev/uinput"

// UinputInjector emits the key through a kernel virtual keyboard, for
// compositors without the virtual keyboard protocol. The device is created on
// first use and kept until Close so the compositor has already picked it up
// when the next gesture arrives.
type UinputInjector struct {
	key  Key
	path string
	kb   uinput.Keyboard
}

func NewUinputInjector(key Key, path string) *UinputInjector {
	return &UinputInjector{
		key:  key,
		path: path,
	}
}

func (u *UinputInjector) Inject() error {
	if u.kb == nil {
		kb, err := uinput.CreateKeyboard(u.path, []byte("gesture-sensors wake key"))
		if err != nil {
			return xerrors.Errorf("failed to create uinput keyboard: %w", err)
		}
		u.kb = kb
	}

	err := u.kb.KeyPress(u.key.Evdev)
	if err != nil {
		return xerrors.Errorf("failed to send key %s: %w", u.key.Name, err)
	}
	logger.Debugf("%s key sent through uinput", u.key.Name)
	return nil
}

func (u *UinputInjector) Close() error {
	if u.kb == nil {
		return nil
	}
	err := u.kb.Close()
	u.kb = nil
	return err
}
