// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package virtkey

import (
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

var (
	ErrNoVirtualKeyboard = xerrors.New("compositor does not support the virtual keyboard protocol")
	ErrNoSeat            = xerrors.New("no seat found")
)

// WaylandInjector opens a fresh connection on every Inject and tears all of
// it down before returning.
type WaylandInjector struct {
	key    Key
	keymap string
	// empty means $WAYLAND_DISPLAY
	Display string
}

func NewWaylandInjector(key Key) *WaylandInjector {
	return &WaylandInjector{
		key:    key,
		keymap: buildKeymap(key),
	}
}

func (w *WaylandInjector) Inject() error {
	display, err := client.Connect(w.Display)
	if err != nil {
		return xerrors.Errorf("wayland connection failed: %w", err)
	}
	defer func() {
		if err := display.Context().Close(); err != nil {
			logger.Debug("failed to close wayland connection:", err)
		}
	}()

	registry, err := display.GetRegistry()
	if err != nil {
		return xerrors.Errorf("failed to get registry: %w", err)
	}
	defer registry.Destroy()

	var (
		manager *virtualKeyboardManager
		seat    *client.Seat
	)
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case virtualKeyboardManagerInterface:
			if manager != nil {
				return
			}
			m := newVirtualKeyboardManager(display.Context())
			if err := registry.Bind(e.Name, e.Interface, 1, m); err != nil {
				logger.Warning("failed to bind virtual keyboard manager:", err)
				return
			}
			manager = m
		case seatInterface:
			if seat != nil {
				return
			}
			s := client.NewSeat(display.Context())
			if err := registry.Bind(e.Name, e.Interface, 1, s); err != nil {
				logger.Warning("failed to bind seat:", err)
				return
			}
			seat = s
		}
	})

	err = roundtrip(display)
	if err != nil {
		return err
	}
	if manager == nil {
		return ErrNoVirtualKeyboard
	}
	defer manager.Destroy()
	if seat == nil {
		return ErrNoSeat
	}

	kb, err := manager.CreateVirtualKeyboard(seat)
	if err != nil {
		return xerrors.Errorf("failed to create virtual keyboard: %w", err)
	}
	defer kb.Destroy()

	err = w.uploadKeymap(kb)
	if err != nil {
		return err
	}
	err = roundtrip(display)
	if err != nil {
		return err
	}

	for _, state := range []uint32{keyStatePressed, keyStateReleased} {
		err = kb.Key(timestamp(), keymapKeycode, state)
		if err != nil {
			return xerrors.Errorf("failed to send key %s: %w", w.key.Name, err)
		}
		err = roundtrip(display)
		if err != nil {
			return err
		}
	}

	logger.Debugf("%s key sent to seat", w.key.Name)
	return nil
}

func (w *WaylandInjector) uploadKeymap(kb *virtualKeyboard) error {
	fd, size, err := keymapFile(w.keymap)
	if err != nil {
		return err
	}
	// the fd is duplicated into the message, ours can go right after sending
	defer unix.Close(fd)

	err = kb.Keymap(keymapFormatXKBV1, fd, size)
	if err != nil {
		return xerrors.Errorf("failed to upload keymap: %w", err)
	}
	return nil
}

func (w *WaylandInjector) Close() error {
	return nil
}

// roundtrip blocks until the compositor has handled every request sent so far.
func roundtrip(display *client.Display) error {
	callback, err := display.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync display: %w", err)
	}
	defer callback.Destroy()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		err = display.Context().Dispatch()
		if err != nil {
			return xerrors.Errorf("failed to dispatch: %w", err)
		}
	}
	return nil
}

func timestamp() uint32 {
	return uint32(time.Now().UnixMilli())
}
