// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package virtkey

import (
	"encoding/binary"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"
)

// virtual-keyboard-unstable-v1
const (
	virtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
	seatInterface                   = "wl_seat"

	keymapFormatXKBV1 = 1

	keyStateReleased = 0
	keyStatePressed  = 1
)

// request opcodes
const (
	opcodeCreateVirtualKeyboard = 0

	opcodeKeymap  = 0
	opcodeKey     = 1
	opcodeDestroy = 3
)

// sendRequest marshals a request whose arguments are all 32-bit words. A
// non-negative fd travels as ancillary data and takes no space in the body.
func sendRequest(p client.Proxy, opcode uint32, fd int, args ...uint32) error {
	size := 8 + 4*len(args)
	buf := make([]byte, size)
	binary.NativeEndian.PutUint32(buf[0:4], p.ID())
	binary.NativeEndian.PutUint32(buf[4:8], uint32(size<<16)|opcode&0x0000ffff)
	for i, arg := range args {
		binary.NativeEndian.PutUint32(buf[8+4*i:], arg)
	}

	var oob []byte
	if fd >= 0 {
		oob = unix.UnixRights(fd)
	}
	return p.Context().WriteMsg(buf, oob)
}

var (
	_ client.Dispatcher = (*virtualKeyboardManager)(nil)
	_ client.Dispatcher = (*virtualKeyboard)(nil)
)

type virtualKeyboardManager struct {
	client.BaseProxy
}

func newVirtualKeyboardManager(ctx *client.Context) *virtualKeyboardManager {
	m := &virtualKeyboardManager{}
	ctx.Register(m)
	return m
}

func (m *virtualKeyboardManager) CreateVirtualKeyboard(seat *client.Seat) (*virtualKeyboard, error) {
	kb := newVirtualKeyboard(m.Context())
	err := sendRequest(m, opcodeCreateVirtualKeyboard, -1, seat.ID(), kb.ID())
	if err != nil {
		m.Context().Unregister(kb)
		return nil, err
	}
	return kb, nil
}

// Destroy only forgets the proxy, the interface has no destructor request.
func (m *virtualKeyboardManager) Destroy() error {
	m.Context().Unregister(m)
	return nil
}

func (m *virtualKeyboardManager) Dispatch(opcode uint32, fd int, data []byte) {}

type virtualKeyboard struct {
	client.BaseProxy
}

func newVirtualKeyboard(ctx *client.Context) *virtualKeyboard {
	kb := &virtualKeyboard{}
	ctx.Register(kb)
	return kb
}

func (k *virtualKeyboard) Keymap(format uint32, fd int, size uint32) error {
	return sendRequest(k, opcodeKeymap, fd, format, size)
}

func (k *virtualKeyboard) Key(time, key, state uint32) error {
	return sendRequest(k, opcodeKey, -1, time, key, state)
}

func (k *virtualKeyboard) Destroy() error {
	err := sendRequest(k, opcodeDestroy, -1)
	k.Context().Unregister(k)
	return err
}

func (k *virtualKeyboard) Dispatch(opcode uint32, fd int, data []byte) {}
