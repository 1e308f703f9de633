// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package virtkey

import (
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Key is a keysym the injector can emit, with its evdev code for uinput.
type Key struct {
	Name  string
	Evdev int
}

var supportedKeys = []Key{
	{Name: "Escape", Evdev: 1},
	{Name: "BackSpace", Evdev: 14},
	{Name: "Tab", Evdev: 15},
	{Name: "Return", Evdev: 28},
	{Name: "space", Evdev: 57},
	{Name: "XF86PowerOff", Evdev: 116},
	{Name: "Menu", Evdev: 139},
	{Name: "XF86WakeUp", Evdev: 143},
}

// LookupKey matches name case-insensitively, like xkb_keysym_from_name.
func LookupKey(name string) (Key, error) {
	for _, k := range supportedKeys {
		if strings.EqualFold(k.Name, name) {
			return k, nil
		}
	}
	return Key{}, xerrors.Errorf("unknown key %q", name)
}

// keymapKeycode is the code sent in key events for the only keymap entry.
// The compositor adds 8 to get the XKB keycode <K1> = 9.
const keymapKeycode = 1

// buildKeymap returns an XKB keymap with a single key bound to k.
func buildKeymap(k Key) string {
	var sb strings.Builder
	sb.WriteString("xkb_keymap {\n")
	sb.WriteString("xkb_keycodes \"(unnamed)\" {\n")
	sb.WriteString("minimum = 8;\n")
	fmt.Fprintf(&sb, "maximum = %d;\n", keymapKeycode+8+1)
	fmt.Fprintf(&sb, "<K%d> = %d;\n", keymapKeycode, keymapKeycode+8)
	sb.WriteString("};\n")
	sb.WriteString("xkb_types \"(unnamed)\" { include \"complete\" };\n")
	sb.WriteString("xkb_compat \"(unnamed)\" { include \"complete\" };\n")
	sb.WriteString("xkb_symbols \"(unnamed)\" {\n")
	fmt.Fprintf(&sb, "key <K%d> {[%s]};\n", keymapKeycode, k.Name)
	sb.WriteString("};\n")
	sb.WriteString("};\n")
	return sb.String()
}

// keymapFile writes the NUL-terminated keymap into a sealed memfd. The caller
// owns the returned fd.
func keymapFile(keymap string) (int, uint32, error) {
	fd, err := unix.MemfdCreate("gesture-sensors-keymap", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return -1, 0, xerrors.Errorf("failed to create keymap file: %w", err)
	}

	data := append([]byte(keymap), 0)
	for off := 0; off < len(data); {
		n, err := unix.Write(fd, data[off:])
		if err != nil {
			_ = unix.Close(fd)
			return -1, 0, xerrors.Errorf("failed to write keymap: %w", err)
		}
		off += n
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS,
		unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_WRITE)
	if err != nil {
		logger.Debug("failed to seal keymap file:", err)
	}

	return fd, uint32(len(data)), nil
}
