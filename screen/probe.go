// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package screen decides whether the display is on, either by probing the
// display state directly or by following the logind idle hint of the seat
// session.
package screen

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/dpms"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("gesture-sensors/screen")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

const (
	DefaultProbeCommand = "wlrdisplay"
	DefaultDRMPattern   = "/sys/class/drm/card*-*/dpms"
)

// Prober queries the current display state.
type Prober interface {
	ScreenOn() (bool, error)
}

// CommandProbe runs an external display-state command; exit status 0 means
// the screen is on.
type CommandProbe struct {
	Path string
	Args []string
}

func NewCommandProbe(command string) *CommandProbe {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{DefaultProbeCommand}
	}
	return &CommandProbe{
		Path: fields[0],
		Args: fields[1:],
	}
}

func (p *CommandProbe) ScreenOn() (bool, error) {
	err := exec.Command(p.Path, p.Args...).Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if xerrors.As(err, &exitErr) {
		return false, nil
	}
	return false, xerrors.Errorf("failed to run %s: %w", p.Path, err)
}

// DRMProbe reads the dpms attribute of every DRM connector.
type DRMProbe struct {
	Pattern string
}

func NewDRMProbe() *DRMProbe {
	return &DRMProbe{Pattern: DefaultDRMPattern}
}

// ScreenOn reports true if any connector is powered on.
func (p *DRMProbe) ScreenOn() (bool, error) {
	matches, err := filepath.Glob(p.Pattern)
	if err != nil {
		return false, xerrors.Errorf("bad pattern %s: %w", p.Pattern, err)
	}
	if len(matches) == 0 {
		return false, xerrors.Errorf("no connector matches %s", p.Pattern)
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debug("failed to read dpms state:", err)
			continue
		}
		if strings.TrimSpace(string(data)) == "On" {
			return true, nil
		}
	}
	return false, nil
}

// X11Probe asks the X server for its DPMS power level.
type X11Probe struct {
	conn *x.Conn
}

func NewX11Probe() (*X11Probe, error) {
	conn, err := x.NewConn()
	if err != nil {
		return nil, xerrors.Errorf("failed to connect X: %w", err)
	}
	return &X11Probe{conn: conn}, nil
}

// ScreenOn treats a server with DPMS disabled as always on.
func (p *X11Probe) ScreenOn() (bool, error) {
	reply, err := dpms.Info(p.conn).Reply(p.conn)
	if err != nil {
		return false, xerrors.Errorf("failed to get dpms info: %w", err)
	}
	if !reply.State {
		return true, nil
	}
	return reply.PowerLevel == dpms.DPMSModeOn, nil
}

func (p *X11Probe) Close() {
	p.conn.Close()
}
