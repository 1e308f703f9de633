// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"context"
	"time"
)

// runIdleHint waits for the session to go idle, then checks the sensors
// every poll interval until the screen comes back, every switch is off or a
// gesture fires. The next idle transition arms the checks again.
func (d *Daemon) runIdleHint(ctx context.Context, idle IdleSource) error {
	err := idle.Watch(func(v bool) {
		select {
		case d.idleCh <- v:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}

	var check <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case v := <-d.idleCh:
			err = d.handleIdleHint(v)
			if err != nil {
				return err
			}
			if d.armed && check == nil {
				check = time.After(0)
			}

		case <-check:
			err = d.check()
			if err != nil {
				return err
			}
			if d.armed {
				check = time.After(d.opts.PollInterval)
			} else {
				check = nil
			}
		}
	}
}

func (d *Daemon) handleIdleHint(idle bool) error {
	if !idle || d.armed {
		return nil
	}
	if len(d.enabledSlots()) == 0 {
		logger.Debug("all sensors disabled, ignore idle hint")
		return nil
	}

	logger.Debug("screen turned off, releasing and requesting sensors")
	err := d.recycle()
	if err != nil {
		logger.Error("failed to request new sensors after reset")
		return err
	}

	logger.Debug("system went idle, starting sensor checks")
	d.armed = true
	return nil
}

// check runs one armed iteration and disarms when there is nothing left to
// wait for.
func (d *Daemon) check() error {
	if d.screenOn() {
		logger.Debug("screen is on, stopping sensor checks")
		d.armed = false
		return nil
	}

	slots := d.enabledSlots()
	if len(slots) == 0 {
		logger.Debug("all sensors disabled, stopping checks")
		d.armed = false
		return nil
	}

	if !d.detect(slots) {
		return nil
	}
	d.armed = false
	return d.handleGesture()
}
