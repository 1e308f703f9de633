// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"context"
	"time"
)

func (d *Daemon) runPoll(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.pollTick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

func (d *Daemon) pollTick(ctx context.Context) error {
	if d.screenOn() {
		if !d.prevScreenOn {
			logger.Debug("screen is on, skip for now")
		}
		d.prevScreenOn = true
		sleep(ctx, d.opts.ScreenOnDelay)
		return nil
	}

	if d.prevScreenOn {
		logger.Debug("screen turned off, releasing and requesting sensors")
		err := d.recycle()
		if err != nil {
			logger.Error("failed to request new sensors after screen state change")
			return err
		}
	}
	d.prevScreenOn = false

	if !d.detect(d.enabledSlots()) {
		return nil
	}
	return d.handleGesture()
}
