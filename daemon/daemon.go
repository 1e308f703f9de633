// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package daemon runs the gesture check loop: it keeps sensor sessions alive
// while the screen is off, watches the latched readings and wakes the session
// when a gesture fires.
package daemon

import (
	"context"
	"time"

	"github.com/linuxdeepin/gesture-sensors/sensorfw"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("gesture-sensors/daemon")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// ErrSessionLost means a sensor session could not be acquired again after it
// was handed back; the daemon cannot continue.
var ErrSessionLost = xerrors.New("failed to request new sensor session")

type Mode string

const (
	ModePoll     Mode = "poll"
	ModeIdleHint Mode = "idle-hint"
)

const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultScreenOnDelay = 2 * time.Second
)

// SensorClient manages sessions on the sensor framework.
type SensorClient interface {
	Acquire(s sensorfw.Sensor) (sensorfw.SessionID, error)
	Release(s sensorfw.Sensor, sid sensorfw.SessionID) error
	Latched(s sensorfw.Sensor) (uint32, error)
	Reset(s sensorfw.Sensor) error
}

type ScreenProber interface {
	ScreenOn() (bool, error)
}

// Flags are the user switches, read again on every check.
type Flags interface {
	WakeEnabled() bool
	TiltEnabled() bool
}

type Injector interface {
	Inject() error
}

// IdleSource reports idle hint changes, possibly from another goroutine.
type IdleSource interface {
	Watch(cb func(idle bool)) error
}

type Options struct {
	Mode          Mode
	PollInterval  time.Duration
	ScreenOnDelay time.Duration
	Sensors       []sensorfw.Sensor
}

func (o Options) validate() error {
	switch o.Mode {
	case ModePoll, ModeIdleHint:
	default:
		return xerrors.Errorf("unknown mode %q", o.Mode)
	}
	if o.PollInterval <= 0 {
		return xerrors.Errorf("invalid poll interval %v", o.PollInterval)
	}
	if len(o.Sensors) == 0 {
		return xerrors.New("no sensor configured")
	}
	return nil
}

type slot struct {
	sensor sensorfw.Sensor
	sid    sensorfw.SessionID
}

// Daemon owns every session handle. All methods must be called from the
// goroutine running Run.
type Daemon struct {
	opts     Options
	client   SensorClient
	screen   ScreenProber
	flags    Flags
	injector Injector

	slots        []*slot
	prevScreenOn bool
	armed        bool
	idleCh       chan bool
}

func New(opts Options, client SensorClient, screen ScreenProber, flags Flags,
	injector Injector) (*Daemon, error) {
	err := opts.validate()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		opts:     opts,
		client:   client,
		screen:   screen,
		flags:    flags,
		injector: injector,
		idleCh:   make(chan bool, 8),
	}
	for _, s := range opts.Sensors {
		d.slots = append(d.slots, &slot{sensor: s, sid: sensorfw.InvalidSession})
	}
	return d, nil
}

// Start requests the initial sessions. On failure the sessions obtained so
// far are released.
func (d *Daemon) Start() error {
	for _, sl := range d.slots {
		sid, err := d.client.Acquire(sl.sensor)
		if err != nil {
			logger.Warning(err)
		}
		sl.sid = sid
	}

	if !d.allHeld() {
		d.Close()
		return xerrors.New("failed to request sensors")
	}
	return nil
}

// Run drives the configured policy until ctx is done or a session is lost.
// idle is only used in idle-hint mode.
func (d *Daemon) Run(ctx context.Context, idle IdleSource) error {
	switch d.opts.Mode {
	case ModeIdleHint:
		if idle == nil {
			return xerrors.New("idle-hint mode needs an idle source")
		}
		return d.runIdleHint(ctx, idle)
	default:
		return d.runPoll(ctx)
	}
}

// Close releases every session still held, once.
func (d *Daemon) Close() {
	for _, sl := range d.slots {
		d.release(sl)
	}
}

func (d *Daemon) release(sl *slot) {
	if !sl.sid.Valid() {
		return
	}
	err := d.client.Release(sl.sensor, sl.sid)
	if err != nil {
		logger.Warning(err)
	}
	sl.sid = sensorfw.InvalidSession
}

func (d *Daemon) allHeld() bool {
	for _, sl := range d.slots {
		if !sl.sid.Valid() {
			return false
		}
	}
	return true
}

// recycle hands every session back and requests fresh ones; sensorfw drops
// sessions that have not been polled for a while.
func (d *Daemon) recycle() error {
	for _, sl := range d.slots {
		d.release(sl)
	}
	for _, sl := range d.slots {
		sid, err := d.client.Acquire(sl.sensor)
		if err != nil {
			logger.Warning(err)
		}
		sl.sid = sid
	}

	if !d.allHeld() {
		return ErrSessionLost
	}
	return nil
}

func (d *Daemon) enabled(s sensorfw.Sensor) bool {
	switch s.Name {
	case sensorfw.WakeGesture.Name:
		return d.flags.WakeEnabled()
	case sensorfw.TiltDetector.Name:
		return d.flags.TiltEnabled()
	}
	return false
}

// enabledSlots reads the switches once and returns the slots to poll.
func (d *Daemon) enabledSlots() []*slot {
	var ret []*slot
	for _, sl := range d.slots {
		if d.enabled(sl.sensor) {
			ret = append(ret, sl)
		}
	}
	return ret
}

// detect reads the latched value of the given sensors only.
func (d *Daemon) detect(slots []*slot) bool {
	detected := false
	for _, sl := range slots {
		value, err := d.client.Latched(sl.sensor)
		if err != nil {
			logger.Warning(err)
		}
		if value == 1 {
			logger.Debugf("gesture detected by %s", sl.sensor)
			detected = true
		}
	}
	return detected
}

// handleGesture consumes the latched readings and wakes the session.
func (d *Daemon) handleGesture() error {
	for _, sl := range d.slots {
		err := d.client.Reset(sl.sensor)
		if err != nil {
			logger.Warning(err)
		}
	}

	err := d.recycle()
	if err != nil {
		logger.Error("failed to request new sensors after reset")
		return err
	}

	err = d.injector.Inject()
	if err != nil {
		logger.Warning("failed to send wake key:", err)
	}
	return nil
}

func (d *Daemon) screenOn() bool {
	on, err := d.screen.ScreenOn()
	if err != nil {
		logger.Warning("failed to query screen state:", err)
		return false
	}
	return on
}

// sleep waits for dur unless ctx ends first.
func sleep(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		return
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
