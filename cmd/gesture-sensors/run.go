// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"

	"github.com/linuxdeepin/gesture-sensors/config"
	"github.com/linuxdeepin/gesture-sensors/daemon"
	"github.com/linuxdeepin/gesture-sensors/screen"
	"github.com/linuxdeepin/gesture-sensors/sensorfw"
	"github.com/linuxdeepin/gesture-sensors/settings"
	"github.com/linuxdeepin/gesture-sensors/virtkey"
)

var (
	connectSystemBus = dbus.SystemBus
	newSensorClient  = func(sysBus *dbus.Conn) daemon.SensorClient {
		return sensorfw.NewClient(sensorfw.NewBus(sysBus), os.Getpid())
	}
)

func applyLogLevel(cfg *config.Config) {
	if debug {
		doSetLogLevel(log.LevelDebug)
		return
	}
	doSetLogLevel(cfg.Level())
}

func newProber(cfg *config.Config) (daemon.ScreenProber, func(), error) {
	switch cfg.ScreenProbe {
	case config.ProbeDRM:
		return screen.NewDRMProbe(), func() {}, nil
	case config.ProbeX11:
		p, err := screen.NewX11Probe()
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return screen.NewCommandProbe(cfg.ProbeCommand), func() {}, nil
}

func run(loader *config.Loader, cfg *config.Config) error {
	applyLogLevel(cfg)
	loader.Watch(applyLogLevel)
	if f := loader.ConfigFile(); f != "" {
		logger.Info("using config", f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sysBus, err := connectSystemBus()
	if err != nil {
		return xerrors.Errorf("failed to connect system bus: %w", err)
	}
	defer sysBus.Close()

	flags, err := settings.New(cfg.Schema)
	if err != nil {
		return err
	}
	defer flags.Close()

	injector, err := virtkey.New(cfg.Injector, cfg.WakeKey, cfg.UinputPath)
	if err != nil {
		return err
	}
	defer func() {
		err := injector.Close()
		if err != nil {
			logger.Warning(err)
		}
	}()

	prober, closeProber, err := newProber(cfg)
	if err != nil {
		return err
	}
	defer closeProber()

	client := newSensorClient(sysBus)
	d, err := daemon.New(daemon.Options{
		Mode:          daemon.Mode(cfg.Mode),
		PollInterval:  cfg.PollInterval,
		ScreenOnDelay: cfg.ScreenOnDelay,
		Sensors:       cfg.SensorList(),
	}, client, prober, flags, injector)
	if err != nil {
		return err
	}
	return serve(ctx, d, func(ctx context.Context) (daemon.IdleSource, func(), error) {
		if daemon.Mode(cfg.Mode) != daemon.ModeIdleHint {
			return nil, func() {}, nil
		}
		return watchSeatIdleHint(ctx, sysBus, cfg)
	})
}

// serve holds the initial sessions before waiting for anything else, so an
// acquisition failure is reported even when no seat session exists yet.
func serve(ctx context.Context, d *daemon.Daemon,
	idleSource func(ctx context.Context) (daemon.IdleSource, func(), error)) error {
	err := d.Start()
	if err != nil {
		return err
	}
	defer d.Close()

	idle, closeIdle, err := idleSource(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer closeIdle()

	logger.Info("started")
	err = d.Run(ctx, idle)
	if err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

func watchSeatIdleHint(ctx context.Context, sysBus *dbus.Conn,
	cfg *config.Config) (daemon.IdleSource, func(), error) {
	detail, err := screen.ResolveSeatSession(ctx, login1.NewManager(sysBus), cfg.Seat, cfg.SessionRetry)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("following idle hint of session %s on %s", detail.SessionId, cfg.Seat)

	watcher, err := screen.NewIdleHintWatcher(sysBus, detail.Path)
	if err != nil {
		return nil, nil, err
	}
	return watcher, watcher.Close, nil
}
