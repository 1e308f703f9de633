// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package screen

import (
	"context"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/godbus/dbus/v5"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/dbusutil/proxy"
	"golang.org/x/xerrors"
)

const (
	DefaultSeat         = "seat0"
	DefaultRetryBackoff = time.Second
)

// SessionLister lists logind sessions; login1.Manager satisfies it.
type SessionLister interface {
	ListSessions(flags dbus.Flags) ([]login1.SessionDetail, error)
}

// ResolveSeatSession blocks until a session bound to seat shows up, retrying
// every backoff. It only gives up when ctx is done.
func ResolveSeatSession(ctx context.Context, lister SessionLister, seat string,
	backoff time.Duration) (login1.SessionDetail, error) {
	for {
		detail, err := findSeatSession(lister, seat)
		if err == nil {
			logger.Debugf("found session %s on %s", detail.SessionId, seat)
			return detail, nil
		}
		logger.Warningf("failed to get session id: %v, retrying...", err)

		select {
		case <-ctx.Done():
			return login1.SessionDetail{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func findSeatSession(lister SessionLister, seat string) (login1.SessionDetail, error) {
	sessions, err := lister.ListSessions(0)
	if err != nil {
		return login1.SessionDetail{}, xerrors.Errorf("failed to list sessions: %w", err)
	}
	logger.Debug("sessions:", spew.Sdump(sessions))

	for _, session := range sessions {
		if session.SeatId == seat {
			return session, nil
		}
	}
	return login1.SessionDetail{}, xerrors.Errorf("no session on %s", seat)
}

// IdleHintWatcher follows the IdleHint property of one logind session.
type IdleHintWatcher struct {
	sigLoop *dbusutil.SignalLoop
	session login1.Session
}

func NewIdleHintWatcher(sysBus *dbus.Conn, path dbus.ObjectPath) (*IdleHintWatcher, error) {
	session, err := login1.NewSession(sysBus, path)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect login1 session %s: %w", path, err)
	}

	return &IdleHintWatcher{
		sigLoop: dbusutil.NewSignalLoop(sysBus, 10),
		session: session,
	}, nil
}

// Watch calls cb from the signal loop goroutine for every IdleHint change.
func (w *IdleHintWatcher) Watch(cb func(idle bool)) error {
	w.sigLoop.Start()
	w.session.InitSignalExt(w.sigLoop, true)

	err := w.session.IdleHint().ConnectChanged(func(hasValue bool, value bool) {
		if !hasValue {
			return
		}
		logger.Debug("IdleHint changed:", value)
		cb(value)
	})
	if err != nil {
		return xerrors.Errorf("failed to connect IdleHint changed: %w", err)
	}
	return nil
}

func (w *IdleHintWatcher) Close() {
	w.session.RemoveHandler(proxy.RemoveAllHandlers)
	w.sigLoop.Stop()
}
