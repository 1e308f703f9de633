// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linuxdeepin/gesture-sensors/sensorfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   []string
	nextSid sensorfw.SessionID
	held    map[sensorfw.SessionID]string
	latched map[string]uint32

	// acquire fails once this many sessions have been handed out.
	failAfter int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextSid:   1,
		held:      make(map[sensorfw.SessionID]string),
		latched:   make(map[string]uint32),
		failAfter: -1,
	}
}

func (c *fakeClient) record(format string, args ...interface{}) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *fakeClient) Acquire(s sensorfw.Sensor) (sensorfw.SessionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("acquire %s", s.Name)
	if c.failAfter == 0 {
		return sensorfw.InvalidSession, errors.New("requestSensor failed")
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	sid := c.nextSid
	c.nextSid++
	c.held[sid] = s.Name
	return sid, nil
}

func (c *fakeClient) Release(s sensorfw.Sensor, sid sensorfw.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("release %s", s.Name)
	if c.held[sid] != s.Name {
		return fmt.Errorf("session %d not held for %s", sid, s.Name)
	}
	delete(c.held, sid)
	return nil
}

func (c *fakeClient) Latched(s sensorfw.Sensor) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("latched %s", s.Name)
	return c.latched[s.Name], nil
}

func (c *fakeClient) Reset(s sensorfw.Sensor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("reset %s", s.Name)
	c.latched[s.Name] = 0
	return nil
}

func (c *fakeClient) count(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		if v == call {
			n++
		}
	}
	return n
}

func (c *fakeClient) clear() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

type fakeScreen struct {
	states []bool
	err    error
}

// ScreenOn pops the next state; the last one sticks.
func (s *fakeScreen) ScreenOn() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if len(s.states) == 0 {
		return false, nil
	}
	on := s.states[0]
	if len(s.states) > 1 {
		s.states = s.states[1:]
	}
	return on, nil
}

type fakeFlags struct {
	wake, tilt bool
}

func (f *fakeFlags) WakeEnabled() bool { return f.wake }
func (f *fakeFlags) TiltEnabled() bool { return f.tilt }

type fakeInjector struct {
	mu    sync.Mutex
	count int
	err   error
}

func (i *fakeInjector) Inject() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.count++
	return i.err
}

func (i *fakeInjector) injected() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count
}

type fakeIdle struct {
	watching chan func(bool)
}

func (f *fakeIdle) Watch(cb func(bool)) error {
	f.watching <- cb
	return nil
}

var bothSensors = []sensorfw.Sensor{sensorfw.WakeGesture, sensorfw.TiltDetector}

func newTestDaemon(t *testing.T, mode Mode, sensors []sensorfw.Sensor) (*Daemon, *fakeClient,
	*fakeScreen, *fakeFlags, *fakeInjector) {
	client := newFakeClient()
	screen := &fakeScreen{}
	flags := &fakeFlags{wake: true, tilt: true}
	inj := &fakeInjector{}
	d, err := New(Options{
		Mode:          mode,
		PollInterval:  time.Millisecond,
		ScreenOnDelay: time.Millisecond,
		Sensors:       sensors,
	}, client, screen, flags, inj)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	client.clear()
	return d, client, screen, flags, inj
}

func TestNewValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"mode", Options{Mode: "sometimes", PollInterval: time.Second, Sensors: bothSensors}},
		{"interval", Options{Mode: ModePoll, Sensors: bothSensors}},
		{"sensors", Options{Mode: ModeIdleHint, PollInterval: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, newFakeClient(), &fakeScreen{}, &fakeFlags{}, &fakeInjector{})
			assert.Error(t, err)
		})
	}
}

func TestStartFailureReleases(t *testing.T) {
	client := newFakeClient()
	client.failAfter = 1
	d, err := New(Options{Mode: ModePoll, PollInterval: time.Second, Sensors: bothSensors},
		client, &fakeScreen{}, &fakeFlags{}, &fakeInjector{})
	require.NoError(t, err)

	assert.Error(t, d.Start())
	assert.Equal(t, []string{
		"acquire wakegesturesensor",
		"acquire tiltdetectorsensor",
		"release wakegesturesensor",
	}, client.calls)
	assert.Empty(t, client.held)
}

func TestCloseReleasesOnce(t *testing.T) {
	d, client, _, _, _ := newTestDaemon(t, ModePoll, bothSensors)

	d.Close()
	d.Close()
	assert.Equal(t, 1, client.count("release wakegesturesensor"))
	assert.Equal(t, 1, client.count("release tiltdetectorsensor"))
	assert.Empty(t, client.held)
}

func TestPollRecyclesOncePerScreenOff(t *testing.T) {
	d, client, screen, _, _ := newTestDaemon(t, ModePoll, bothSensors)
	ctx := context.Background()

	screen.states = []bool{false, true, true, false, false, true, false}
	for range 7 {
		require.NoError(t, d.pollTick(ctx))
	}
	// off -> on -> off happens twice.
	assert.Equal(t, 2, client.count("release wakegesturesensor"))
	assert.Equal(t, 2, client.count("acquire wakegesturesensor"))
	assert.Equal(t, 2, client.count("release tiltdetectorsensor"))
	assert.Equal(t, 2, client.count("acquire tiltdetectorsensor"))
	assert.Len(t, client.held, 2)
}

func TestPollScreenOnSkipsReads(t *testing.T) {
	d, client, screen, _, _ := newTestDaemon(t, ModePoll, bothSensors)

	screen.states = []bool{true}
	require.NoError(t, d.pollTick(context.Background()))
	assert.Empty(t, client.calls)
}

func TestPollDisabledSensorNotRead(t *testing.T) {
	d, client, _, flags, inj := newTestDaemon(t, ModePoll, bothSensors)
	flags.tilt = false
	client.latched["tiltdetectorsensor"] = 1

	require.NoError(t, d.pollTick(context.Background()))
	assert.Equal(t, []string{"latched wakegesturesensor"}, client.calls)
	assert.Zero(t, inj.injected())

	flags.wake = false
	client.clear()
	require.NoError(t, d.pollTick(context.Background()))
	assert.Empty(t, client.calls)
}

func TestPollGesture(t *testing.T) {
	d, client, _, _, inj := newTestDaemon(t, ModePoll, bothSensors)
	client.latched["wakegesturesensor"] = 1

	require.NoError(t, d.pollTick(context.Background()))
	assert.Equal(t, []string{
		"latched wakegesturesensor",
		"latched tiltdetectorsensor",
		"reset wakegesturesensor",
		"reset tiltdetectorsensor",
		"release wakegesturesensor",
		"release tiltdetectorsensor",
		"acquire wakegesturesensor",
		"acquire tiltdetectorsensor",
	}, client.calls)
	assert.Equal(t, 1, inj.injected())
}

func TestGestureInjectFailureNotFatal(t *testing.T) {
	d, client, _, _, inj := newTestDaemon(t, ModePoll, bothSensors)
	client.latched["tiltdetectorsensor"] = 1
	inj.err = errors.New("no compositor")

	assert.NoError(t, d.pollTick(context.Background()))
	assert.Equal(t, 1, inj.injected())
}

func TestGestureReacquireFailure(t *testing.T) {
	d, client, _, _, inj := newTestDaemon(t, ModePoll, bothSensors)
	client.latched["wakegesturesensor"] = 1
	client.failAfter = 1

	err := d.pollTick(context.Background())
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.Zero(t, inj.injected())

	// only the session that was obtained is handed back.
	client.clear()
	d.Close()
	assert.Equal(t, []string{"release wakegesturesensor"}, client.calls)
}

func TestScreenOffRecycleFailure(t *testing.T) {
	d, client, screen, _, _ := newTestDaemon(t, ModePoll, bothSensors)
	screen.states = []bool{true, false}
	require.NoError(t, d.pollTick(context.Background()))

	client.failAfter = 0
	assert.ErrorIs(t, d.pollTick(context.Background()), ErrSessionLost)
}

func TestProbeErrorCountsAsOff(t *testing.T) {
	d, client, screen, _, _ := newTestDaemon(t, ModePoll, bothSensors)
	screen.err = errors.New("wlrdisplay not found")

	require.NoError(t, d.pollTick(context.Background()))
	assert.Equal(t, 1, client.count("latched wakegesturesensor"))
}

func TestRunPollStopsOnCancel(t *testing.T) {
	d, _, _, _, _ := newTestDaemon(t, ModePoll, bothSensors)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- d.Run(ctx, nil)
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestIdleHintArm(t *testing.T) {
	d, client, _, _, _ := newTestDaemon(t, ModeIdleHint, []sensorfw.Sensor{sensorfw.WakeGesture})

	require.NoError(t, d.handleIdleHint(false))
	assert.False(t, d.armed)
	assert.Empty(t, client.calls)

	require.NoError(t, d.handleIdleHint(true))
	assert.True(t, d.armed)
	assert.Equal(t, []string{
		"release wakegesturesensor",
		"acquire wakegesturesensor",
	}, client.calls)

	// already armed
	client.clear()
	require.NoError(t, d.handleIdleHint(true))
	assert.Empty(t, client.calls)
}

func TestIdleHintAllDisabled(t *testing.T) {
	d, client, _, flags, _ := newTestDaemon(t, ModeIdleHint, bothSensors)
	flags.wake = false
	flags.tilt = false

	require.NoError(t, d.handleIdleHint(true))
	assert.False(t, d.armed)
	assert.Empty(t, client.calls)
}

func TestIdleHintCheck(t *testing.T) {
	d, client, screen, flags, inj := newTestDaemon(t, ModeIdleHint, bothSensors)
	require.NoError(t, d.handleIdleHint(true))
	client.clear()

	// nothing latched, keep going
	require.NoError(t, d.check())
	assert.True(t, d.armed)
	assert.Equal(t, []string{
		"latched wakegesturesensor",
		"latched tiltdetectorsensor",
	}, client.calls)

	// screen back on
	screen.states = []bool{true}
	require.NoError(t, d.check())
	assert.False(t, d.armed)

	// switches turned off while armed
	screen.states = []bool{false}
	require.NoError(t, d.handleIdleHint(true))
	flags.wake = false
	flags.tilt = false
	client.clear()
	require.NoError(t, d.check())
	assert.False(t, d.armed)
	assert.Empty(t, client.calls)

	// gesture
	flags.tilt = true
	require.NoError(t, d.handleIdleHint(true))
	client.latched["tiltdetectorsensor"] = 1
	client.clear()
	require.NoError(t, d.check())
	assert.False(t, d.armed)
	assert.Equal(t, 1, inj.injected())
	assert.Equal(t, 0, client.count("latched wakegesturesensor"))
	assert.Equal(t, 1, client.count("reset wakegesturesensor"))
	assert.Equal(t, 1, client.count("reset tiltdetectorsensor"))
}

func TestRunIdleHint(t *testing.T) {
	d, client, _, _, inj := newTestDaemon(t, ModeIdleHint, bothSensors)
	client.latched["wakegesturesensor"] = 1
	idle := &fakeIdle{watching: make(chan func(bool), 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, idle)
	}()

	cb := <-idle.watching
	cb(true)

	require.Eventually(t, func() bool {
		return inj.injected() == 1
	}, 5*time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRunIdleHintNeedsSource(t *testing.T) {
	d, _, _, _, _ := newTestDaemon(t, ModeIdleHint, bothSensors)
	err := d.Run(context.Background(), nil)
	assert.EqualError(t, err, "idle-hint mode needs an idle source")
}

func TestValidateMessages(t *testing.T) {
	err := Options{Mode: "sometimes", PollInterval: time.Second, Sensors: bothSensors}.validate()
	assert.EqualError(t, err, `unknown mode "sometimes"`)
	err = Options{Mode: ModePoll, Sensors: bothSensors}.validate()
	assert.EqualError(t, err, "invalid poll interval 0s")
	err = Options{Mode: ModePoll, PollInterval: time.Second}.validate()
	assert.EqualError(t, err, "no sensor configured")
}
