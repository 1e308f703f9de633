// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the daemon settings from defaults, an optional config
// file, GESTURE_SENSORS_* environment variables and command line flags.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/xdg/basedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

const (
	configName = "gesture-sensors"
	envPrefix  = "GESTURE_SENSORS"
	sysConfDir = "/etc/gesture-sensors"
)

const (
	KeyMode          = "mode"
	KeyPollInterval  = "poll-interval"
	KeyScreenOnDelay = "screen-on-delay"
	KeySessionRetry  = "session-retry"
	KeySeat          = "seat"
	KeySensors       = "sensors"
	KeySchema        = "schema"
	KeyScreenProbe   = "screen-probe"
	KeyProbeCommand  = "probe-command"
	KeyInjector      = "injector"
	KeyWakeKey       = "wake-key"
	KeyUinputPath    = "uinput-path"
	KeyLogLevel      = "log-level"
)

const (
	ProbeCommand = "command"
	ProbeDRM     = "drm"
	ProbeX11     = "x11"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	PollInterval  time.Duration `mapstructure:"poll-interval"`
	ScreenOnDelay time.Duration `mapstructure:"screen-on-delay"`
	SessionRetry  time.Duration `mapstructure:"session-retry"`
	Seat          string        `mapstructure:"seat"`
	Sensors       []string      `mapstructure:"sensors"`
	Schema        string        `mapstructure:"schema"`
	ScreenProbe   string        `mapstructure:"screen-probe"`
	ProbeCommand  string        `mapstructure:"probe-command"`
	Injector      string        `mapstructure:"injector"`
	WakeKey       string        `mapstructure:"wake-key"`
	UinputPath    string        `mapstructure:"uinput-path"`
	LogLevel      string        `mapstructure:"log-level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyMode, "idle-hint")
	v.SetDefault(KeyPollInterval, 500*time.Millisecond)
	v.SetDefault(KeyScreenOnDelay, 2*time.Second)
	v.SetDefault(KeySessionRetry, time.Second)
	v.SetDefault(KeySeat, "seat0")
	v.SetDefault(KeySensors, []string{"wakegesturesensor", "tiltdetectorsensor"})
	v.SetDefault(KeySchema, "io.furios.gesture")
	v.SetDefault(KeyScreenProbe, ProbeCommand)
	v.SetDefault(KeyProbeCommand, "wlrdisplay")
	v.SetDefault(KeyInjector, "wayland")
	v.SetDefault(KeyWakeKey, "Escape")
	v.SetDefault(KeyUinputPath, "/dev/uinput")
	v.SetDefault(KeyLogLevel, "info")
}

// Loader owns the viper instance so the file can be watched after loading.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes a command line flag override key when it is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	return l.v.BindPFlag(key, flag)
}

// Load reads cfgFile, or searches the system and user config directories
// when it is empty. A missing file in the search path is not an error.
func (l *Loader) Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName(configName)
		l.v.AddConfigPath(sysConfDir)
		l.v.AddConfigPath(filepath.Join(basedir.GetUserConfigDir(), configName))
	}

	err := l.v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !xerrors.As(err, &notFound) {
			return nil, xerrors.Errorf("failed to read config: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	err := l.v.Unmarshal(&cfg)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile is the file in use, or empty when running on defaults.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the config file on change. Only settings that can be applied
// while running are passed on; a file that fails to decode is ignored.
func (l *Loader) Watch(onChange func(cfg *Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			logger.Warningf("ignore changed config %s: %v", e.Name, err)
			return
		}
		logger.Infof("config %s reloaded", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Level maps the log-level setting onto a logger priority.
func (c *Config) Level() log.Priority {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

func ParseLevel(name string) (log.Priority, error) {
	switch strings.ToLower(name) {
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warning", "warn":
		return log.LevelWarning, nil
	case "error":
		return log.LevelError, nil
	}
	return log.LevelInfo, xerrors.Errorf("unknown log level %q", name)
}
