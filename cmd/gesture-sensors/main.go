// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/linuxdeepin/gesture-sensors/config"
	"github.com/linuxdeepin/gesture-sensors/daemon"
	"github.com/linuxdeepin/gesture-sensors/screen"
	"github.com/linuxdeepin/gesture-sensors/sensorfw"
	"github.com/linuxdeepin/gesture-sensors/virtkey"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/spf13/cobra"
)

// Version is set during build
var Version = "0.1.0-dev"

var logger = log.NewLogger("gesture-sensors")

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "gesture-sensors",
	Short: "Wake the session on wake gestures and tilt",
	Long: `gesture-sensors keeps sensorfw gesture sensors alive while the screen is off
and sends a key press to the compositor when a wake gesture or a tilt is
detected.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		err := loader.BindFlag(config.KeyMode, cmd.Flags().Lookup(config.KeyMode))
		if err != nil {
			return err
		}
		cfg, err := loader.Load(cfgFile)
		if err != nil {
			return err
		}
		return run(loader, cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gesture-sensors version %s\n", Version)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default searched in /etc/gesture-sensors and $XDG_CONFIG_HOME/gesture-sensors)")
	rootCmd.Flags().String(config.KeyMode, "", "check policy: idle-hint or poll")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "debug mode")
	rootCmd.AddCommand(versionCmd)
}

func doSetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
	config.SetLogLevel(level)
	daemon.SetLogLevel(level)
	screen.SetLogLevel(level)
	sensorfw.SetLogLevel(level)
	virtkey.SetLogLevel(level)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
