/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gravwell/weftos/kernel"
	"github.com/gravwell/weftos/log"
	"github.com/gravwell/weftos/wfs"
)

const (
	defaultConfigLoc = `/opt/weftos/etc/weftos.conf`
	appName          = `weftos`
)

var (
	confLoc     = flag.String("config-file", defaultConfigLoc, "Location for configuration file")
	imgOverride = flag.String("image", "", "Filesystem image to mount at boot, overrides the config file")
	verbose     = flag.Bool("v", false, "Display verbose status updates to stdout")
	ver         = flag.Bool("version", false, "Print the version information and exit")

	v  bool
	lg *log.Logger
)

func mainInit() {
	flag.Parse()
	if *ver {
		printVersion(os.Stdout)
		os.Exit(0)
	}
	lg = log.New(os.Stderr)
	lg.SetAppname(appName)
	v = *verbose
}

func main() {
	mainInit()
	cfg, err := GetConfig(*confLoc)
	if err != nil {
		lg.FatalCode(0, "failed to get configuration", log.KVErr(err))
		return
	}
	if *imgOverride != `` {
		cfg.Global.Image = *imgOverride
	}
	if len(cfg.Global.Log_File) > 0 {
		fout, err := os.OpenFile(cfg.Global.Log_File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			lg.FatalCode(0, "failed to open log file", log.KV("path", cfg.Global.Log_File), log.KVErr(err))
		}
		if err = lg.AddWriter(fout); err != nil {
			lg.Fatal("failed to add a writer", log.KVErr(err))
		}
		if len(cfg.Global.Log_Level) > 0 {
			if err = lg.SetLevelString(cfg.Global.Log_Level); err != nil {
				lg.FatalCode(0, "invalid Log Level", log.KV("loglevel", cfg.Global.Log_Level), log.KVErr(err))
			}
		}
	}

	var fs *wfs.FS
	if cfg.Global.Image != `` {
		if fs, err = wfs.Mount(cfg.Global.Image, lg); err != nil {
			lg.FatalCode(0, "failed to mount image", log.KV("path", cfg.Global.Image), log.KVErr(err))
		}
	}
	evt, err := os.OpenFile(cfg.eventLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		lg.FatalCode(0, "failed to open event log", log.KV("path", cfg.eventLogPath()), log.KVErr(err))
	}

	k := kernel.New(kernel.Config{
		FS:           fs,
		Logger:       lg,
		EventWriter:  evt,
		TickInterval: cfg.tickInterval(),
	})
	if v {
		fmt.Printf("weftos booting, boot id %v\n", k.BootID())
	}
	if err = k.Boot(initBody(cfg)); err != nil {
		lg.FatalCode(0, "failed to boot", log.KVErr(err))
	}
	k.Run()

	if fs := k.FS(); fs != nil && fs.Mounted() {
		if err = fs.Unmount(); err != nil {
			lg.Error("failed to unmount at shutdown", log.KVErr(err))
		}
	}
	evt.Close()
	if v {
		fmt.Println("weftos halted")
	}
}

// initBody builds the init process: spawn the shell, adopt and reap
// orphans, and raise shutdown once the shell exits.
func initBody(cfg *cfgType) kernel.Entry {
	return func(u *kernel.UProc, argv []string) {
		shellPID, err := u.Spawn(shellEntry(cfg), []string{`shell`}, ``, ``, false)
		if err != nil {
			u.Shutdown()
			return
		}
		for {
			pid, _, err := u.Wait(-1, false)
			if err != nil {
				u.Sleep(1)
				continue
			}
			if pid == shellPID {
				u.Shutdown()
				return
			}
		}
	}
}

func printVersion(w *os.File) {
	fmt.Fprintf(w, "weftos %s\n", versionString)
}

const versionString = `1.0.0`
