/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"os"
	"time"

	"github.com/gravwell/gcfg"
	"github.com/gravwell/weftos/kernel"
)

const defaultEventLog = `weftos.events`

type global struct {
	Image            string
	Tick_Interval_Ms int
	Log_File         string
	Log_Level        string
	Event_Log        string
	History_File     string
}

type cfgType struct {
	Global global
}

// GetConfig loads the optional ini config.  A missing file at the default
// location is not an error; flags cover the common case.
func GetConfig(path string) (*cfgType, error) {
	var cfg cfgType
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}
	if err := gcfg.ReadFileInto(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *cfgType) tickInterval() time.Duration {
	if c.Global.Tick_Interval_Ms <= 0 {
		return kernel.DefaultTickInterval
	}
	return time.Duration(c.Global.Tick_Interval_Ms) * time.Millisecond
}

func (c *cfgType) eventLogPath() string {
	if c.Global.Event_Log != `` {
		return c.Global.Event_Log
	}
	return defaultEventLog
}
