/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package kernel multiplexes cooperatively preempted user threads over one
// scheduler goroutine and binds them to the wfs filesystem through
// per-process descriptor tables.  All mutable kernel state hangs off the
// Kernel value; syscalls are methods on the UProc handle each process body
// receives.
package kernel

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/kernel/proc"
	"github.com/gravwell/weftos/log"
	"github.com/gravwell/weftos/wfs"
)

const (
	// DefaultTickInterval is the wall time of one scheduler slice.
	DefaultTickInterval = 100 * time.Millisecond

	// InitPID is the unkillable adopter of orphans.
	InitPID = 1
)

// Entry is a process body.  It runs on the process's own thread and must
// end by returning or by calling Exit; loops that do not block are
// expected to call Yield.
type Entry func(*UProc, []string)

type Config struct {
	FS           *wfs.FS        //may be nil, the mount syscall can attach one later
	Logger       *log.Logger    //host-side diagnostics
	EventWriter  io.WriteCloser //destination of the scheduling record
	TickInterval time.Duration
}

// Kernel is the single-tenant OS core: PCB table, queues, tick counter,
// shutdown flag, foreground process id, and the mounted filesystem.
type Kernel struct {
	fs       *wfs.FS
	tbl      *proc.Table
	q        *proc.Queues
	evt      *event.Log
	lg       *log.Logger
	bootID   uuid.UUID
	interval time.Duration
	sigch    chan os.Signal
	tick     uint64
	shutdown bool
	fgPID    int
	cursor   int
	initP    *proc.PCB
	current  *proc.PCB
}

func New(cfg Config) *Kernel {
	if cfg.Logger == nil {
		cfg.Logger = log.NewDiscardLogger()
	}
	if cfg.EventWriter == nil {
		cfg.EventWriter = nopWriteCloser{io.Discard}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	k := &Kernel{
		fs:       cfg.FS,
		tbl:      proc.NewTable(),
		lg:       cfg.Logger,
		bootID:   uuid.New(),
		interval: cfg.TickInterval,
		sigch:    make(chan os.Signal, 8),
	}
	k.evt = event.New(cfg.EventWriter, k.bootID)
	k.q = proc.NewQueues(k.evt, func() uint64 { return k.tick })
	return k
}

// Boot creates the init process around the given body.  Init spawns the
// rest of the system and loops in wait; it is never killable.
func (k *Kernel) Boot(initFn Entry) error {
	if k.initP != nil {
		return errno.EPERM
	}
	p, err := k.createProcess(nil, `init`, []string{`init`})
	if err != nil {
		return err
	}
	k.initP = p
	k.startProcess(p, initFn)
	k.lg.Info("kernel booted", log.KV("bootid", k.bootID), log.KV("tick", k.interval))
	return nil
}

// Tick returns the current scheduler tick.
func (k *Kernel) Tick() uint64 {
	return k.tick
}

func (k *Kernel) BootID() uuid.UUID {
	return k.bootID
}

// FS returns the currently attached filesystem, nil when nothing is
// mounted.
func (k *Kernel) FS() *wfs.FS {
	return k.fs
}

func (k *Kernel) mounted() bool {
	return k.fs != nil && k.fs.Mounted()
}

// Foreground returns the PID that currently owns terminal signals.
func (k *Kernel) Foreground() int {
	return k.fgPID
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
