/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package event implements the kernel's append-only scheduling record.
// Every state transition of interest is written as one text line keyed by
// the tick it happened on.  The kernel never reads this log back.
package event

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

const (
	Schedule  = `SCHEDULE`
	Create    = `CREATE`
	Exited    = `EXITED`
	Signaled  = `SIGNALED`
	Zombie    = `ZOMBIE`
	Blocked   = `BLOCKED`
	Unblocked = `UNBLOCKED`
	Stopped   = `STOPPED`
	Continued = `CONTINUED`
	Nice      = `NICE`
	Orphan    = `ORPHAN`
	Waited    = `WAITED`
)

// Record is one event.  PPID and State ride along for consumers that want
// them; the rendered line carries tick, event, pid, priority, and command.
type Record struct {
	Tick  uint64
	Event string
	PID   int
	PPID  int
	State string
	Prio  int
	Cmd   string
}

type syncer interface {
	Sync() error
}

// Log appends records to a writer, flushing per record when the writer
// supports it.
type Log struct {
	mtx sync.Mutex
	wtr io.WriteCloser
}

// New creates an event log on wtr and stamps a boot header.
func New(wtr io.WriteCloser, bootID uuid.UUID) *Log {
	l := &Log{wtr: wtr}
	fmt.Fprintf(wtr, "# boot %s\n", bootID)
	return l
}

// Append writes one record line.
func (l *Log) Append(r Record) {
	l.mtx.Lock()
	fmt.Fprintf(l.wtr, "[ %5d ]\t%-10s\t%5d\t%4d\t%s\n", r.Tick, r.Event, r.PID, r.Prio, r.Cmd)
	l.flush()
	l.mtx.Unlock()
}

// AppendNice writes the priority change record, which carries both the old
// and the new priority.
func (l *Log) AppendNice(tick uint64, pid, oldPrio, newPrio int, cmd string) {
	l.mtx.Lock()
	fmt.Fprintf(l.wtr, "[ %5d ]\t%-10s\t%5d\t%4d\t%4d\t%s\n", tick, Nice, pid, oldPrio, newPrio, cmd)
	l.flush()
	l.mtx.Unlock()
}

func (l *Log) flush() {
	if s, ok := l.wtr.(syncer); ok {
		s.Sync()
	}
}

func (l *Log) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.wtr.Close()
}
