/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package proc

import (
	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/seq"
)

// MaxProcs bounds the PCB table.  PIDs are assigned by a monotonic counter
// and index the table directly, so this also caps how many processes one
// boot can ever create.
const MaxProcs = 1024

// Table is the fixed-capacity PID to PCB mapping and the sole owner of
// every PCB.
type Table struct {
	slots   [MaxProcs + 1]*PCB
	nextPID int
}

func NewTable() *Table {
	return &Table{nextPID: 1}
}

// Alloc builds a PCB in state READY with the next PID and default
// priority.  The new process is not enqueued; its FD table is a copy of
// the parent's, or just the three standard descriptors when there is no
// parent.
func (t *Table) Alloc(parent *PCB) (*PCB, error) {
	if t.nextPID > MaxProcs {
		return nil, errno.ETBLFULL
	}
	p := &PCB{
		PID:      t.nextPID,
		State:    Ready,
		Prio:     PrioMid,
		Children: seq.New[*PCB](),
	}
	for i := range p.FDs {
		p.FDs[i] = FDNone
	}
	p.FDs[0], p.FDs[1], p.FDs[2] = 0, 1, 2
	if parent != nil {
		p.Parent = parent
		p.PPID = parent.PID
		p.FDs = parent.FDs //inherit the full descriptor table
		parent.Children.Push(p)
	}
	t.slots[t.nextPID] = p
	t.nextPID++
	return p, nil
}

// Get resolves a PID; nil when out of range or already reaped.
func (t *Table) Get(pid int) *PCB {
	if pid < 1 || pid > MaxProcs {
		return nil
	}
	return t.slots[pid]
}

// Clear frees the table slot after a reap.
func (t *Table) Clear(pid int) {
	if pid >= 1 && pid <= MaxProcs {
		t.slots[pid] = nil
	}
}

// ForEach visits every live PCB in PID order.
func (t *Table) ForEach(fn func(*PCB)) {
	for pid := 1; pid < t.nextPID && pid <= MaxProcs; pid++ {
		if p := t.slots[pid]; p != nil {
			fn(p)
		}
	}
}
