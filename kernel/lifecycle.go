/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/kernel/proc"
	"github.com/gravwell/weftos/log"
	"github.com/gravwell/weftos/wfs"
)

// createProcess allocates a PCB under parent with a deep-copied argument
// vector.  The process is READY but not enqueued and has no thread yet.
func (k *Kernel) createProcess(parent *proc.PCB, cmd string, argv []string) (*proc.PCB, error) {
	p, err := k.tbl.Alloc(parent)
	if err != nil {
		return nil, err
	}
	p.Cmd = proc.ClampCmd(cmd)
	p.Argv = append([]string(nil), argv...)
	k.logEvent(event.Create, p)
	return p, nil
}

// startProcess attaches the thread for body and enqueues the process.
func (k *Kernel) startProcess(p *proc.PCB, body Entry) {
	p.Thr = proc.NewThread(func() {
		u := &UProc{k: k, p: p}
		body(u, p.Argv)
		u.Exit()
	})
	k.q.Enqueue(p)
}

// terminate drives p to ZOMBIE: pull it from the queues, close every
// descriptor above the standard streams, re-parent its children onto init,
// and wake any parent parked in an indefinite wait.  Idempotent once p is
// a ZOMBIE.
func (k *Kernel) terminate(p *proc.PCB) {
	if p.State == proc.Zombie {
		return
	}
	if p.Exit == proc.ExitSignaled {
		p.Thr.Cancel()
	}
	k.q.RemoveFromQueues(p)
	p.State = proc.Zombie
	k.closeProcessFDs(p)
	k.logEvent(event.Zombie, p)

	//re-parent every child onto init; init's own children have nowhere to
	//go and are torn down by killAll at shutdown
	if p == k.initP {
		return
	}
	adoptedZombie := false
	for {
		c, ok := p.Children.At(0)
		if !ok {
			break
		}
		p.Children.EraseAt(0)
		c.Parent = k.initP
		c.PPID = InitPID
		k.initP.Children.Push(c)
		k.logEvent(event.Orphan, c)
		if c.State == proc.Zombie {
			adoptedZombie = true
		}
	}
	if adoptedZombie && k.initP.State == proc.Blocked && k.initP.WakeTick == 0 {
		k.q.Unblock(k.initP)
	}
	if pp := p.Parent; pp != nil && pp.State == proc.Blocked && pp.WakeTick == 0 {
		k.q.Unblock(pp)
	}
}

// closeProcessFDs empties every descriptor slot with index three and up
// and releases any redirected standard slot, restoring it to the standard
// key.  This is the contract that keeps a dead process from pinning GDT
// entries and tombstoned files.
func (k *Kernel) closeProcessFDs(p *proc.PCB) {
	for i := range p.FDs {
		key := p.FDs[i]
		if key > wfs.KeyStderr && k.mounted() {
			if err := k.fs.Close(key); err != nil {
				k.lg.Warn("failed to close descriptor at exit",
					log.KV("pid", p.PID), log.KV("fd", i), log.KVErr(err))
			}
		}
		if i > wfs.KeyStderr {
			p.FDs[i] = proc.FDNone
		} else {
			p.FDs[i] = i
		}
	}
}

// reapZombie removes a ZOMBIE child from its parent, joins the thread, and
// frees the table slot.
func (k *Kernel) reapZombie(parent, c *proc.PCB) {
	if c.State != proc.Zombie {
		return
	}
	parent.Children.Remove(c)
	k.logEvent(event.Waited, c)
	c.Thr.Join()
	c.Parent = nil
	k.tbl.Clear(c.PID)
}

// killAll tears down every remaining process at shutdown: cancel each
// thread, null the parent back-references so nothing traverses a freed
// PCB, then clear the table.
func (k *Kernel) killAll() {
	k.tbl.ForEach(func(p *proc.PCB) {
		if p.Thr != nil {
			p.Thr.Cancel()
		}
	})
	k.tbl.ForEach(func(p *proc.PCB) {
		p.Parent = nil
		k.closeProcessFDs(p)
	})
	k.tbl.ForEach(func(p *proc.PCB) {
		k.tbl.Clear(p.PID)
	})
	k.initP = nil
	k.current = nil
}

func (k *Kernel) logEvent(ev string, p *proc.PCB) {
	k.evt.Append(event.Record{
		Tick:  k.tick,
		Event: ev,
		PID:   p.PID,
		PPID:  p.PPID,
		State: p.State.String(),
		Prio:  p.Prio,
		Cmd:   p.Cmd,
	})
}
