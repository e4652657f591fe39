/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"os"
	"syscall"

	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/kernel/proc"
)

// Signal is a kernel signal.  The numbering is the syscall-surface
// encoding: 0 terminates, 1 stops, 2 continues.
type Signal int

const (
	SigTerm Signal = 0
	SigStop Signal = 1
	SigCont Signal = 2
	SigChld Signal = 3
)

func (s Signal) Valid() bool {
	return s >= SigTerm && s <= SigChld
}

// deliver applies a kernel signal to a PCB.  ZOMBIEs ignore everything;
// cont only acts on a STOPPED process; the child-state-change signal is
// surfaced through wait and carries no action here.
func (k *Kernel) deliver(p *proc.PCB, s Signal) {
	switch s {
	case SigTerm:
		if p.State == proc.Zombie {
			return
		}
		p.Exit = proc.ExitSignaled
		k.logEvent(event.Signaled, p)
		k.terminate(p)
	case SigStop:
		if p.State == proc.Zombie || p.State == proc.Stopped {
			return
		}
		k.q.Stop(p)
	case SigCont:
		k.q.Continue(p)
	case SigChld:
	}
}

// drainHostSignals empties the host signal channel, mapping interrupt and
// terminal-stop onto the foreground process and terminal-quit onto the
// shutdown flag.  Nothing is delivered when the foreground id is unset or
// names init.
func (k *Kernel) drainHostSignals() {
	for {
		select {
		case sig := <-k.sigch:
			k.relayHostSignal(sig)
		default:
			return
		}
	}
}

func (k *Kernel) relayHostSignal(sig os.Signal) {
	if sig == syscall.SIGQUIT {
		k.shutdown = true
		return
	}
	if k.fgPID <= InitPID {
		return
	}
	p := k.tbl.Get(k.fgPID)
	if p == nil {
		return
	}
	switch sig {
	case syscall.SIGINT:
		k.deliver(p, SigTerm)
	case syscall.SIGTSTP:
		k.deliver(p, SigStop)
	}
}
