/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/kernel/proc"
	"github.com/gravwell/weftos/log"
)

// schedule is the fixed pick sequence over priority levels.  The per-level
// occurrence counts realize the 9:6:4 weighting across its 19 slots; a
// rotating cursor walks it and skips levels with an empty ready sequence.
var schedule = [...]int{
	proc.PrioHigh, proc.PrioMid, proc.PrioHigh, proc.PrioMid, proc.PrioLow,
	proc.PrioHigh, proc.PrioMid, proc.PrioHigh, proc.PrioLow,
	proc.PrioHigh, proc.PrioMid, proc.PrioHigh, proc.PrioLow,
	proc.PrioHigh, proc.PrioMid, proc.PrioHigh, proc.PrioLow,
	proc.PrioHigh, proc.PrioMid,
}

// pick advances the schedule cursor to the next level with a runnable
// process and dequeues its head.  Nil means every ready sequence is empty
// and the scheduler should idle.
func (k *Kernel) pick() *proc.PCB {
	var populated bool
	for lvl := 0; lvl < proc.NumPrios; lvl++ {
		if k.q.ReadyLen(lvl) > 0 {
			populated = true
			break
		}
	}
	if !populated {
		return nil
	}
	for {
		lvl := schedule[k.cursor%len(schedule)]
		k.cursor++
		if k.q.ReadyLen(lvl) > 0 {
			return k.q.Dequeue(lvl)
		}
	}
}

// Run is the scheduler loop.  It installs the host signal relay and the
// periodic preemption timer, then alternates user threads one slice at a
// time until the shutdown flag is raised, at which point every remaining
// process is torn down.
func (k *Kernel) Run() {
	signal.Notify(k.sigch, syscall.SIGINT, syscall.SIGTSTP, syscall.SIGQUIT)
	defer signal.Stop(k.sigch)
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		k.drainHostSignals()
		if k.shutdown {
			break
		}
		p := k.pick()
		if p == nil {
			//nothing runnable, sleep until any signal arrives
			select {
			case <-ticker.C:
			case sig := <-k.sigch:
				k.relayHostSignal(sig)
			}
			k.q.TickSleepCheck(k.tick)
			k.tick++
			continue
		}
		p.State = proc.Running
		k.current = p
		k.logEvent(event.Schedule, p)
		p.Thr.Continue()
		<-ticker.C
		p.Thr.RequestSuspend()
		p.Thr.WaitParked()
		k.q.TickSleepCheck(k.tick)
		if p.State == proc.Running {
			p.State = proc.Ready
			k.q.Enqueue(p)
		}
		k.current = nil
		k.tick++
	}
	k.killAll()
	k.lg.Info("scheduler stopped", log.KV("tick", k.tick))
}
