/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package proc

import (
	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/seq"
)

// Queues holds one ready sequence per priority and the single blocked
// sequence.  The scheduler is the only caller while a process runs, so no
// operation takes a lock.
type Queues struct {
	ready   [NumPrios]*seq.Seq[*PCB]
	blocked *seq.Seq[*PCB]
	evt     *event.Log
	tick    func() uint64
}

// NewQueues wires the queues to the event log and a tick source.
func NewQueues(evt *event.Log, tick func() uint64) *Queues {
	q := &Queues{
		blocked: seq.New[*PCB](),
		evt:     evt,
		tick:    tick,
	}
	for i := range q.ready {
		q.ready[i] = seq.New[*PCB]()
	}
	return q
}

func (q *Queues) log(ev string, p *PCB) {
	q.evt.Append(event.Record{
		Tick:  q.tick(),
		Event: ev,
		PID:   p.PID,
		PPID:  p.PPID,
		State: p.State.String(),
		Prio:  p.Prio,
		Cmd:   p.Cmd,
	})
}

// Enqueue appends p to the ready sequence for its priority.  Anything not
// READY, or with a garbage priority, is left alone.
func (q *Queues) Enqueue(p *PCB) {
	if p == nil || p.State != Ready || !ValidPrio(p.Prio) {
		return
	}
	q.ready[p.Prio].Push(p)
}

// Dequeue pops the head of the ready sequence for the given priority.
func (q *Queues) Dequeue(prio int) *PCB {
	if !ValidPrio(prio) {
		return nil
	}
	p, _ := q.ready[prio].PopFront()
	return p
}

// Block moves p to the blocked sequence.
func (q *Queues) Block(p *PCB) {
	p.State = Blocked
	if ValidPrio(p.Prio) {
		q.ready[p.Prio].Remove(p)
	}
	q.blocked.Push(p)
	q.log(event.Blocked, p)
}

// Unblock moves p back to READY and requeues it.
func (q *Queues) Unblock(p *PCB) {
	q.blocked.Remove(p)
	p.State = Ready
	q.Enqueue(p)
	q.log(event.Unblocked, p)
}

// Stop transitions p to STOPPED and pulls it out of every sequence.  A
// parent sitting in an indefinite wait is woken so it can observe the
// state change.
func (q *Queues) Stop(p *PCB) {
	p.State = Stopped
	p.StoppedReported = false
	if ValidPrio(p.Prio) {
		q.ready[p.Prio].Remove(p)
	}
	q.blocked.Remove(p)
	q.log(event.Stopped, p)
	if pp := p.Parent; pp != nil && pp.State == Blocked && pp.WakeTick == 0 {
		q.Unblock(pp)
	}
}

// Continue resumes a STOPPED process.
func (q *Queues) Continue(p *PCB) {
	if p.State != Stopped {
		return
	}
	p.State = Ready
	q.Enqueue(p)
	q.log(event.Continued, p)
}

// TickSleepCheck wakes every sleeper whose wake tick has arrived.
func (q *Queues) TickSleepCheck(now uint64) {
	//walk a snapshot, Unblock mutates the blocked sequence
	var wake []*PCB
	for i := 0; i < q.blocked.Len(); i++ {
		p, _ := q.blocked.At(i)
		if p != nil && p.WakeTick != 0 && p.WakeTick <= now {
			wake = append(wake, p)
		}
	}
	for _, p := range wake {
		p.WakeTick = 0
		q.Unblock(p)
	}
}

// SetPriority re-homes p between ready sequences when it is READY and
// records the change.
func (q *Queues) SetPriority(p *PCB, prio int) {
	if !ValidPrio(prio) || p.Prio == prio {
		return
	}
	old := p.Prio
	if p.State == Ready {
		q.ready[old].Remove(p)
	}
	p.Prio = prio
	if p.State == Ready {
		q.ready[prio].Push(p)
	}
	q.evt.AppendNice(q.tick(), p.PID, old, prio, p.Cmd)
}

// RemoveFromQueues drops p from every sequence, used on the way to ZOMBIE.
func (q *Queues) RemoveFromQueues(p *PCB) {
	if ValidPrio(p.Prio) {
		q.ready[p.Prio].Remove(p)
	}
	q.blocked.Remove(p)
}

// ReadyLen reports the population of one ready sequence.
func (q *Queues) ReadyLen(prio int) int {
	if !ValidPrio(prio) {
		return 0
	}
	return q.ready[prio].Len()
}

// BlockedContains reports whether p is in the blocked sequence.
func (q *Queues) BlockedContains(p *PCB) bool {
	return q.blocked.Contains(p)
}

// ReadyContains reports whether p is in the ready sequence for prio.
func (q *Queues) ReadyContains(prio int, p *PCB) bool {
	if !ValidPrio(prio) {
		return false
	}
	return q.ready[prio].Contains(p)
}
