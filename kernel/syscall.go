/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"runtime"
	"time"

	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/kernel/event"
	"github.com/gravwell/weftos/kernel/proc"
	"github.com/gravwell/weftos/wfs"
)

// Wait status word bits.
const (
	StatusExited   = 0x1
	StatusSignaled = 0x2
	StatusStopped  = 0x4
)

// UProc is the syscall handle a process body receives; every syscall runs
// on the process's own thread.
type UProc struct {
	k *Kernel
	p *proc.PCB
}

func (u *UProc) PID() int {
	return u.p.PID
}

func (u *UProc) PPID() int {
	return u.p.PPID
}

// Tick returns the current scheduler tick.
func (u *UProc) Tick() uint64 {
	return u.k.tick
}

// TickInterval returns the wall time of one slice, so callers can convert
// seconds to ticks.
func (u *UProc) TickInterval() time.Duration {
	return u.k.interval
}

// Yield is the cooperative safe point; compute loops must call it so
// preemption can land.
func (u *UProc) Yield() {
	u.p.Thr.Yield()
}

// SetForeground hands terminal signal ownership to pid.
func (u *UProc) SetForeground(pid int) {
	u.k.fgPID = pid
}

func (u *UProc) Foreground() int {
	return u.k.fgPID
}

// Spawn creates a child process running fn with a deep-copied argv.  The
// child inherits the parent's descriptor table; non-empty redirection
// paths are opened inside the child by a wrapper before fn runs.
func (u *UProc) Spawn(fn Entry, argv []string, stdinPath, stdoutPath string, appendOut bool) (int, error) {
	if len(argv) == 0 || fn == nil {
		return -1, errno.EINVAL
	}
	if len(argv) > proc.MaxArgs {
		return -1, errno.E2BIG
	}
	child, err := u.k.createProcess(u.p, argv[0], argv)
	if err != nil {
		return -1, err
	}
	if stdinPath == `` && stdoutPath == `` {
		u.k.startProcess(child, fn)
		return child.PID, nil
	}
	u.k.startProcess(child, func(cu *UProc, cargv []string) {
		if !cu.applyRedirect(stdinPath, stdoutPath, appendOut) {
			return //applyRedirect reported, fall through to exit
		}
		fn(cu, cargv)
	})
	return child.PID, nil
}

// applyRedirect runs inside the child: open stdout first, then stdin, and
// swing descriptor slots 1 and 0 onto the new keys.  Any failure restores
// the touched slots, reports on the child's stderr, and leaves the child
// to exit without running its body.
func (u *UProc) applyRedirect(stdinPath, stdoutPath string, appendOut bool) bool {
	if appendOut && stdinPath != `` && stdinPath == stdoutPath {
		u.reportErr(`redirect`, errno.EINVAL)
		return false
	}
	saved1 := u.p.FDs[1]
	if stdoutPath != `` {
		flag := wfs.FlagWrite
		if appendOut {
			flag = wfs.FlagAppend
		}
		fd, err := u.Open(stdoutPath, flag)
		if err != nil {
			u.reportErr(stdoutPath, err)
			return false
		}
		//move the key into the standard slot and clear the source slot
		u.p.FDs[1] = u.p.FDs[fd]
		u.p.FDs[fd] = proc.FDNone
	}
	if stdinPath != `` {
		fd, err := u.Open(stdinPath, wfs.FlagRead)
		if err != nil {
			if u.p.FDs[1] != saved1 {
				u.k.fs.Close(u.p.FDs[1])
				u.p.FDs[1] = saved1
			}
			u.reportErr(stdinPath, err)
			return false
		}
		u.p.FDs[0] = u.p.FDs[fd]
		u.p.FDs[fd] = proc.FDNone
	}
	return true
}

// Wait scans the caller's children for a ZOMBIE to reap or an unreported
// STOPPED child.  pid <= 0 matches any child.  The returned status word
// carries the EXITED, SIGNALED, or STOPPED bit.  Without nohang the caller
// blocks indefinitely until a child changes state.
func (u *UProc) Wait(pid int, nohang bool) (int, int, error) {
	p := u.p
	for {
		if p.Children.Len() == 0 {
			return -1, 0, errno.ECHILD
		}
		var zombie, stopped *proc.PCB
		var found bool
		for i := 0; i < p.Children.Len(); i++ {
			c, _ := p.Children.At(i)
			if pid > 0 && c.PID != pid {
				continue
			}
			found = true
			if zombie == nil && c.State == proc.Zombie {
				zombie = c
			}
			if stopped == nil && c.State == proc.Stopped && !c.StoppedReported {
				stopped = c
			}
		}
		if !found {
			return -1, 0, errno.ECHILD
		}
		if zombie != nil {
			st := StatusExited
			if zombie.Exit == proc.ExitSignaled {
				st = StatusSignaled
			}
			cpid := zombie.PID
			u.k.reapZombie(p, zombie)
			return cpid, st, nil
		}
		if stopped != nil {
			stopped.StoppedReported = true
			return stopped.PID, StatusStopped, nil
		}
		if nohang {
			return 0, 0, nil
		}
		p.WakeTick = 0
		u.k.q.Block(p)
		p.Thr.Park()
	}
}

// Kill translates a signal number and delivers it.  Init is not killable.
func (u *UProc) Kill(pid int, sig Signal) error {
	if !sig.Valid() {
		return errno.EINVAL
	}
	if pid == InitPID {
		return errno.EPERM
	}
	p := u.k.tbl.Get(pid)
	if p == nil {
		return errno.ESRCH
	}
	u.k.deliver(p, sig)
	return nil
}

// Exit ends the calling process with a normal exit status.  It never
// returns: terminate runs on the caller's own thread and the goroutine
// exits.
func (u *UProc) Exit() {
	p := u.p
	if p.State == proc.Zombie {
		runtime.Goexit()
	}
	p.Exit = proc.ExitNormal
	u.k.logEvent(event.Exited, p)
	u.k.terminate(p)
	runtime.Goexit()
}

// Nice moves a process between priority levels.
func (u *UProc) Nice(pid, prio int) error {
	if !proc.ValidPrio(prio) {
		return errno.EINVAL
	}
	p := u.k.tbl.Get(pid)
	if p == nil || p.State == proc.Zombie {
		return errno.ESRCH
	}
	u.k.q.SetPriority(p, prio)
	return nil
}

// Sleep blocks the caller for the given number of ticks.  A premature
// wake, from a stop and continue cycle, re-enters the sleep until the
// deadline tick has passed.
func (u *UProc) Sleep(ticks uint64) {
	if ticks == 0 {
		return
	}
	p := u.p
	deadline := u.k.tick + ticks
	for u.k.tick < deadline {
		p.WakeTick = deadline
		u.k.q.Block(p)
		p.Thr.Park()
	}
	p.WakeTick = 0
}

// Shutdown raises the kernel shutdown flag; the scheduler exits at the top
// of its next iteration.
func (u *UProc) Shutdown() {
	u.k.shutdown = true
}

// PsInfo is one row of the process snapshot.
type PsInfo struct {
	PID   int
	PPID  int
	Prio  int
	State proc.State
	Cmd   string
}

// Ps snapshots the PCB table in PID order.
func (u *UProc) Ps() (out []PsInfo) {
	u.k.tbl.ForEach(func(p *proc.PCB) {
		out = append(out, PsInfo{
			PID:   p.PID,
			PPID:  p.PPID,
			Prio:  p.Prio,
			State: p.State,
			Cmd:   p.Cmd,
		})
	})
	return
}

// reportErr writes a perror-style line to the process's stderr descriptor.
func (u *UProc) reportErr(prefix string, err error) {
	u.Write(2, []byte(errno.Perror(prefix, err)+"\n"))
}
