/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Bowery/prompt"
	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/kernel"
)

const ps1 = `weftos> `

type jobState int

const (
	jobRunning jobState = iota
	jobStopped
)

type job struct {
	id    int
	pid   int
	line  string
	state jobState
}

type shell struct {
	lines     chan string
	promptReq chan struct{}
	jobs      []*job
	nextJob   int
	hist      *os.File
}

// shellEntry builds the interactive shell process body.  Host terminal
// reads happen on a helper goroutine so the shell can yield its slice
// while idle and background jobs keep running.
func shellEntry(cfg *cfgType) kernel.Entry {
	return func(u *kernel.UProc, argv []string) {
		s := &shell{
			lines:     make(chan string, 1),
			promptReq: make(chan struct{}, 1),
			nextJob:   1,
		}
		if cfg.Global.History_File != `` {
			s.hist, _ = os.OpenFile(cfg.Global.History_File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
			if s.hist != nil {
				defer s.hist.Close()
			}
		}
		go s.readLoop()
		u.SetForeground(u.PID())
		s.promptReq <- struct{}{}
		for {
			select {
			case line, ok := <-s.lines:
				if !ok {
					//EOF on the terminal behaves like logout
					return
				}
				s.execute(u, line)
				s.reapBackground(u)
				s.promptReq <- struct{}{}
			default:
				u.Yield()
				u.Sleep(1)
				s.reapBackground(u)
			}
		}
	}
}

func (s *shell) readLoop() {
	for range s.promptReq {
		line, err := prompt.Basic(ps1, false)
		if err != nil {
			close(s.lines)
			return
		}
		s.lines <- line
	}
}

func (s *shell) execute(u *kernel.UProc, line string) {
	cl, err := parseLine(line)
	if err != nil {
		if err != ErrEmptyLine {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		}
		return
	}
	if s.hist != nil {
		fmt.Fprintln(s.hist, line)
	}
	if s.runInternal(u, cl, line) {
		return
	}
	fn, ok := builtins[cl.argv[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %s: command not found\n", appName, cl.argv[0])
		return
	}
	s.launch(u, fn, cl, line, -1)
}

// launch spawns a builtin as a child process, foreground or background,
// optionally at a fixed priority.
func (s *shell) launch(u *kernel.UProc, fn kernel.Entry, cl *cmdLine, line string, prio int) {
	pid, err := u.Spawn(fn, cl.argv, cl.stdin, cl.stdout, cl.appendOut)
	if err != nil {
		fmt.Fprintln(os.Stderr, errno.Perror(cl.argv[0], err))
		return
	}
	if prio >= 0 {
		u.Nice(pid, prio)
	}
	if cl.bg {
		j := &job{id: s.nextJob, pid: pid, line: line, state: jobRunning}
		s.nextJob++
		s.jobs = append(s.jobs, j)
		fmt.Printf("[%d] %d\n", j.id, pid)
		return
	}
	s.waitForeground(u, pid, line)
}

// waitForeground owns the terminal while the child runs; a stop lands the
// child on the job list.
func (s *shell) waitForeground(u *kernel.UProc, pid int, line string) {
	u.SetForeground(pid)
	defer u.SetForeground(u.PID())
	for {
		wpid, status, err := u.Wait(pid, false)
		if err != nil {
			return
		}
		if wpid != pid {
			continue
		}
		if status&kernel.StatusStopped != 0 {
			j := &job{id: s.nextJob, pid: pid, line: line, state: jobStopped}
			s.nextJob++
			s.jobs = append(s.jobs, j)
			fmt.Printf("\n[%d] Stopped  %s\n", j.id, line)
		}
		return
	}
}

// reapBackground polls finished background jobs without hanging.
func (s *shell) reapBackground(u *kernel.UProc) {
	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if j.state != jobRunning {
			kept = append(kept, j)
			continue
		}
		wpid, status, err := u.Wait(j.pid, true)
		if err != nil || wpid == 0 {
			kept = append(kept, j)
			continue
		}
		if status&kernel.StatusStopped != 0 {
			j.state = jobStopped
			fmt.Printf("[%d] Stopped  %s\n", j.id, j.line)
			kept = append(kept, j)
			continue
		}
		fmt.Printf("[%d] Done  %s\n", j.id, j.line)
	}
	s.jobs = kept
}

func (s *shell) findJob(arg []string) *job {
	if len(s.jobs) == 0 {
		return nil
	}
	if len(arg) < 2 {
		return s.jobs[len(s.jobs)-1]
	}
	id, err := strconv.Atoi(arg[1])
	if err != nil {
		return nil
	}
	for _, j := range s.jobs {
		if j.id == id {
			return j
		}
	}
	return nil
}

func (s *shell) dropJob(j *job) {
	for i, v := range s.jobs {
		if v == j {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
}

// runInternal handles the commands that live inside the shell process:
// mount state, job control, priorities, and session control.
func (s *shell) runInternal(u *kernel.UProc, cl *cmdLine, line string) bool {
	switch cl.argv[0] {
	case `mkfs`:
		s.doMkfs(u, cl.argv)
	case `mount`:
		if len(cl.argv) != 2 {
			fmt.Fprintln(os.Stderr, "usage: mount IMAGE")
		} else if err := u.Mount(cl.argv[1]); err != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`mount`, err))
		}
	case `unmount`:
		if err := u.Unmount(); err != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`unmount`, err))
		}
	case `nice`:
		if len(cl.argv) < 3 {
			fmt.Fprintln(os.Stderr, "usage: nice PRIO CMD [ARGS...]")
			return true
		}
		prio, err := strconv.Atoi(cl.argv[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`nice`, errno.EINVAL))
			return true
		}
		sub := *cl
		sub.argv = cl.argv[2:]
		fn, ok := builtins[sub.argv[0]]
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: %s: command not found\n", appName, sub.argv[0])
			return true
		}
		s.launch(u, fn, &sub, line, prio)
	case `nice_pid`:
		if len(cl.argv) != 3 {
			fmt.Fprintln(os.Stderr, "usage: nice_pid PRIO PID")
			return true
		}
		prio, err1 := strconv.Atoi(cl.argv[1])
		pid, err2 := strconv.Atoi(cl.argv[2])
		if err1 != nil || err2 != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`nice_pid`, errno.EINVAL))
			return true
		}
		if err := u.Nice(pid, prio); err != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`nice_pid`, err))
		}
	case `jobs`:
		for _, j := range s.jobs {
			st := `Running`
			if j.state == jobStopped {
				st = `Stopped`
			}
			fmt.Printf("[%d] %s  %s\n", j.id, st, j.line)
		}
	case `bg`:
		j := s.findJob(cl.argv)
		if j == nil {
			fmt.Fprintln(os.Stderr, "bg: no such job")
			return true
		}
		if err := u.Kill(j.pid, kernel.SigCont); err != nil {
			fmt.Fprintln(os.Stderr, errno.Perror(`bg`, err))
			return true
		}
		j.state = jobRunning
		fmt.Printf("[%d] %s\n", j.id, j.line)
	case `fg`:
		j := s.findJob(cl.argv)
		if j == nil {
			fmt.Fprintln(os.Stderr, "fg: no such job")
			return true
		}
		if j.state == jobStopped {
			if err := u.Kill(j.pid, kernel.SigCont); err != nil {
				fmt.Fprintln(os.Stderr, errno.Perror(`fg`, err))
				return true
			}
			j.state = jobRunning
		}
		fmt.Printf("%s\n", j.line)
		pid := j.pid
		s.dropJob(j)
		s.waitForeground(u, pid, j.line)
	case `logout`:
		//exiting ends the shell process and init raises shutdown
		u.Exit()
	case `man`:
		printMan(os.Stdout)
	default:
		return false
	}
	return true
}

func (s *shell) doMkfs(u *kernel.UProc, argv []string) {
	if len(argv) != 4 {
		fmt.Fprintln(os.Stderr, "usage: mkfs IMAGE FAT_BLOCKS BLOCK_SIZE_INDEX")
		return
	}
	fatBlocks, err1 := strconv.Atoi(argv[2])
	bsIdx, err2 := strconv.Atoi(argv[3])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, errno.Perror(`mkfs`, errno.EINVAL))
		return
	}
	if err := u.Mkfs(argv[1], fatBlocks, bsIdx); err != nil {
		fmt.Fprintln(os.Stderr, errno.Perror(`mkfs`, err))
	}
}
