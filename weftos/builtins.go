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
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"

	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/kernel"
	"github.com/gravwell/weftos/wfs"
)

// builtins maps command names to process bodies.  Each runs as its own
// process with the shell's descriptor table, so redirection just works.
var builtins map[string]kernel.Entry

func init() {
	builtins = map[string]kernel.Entry{
		`ls`:    lsCmd,
		`touch`: touchCmd,
		`cat`:   catCmd,
		`chmod`: chmodCmd,
		`rm`:    rmCmd,
		`mv`:    mvCmd,
		`cp`:    cpCmd,
		`ps`:    psCmd,
		`kill`:  killCmd,
		`sleep`: sleepCmd,
		`busy`:  busyCmd,
		`echo`:  echoCmd,
	}
}

func uprintf(u *kernel.UProc, fd int, format string, args ...interface{}) {
	u.Write(fd, []byte(fmt.Sprintf(format, args...)))
}

func uperror(u *kernel.UProc, prefix string, err error) {
	uprintf(u, 2, "%s\n", errno.Perror(prefix, err))
}

func echoCmd(u *kernel.UProc, argv []string) {
	uprintf(u, 1, "%s\n", strings.Join(argv[1:], " "))
}

func lsCmd(u *kernel.UProc, argv []string) {
	ents, err := u.ReadDir()
	if err != nil {
		uperror(u, `ls`, err)
		return
	}
	for _, e := range ents {
		sz := bytesize.New(float64(e.Size))
		mt := time.Unix(e.MTime, 0).Format(`Jan _2 15:04`)
		uprintf(u, 1, "%s %8s %s %s\n", wfs.PermString(e.Perm), sz, mt, e.Name)
	}
}

func touchCmd(u *kernel.UProc, argv []string) {
	if len(argv) < 2 {
		uprintf(u, 2, "usage: touch FILE...\n")
		return
	}
	for _, name := range argv[1:] {
		fd, err := u.Open(name, wfs.FlagAppend)
		if err != nil {
			uperror(u, name, err)
			continue
		}
		u.Close(fd)
	}
}

// catCmd concatenates files to stdout, or into OUT with -w (truncate) or
// -a (append).
func catCmd(u *kernel.UProc, argv []string) {
	var files []string
	var out string
	var appendOut bool
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case `-w`, `-a`:
			if i+1 >= len(args) {
				uprintf(u, 2, "cat: %s requires a file\n", args[i])
				return
			}
			appendOut = args[i] == `-a`
			i++
			out = args[i]
		default:
			files = append(files, args[i])
		}
	}
	if len(files) == 0 {
		uprintf(u, 2, "cat: no input files\n")
		return
	}
	ofd := 1
	if out != `` {
		flag := wfs.FlagWrite
		if appendOut {
			flag = wfs.FlagAppend
		}
		fd, err := u.Open(out, flag)
		if err != nil {
			uperror(u, out, err)
			return
		}
		ofd = fd
		defer u.Close(fd)
	}
	buf := make([]byte, 1024)
	for _, name := range files {
		fd, err := u.Open(name, wfs.FlagRead)
		if err != nil {
			uperror(u, name, err)
			continue
		}
		for {
			n, err := u.Read(fd, buf)
			if n > 0 {
				u.Write(ofd, buf[:n])
			}
			if err != nil || n == 0 {
				break
			}
			u.Yield()
		}
		u.Close(fd)
	}
}

// chmodCmd applies +rwx, -rwx, or =rwx to each named file.
func chmodCmd(u *kernel.UProc, argv []string) {
	if len(argv) < 3 {
		uprintf(u, 2, "usage: chmod [+|-|=][rwx] FILE...\n")
		return
	}
	mode, err := parseChmod(argv[1])
	if err != nil {
		uperror(u, `chmod`, err)
		return
	}
	for _, name := range argv[2:] {
		if err := u.Chmod(name, mode); err != nil {
			uperror(u, name, err)
		}
	}
}

func parseChmod(s string) (byte, error) {
	if len(s) < 2 {
		return 0, errno.EINVAL
	}
	var mode byte
	switch s[0] {
	case '+':
		mode = wfs.ChmodAdd
	case '-':
		mode = wfs.ChmodRemove
	case '=':
		mode = wfs.ChmodAssign
	default:
		return 0, errno.EINVAL
	}
	for _, c := range s[1:] {
		switch c {
		case 'r':
			mode |= wfs.PermRead
		case 'w':
			mode |= wfs.PermWrite
		case 'x':
			mode |= wfs.PermExec
		default:
			return 0, errno.EINVAL
		}
	}
	return mode, nil
}

func rmCmd(u *kernel.UProc, argv []string) {
	if len(argv) < 2 {
		uprintf(u, 2, "usage: rm FILE...\n")
		return
	}
	for _, name := range argv[1:] {
		if err := u.Unlink(name); err != nil {
			uperror(u, name, err)
		}
	}
}

func mvCmd(u *kernel.UProc, argv []string) {
	if len(argv) != 3 {
		uprintf(u, 2, "usage: mv SRC DST\n")
		return
	}
	if err := u.Rename(argv[1], argv[2]); err != nil {
		uperror(u, `mv`, err)
	}
}

// cpCmd copies inside the filesystem, or from the host with -h.
func cpCmd(u *kernel.UProc, argv []string) {
	args := argv[1:]
	var host bool
	if len(args) > 0 && args[0] == `-h` {
		host = true
		args = args[1:]
	}
	if len(args) != 2 {
		uprintf(u, 2, "usage: cp [-h] SRC DST\n")
		return
	}
	src, dst := args[0], args[1]
	ofd, err := u.Open(dst, wfs.FlagWrite)
	if err != nil {
		uperror(u, dst, err)
		return
	}
	defer u.Close(ofd)
	if host {
		fin, err := os.Open(src)
		if err != nil {
			uperror(u, src, errno.ENOENT)
			return
		}
		defer fin.Close()
		buf := make([]byte, 1024)
		for {
			n, err := fin.Read(buf)
			if n > 0 {
				if _, werr := u.Write(ofd, buf[:n]); werr != nil {
					uperror(u, dst, werr)
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				uperror(u, src, errno.EIO)
				return
			}
			u.Yield()
		}
	}
	ifd, err := u.Open(src, wfs.FlagRead)
	if err != nil {
		uperror(u, src, err)
		return
	}
	defer u.Close(ifd)
	buf := make([]byte, 1024)
	for {
		n, err := u.Read(ifd, buf)
		if n > 0 {
			if _, werr := u.Write(ofd, buf[:n]); werr != nil {
				uperror(u, dst, werr)
				return
			}
		}
		if err != nil || n == 0 {
			return
		}
		u.Yield()
	}
}

func psCmd(u *kernel.UProc, argv []string) {
	uprintf(u, 1, "%5s %5s %4s %s %s\n", `PID`, `PPID`, `PRI`, `STAT`, `CMD`)
	for _, pi := range u.Ps() {
		uprintf(u, 1, "%5d %5d %4d    %c %s\n", pi.PID, pi.PPID, pi.Prio, pi.State.Letter(), pi.Cmd)
	}
}

func killCmd(u *kernel.UProc, argv []string) {
	sig := kernel.SigTerm
	args := argv[1:]
	if len(args) > 0 {
		switch args[0] {
		case `-term`:
			sig = kernel.SigTerm
			args = args[1:]
		case `-stop`:
			sig = kernel.SigStop
			args = args[1:]
		case `-cont`:
			sig = kernel.SigCont
			args = args[1:]
		}
	}
	if len(args) == 0 {
		uprintf(u, 2, "usage: kill [-term|-stop|-cont] PID...\n")
		return
	}
	for _, a := range args {
		pid, err := strconv.Atoi(a)
		if err != nil {
			uperror(u, a, errno.EINVAL)
			continue
		}
		if err := u.Kill(pid, sig); err != nil {
			uperror(u, a, err)
		}
	}
}

// sleepCmd sleeps N seconds of wall time expressed in ticks.
func sleepCmd(u *kernel.UProc, argv []string) {
	if len(argv) != 2 {
		uprintf(u, 2, "usage: sleep SECONDS\n")
		return
	}
	n, err := strconv.ParseUint(argv[1], 10, 32)
	if err != nil {
		uperror(u, `sleep`, errno.EINVAL)
		return
	}
	ticks := n * uint64(time.Second/u.TickInterval())
	if ticks == 0 {
		ticks = n
	}
	u.Sleep(ticks)
}

// busyCmd spins forever at its safe point; kill or stop it from another
// command.
func busyCmd(u *kernel.UProc, argv []string) {
	for {
		u.Yield()
	}
}

func printMan(w io.Writer) {
	fmt.Fprint(w, `commands:
  mkfs IMAGE FAT_BLOCKS BS_IDX   format a filesystem image
  mount IMAGE                    attach an image
  unmount                        detach the image
  ls                             list the root directory
  touch FILE...                  create files or bump mtimes
  cat FILE... [-w OUT|-a OUT]    concatenate files
  chmod [+|-|=][rwx] FILE...     change permissions
  rm FILE...                     remove files
  mv SRC DST                     rename a file
  cp [-h] SRC DST                copy a file (-h reads the host)
  ps                             list processes
  kill [-term|-stop|-cont] PID   signal a process
  nice PRIO CMD [ARGS...]        spawn at a priority
  nice_pid PRIO PID              change a priority
  sleep SECONDS                  block for a while
  busy                           spin until signalled
  echo [ARGS...]                 print arguments
  jobs | bg [ID] | fg [ID]       job control
  logout                         end the session
redirection: < IN, > OUT, >> OUT; trailing & runs in the background
`)
}
