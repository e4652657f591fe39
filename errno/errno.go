/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package errno defines the single error kind enumeration shared by the
// filesystem, the process kernel, and the syscall surface.  Every kernel
// failure is ultimately one of these kinds; subsystems wrap them with
// additional context but callers classify with errors.Is.
package errno

// Errno is a kernel failure kind.  It implements error directly so that a
// bare kind can be returned where no extra context is useful.
type Errno int

const (
	EPERM       Errno = iota + 1 //operation not permitted
	EINVAL                       //invalid argument
	ENOMEM                       //out of memory
	ESRCH                        //no such process
	ECHILD                       //no child processes
	EBADF                        //bad file descriptor
	EIO                          //I/O error
	ENOSPC                       //no space left on device
	EROFS                        //read-only filesystem
	ENOTMOUNT                    //filesystem not mounted
	ETBLFULL                     //kernel table full
	EINUSE                       //file is in use
	EACCES                       //permission denied
	EMFILE                       //too many open files
	ENOENT                       //no such file
	EEXIST                       //file exists
	EISDIR                       //is a directory
	ENAMETOOLONG                 //name too long
	E2BIG                        //argument list too long
	ETHREAD                      //thread creation failed
)

var errStrings = map[Errno]string{
	EPERM:        `operation not permitted`,
	EINVAL:       `invalid argument`,
	ENOMEM:       `out of memory`,
	ESRCH:        `no such process`,
	ECHILD:       `no child processes`,
	EBADF:        `bad file descriptor`,
	EIO:          `input/output error`,
	ENOSPC:       `no space left on device`,
	EROFS:        `read-only filesystem`,
	ENOTMOUNT:    `filesystem not mounted`,
	ETBLFULL:     `kernel table full`,
	EINUSE:       `file is in use`,
	EACCES:       `permission denied`,
	EMFILE:       `too many open files`,
	ENOENT:       `no such file`,
	EEXIST:       `file exists`,
	EISDIR:       `is a directory`,
	ENAMETOOLONG: `name too long`,
	E2BIG:        `argument list too long`,
	ETHREAD:      `thread creation failed`,
}

func (e Errno) Error() string {
	if s, ok := errStrings[e]; ok {
		return s
	}
	return `unknown error`
}

func (e Errno) Valid() bool {
	_, ok := errStrings[e]
	return ok
}

// Perror returns the perror-style string for err, which may be a bare Errno
// or anything wrapping one.
func Perror(prefix string, err error) string {
	if prefix == `` {
		return err.Error()
	}
	return prefix + `: ` + err.Error()
}
