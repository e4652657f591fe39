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

	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/kernel/proc"
	"github.com/gravwell/weftos/wfs"
)

// Mkfs formats a fresh filesystem image.  Refused while one is mounted.
func (u *UProc) Mkfs(path string, fatBlocks, bsIdx int) error {
	if u.k.mounted() {
		return errno.EINUSE
	}
	return wfs.Mkfs(path, fatBlocks, bsIdx)
}

// Mount attaches the filesystem inside the backing file at path.
func (u *UProc) Mount(path string) error {
	if u.k.mounted() {
		return errno.EINUSE
	}
	fs, err := wfs.Mount(path, u.k.lg)
	if err != nil {
		return err
	}
	u.k.fs = fs
	return nil
}

// Unmount detaches the current filesystem.  Descriptors still held by
// processes go stale; their slots are cleaned at each exit.
func (u *UProc) Unmount() error {
	if !u.k.mounted() {
		return errno.ENOTMOUNT
	}
	err := u.k.fs.Unmount()
	u.k.fs = nil
	return err
}

// Open resolves name into a fresh descriptor slot at index three or
// above.
func (u *UProc) Open(name string, flag wfs.FileFlag) (int, error) {
	if !u.k.mounted() {
		return -1, errno.ENOTMOUNT
	}
	slot := -1
	for i := 3; i < proc.FDTableSize; i++ {
		if u.p.FDs[i] == proc.FDNone {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, errno.EMFILE
	}
	key, err := u.k.fs.Open(name, flag)
	if err != nil {
		return -1, err
	}
	u.p.FDs[slot] = key
	return slot, nil
}

func (u *UProc) resolve(fd int) (int, error) {
	if fd < 0 || fd >= proc.FDTableSize || u.p.FDs[fd] == proc.FDNone {
		return -1, errno.EBADF
	}
	return u.p.FDs[fd], nil
}

// Read fills buf from the descriptor.  The standard input descriptor
// falls back to the host terminal when nothing is mounted, so the shell
// stays usable between mounts.
func (u *UProc) Read(fd int, buf []byte) (int, error) {
	key, err := u.resolve(fd)
	if err != nil {
		return -1, err
	}
	if key <= wfs.KeyStderr && !u.k.mounted() {
		if key == wfs.KeyStdin {
			return os.Stdin.Read(buf)
		}
		return -1, errno.EBADF
	}
	if !u.k.mounted() {
		return -1, errno.ENOTMOUNT
	}
	return u.k.fs.Read(key, buf)
}

// Write pushes buf through the descriptor, with the same host terminal
// fallback for the standard streams.
func (u *UProc) Write(fd int, buf []byte) (int, error) {
	key, err := u.resolve(fd)
	if err != nil {
		return -1, err
	}
	if key <= wfs.KeyStderr && !u.k.mounted() {
		switch key {
		case wfs.KeyStdout:
			return os.Stdout.Write(buf)
		case wfs.KeyStderr:
			return os.Stderr.Write(buf)
		}
		return -1, errno.EBADF
	}
	if !u.k.mounted() {
		return -1, errno.ENOTMOUNT
	}
	return u.k.fs.Write(key, buf)
}

// Close frees the descriptor slot; the GDT entry of a standard stream is
// left alone.
func (u *UProc) Close(fd int) error {
	key, err := u.resolve(fd)
	if err != nil {
		return err
	}
	u.p.FDs[fd] = proc.FDNone
	if key <= wfs.KeyStderr || !u.k.mounted() {
		return nil
	}
	return u.k.fs.Close(key)
}

// Seek repositions a descriptor cursor.
func (u *UProc) Seek(fd int, offset int64, whence int) (int64, error) {
	key, err := u.resolve(fd)
	if err != nil {
		return -1, err
	}
	if !u.k.mounted() {
		return -1, errno.ENOTMOUNT
	}
	return u.k.fs.Seek(key, offset, whence)
}

// Unlink removes a name under the deferred-delete rules.
func (u *UProc) Unlink(name string) error {
	if !u.k.mounted() {
		return errno.ENOTMOUNT
	}
	return u.k.fs.Unlink(name)
}

// Chmod applies a permission operation word to name.
func (u *UProc) Chmod(name string, mode byte) error {
	if !u.k.mounted() {
		return errno.ENOTMOUNT
	}
	return u.k.fs.Chmod(name, mode)
}

// Rename repoints dst at src's record without moving data.
func (u *UProc) Rename(src, dst string) error {
	if !u.k.mounted() {
		return errno.ENOTMOUNT
	}
	return u.k.fs.Rename(src, dst)
}

// ReadDir lists the active entries of the root directory.
func (u *UProc) ReadDir() ([]wfs.DirEnt, error) {
	if !u.k.mounted() {
		return nil, errno.ENOTMOUNT
	}
	return u.k.fs.ReadDir()
}

// Stat looks up a single directory entry.
func (u *UProc) Stat(name string) (wfs.DirEnt, error) {
	if !u.k.mounted() {
		return wfs.DirEnt{}, errno.ENOTMOUNT
	}
	return u.k.fs.Stat(name)
}

// Mounted reports whether a filesystem is attached.
func (u *UProc) Mounted() bool {
	return u.k.mounted()
}
