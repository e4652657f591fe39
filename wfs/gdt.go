/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wfs

import (
	"github.com/gravwell/weftos/errno"
)

// FileFlag is the access mode of an open descriptor, exactly one per entry.
type FileFlag int

const (
	FlagRead FileFlag = iota
	FlagWrite
	FlagAppend
)

func (f FileFlag) Valid() bool {
	switch f {
	case FlagRead, FlagWrite, FlagAppend:
		return true
	}
	return false
}

func (f FileFlag) writable() bool {
	return f == FlagWrite || f == FlagAppend
}

func (f FileFlag) String() string {
	switch f {
	case FlagRead:
		return `read`
	case FlagWrite:
		return `write`
	case FlagAppend:
		return `append`
	}
	return `invalid`
}

// OpenFile is one GDT entry.  DirOff is the byte offset of the backing
// directory record and acts as the file's stable identity for the deferred
// delete bookkeeping; it is -1 for the standard streams.  Unlinked is set
// when the backing record is tombstoned, at which point the name no longer
// belongs to this entry.
type OpenFile struct {
	Name     string
	Size     uint32
	Perm     byte
	First    uint16
	DirOff   int64
	Cursor   int64
	Flag     FileFlag
	Unlinked bool
}

// gdtAlloc claims the first free descriptor above the standard streams.
func (fs *FS) gdtAlloc(of *OpenFile) (int, error) {
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if fs.gdt[key] == nil {
			fs.gdt[key] = of
			return key, nil
		}
	}
	return -1, errno.ETBLFULL
}

// gdtGet resolves a descriptor key to its entry.
func (fs *FS) gdtGet(key int) (*OpenFile, error) {
	if key < 0 || key >= MaxOpenFiles || fs.gdt[key] == nil {
		return nil, errno.EBADF
	}
	return fs.gdt[key], nil
}

// gdtRefs counts descriptors whose entry fingerprint matches dirOff,
// excluding the descriptor with key excl (pass a negative key to count
// them all).
func (fs *FS) gdtRefs(dirOff int64, excl int) (n int) {
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if key == excl {
			continue
		}
		if of := fs.gdt[key]; of != nil && of.DirOff == dirOff {
			n++
		}
	}
	return
}

// writerConflict reports whether a descriptor other than excl holds name
// with write or append access.  This is the single-writer rule; an entry
// whose record was unlinked no longer owns the name.
func (fs *FS) writerConflict(name string, excl int) bool {
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if key == excl {
			continue
		}
		if of := fs.gdt[key]; of != nil && !of.Unlinked && of.Name == name && of.Flag.writable() {
			return true
		}
	}
	return false
}

// OpenCount returns the number of live descriptors above the standard
// streams.
func (fs *FS) OpenCount() (n int) {
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if fs.gdt[key] != nil {
			n++
		}
	}
	return
}
