/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wfs

import (
	"bytes"
	"encoding/binary"

	"github.com/gravwell/weftos/errno"
)

const (
	DirEntSize = 64
	MaxNameLen = 31 //name field is 32 bytes with a terminator

	TypeRegular byte = 1
	TypeDir     byte = 2

	PermRead  byte = 0x4
	PermWrite byte = 0x2
	PermExec  byte = 0x1

	//chmod operation selector bits, low three bits carry the rwx mask
	ChmodAdd    byte = 0x80
	ChmodRemove byte = 0x40
	ChmodAssign byte = 0x20
)

// EntStatus classifies a directory entry by the first byte of its name
// field.  Anything outside the three reserved values is a live name byte.
type EntStatus byte

const (
	EntEnd       EntStatus = 0 //end of directory, scan stops here
	EntFree      EntStatus = 1 //deleted, slot is reusable
	EntTombstone EntStatus = 2 //deleted but still held open by a descriptor
	EntActive    EntStatus = 3
)

// DirEnt is one fixed-size on-disk directory record.
type DirEnt struct {
	Status EntStatus
	Name   string
	Size   uint32
	First  uint16
	Type   byte
	Perm   byte
	MTime  int64
}

func checkName(name string) error {
	if len(name) == 0 {
		return errno.EINVAL
	}
	if len(name) > MaxNameLen {
		return errno.ENAMETOOLONG
	}
	//a leading byte in the reserved status range would corrupt the scan
	if name[0] < 3 {
		return errno.EINVAL
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 || name[i] == '/' {
			return errno.EINVAL
		}
	}
	return nil
}

func decodeDirEnt(b []byte) (ent DirEnt) {
	nm := b[:32]
	switch nm[0] {
	case byte(EntEnd):
		ent.Status = EntEnd
		ent.Name = cstring(nm[1:])
	case byte(EntFree):
		ent.Status = EntFree
		ent.Name = cstring(nm[1:])
	case byte(EntTombstone):
		ent.Status = EntTombstone
		ent.Name = cstring(nm[1:])
	default:
		ent.Status = EntActive
		ent.Name = cstring(nm)
	}
	ent.Size = binary.LittleEndian.Uint32(b[32:])
	ent.First = binary.LittleEndian.Uint16(b[36:])
	ent.Type = b[38]
	ent.Perm = b[39]
	ent.MTime = int64(binary.LittleEndian.Uint64(b[40:]))
	return
}

func encodeDirEnt(ent DirEnt) []byte {
	b := make([]byte, DirEntSize)
	if ent.Status == EntActive {
		copy(b[:32], ent.Name)
	} else {
		b[0] = byte(ent.Status)
		copy(b[1:32], ent.Name)
	}
	binary.LittleEndian.PutUint32(b[32:], ent.Size)
	binary.LittleEndian.PutUint16(b[36:], ent.First)
	b[38] = ent.Type
	b[39] = ent.Perm
	binary.LittleEndian.PutUint64(b[40:], uint64(ent.MTime))
	return b
}

func cstring(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return string(b)
}

// readEnt reads the directory entry at the given byte offset of the
// backing file.
func (fs *FS) readEnt(off int64) (ent DirEnt, err error) {
	buf := make([]byte, DirEntSize)
	if _, err = fs.f.ReadAt(buf, off); err != nil {
		err = errno.EIO
		return
	}
	ent = decodeDirEnt(buf)
	return
}

// writeEnt persists the directory entry at the given byte offset.
func (fs *FS) writeEnt(off int64, ent DirEnt) error {
	if _, err := fs.f.WriteAt(encodeDirEnt(ent), off); err != nil {
		return errno.EIO
	}
	return nil
}

// PermString renders rwx permission bits the way ls shows them.
func PermString(p byte) string {
	b := []byte{'-', '-', '-'}
	if p&PermRead != 0 {
		b[0] = 'r'
	}
	if p&PermWrite != 0 {
		b[1] = 'w'
	}
	if p&PermExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}
