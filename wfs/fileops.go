/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wfs

import (
	"time"

	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/log"
)

const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Open resolves name against the root directory and produces a new GDT
// descriptor.  READ requires an existing readable regular file.  WRITE
// creates or truncates.  APPEND creates or positions the cursor at the
// current size.  A failed open leaves the GDT, FAT, and directory
// untouched.
func (fs *FS) Open(name string, flag FileFlag) (int, error) {
	if !fs.Mounted() {
		return -1, errno.ENOTMOUNT
	}
	if !flag.Valid() {
		return -1, errno.EINVAL
	}
	if err := checkName(name); err != nil {
		return -1, err
	}
	found, off, ent, freeOff, err := fs.findFile(name)
	if err != nil {
		return -1, err
	}
	of := &OpenFile{Name: name, Flag: flag}
	key, err := fs.gdtAlloc(of)
	if err != nil {
		return -1, err
	}
	if flag.writable() && fs.writerConflict(name, key) {
		fs.gdt[key] = nil
		return -1, errno.EINUSE
	}
	if err = fs.openResolve(of, flag, found, off, ent, freeOff); err != nil {
		fs.gdt[key] = nil
		return -1, err
	}
	fs.lg.Debug("file opened", log.KV("name", name), log.KV("mode", flag), log.KV("key", key))
	return key, nil
}

func (fs *FS) openResolve(of *OpenFile, flag FileFlag, found bool, off int64, ent DirEnt, freeOff int64) error {
	if flag == FlagRead {
		if !found {
			return errno.ENOENT
		}
		if ent.Type != TypeRegular {
			return errno.EISDIR
		}
		if ent.Perm&PermRead == 0 {
			return errno.EACCES
		}
		of.Size = ent.Size
		of.Perm = ent.Perm
		of.First = ent.First
		of.DirOff = off
		return nil
	}
	//write or append
	if !found {
		noff, nent, err := fs.createEnt(of.Name, freeOff)
		if err != nil {
			return err
		}
		of.Size = 0
		of.Perm = nent.Perm
		of.First = 0
		of.DirOff = noff
		return nil
	}
	if ent.Type != TypeRegular {
		return errno.EISDIR
	}
	if ent.Perm&PermWrite == 0 {
		return errno.EACCES
	}
	if flag == FlagWrite && ent.Size > 0 {
		//truncate in place
		if ent.First != 0 {
			fs.freeChain(ent.First)
		}
		ent.Size = 0
		ent.First = 0
		ent.MTime = time.Now().Unix()
		if err := fs.writeEnt(off, ent); err != nil {
			return err
		}
	}
	of.Size = ent.Size
	of.Perm = ent.Perm
	of.First = ent.First
	of.DirOff = off
	if flag == FlagAppend {
		of.Cursor = int64(ent.Size)
	}
	return nil
}

// createEnt writes a fresh regular-file record into the first reusable
// slot, extending the root directory chain when it is packed full.
func (fs *FS) createEnt(name string, freeOff int64) (int64, DirEnt, error) {
	var err error
	if freeOff < 0 {
		if freeOff, err = fs.extendRoot(); err != nil {
			return 0, DirEnt{}, err
		}
	}
	ent := DirEnt{
		Status: EntActive,
		Name:   name,
		Type:   TypeRegular,
		Perm:   PermRead | PermWrite,
		MTime:  time.Now().Unix(),
	}
	if err = fs.writeEnt(freeOff, ent); err != nil {
		return 0, DirEnt{}, err
	}
	return freeOff, ent, nil
}

// Read copies up to len(buf) bytes from the descriptor's cursor.  A cursor
// at or past the cached size reads zero bytes; a chain shorter than the
// cursor implies is a corrupt file and fails.
func (fs *FS) Read(key int, buf []byte) (int, error) {
	if !fs.Mounted() {
		return -1, errno.ENOTMOUNT
	}
	of, err := fs.gdtGet(key)
	if err != nil {
		return -1, err
	}
	if of.DirOff < 0 {
		if key != KeyStdin {
			return -1, errno.EBADF
		}
		return fs.stdin.Read(buf)
	}
	if of.Cursor >= int64(of.Size) || len(buf) == 0 {
		return 0, nil
	}
	n := int64(len(buf))
	if rem := int64(of.Size) - of.Cursor; n > rem {
		n = rem
	}
	bs := int64(fs.blockSize)
	blk, ok := fs.walkChain(of.First, of.Cursor/bs)
	if !ok {
		return -1, errno.EINVAL
	}
	var total int64
	for total < n {
		off := (of.Cursor + total) % bs
		m := n - total
		if m > bs-off {
			m = bs - off
		}
		rn, rerr := fs.readBlockAt(blk, off, buf[total:total+m])
		total += int64(rn)
		if rerr != nil || int64(rn) < m {
			break
		}
		if total < n {
			nxt := fs.fatGet(blk)
			if nxt == endChain || nxt == freeBlock {
				break
			}
			blk = nxt
		}
	}
	of.Cursor += total
	return int(total), nil
}

// Write copies buf at the descriptor's cursor, allocating and splicing
// blocks as the chain grows.  When the disk fills mid-write the byte count
// written so far is returned; a write that cannot place a single byte
// fails with no-space.
func (fs *FS) Write(key int, buf []byte) (int, error) {
	if !fs.Mounted() {
		return -1, errno.ENOTMOUNT
	}
	of, err := fs.gdtGet(key)
	if err != nil {
		return -1, err
	}
	if of.DirOff < 0 {
		switch key {
		case KeyStdout:
			return fs.stdout.Write(buf)
		case KeyStderr:
			return fs.stderr.Write(buf)
		}
		return -1, errno.EBADF
	}
	if !of.Flag.writable() {
		return -1, errno.EBADF
	}
	if len(buf) == 0 {
		return 0, nil
	}
	bs := int64(fs.blockSize)
	var written int64
	var nospace bool
	for written < int64(len(buf)) {
		cursor := of.Cursor + written
		blk, ok := fs.blockFor(of, cursor/bs)
		if !ok {
			nospace = true
			break
		}
		off := cursor % bs
		m := int64(len(buf)) - written
		if m > bs-off {
			m = bs - off
		}
		if _, werr := fs.writeBlockAt(blk, off, buf[written:written+m]); werr != nil {
			if written == 0 {
				return -1, errno.EIO
			}
			break
		}
		written += m
	}
	if written == 0 && nospace {
		return -1, errno.ENOSPC
	}
	of.Cursor += written
	if of.Cursor > int64(of.Size) {
		of.Size = uint32(of.Cursor)
		if err = fs.persistEnt(of); err != nil {
			return int(written), err
		}
	}
	return int(written), nil
}

// blockFor returns the data block holding block index idx of the file,
// growing the chain with zeroed blocks until idx exists.  A seek far past
// the end of the chain therefore materializes zero-filled blocks on the
// next write.
func (fs *FS) blockFor(of *OpenFile, idx int64) (uint16, bool) {
	if of.First == 0 {
		nb := fs.allocBlock(of, 0)
		if nb == 0 {
			return 0, false
		}
	}
	cur := of.First
	for i := int64(0); i < idx; i++ {
		nxt := fs.fatGet(cur)
		if nxt == endChain || nxt == freeBlock {
			nb := fs.allocBlock(of, cur)
			if nb == 0 {
				return 0, false
			}
			nxt = nb
		}
		cur = nxt
	}
	return cur, true
}

// allocBlock claims, zeroes, and splices one new block onto the chain.
// prev of zero means the file has no data yet; the new block becomes the
// first block and the directory record is persisted immediately.
func (fs *FS) allocBlock(of *OpenFile, prev uint16) uint16 {
	nb := fs.findFreeBlock()
	if nb == 0 {
		return 0
	}
	if err := fs.zeroBlock(nb); err != nil {
		return 0
	}
	fs.fatSet(nb, endChain)
	if prev == 0 {
		of.First = nb
		if err := fs.persistEnt(of); err != nil {
			fs.fatSet(nb, freeBlock)
			of.First = 0
			return 0
		}
	} else {
		fs.fatSet(prev, nb)
	}
	fs.syncFAT()
	return nb
}

// persistEnt writes the descriptor's cached size, first block, and a fresh
// mtime through to the backing directory record, preserving its status.
func (fs *FS) persistEnt(of *OpenFile) error {
	ent, err := fs.readEnt(of.DirOff)
	if err != nil {
		return err
	}
	ent.Size = of.Size
	ent.First = of.First
	ent.MTime = time.Now().Unix()
	return fs.writeEnt(of.DirOff, ent)
}

// Close releases a descriptor.  Writable descriptors flush their cached
// size and mtime.  A descriptor that was the last reference to a
// tombstoned record frees the chain and marks the slot reusable.
func (fs *FS) Close(key int) error {
	if !fs.Mounted() {
		return errno.ENOTMOUNT
	}
	of, err := fs.gdtGet(key)
	if err != nil {
		return err
	}
	if of.DirOff < 0 {
		//standard streams are never torn down by a process-level close
		return nil
	}
	ent, err := fs.readEnt(of.DirOff)
	if err != nil {
		return err
	}
	if of.Flag.writable() {
		ent.Size = of.Size
		ent.First = of.First
		ent.MTime = time.Now().Unix()
	}
	if ent.Status == EntTombstone && fs.gdtRefs(of.DirOff, key) == 0 {
		if ent.First != 0 {
			fs.freeChain(ent.First)
		}
		ent.Status = EntFree
		ent.Size = 0
		ent.First = 0
	}
	if err = fs.writeEnt(of.DirOff, ent); err != nil {
		return err
	}
	fs.gdt[key] = nil
	return nil
}

// Unlink removes name from the directory.  A record still held open by a
// descriptor becomes a tombstone, invisible to lookups, and its chain
// survives until the last close.
func (fs *FS) Unlink(name string) error {
	if !fs.Mounted() {
		return errno.ENOTMOUNT
	}
	found, off, ent, _, err := fs.findFile(name)
	if err != nil {
		return err
	}
	if !found {
		return errno.ENOENT
	}
	if ent.Type != TypeRegular {
		return errno.EISDIR
	}
	if fs.gdtRefs(off, -1) > 0 {
		//the name is free for reuse, so the holders stop owning it
		for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
			if of := fs.gdt[key]; of != nil && of.DirOff == off {
				of.Unlinked = true
			}
		}
		ent.Status = EntTombstone
		return fs.writeEnt(off, ent)
	}
	if ent.First != 0 {
		fs.freeChain(ent.First)
	}
	ent.Status = EntFree
	ent.Size = 0
	ent.First = 0
	return fs.writeEnt(off, ent)
}

// Seek repositions the descriptor cursor.  Seeking a writable descriptor
// past the cached size raises the size without allocating; the write path
// materializes blocks on demand.
func (fs *FS) Seek(key int, offset int64, whence int) (int64, error) {
	if !fs.Mounted() {
		return -1, errno.ENOTMOUNT
	}
	of, err := fs.gdtGet(key)
	if err != nil {
		return -1, err
	}
	if of.DirOff < 0 {
		return -1, errno.EINVAL
	}
	var base int64
	switch whence {
	case SeekSet:
	case SeekCur:
		base = of.Cursor
	case SeekEnd:
		base = int64(of.Size)
	default:
		return -1, errno.EINVAL
	}
	np := base + offset
	if np < 0 {
		return -1, errno.EINVAL
	}
	if of.Flag.writable() && np > int64(of.Size) {
		of.Size = uint32(np)
	}
	of.Cursor = np
	return np, nil
}

// Chmod applies a permission operation to name.  The upper bits of mode
// select add, remove, or assign; the low three bits carry the rwx mask.
func (fs *FS) Chmod(name string, mode byte) error {
	if !fs.Mounted() {
		return errno.ENOTMOUNT
	}
	found, off, ent, _, err := fs.findFile(name)
	if err != nil {
		return err
	}
	if !found {
		return errno.ENOENT
	}
	mask := mode & (PermRead | PermWrite | PermExec)
	switch mode & (ChmodAdd | ChmodRemove | ChmodAssign) {
	case ChmodAdd:
		ent.Perm |= mask
	case ChmodRemove:
		ent.Perm &^= mask
	case ChmodAssign:
		ent.Perm = mask
	default:
		return errno.EINVAL
	}
	ent.MTime = time.Now().Unix()
	if err = fs.writeEnt(off, ent); err != nil {
		return err
	}
	//keep descriptor permission caches honest
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if of := fs.gdt[key]; of != nil && of.DirOff == off {
			of.Perm = ent.Perm
		}
	}
	return nil
}

// Rename points dst at src's record in place: same size, first block,
// type, and permissions, with a fresh mtime.  No data moves.  An existing
// dst must be writable and is unlinked first under the deferred delete
// rules.
func (fs *FS) Rename(src, dst string) error {
	if !fs.Mounted() {
		return errno.ENOTMOUNT
	}
	if err := checkName(dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	found, off, ent, _, err := fs.findFile(src)
	if err != nil {
		return err
	}
	if !found {
		return errno.ENOENT
	}
	if ent.Perm&PermRead == 0 {
		return errno.EACCES
	}
	dfound, _, dent, _, err := fs.findFile(dst)
	if err != nil {
		return err
	}
	if dfound {
		if dent.Perm&PermWrite == 0 {
			return errno.EACCES
		}
		if err = fs.Unlink(dst); err != nil {
			return err
		}
	}
	ent.Name = dst
	ent.MTime = time.Now().Unix()
	if err = fs.writeEnt(off, ent); err != nil {
		return err
	}
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if of := fs.gdt[key]; of != nil && of.DirOff == off {
			of.Name = dst
		}
	}
	return nil
}
