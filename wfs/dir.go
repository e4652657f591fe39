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

const rootBlock uint16 = 1

// findFile walks the root directory chain looking for an active entry
// named name.  When found, off is the byte offset of the matching record.
// When not found, freeOff is the byte offset of the first reusable slot
// (end-of-directory or truly deleted) or -1 when the directory is packed
// full and the caller must extend the root chain.
func (fs *FS) findFile(name string) (found bool, off int64, ent DirEnt, freeOff int64, err error) {
	freeOff = -1
	perBlock := fs.blockSize / DirEntSize
	for blk := rootBlock; ; {
		for i := 0; i < perBlock; i++ {
			slot := fs.blockOff(blk) + int64(i*DirEntSize)
			var e DirEnt
			if e, err = fs.readEnt(slot); err != nil {
				return
			}
			switch e.Status {
			case EntEnd:
				if freeOff < 0 {
					freeOff = slot
				}
				return
			case EntFree:
				if freeOff < 0 {
					freeOff = slot
				}
			case EntTombstone:
				//must not match lookups and must not be reused
			default:
				if e.Name == name {
					found = true
					off = slot
					ent = e
					return
				}
			}
		}
		nxt := fs.fatGet(blk)
		if nxt == endChain || nxt == freeBlock {
			return
		}
		blk = nxt
	}
}

// extendRoot appends a freshly allocated, zeroed block to the root
// directory chain and returns the byte offset of its first slot.
func (fs *FS) extendRoot() (int64, error) {
	nb := fs.findFreeBlock()
	if nb == 0 {
		return 0, errno.ENOSPC
	}
	if err := fs.zeroBlock(nb); err != nil {
		return 0, errno.EIO
	}
	last := fs.lastBlock(rootBlock)
	fs.fatSet(nb, endChain)
	fs.fatSet(last, nb)
	fs.syncFAT()
	return fs.blockOff(nb), nil
}

// ReadDir returns every active entry of the root directory in scan order.
func (fs *FS) ReadDir() ([]DirEnt, error) {
	if !fs.Mounted() {
		return nil, errno.ENOTMOUNT
	}
	var ents []DirEnt
	perBlock := fs.blockSize / DirEntSize
	for blk := rootBlock; ; {
		for i := 0; i < perBlock; i++ {
			slot := fs.blockOff(blk) + int64(i*DirEntSize)
			e, err := fs.readEnt(slot)
			if err != nil {
				return nil, err
			}
			if e.Status == EntEnd {
				return ents, nil
			}
			if e.Status == EntActive {
				ents = append(ents, e)
			}
		}
		nxt := fs.fatGet(blk)
		if nxt == endChain || nxt == freeBlock {
			return ents, nil
		}
		blk = nxt
	}
}

// Stat returns the directory entry for name.
func (fs *FS) Stat(name string) (DirEnt, error) {
	if !fs.Mounted() {
		return DirEnt{}, errno.ENOTMOUNT
	}
	found, _, ent, _, err := fs.findFile(name)
	if err != nil {
		return DirEnt{}, err
	}
	if !found {
		return DirEnt{}, errno.ENOENT
	}
	return ent, nil
}
