/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wfs

import (
	"encoding/binary"
)

// fatGet reads FAT entry i from the mapped region.
func (fs *FS) fatGet(i uint16) uint16 {
	return binary.LittleEndian.Uint16(fs.fat[2*int(i):])
}

func (fs *FS) fatSet(i, v uint16) {
	binary.LittleEndian.PutUint16(fs.fat[2*int(i):], v)
}

// findFreeBlock scans for the first free data block.  Returns 0 when the
// disk is full; block 0 is never a valid data block.
func (fs *FS) findFreeBlock() uint16 {
	for i := 1; i < fs.nblocks; i++ {
		if fs.fatGet(uint16(i)) == freeBlock {
			return uint16(i)
		}
	}
	return 0
}

// freeChain releases every block of the chain rooted at first.
func (fs *FS) freeChain(first uint16) {
	for cur := first; cur != freeBlock && cur != endChain; {
		nxt := fs.fatGet(cur)
		fs.fatSet(cur, freeBlock)
		cur = nxt
	}
	fs.syncFAT()
}

// walkChain follows steps next-pointers from first.  The second return is
// false when the chain terminates before the requested block.
func (fs *FS) walkChain(first uint16, steps int64) (uint16, bool) {
	cur := first
	if cur == freeBlock {
		return 0, false
	}
	for ; steps > 0; steps-- {
		nxt := fs.fatGet(cur)
		if nxt == endChain || nxt == freeBlock {
			return 0, false
		}
		cur = nxt
	}
	return cur, true
}

// chainLen returns the number of blocks in the chain rooted at first.
func (fs *FS) chainLen(first uint16) (n int64) {
	for cur := first; cur != freeBlock && cur != endChain; cur = fs.fatGet(cur) {
		n++
	}
	return
}

// lastBlock returns the final block of a non-empty chain.
func (fs *FS) lastBlock(first uint16) uint16 {
	cur := first
	for {
		nxt := fs.fatGet(cur)
		if nxt == endChain || nxt == freeBlock {
			return cur
		}
		cur = nxt
	}
}
