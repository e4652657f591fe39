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
	"fmt"
	"os"

	"github.com/gravwell/weftos/errno"
)

// Mkfs formats the file at path: the config word in FAT entry 0, the root
// directory chain rooted at block 1, every other entry free, and a zeroed
// data region sized for num_entries - 1 blocks.
func Mkfs(path string, fatBlocks, bsIdx int) error {
	if fatBlocks < MinFatBlocks || fatBlocks > MaxFatBlocks {
		return fmt.Errorf("fat blocks %d out of range [%d, %d]: %w",
			fatBlocks, MinFatBlocks, MaxFatBlocks, errno.EINVAL)
	}
	if bsIdx < 0 || bsIdx >= len(BlockSizes) {
		return fmt.Errorf("block size index %d out of range [0, %d]: %w",
			bsIdx, len(BlockSizes)-1, errno.EINVAL)
	}
	bs := BlockSizes[bsIdx]
	fatSize := fatBlocks * bs
	nblocks := fatSize / 2
	if nblocks > maxFatEntries {
		nblocks = maxFatEntries
	}
	total := int64(fatSize) + int64(nblocks-1)*int64(bs)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0660)
	if err != nil {
		return err
	}
	fat := make([]byte, fatSize)
	binary.LittleEndian.PutUint16(fat[0:], uint16(fatBlocks)<<8|uint16(bsIdx))
	binary.LittleEndian.PutUint16(fat[2:], endChain) //root directory block
	if _, err = f.WriteAt(fat, 0); err != nil {
		f.Close()
		return errno.EIO
	}
	//extending to the full size zero-fills the data region
	if err = f.Truncate(total); err != nil {
		f.Close()
		return errno.EIO
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return errno.EIO
	}
	return f.Close()
}

// BlockSizeIndex maps a byte count to its config word index.
func BlockSizeIndex(bs int) (int, error) {
	for i, v := range BlockSizes {
		if v == bs {
			return i, nil
		}
	}
	return -1, errno.EINVAL
}
