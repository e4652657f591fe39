/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wfs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const (
	//sanity ceiling on the FAT region, the config word cannot express more
	//than 32 blocks of 4096 bytes anyway
	maxFatRegion = MaxFatBlocks * 4096
)

var (
	ErrInvalidFileHandle = errors.New("Invalid file handle")
	ErrRegionTooLarge    = errors.New("Mapped region is too large")
)

// mapRegion maps the first sz bytes of f read/write and shared, so FAT
// mutations land in the backing file.
func mapRegion(f *os.File, sz int) ([]byte, error) {
	if f == nil {
		return nil, ErrInvalidFileHandle
	}
	if sz <= 0 || sz > maxFatRegion {
		return nil, ErrRegionTooLarge
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, sz, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func unmapRegion(buf []byte) error {
	if buf == nil {
		return nil
	}
	return unix.Munmap(buf)
}

// syncFAT flushes the mapped FAT region back to the backing file.
func (fs *FS) syncFAT() error {
	if fs.fat == nil {
		return nil
	}
	return unix.Msync(fs.fat, unix.MS_SYNC)
}
