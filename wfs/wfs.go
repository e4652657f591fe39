/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package wfs implements the FAT-backed filesystem kernel.  A filesystem
// lives inside a single backing file: a packed little endian u16 FAT
// followed by the data region.  FAT entry 0 is the config word, block 1 is
// the first block of the flat root directory.  All open file state is held
// in the global descriptor table (GDT) owned by the FS.
package wfs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/gravwell/weftos/errno"
	"github.com/gravwell/weftos/log"
)

const (
	MinFatBlocks = 1
	MaxFatBlocks = 32

	// the three standard stream descriptors occupy the first GDT slots
	KeyStdin  = 0
	KeyStdout = 1
	KeyStderr = 2

	MaxOpenFiles = 64

	maxFatEntries = 65535

	freeBlock uint16 = 0x0000
	endChain  uint16 = 0xffff
)

// BlockSizes maps a block size index from the config word to bytes.
var BlockSizes = [5]int{256, 512, 1024, 2048, 4096}

// FS is a mounted filesystem.  The FAT region of the backing file is
// memory mapped read/write; data blocks go through ReadAt/WriteAt.  The FS
// is single-tenant: the kernel guarantees only one goroutine is inside at
// a time, so there is no internal locking.
type FS struct {
	f         *os.File
	flk       *flock.Flock
	fat       []byte
	path      string
	blockSize int
	fatBlocks int
	nblocks   int //total FAT entries, including the config entry
	mounted   bool
	gdt       [MaxOpenFiles]*OpenFile
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lg        *log.Logger
}

// Mount opens the backing file at path, validates the config word, maps the
// FAT, and initializes the standard stream descriptors.  The backing file
// is locked for the life of the mount so a second mount fails cleanly.
func Mount(path string, lg *log.Logger) (*FS, error) {
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	flk := flock.New(path)
	if ok, err := flk.TryLock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s %w", path, err)
	} else if !ok {
		return nil, fmt.Errorf("%s: %w", path, errno.EINUSE)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0660)
	if err != nil {
		flk.Unlock()
		return nil, err
	}
	var cfg [2]byte
	if _, err = f.ReadAt(cfg[:], 0); err != nil {
		f.Close()
		flk.Unlock()
		return nil, fmt.Errorf("failed to read config word %w", errno.EIO)
	}
	word := binary.LittleEndian.Uint16(cfg[:])
	fatBlocks := int(word >> 8)
	bsIdx := int(word & 0xff)
	if fatBlocks < MinFatBlocks || fatBlocks > MaxFatBlocks || bsIdx < 0 || bsIdx >= len(BlockSizes) {
		f.Close()
		flk.Unlock()
		return nil, fmt.Errorf("bad config word 0x%x: %w", word, errno.EINVAL)
	}
	bs := BlockSizes[bsIdx]
	nblocks := fatBlocks * bs / 2
	if nblocks > maxFatEntries {
		nblocks = maxFatEntries
	}
	if fi, err := f.Stat(); err != nil {
		f.Close()
		flk.Unlock()
		return nil, err
	} else if fi.Size() < int64(fatBlocks*bs)+int64(nblocks-1)*int64(bs) {
		f.Close()
		flk.Unlock()
		return nil, fmt.Errorf("image truncated to %d bytes: %w", fi.Size(), errno.EINVAL)
	}
	fatRegion, err := mapRegion(f, fatBlocks*bs)
	if err != nil {
		f.Close()
		flk.Unlock()
		return nil, err
	}
	fs := &FS{
		f:         f,
		flk:       flk,
		fat:       fatRegion,
		path:      path,
		blockSize: bs,
		fatBlocks: fatBlocks,
		nblocks:   nblocks,
		mounted:   true,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lg:        lg,
	}
	fs.gdt[KeyStdin] = &OpenFile{Name: `stdin`, Flag: FlagRead, DirOff: -1}
	fs.gdt[KeyStdout] = &OpenFile{Name: `stdout`, Flag: FlagWrite, DirOff: -1}
	fs.gdt[KeyStderr] = &OpenFile{Name: `stderr`, Flag: FlagWrite, DirOff: -1}
	lg.Info("filesystem mounted", log.KV("path", path),
		log.KV("blocksize", bs), log.KV("fatblocks", fatBlocks))
	return fs, nil
}

// SetStdio rebinds the host endpoints of the standard stream descriptors.
func (fs *FS) SetStdio(in io.Reader, out, errw io.Writer) {
	if in != nil {
		fs.stdin = in
	}
	if out != nil {
		fs.stdout = out
	}
	if errw != nil {
		fs.stderr = errw
	}
}

func (fs *FS) Mounted() bool {
	return fs != nil && fs.mounted
}

func (fs *FS) BlockSize() int {
	return fs.blockSize
}

func (fs *FS) Path() string {
	return fs.path
}

// Unmount closes every live descriptor, syncs and unmaps the FAT, and
// releases the backing file.
func (fs *FS) Unmount() (err error) {
	if !fs.Mounted() {
		return errno.ENOTMOUNT
	}
	for key := KeyStderr + 1; key < MaxOpenFiles; key++ {
		if fs.gdt[key] != nil {
			if lerr := fs.Close(key); lerr != nil {
				err = lerr
			}
		}
	}
	fs.gdt[KeyStdin] = nil
	fs.gdt[KeyStdout] = nil
	fs.gdt[KeyStderr] = nil
	if lerr := fs.syncFAT(); lerr != nil && err == nil {
		err = lerr
	}
	if lerr := unmapRegion(fs.fat); lerr != nil && err == nil {
		err = lerr
	}
	fs.fat = nil
	if lerr := fs.f.Close(); lerr != nil && err == nil {
		err = lerr
	}
	fs.flk.Unlock()
	fs.mounted = false
	fs.lg.Info("filesystem unmounted", log.KV("path", fs.path))
	return
}

// blockOff returns the byte offset of data block i within the backing file.
func (fs *FS) blockOff(i uint16) int64 {
	return int64(fs.fatBlocks*fs.blockSize) + int64(i-1)*int64(fs.blockSize)
}

func (fs *FS) readBlockAt(blk uint16, off int64, buf []byte) (int, error) {
	n, err := fs.f.ReadAt(buf, fs.blockOff(blk)+off)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (fs *FS) writeBlockAt(blk uint16, off int64, buf []byte) (int, error) {
	return fs.f.WriteAt(buf, fs.blockOff(blk)+off)
}

// zeroBlock clears a freshly allocated data block so stale bytes from a
// previous chain never leak into a new file.
func (fs *FS) zeroBlock(blk uint16) error {
	buf := make([]byte, fs.blockSize)
	_, err := fs.writeBlockAt(blk, 0, buf)
	return err
}
