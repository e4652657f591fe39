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
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gravwell/weftos/errno"
)

func mkImage(t *testing.T, fatBlocks, bsIdx int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), `test.img`)
	if err := Mkfs(p, fatBlocks, bsIdx); err != nil {
		t.Fatal(err)
	}
	return p
}

func mountImage(t *testing.T, p string) *FS {
	t.Helper()
	fs, err := Mount(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	fs.SetStdio(bytes.NewReader(nil), io.Discard, io.Discard)
	t.Cleanup(func() {
		if fs.Mounted() {
			if err := fs.Unmount(); err != nil {
				t.Error(err)
			}
		}
	})
	return fs
}

func mkMount(t *testing.T) *FS {
	return mountImage(t, mkImage(t, 1, 0))
}

func TestMkfsLayout(t *testing.T) {
	p := mkImage(t, 1, 0)
	fi, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	//1 FAT block of 256 bytes holds 128 entries, so 127 data blocks
	want := int64(256 + 127*256)
	if fi.Size() != want {
		t.Fatalf("image size %d != %d", fi.Size(), want)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg := binary.LittleEndian.Uint16(b); cfg != 1<<8|0 {
		t.Fatalf("bad config word 0x%x", cfg)
	}
	if root := binary.LittleEndian.Uint16(b[2:]); root != endChain {
		t.Fatalf("root block not terminated: 0x%x", root)
	}
	for i := 2; i < 128; i++ {
		if v := binary.LittleEndian.Uint16(b[2*i:]); v != freeBlock {
			t.Fatalf("entry %d not free: 0x%x", i, v)
		}
	}
}

func TestMkfsBadArgs(t *testing.T) {
	p := filepath.Join(t.TempDir(), `bad.img`)
	if err := Mkfs(p, 0, 0); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("fat blocks 0: %v", err)
	}
	if err := Mkfs(p, 33, 0); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("fat blocks 33: %v", err)
	}
	if err := Mkfs(p, 1, 5); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("block size index 5: %v", err)
	}
}

func TestMountValidation(t *testing.T) {
	p := filepath.Join(t.TempDir(), `junk.img`)
	if err := os.WriteFile(p, []byte{0xff, 0xff, 0, 0}, 0660); err != nil {
		t.Fatal(err)
	}
	if _, err := Mount(p, nil); err == nil {
		t.Fatal("mounted an image with a garbage config word")
	}
}

func TestDoubleMount(t *testing.T) {
	p := mkImage(t, 1, 0)
	fs := mountImage(t, p)
	if _, err := Mount(p, nil); err == nil {
		t.Fatal("second mount of a locked image succeeded")
	}
	if err := fs.Unmount(); err != nil {
		t.Fatal(err)
	}
	//now it should work again
	fs2, err := Mount(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = fs2.Unmount(); err != nil {
		t.Fatal(err)
	}
}

func TestMountCaps65536(t *testing.T) {
	//32 FAT blocks of 4096 bytes is 65536 entries, capped at 65535
	p := filepath.Join(t.TempDir(), `big.img`)
	if err := Mkfs(p, 32, 4); err != nil {
		t.Fatal(err)
	}
	fs, err := Mount(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Unmount()
	if fs.nblocks != maxFatEntries {
		t.Fatalf("nblocks %d != %d", fs.nblocks, maxFatEntries)
	}
}

func TestFindFreeAndFreeChain(t *testing.T) {
	fs := mkMount(t)
	if blk := fs.findFreeBlock(); blk != 2 {
		t.Fatalf("first free block %d != 2", blk)
	}
	//hand-build a chain 2 -> 3 -> 4 and free it
	fs.fatSet(2, 3)
	fs.fatSet(3, 4)
	fs.fatSet(4, endChain)
	if n := fs.chainLen(2); n != 3 {
		t.Fatalf("chain length %d != 3", n)
	}
	fs.freeChain(2)
	for i := uint16(2); i <= 4; i++ {
		if fs.fatGet(i) != freeBlock {
			t.Fatalf("block %d not freed", i)
		}
	}
}

func TestDirEntCodec(t *testing.T) {
	ent := DirEnt{
		Status: EntActive,
		Name:   `hello.txt`,
		Size:   1234,
		First:  7,
		Type:   TypeRegular,
		Perm:   PermRead | PermWrite,
		MTime:  1700000000,
	}
	got := decodeDirEnt(encodeDirEnt(ent))
	if got != ent {
		t.Fatalf("round trip mismatch: %+v != %+v", got, ent)
	}
	ent.Status = EntTombstone
	got = decodeDirEnt(encodeDirEnt(ent))
	if got.Status != EntTombstone || got.Size != ent.Size || got.First != ent.First {
		t.Fatalf("tombstone round trip mismatch: %+v", got)
	}
}

func TestCheckName(t *testing.T) {
	if err := checkName(``); !errors.Is(err, errno.EINVAL) {
		t.Fatal("empty name accepted")
	}
	long := make([]byte, MaxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := checkName(string(long)); !errors.Is(err, errno.ENAMETOOLONG) {
		t.Fatal("overlong name accepted")
	}
	if err := checkName(string([]byte{1, 'x'})); !errors.Is(err, errno.EINVAL) {
		t.Fatal("reserved leading byte accepted")
	}
	if err := checkName(`a/b`); !errors.Is(err, errno.EINVAL) {
		t.Fatal("slash accepted")
	}
	if err := checkName(`fine.txt`); err != nil {
		t.Fatal(err)
	}
}
