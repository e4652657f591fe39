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
	"errors"
	"testing"

	"github.com/gravwell/weftos/errno"
)

func writeFile(t *testing.T, fs *FS, name string, data []byte) {
	t.Helper()
	fd, err := fs.Open(name, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := fs.Write(fd, data); err != nil || n != len(data) {
		t.Fatalf("write %d/%d: %v", n, len(data), err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, fs *FS, name string) []byte {
	t.Helper()
	fd, err := fs.Open(name, FlagRead)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close(fd)
	var out []byte
	buf := make([]byte, 97) //odd size to cross block boundaries
	for {
		n, err := fs.Read(fd, buf)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

// The first literal scenario: write hello, read it back, then hit EOF.
func TestWriteReadBack(t *testing.T) {
	fs := mkMount(t)
	fd, err := fs.Open(`a`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := fs.Write(fd, []byte(`hello`)); err != nil || n != 5 {
		t.Fatalf("write %d: %v", n, err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	if fd, err = fs.Open(`a`, FlagRead); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	n, err := fs.Read(fd, buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != `hello` {
		t.Fatalf("read back %q", buf[:n])
	}
	if n, err = fs.Read(fd, buf); err != nil || n != 0 {
		t.Fatalf("expected EOF, got %d bytes, %v", n, err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
}

func TestMultiBlockRoundTrip(t *testing.T) {
	fs := mkMount(t) //256 byte blocks
	data := make([]byte, 5*256+13)
	for i := range data {
		data[i] = byte(i * 31)
	}
	writeFile(t, fs, `big`, data)
	if got := readFile(t, fs, `big`); !bytes.Equal(got, data) {
		t.Fatalf("multi block round trip mismatch: %d bytes vs %d", len(got), len(data))
	}
	ent, err := fs.Stat(`big`)
	if err != nil {
		t.Fatal(err)
	}
	if int(ent.Size) != len(data) {
		t.Fatalf("size %d != %d", ent.Size, len(data))
	}
	if n := fs.chainLen(ent.First); n != 6 {
		t.Fatalf("chain length %d != 6", n)
	}
}

// Writes landing exactly on block boundaries exercise the chain-extension
// branch for every k up to a few blocks past the initial chain.
func TestWriteAtBlockBoundaries(t *testing.T) {
	fs := mkMount(t)
	bs := int64(fs.BlockSize())
	fd, err := fs.Open(`b`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	chunk := bytes.Repeat([]byte{0xab}, int(bs))
	for k := int64(0); k < 6; k++ {
		if pos, err := fs.Seek(fd, k*bs, SeekSet); err != nil || pos != k*bs {
			t.Fatalf("seek to %d: %d, %v", k*bs, pos, err)
		}
		if n, err := fs.Write(fd, chunk); err != nil || n != int(bs) {
			t.Fatalf("boundary write k=%d: %d, %v", k, n, err)
		}
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	got := readFile(t, fs, `b`)
	if int64(len(got)) != 6*bs {
		t.Fatalf("length %d != %d", len(got), 6*bs)
	}
	for i, b := range got {
		if b != 0xab {
			t.Fatalf("byte %d corrupted: 0x%x", i, b)
		}
	}
}

func TestSeekPastSizeReadsEOF(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `s`, []byte(`abc`))
	fd, err := fs.Open(`s`, FlagAppend)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close(fd)
	//append starts at size 3, move far past it
	if _, err = fs.Seek(fd, 1000, SeekSet); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	if n, err := fs.Read(fd, buf); err != nil || n != 0 {
		t.Fatalf("read past size: %d, %v", n, err)
	}
}

func TestSeekNegative(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `s2`, []byte(`abc`))
	fd, err := fs.Open(`s2`, FlagRead)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close(fd)
	if _, err = fs.Seek(fd, -4, SeekEnd); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("negative seek: %v", err)
	}
	if pos, err := fs.Seek(fd, -1, SeekEnd); err != nil || pos != 2 {
		t.Fatalf("seek end-1: %d, %v", pos, err)
	}
	buf := make([]byte, 4)
	if n, _ := fs.Read(fd, buf); n != 1 || buf[0] != 'c' {
		t.Fatalf("read after seek: %d %q", n, buf[:n])
	}
}

func TestAppend(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `ap`, []byte(`one`))
	fd, err := fs.Open(`ap`, FlagAppend)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Write(fd, []byte(`two`)); err != nil {
		t.Fatal(err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, `ap`); string(got) != `onetwo` {
		t.Fatalf("append produced %q", got)
	}
}

func TestWriteTruncates(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `tr`, bytes.Repeat([]byte{1}, 700))
	writeFile(t, fs, `tr`, []byte(`tiny`))
	if got := readFile(t, fs, `tr`); string(got) != `tiny` {
		t.Fatalf("truncate produced %q", got)
	}
	ent, err := fs.Stat(`tr`)
	if err != nil {
		t.Fatal(err)
	}
	if n := fs.chainLen(ent.First); n != 1 {
		t.Fatalf("chain length after truncate %d != 1", n)
	}
}

func TestOpenFailureTaxonomy(t *testing.T) {
	fs := mkMount(t)
	if _, err := fs.Open(`nope`, FlagRead); !errors.Is(err, errno.ENOENT) {
		t.Fatalf("read missing: %v", err)
	}
	if _, err := fs.Open(`x`, FileFlag(9)); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("bad flag: %v", err)
	}
	writeFile(t, fs, `locked`, []byte(`z`))
	fd, err := fs.Open(`locked`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Open(`locked`, FlagAppend); !errors.Is(err, errno.EINUSE) {
		t.Fatalf("single-writer rule: %v", err)
	}
	//a second reader is fine
	rfd, err := fs.Open(`locked`, FlagRead)
	if err != nil {
		t.Fatal(err)
	}
	fs.Close(rfd)
	fs.Close(fd)
}

func TestPermissionDenied(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `p`, []byte(`z`))
	if err := fs.Chmod(`p`, ChmodRemove|PermRead); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(`p`, FlagRead); !errors.Is(err, errno.EACCES) {
		t.Fatalf("unreadable open: %v", err)
	}
	if err := fs.Chmod(`p`, ChmodAssign|PermRead); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(`p`, FlagWrite); !errors.Is(err, errno.EACCES) {
		t.Fatalf("unwritable open: %v", err)
	}
}

func TestChmodRoundTrip(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `c`, []byte(`z`))
	orig, err := fs.Stat(`c`)
	if err != nil {
		t.Fatal(err)
	}
	if err = fs.Chmod(`c`, ChmodAdd|PermRead); err != nil {
		t.Fatal(err)
	}
	if err = fs.Chmod(`c`, ChmodRemove|PermRead); err != nil {
		t.Fatal(err)
	}
	ent, err := fs.Stat(`c`)
	if err != nil {
		t.Fatal(err)
	}
	if want := orig.Perm &^ PermRead; ent.Perm != want {
		t.Fatalf("perm 0%o != 0%o", ent.Perm, want)
	}
	if err = fs.Chmod(`c`, PermRead); !errors.Is(err, errno.EINVAL) {
		t.Fatalf("chmod without an operation bit: %v", err)
	}
}

// The deferred-delete scenario: unlink while open keeps the old data alive
// for the holder, while the name is immediately reusable.
func TestDeferredDelete(t *testing.T) {
	fs := mkMount(t)
	fd, err := fs.Open(`a`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Write(fd, []byte(`hi`)); err != nil {
		t.Fatal(err)
	}
	if err = fs.Unlink(`a`); err != nil {
		t.Fatal(err)
	}
	//the name is gone for lookups
	if _, err = fs.Open(`a`, FlagRead); !errors.Is(err, errno.ENOENT) {
		t.Fatalf("tombstone matched a lookup: %v", err)
	}
	//and a new file under the same name coexists with the tombstone
	fd2, err := fs.Open(`a`, FlagWrite)
	if err != nil {
		t.Fatalf("reopen after unlink: %v", err)
	}
	if _, err = fs.Write(fd, []byte(` there`)); err != nil {
		t.Fatalf("write through tombstoned descriptor: %v", err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	if err = fs.Close(fd2); err != nil {
		t.Fatal(err)
	}
	//exactly one active entry named a remains
	ents, err := fs.ReadDir()
	if err != nil {
		t.Fatal(err)
	}
	var count int
	for _, e := range ents {
		if e.Name == `a` {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%d active entries named a", count)
	}
	//the new file under the reused name opens for reading
	if _, err = fs.Open(`a`, FlagRead); err != nil {
		t.Fatal(err)
	}
}

func TestUnlinkThenReadFails(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `x`, []byte(`data`))
	if err := fs.Unlink(`x`); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(`x`, FlagRead); !errors.Is(err, errno.ENOENT) {
		t.Fatalf("open after unlink: %v", err)
	}
	//deferred variant: the tombstone never becomes visible again
	fd, err := fs.Open(`y`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err = fs.Unlink(`y`); err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Write(fd, []byte(`late`)); err != nil {
		t.Fatal(err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Open(`y`, FlagRead); !errors.Is(err, errno.ENOENT) {
		t.Fatalf("tombstone resurfaced: %v", err)
	}
}

func TestRenameRoundTrip(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `x`, []byte(`payload`))
	before, err := fs.Stat(`x`)
	if err != nil {
		t.Fatal(err)
	}
	if err = fs.Rename(`x`, `y`); err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Stat(`x`); !errors.Is(err, errno.ENOENT) {
		t.Fatal("source name still resolves")
	}
	if err = fs.Rename(`y`, `x`); err != nil {
		t.Fatal(err)
	}
	after, err := fs.Stat(`x`)
	if err != nil {
		t.Fatal(err)
	}
	if after.First != before.First || after.Size != before.Size {
		t.Fatalf("rename moved data: %+v vs %+v", after, before)
	}
	if got := readFile(t, fs, `x`); string(got) != `payload` {
		t.Fatalf("content after rename round trip: %q", got)
	}
}

func TestRenameOntoExisting(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `src`, []byte(`new`))
	writeFile(t, fs, `dst`, []byte(`old`))
	if err := fs.Rename(`src`, `dst`); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, `dst`); string(got) != `new` {
		t.Fatalf("dst content %q", got)
	}
	if _, err := fs.Stat(`src`); !errors.Is(err, errno.ENOENT) {
		t.Fatal("src survived rename")
	}
	//an unwritable destination refuses
	writeFile(t, fs, `src2`, []byte(`z`))
	if err := fs.Chmod(`dst`, ChmodRemove|PermWrite); err != nil {
		t.Fatal(err)
	}
	if err := fs.Rename(`src2`, `dst`); !errors.Is(err, errno.EACCES) {
		t.Fatalf("rename onto unwritable: %v", err)
	}
}

func TestDiskFull(t *testing.T) {
	fs := mkMount(t) //127 blocks total, 1 for the root
	fd, err := fs.Open(`fat`, FlagWrite)
	if err != nil {
		t.Fatal(err)
	}
	huge := make([]byte, 200*256)
	n, err := fs.Write(fd, huge)
	if err != nil {
		t.Fatal(err)
	}
	if n != 126*256 {
		t.Fatalf("wrote %d bytes, want %d", n, 126*256)
	}
	//the next write cannot place a byte
	if _, err = fs.Write(fd, []byte(`x`)); !errors.Is(err, errno.ENOSPC) {
		t.Fatalf("write on full disk: %v", err)
	}
	if err = fs.Close(fd); err != nil {
		t.Fatal(err)
	}
	//freeing space makes writes possible again
	if err = fs.Unlink(`fat`); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, `ok`, []byte(`fits`))
}

func TestRootDirectoryExtension(t *testing.T) {
	fs := mkMount(t) //4 entries per 256 byte block
	names := []string{`f0`, `f1`, `f2`, `f3`, `f4`, `f5`, `f6`}
	for _, n := range names {
		writeFile(t, fs, n, []byte(n))
	}
	if n := fs.chainLen(rootBlock); n < 2 {
		t.Fatalf("root chain did not extend: %d blocks", n)
	}
	for _, n := range names {
		if got := readFile(t, fs, n); string(got) != n {
			t.Fatalf("%s content %q", n, got)
		}
	}
	ents, err := fs.ReadDir()
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != len(names) {
		t.Fatalf("%d entries, want %d", len(ents), len(names))
	}
}

func TestGDTExhaustion(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `g`, []byte(`z`))
	var fds []int
	for {
		fd, err := fs.Open(`g`, FlagRead)
		if err != nil {
			if !errors.Is(err, errno.ETBLFULL) {
				t.Fatalf("expected table-full, got %v", err)
			}
			break
		}
		fds = append(fds, fd)
	}
	if len(fds) != MaxOpenFiles-3 {
		t.Fatalf("opened %d descriptors, want %d", len(fds), MaxOpenFiles-3)
	}
	for _, fd := range fds {
		if err := fs.Close(fd); err != nil {
			t.Fatal(err)
		}
	}
	fd, err := fs.Open(`g`, FlagRead)
	if err != nil {
		t.Fatal(err)
	}
	fs.Close(fd)
}

func TestNotMounted(t *testing.T) {
	p := mkImage(t, 1, 0)
	fs, err := Mount(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = fs.Unmount(); err != nil {
		t.Fatal(err)
	}
	if _, err = fs.Open(`a`, FlagWrite); !errors.Is(err, errno.ENOTMOUNT) {
		t.Fatalf("open on unmounted: %v", err)
	}
	if err = fs.Unlink(`a`); !errors.Is(err, errno.ENOTMOUNT) {
		t.Fatalf("unlink on unmounted: %v", err)
	}
}

// Every FAT entry must stay consistent through a workload: free, terminal,
// or a valid forward pointer, with no block in two chains.
func TestFATInvariants(t *testing.T) {
	fs := mkMount(t)
	writeFile(t, fs, `one`, bytes.Repeat([]byte{1}, 700))
	writeFile(t, fs, `two`, bytes.Repeat([]byte{2}, 300))
	if err := fs.Unlink(`one`); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, `three`, bytes.Repeat([]byte{3}, 1000))

	seen := make(map[uint16]string)
	walk := func(name string, first uint16) {
		for cur := first; cur != freeBlock && cur != endChain; cur = fs.fatGet(cur) {
			if int(cur) >= fs.nblocks {
				t.Fatalf("%s chain points at invalid block %d", name, cur)
			}
			if owner, ok := seen[cur]; ok {
				t.Fatalf("block %d owned by both %s and %s", cur, owner, name)
			}
			seen[cur] = name
		}
	}
	walk(`root`, rootBlock)
	ents, err := fs.ReadDir()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range ents {
		if e.Size > 0 && e.First == 0 {
			t.Fatalf("%s has size %d but no first block", e.Name, e.Size)
		}
		if e.First != 0 {
			walk(e.Name, e.First)
			max := fs.chainLen(e.First) * int64(fs.BlockSize())
			if int64(e.Size) > max {
				t.Fatalf("%s size %d exceeds chain capacity %d", e.Name, e.Size, max)
			}
		}
	}
}
