/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// mkwfs is the standalone formatter: it builds an empty weftos filesystem
// image without booting the kernel.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"

	"github.com/gravwell/weftos/wfs"
)

var (
	imgPath   = flag.String("image", "", "Path of the image file to create")
	fatBlocks = flag.Int("fat-blocks", 1, "Number of FAT blocks (1 to 32)")
	blockSize = flag.String("block-size", "512B", "Block size: 256B, 512B, 1KB, 2KB, or 4KB")
	ver       = flag.Bool("version", false, "Print the version information and exit")
)

func main() {
	flag.Parse()
	if *ver {
		fmt.Println("mkwfs 1.0.0")
		return
	}
	if *imgPath == `` {
		fmt.Fprintln(os.Stderr, "missing -image")
		flag.Usage()
		os.Exit(-1)
	}
	bs, err := bytesize.Parse(*blockSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad block size %q: %v\n", *blockSize, err)
		os.Exit(-1)
	}
	bsIdx, err := wfs.BlockSizeIndex(int(bs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "unsupported block size %v, want one of 256B 512B 1KB 2KB 4KB\n", bs)
		os.Exit(-1)
	}
	if err = wfs.Mkfs(*imgPath, *fatBlocks, bsIdx); err != nil {
		fmt.Fprintf(os.Stderr, "mkfs failed: %v\n", err)
		os.Exit(-1)
	}
	fi, err := os.Stat(*imgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to stat %s: %v\n", *imgPath, err)
		os.Exit(-1)
	}
	fmt.Printf("%s: %d FAT blocks, %v block size, %s total\n",
		*imgPath, *fatBlocks, bs, bytesize.New(float64(fi.Size())))
}
