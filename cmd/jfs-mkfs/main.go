package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/fs"
	"github.com/mit-pdos/go-jfs/super"
	"github.com/mit-pdos/go-jfs/util/diskimg"
)

func main() {
	var sizeMegabytes uint64
	flag.Uint64Var(&sizeMegabytes, "size", 64, "size of the file system (in MB)")

	var force bool
	flag.BoolVar(&force, "f", false, "format even if the image holds a file system")

	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: jfs-mkfs [flags] image\n")
		os.Exit(2)
	}

	img, err := diskimg.Open(flag.Arg(0), sizeMegabytes*1024*1024/disk.BlockSize)
	if err != nil {
		log.Fatal(err)
	}
	defer img.Close()
	if !img.Fresh() && !force {
		log.Fatalf("%s already holds a file system (use -f)", flag.Arg(0))
	}
	fs.Mkfs(img)
	fmt.Println(super.MkFsSuper(img.Size()))
}
