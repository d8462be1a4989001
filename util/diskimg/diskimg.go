// Package diskimg opens the block device a server runs on: a memory disk or
// an image file, locked so that only one process uses it at a time.
package diskimg

import (
	"fmt"
	"os"

	"github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-journal/util"
)

type Image struct {
	disk.Disk
	lock *os.File
}

// Open returns a memory disk of nblocks if path is empty. Otherwise it opens
// (creating if needed) the image at path, which must not be in use by
// another process. nblocks is only used when the image is created.
func Open(path string, nblocks uint64) (*Image, error) {
	if path == "" {
		util.DPrintf(1, "diskimg: mem disk of %d blocks\n", nblocks)
		return &Image{Disk: disk.NewMemDisk(nblocks)}, nil
	}
	lock, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		return nil, fmt.Errorf("%s is in use: %w", path, err)
	}
	if st, err := lock.Stat(); err == nil && st.Size() > 0 {
		nblocks = uint64(st.Size()) / disk.BlockSize
	}
	d, err := disk.NewFileDisk(path, nblocks)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("could not open disk: %w", err)
	}
	util.DPrintf(1, "diskimg: %s, %d blocks\n", path, nblocks)
	return &Image{Disk: d, lock: lock}, nil
}

// Close closes the disk and releases the lock.
func (img *Image) Close() {
	img.Disk.Close()
	if img.lock != nil {
		img.lock.Close()
	}
}

// Fresh reports whether the image has never been formatted.
func (img *Image) Fresh() bool {
	if img.Size() < 2 {
		return true
	}
	blk := img.Read(1)
	for _, b := range blk[:8] {
		if b != 0 {
			return false
		}
	}
	return true
}
