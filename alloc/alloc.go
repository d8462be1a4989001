package alloc

import (
	"fmt"

	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/bcache"
	jfs "github.com/mit-pdos/go-jfs/common"
)

// Alloc manages the free-block bitmap. A set bit means the block is free.
//
// The bitmap lives in the block store; Alloc persists the bitmap block it
// changes, Free only marks the block free in memory.
type Alloc struct {
	bc      *bcache.Bcache
	start   common.Bnum
	nblocks uint64
}

func MkAlloc(bc *bcache.Bcache, start common.Bnum, nblocks uint64) *Alloc {
	return &Alloc{bc: bc, start: start, nblocks: nblocks}
}

func (a *Alloc) bitmapBlocks() uint64 {
	return util.RoundUp(a.nblocks, common.NBITBLOCK)
}

func (a *Alloc) bit(bn common.Bnum) (common.Bnum, uint64, byte) {
	blkno := a.start + bn/common.NBITBLOCK
	off := bn % common.NBITBLOCK
	return blkno, off / 8, byte(1) << (off % 8)
}

func (a *Alloc) IsFree(bn common.Bnum) bool {
	if a == nil || bn >= a.nblocks {
		return false
	}
	blkno, byteoff, mask := a.bit(bn)
	return a.bc.Block(blkno)[byteoff]&mask != 0
}

func (a *Alloc) Free(bn common.Bnum) {
	if bn == 0 {
		panic("Free: block 0")
	}
	if bn >= a.nblocks {
		panic(fmt.Sprintf("Free: block %d out of range", bn))
	}
	util.DPrintf(5, "Free %d\n", bn)
	blkno, byteoff, mask := a.bit(bn)
	a.bc.Block(blkno)[byteoff] |= mask
}

// MarkUsed clears bn's free bit without persisting it.
func (a *Alloc) MarkUsed(bn common.Bnum) {
	blkno, byteoff, mask := a.bit(bn)
	a.bc.Block(blkno)[byteoff] &^= mask
}

// Alloc returns the lowest-numbered free block, marks it in use, and persists
// the bitmap block holding its bit.
func (a *Alloc) Alloc() (common.Bnum, error) {
	for bn := common.Bnum(1); bn < a.nblocks; bn++ {
		if a.IsFree(bn) {
			a.MarkUsed(bn)
			blkno, _, _ := a.bit(bn)
			a.bc.Flush(blkno)
			util.DPrintf(5, "Alloc -> %d\n", bn)
			return bn, nil
		}
	}
	return 0, jfs.ENODISK
}

// Check panics unless every block below reserved (the boot block,
// superblock, bitmap and journal) is in use.
func (a *Alloc) Check(reserved common.Bnum) {
	if reserved < a.start+common.Bnum(a.bitmapBlocks()) {
		panic("Check: reserved region does not cover the bitmap")
	}
	for bn := common.Bnum(0); bn < reserved; bn++ {
		if a.IsFree(bn) {
			panic(fmt.Sprintf("Check: reserved block %d is free", bn))
		}
	}
	util.DPrintf(1, "alloc: bitmap ok, %d free\n", a.NumFree())
}

// Flush persists every bitmap block.
func (a *Alloc) Flush() {
	for i := uint64(0); i < a.bitmapBlocks(); i++ {
		a.bc.Flush(a.start + common.Bnum(i))
	}
}

func (a *Alloc) NumFree() uint64 {
	n := uint64(0)
	for bn := common.Bnum(0); bn < a.nblocks; bn++ {
		if a.IsFree(bn) {
			n++
		}
	}
	return n
}

// Format initializes a bitmap with every block below reserved in use and the
// rest free, then persists it.
func Format(bc *bcache.Bcache, start common.Bnum, nblocks uint64, reserved common.Bnum) *Alloc {
	a := MkAlloc(bc, start, nblocks)
	for i := uint64(0); i < a.bitmapBlocks(); i++ {
		bc.Zero(start + common.Bnum(i))
	}
	for bn := reserved; bn < nblocks; bn++ {
		blkno, byteoff, mask := a.bit(bn)
		bc.Block(blkno)[byteoff] |= mask
	}
	a.Flush()
	return a
}
