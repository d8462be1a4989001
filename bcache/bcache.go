package bcache

import (
	"sort"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"
)

//
// Write-back block store. Blocks are loaded from disk on first use and stay
// resident; callers mutate the returned slice in place and call Flush to make
// the change durable. Dropping a Bcache without flushing loses every
// unflushed change, which is how crashes are simulated.
//

type Bcache struct {
	d    disk.Disk
	blks map[common.Bnum]disk.Block
}

func MkBcache(d disk.Disk) *Bcache {
	return &Bcache{
		d:    d,
		blks: make(map[common.Bnum]disk.Block),
	}
}

func (bc *Bcache) Size() uint64 {
	return bc.d.Size()
}

// Block returns the resident copy of block bn, reading it in if necessary.
func (bc *Bcache) Block(bn common.Bnum) disk.Block {
	if bn >= bc.d.Size() {
		panic("Block: out of range")
	}
	b, ok := bc.blks[bn]
	if !ok {
		b = bc.d.Read(bn)
		bc.blks[bn] = b
	}
	return b
}

// Zero returns block bn with its contents cleared, without reading it.
func (bc *Bcache) Zero(bn common.Bnum) disk.Block {
	if bn >= bc.d.Size() {
		panic("Zero: out of range")
	}
	b, ok := bc.blks[bn]
	if !ok {
		b = make(disk.Block, disk.BlockSize)
		bc.blks[bn] = b
		return b
	}
	for i := range b {
		b[i] = 0
	}
	return b
}

// Flush writes bn back to disk if it is resident.
func (bc *Bcache) Flush(bn common.Bnum) {
	b, ok := bc.blks[bn]
	if !ok {
		return
	}
	util.DPrintf(10, "Flush %d\n", bn)
	bc.d.Write(bn, b)
}

// FlushAll writes every resident block in block order, followed by a barrier.
func (bc *Bcache) FlushAll() {
	bns := make([]common.Bnum, 0, len(bc.blks))
	for bn := range bc.blks {
		bns = append(bns, bn)
	}
	sort.Slice(bns, func(i, j int) bool { return bns[i] < bns[j] })
	util.DPrintf(5, "FlushAll: %d blocks\n", len(bns))
	for _, bn := range bns {
		bc.d.Write(bn, bc.blks[bn])
	}
	bc.d.Barrier()
}

func (bc *Bcache) Barrier() {
	bc.d.Barrier()
}

func (bc *Bcache) Resident() int {
	return len(bc.blks)
}
