package inode

import (
	"github.com/tchajed/goose/machine"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
)

// slot is the place a file block's number is stored: either one of the
// record's direct entries or an entry in its indirect block.
type slot struct {
	f   *File
	fbn uint64
	ind disk.Block // nil for direct slots
}

func (s slot) get() common.Bnum {
	if s.ind == nil {
		return s.f.direct[s.fbn]
	}
	return common.Bnum(machine.UInt32Get(s.ind[4*(s.fbn-jfs.NDIRECT):]))
}

func (s slot) set(v *Vol, bn common.Bnum) {
	if s.ind == nil {
		s.f.direct[s.fbn] = bn
		v.Put(s.f)
		return
	}
	machine.UInt32Put(s.ind[4*(s.fbn-jfs.NDIRECT):], uint32(bn))
}

// walk finds the slot for file block fbn. If the indirect block is missing
// it is allocated, zeroed and persisted when alloc is set; otherwise walk
// fails with ENOTFOUND.
func (v *Vol) walk(f *File, fbn uint64, alloc bool) (slot, error) {
	if fbn >= jfs.NDIRECT+jfs.NINDIRECT {
		return slot{}, jfs.EINVAL
	}
	if fbn < jfs.NDIRECT {
		return slot{f: f, fbn: fbn}, nil
	}
	if f.indirect == common.NULLBNUM {
		if !alloc {
			return slot{}, jfs.ENOTFOUND
		}
		bn, err := v.Alloc.Alloc()
		if err != nil {
			return slot{}, err
		}
		v.Bc.Zero(bn)
		v.Bc.Flush(bn)
		f.indirect = bn
		v.Put(f)
		util.DPrintf(5, "walk: %q indirect %d\n", f.Name, bn)
	}
	return slot{f: f, fbn: fbn, ind: v.Bc.Block(f.indirect)}, nil
}

// GetBlock maps file block fbn, allocating a zeroed block if it has none.
// The zeroed block is persisted before any pointer to it can be. Repeated
// calls return the same block.
func (v *Vol) GetBlock(f *File, fbn uint64) (common.Bnum, disk.Block, error) {
	s, err := v.walk(f, fbn, true)
	if err != nil {
		return common.NULLBNUM, nil, err
	}
	bn := s.get()
	if bn == common.NULLBNUM {
		bn, err = v.Alloc.Alloc()
		if err != nil {
			return common.NULLBNUM, nil, err
		}
		v.forget(bn)
		blk := v.Bc.Zero(bn)
		v.Bc.Flush(bn)
		s.set(v, bn)
		return bn, blk, nil
	}
	return bn, v.Bc.Block(bn), nil
}

// lookup maps file block fbn without allocating; holes map to block 0.
func (v *Vol) lookup(f *File, fbn uint64) (common.Bnum, error) {
	s, err := v.walk(f, fbn, false)
	if err == jfs.ENOTFOUND {
		return common.NULLBNUM, nil
	}
	if err != nil {
		return common.NULLBNUM, err
	}
	return s.get(), nil
}

// Mapped returns the blocks backing f, in file order, skipping holes.
func (v *Vol) Mapped(f *File) []common.Bnum {
	var bns []common.Bnum
	nblk := util.RoundUp(f.Size, disk.BlockSize)
	for fbn := uint64(0); fbn < nblk; fbn++ {
		bn, err := v.lookup(f, fbn)
		if err == nil && bn != common.NULLBNUM {
			bns = append(bns, bn)
		}
	}
	return bns
}

func (f *File) Indirect() common.Bnum {
	return f.indirect
}
