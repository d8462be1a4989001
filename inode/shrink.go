package inode

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
)

//
// Freeing the blocks of a file past a new end. The size itself is left to
// the caller, so running TruncateBlocks again with the same argument
// (e.g. during replay) finds nothing left to free.
//

func (v *Vol) TruncateBlocks(f *File, sz uint64) {
	oldcount := util.RoundUp(f.Size, disk.BlockSize)
	newcount := util.RoundUp(sz, disk.BlockSize)
	util.DPrintf(1, "TruncateBlocks: %q from %d to %d blocks\n", f.Name, oldcount, newcount)
	for fbn := newcount; fbn < oldcount; fbn++ {
		s, err := v.walk(f, fbn, false)
		if err != nil {
			// no indirect block, so nothing past here is mapped
			break
		}
		if bn := s.get(); bn != common.NULLBNUM {
			v.Alloc.Free(bn)
			v.crash(jfs.CrashMidTruncate)
			s.set(v, common.NULLBNUM)
		}
	}
	if newcount <= jfs.NDIRECT && f.indirect != common.NULLBNUM {
		v.Alloc.Free(f.indirect)
		f.indirect = common.NULLBNUM
		v.Put(f)
	}
}
