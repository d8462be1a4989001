package super

import (
	"fmt"

	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/addr"
	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
)

const (
	FS_MAGIC uint32 = 0x4A0F5C0D

	SUPERBLK    common.Bnum = 1
	BITMAPSTART common.Bnum = 2

	// the root file record is stored inline after the magic and block count
	ROOTOFF uint64 = 8
)

// FsSuper describes the layout of a volume:
//
//	0             reserved
//	1             superblock (magic, nblocks, root record)
//	2..J-1        free-block bitmap
//	J             journal header
//	J+1..J+NJBLOCK journal entries
//	D..           data
type FsSuper struct {
	Nblocks uint64
	NBitmap uint64
}

func MkFsSuper(nblocks uint64) *FsSuper {
	if nblocks > uint64(^uint32(0)) {
		panic("MkFsSuper: volume too large")
	}
	return &FsSuper{
		Nblocks: nblocks,
		NBitmap: util.RoundUp(nblocks, common.NBITBLOCK),
	}
}

func (s *FsSuper) String() string {
	return fmt.Sprintf("nblocks %d bitmap %d journal %d data %d",
		s.Nblocks, s.NBitmap, s.JournalStart(), s.DataStart())
}

func (s *FsSuper) BitmapStart() common.Bnum {
	return BITMAPSTART
}

func (s *FsSuper) JournalStart() common.Bnum {
	return BITMAPSTART + common.Bnum(s.NBitmap)
}

func (s *FsSuper) DataStart() common.Bnum {
	return s.JournalStart() + 1 + common.Bnum(jfs.NJBLOCK)
}

// RootAddr locates the root directory's file record.
func RootAddr() addr.Addr {
	return addr.MkAddr(SUPERBLK, ROOTOFF*8)
}

// Encode writes the magic and block count into the superblock, leaving the
// root record untouched.
func (s *FsSuper) Encode(blk disk.Block) {
	enc := marshal.NewEnc(ROOTOFF)
	enc.PutInt32(FS_MAGIC)
	enc.PutInt32(uint32(s.Nblocks))
	copy(blk[:ROOTOFF], enc.Finish())
}

// Decode reads a superblock, panicking if it is not one of ours or if it
// claims more blocks than the disk has.
func Decode(blk disk.Block, disksz uint64) *FsSuper {
	dec := marshal.NewDec(blk[:ROOTOFF])
	magic := dec.GetInt32()
	if magic != FS_MAGIC {
		panic(fmt.Sprintf("super: bad magic %#x", magic))
	}
	nblocks := uint64(dec.GetInt32())
	if nblocks > disksz {
		panic(fmt.Sprintf("super: %d blocks but disk has %d", nblocks, disksz))
	}
	s := MkFsSuper(nblocks)
	util.DPrintf(1, "super: %v\n", s)
	return s
}
