// Package jrnl implements the intent journal: a header block with a presence
// bitmap followed by NJENTRY fixed-size entries. An entry that is present
// describes an operation that may not have reached disk and must be redone
// at mount.
package jrnl

import (
	"fmt"

	"github.com/tchajed/goose/machine"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/addr"
	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/bcache"
	jfs "github.com/mit-pdos/go-jfs/common"
)

const JRNL_MAGIC uint32 = 0x4A524E4C

type Kind uint32

const (
	KindCreate Kind = 1
	KindRemove Kind = 2
	KindResize Kind = 3
	KindMkdir  Kind = 4
)

var kindNames = map[Kind]string{
	KindCreate: "create",
	KindRemove: "remove",
	KindResize: "resize",
	KindMkdir:  "mkdir",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Entry records one intended mutation. Create, mkdir and remove name the
// file by path; resize names the record by its disk location, with Path
// holding the file's name at the time.
type Entry struct {
	Kind Kind
	Path string
	Size uint64
	Loc  addr.Addr
}

func (e *Entry) String() string {
	if e.Kind == KindResize {
		return fmt.Sprintf("%v %q@%d.%d -> %d", e.Kind, e.Path, e.Loc.Blkno, e.Loc.Off/8, e.Size)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Path)
}

func (e *Entry) Encode() []byte {
	if uint64(len(e.Path)) > jfs.MAXPATHLEN {
		panic("Encode: path too long")
	}
	enc := marshal.NewEnc(jfs.JENTRYSZ)
	enc.PutInt32(uint32(e.Kind))
	enc.PutInt32(uint32(len(e.Path)))
	enc.PutInt(e.Size)
	enc.PutInt(e.Loc.Blkno)
	enc.PutInt(e.Loc.Off)
	enc.PutBytes([]byte(e.Path))
	return enc.Finish()
}

func Decode(b []byte) *Entry {
	dec := marshal.NewDec(b)
	e := &Entry{}
	e.Kind = Kind(dec.GetInt32())
	n := uint64(dec.GetInt32())
	e.Size = dec.GetInt()
	blkno := dec.GetInt()
	off := dec.GetInt()
	e.Loc = addr.MkAddr(blkno, off)
	if n > jfs.MAXPATHLEN {
		panic(fmt.Sprintf("Decode: bad path length %d", n))
	}
	e.Path = string(dec.GetBytes(n))
	return e
}

//
// Header block layout: magic (u32), number of entries (u32), presence bitmap
// (one bit per entry).
//

const (
	hdrMagic   = 0
	hdrCount   = 4
	hdrPresent = 8
)

type Log struct {
	bc    *bcache.Bcache
	start common.Bnum
}

// Format writes an empty journal header at start.
func Format(bc *bcache.Bcache, start common.Bnum) *Log {
	hdr := bc.Zero(start)
	machine.UInt32Put(hdr[hdrMagic:], JRNL_MAGIC)
	machine.UInt32Put(hdr[hdrCount:], uint32(jfs.NJENTRY))
	bc.Flush(start)
	return &Log{bc: bc, start: start}
}

// Open checks the journal header at start.
func Open(bc *bcache.Bcache, start common.Bnum) *Log {
	hdr := bc.Block(start)
	if machine.UInt32Get(hdr[hdrMagic:]) != JRNL_MAGIC {
		panic("jrnl: bad magic")
	}
	if n := machine.UInt32Get(hdr[hdrCount:]); uint64(n) != jfs.NJENTRY {
		panic(fmt.Sprintf("jrnl: %d entries, expected %d", n, jfs.NJENTRY))
	}
	return &Log{bc: bc, start: start}
}

func (l *Log) hdr() []byte {
	return l.bc.Block(l.start)
}

func (l *Log) entryLoc(slot uint64) (common.Bnum, uint64) {
	return l.start + 1 + slot/jfs.JBLKENTRY, (slot % jfs.JBLKENTRY) * jfs.JENTRYSZ
}

func (l *Log) IsPresent(slot uint64) bool {
	return l.hdr()[hdrPresent+slot/8]&(1<<(slot%8)) != 0
}

func (l *Log) setPresent(slot uint64, present bool) {
	mask := byte(1) << (slot % 8)
	if present {
		l.hdr()[hdrPresent+slot/8] |= mask
	} else {
		l.hdr()[hdrPresent+slot/8] &^= mask
	}
}

// Write stores e in the first free slot and persists it, entry block first
// and then the header. The slots in done are committed by the same header
// write; they are never chosen for e. It returns false if every slot is
// taken, in which case nothing is written.
func (l *Log) Write(e *Entry, done ...uint64) (uint64, bool) {
	for slot := uint64(0); slot < jfs.NJENTRY; slot++ {
		if l.IsPresent(slot) {
			continue
		}
		bn, off := l.entryLoc(slot)
		copy(l.bc.Block(bn)[off:off+jfs.JENTRYSZ], e.Encode())
		l.bc.Flush(bn)
		for _, d := range done {
			l.retire(d)
		}
		l.setPresent(slot, true)
		l.bc.Flush(l.start)
		util.DPrintf(1, "jrnl: write %d (done %v): %v\n", slot, done, e)
		return slot, true
	}
	return 0, false
}

func (l *Log) retire(slot uint64) {
	if !l.IsPresent(slot) {
		panic(fmt.Sprintf("retire: slot %d not present", slot))
	}
	l.setPresent(slot, false)
}

// Commit marks slots done and persists the header.
func (l *Log) Commit(slots ...uint64) {
	for _, slot := range slots {
		l.retire(slot)
	}
	l.bc.Flush(l.start)
	util.DPrintf(1, "jrnl: commit %v\n", slots)
}

// Read returns the entry stored in slot.
func (l *Log) Read(slot uint64) *Entry {
	bn, off := l.entryLoc(slot)
	return Decode(l.bc.Block(bn)[off : off+jfs.JENTRYSZ])
}

// Pending returns the present slots in slot order.
func (l *Log) Pending() []uint64 {
	var slots []uint64
	for slot := uint64(0); slot < jfs.NJENTRY; slot++ {
		if l.IsPresent(slot) {
			slots = append(slots, slot)
		}
	}
	return slots
}

func (l *Log) Full() bool {
	return uint64(len(l.Pending())) == jfs.NJENTRY
}

// Clear marks every entry done and persists the header.
func (l *Log) Clear() {
	for slot := uint64(0); slot < jfs.NJENTRY; slot++ {
		l.setPresent(slot, false)
	}
	l.bc.Flush(l.start)
	util.DPrintf(1, "jrnl: clear\n")
}
