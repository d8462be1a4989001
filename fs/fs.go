package fs

import (
	"log"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/alloc"
	"github.com/mit-pdos/go-jfs/bcache"
	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/inode"
	"github.com/mit-pdos/go-jfs/jrnl"
	"github.com/mit-pdos/go-jfs/super"
)

type CommitMode int

const (
	// CommitSync clears each journal entry as soon as its operation is
	// durable.
	CommitSync CommitMode = iota
	// CommitDeferred leaves entries present until the journal fills up or
	// the file system is synced.
	CommitDeferred
)

func ParseCommitMode(s string) (CommitMode, bool) {
	switch s {
	case "sync":
		return CommitSync, true
	case "deferred":
		return CommitDeferred, true
	}
	return CommitSync, false
}

type Config struct {
	Commit CommitMode
}

func DefaultConfig() Config {
	return Config{Commit: CommitSync}
}

type FileSys struct {
	Super *super.FsSuper
	bc    *bcache.Bcache
	vol   *inode.Vol
	log   *jrnl.Log
	cfg   Config

	crashAt  jfs.CrashPoint
	replayed int

	// finished operations whose entries are not yet committed on disk
	done []uint64
}

// Mkfs formats d: superblock, a bitmap with the metadata region in use, an
// empty journal, and an empty root directory.
func Mkfs(d disk.Disk) {
	sz := d.Size()
	s := super.MkFsSuper(sz)
	util.DPrintf(1, "Mkfs: %v\n", s)
	bc := bcache.MkBcache(d)

	bc.Zero(0)
	bc.Flush(0)
	s.Encode(bc.Zero(super.SUPERBLK))

	a := alloc.Format(bc, s.BitmapStart(), sz, s.DataStart())
	jrnl.Format(bc, s.JournalStart())
	for i := uint64(0); i < jfs.NJBLOCK; i++ {
		bc.Zero(s.JournalStart() + 1 + i)
		bc.Flush(s.JournalStart() + 1 + i)
	}

	v := inode.MkVol(bc, a)
	root := v.Get(super.RootAddr())
	v.Init(root, "/", jfs.FTYPE_DIR)
	v.PutFlush(root)
	bc.Barrier()
}

// Mount checks the volume on d and redoes any operations left in the
// journal by a crash.
func Mount(d disk.Disk, cfg Config) *FileSys {
	bc := bcache.MkBcache(d)
	s := super.Decode(bc.Block(super.SUPERBLK), d.Size())
	a := alloc.MkAlloc(bc, s.BitmapStart(), s.Nblocks)
	a.Check(s.DataStart())
	fs := &FileSys{
		Super: s,
		bc:    bc,
		vol:   inode.MkVol(bc, a),
		log:   jrnl.Open(bc, s.JournalStart()),
		cfg:   cfg,
	}
	fs.vol.Crash = fs.maybeCrash
	fs.vol.Settle = fs.settle
	root := fs.Root()
	if !root.IsDir() || root.Size%disk.BlockSize != 0 {
		panic("Mount: bad root directory")
	}
	n := fs.replay()
	fs.replayed = n
	log.Printf("mounted %v (%d free), replayed %d journal entries\n",
		s, a.NumFree(), n)
	return fs
}

func (fs *FileSys) Root() *inode.File {
	return fs.vol.Get(super.RootAddr())
}

// CrashAt arms a crash point. When the running operation reaches it the file
// system panics with jfs.ErrCrashed, leaving the disk as a power failure at
// that point would. The FileSys must not be used afterwards.
func (fs *FileSys) CrashAt(p jfs.CrashPoint) {
	fs.crashAt = p
}

func (fs *FileSys) maybeCrash(p jfs.CrashPoint) {
	if fs.crashAt != jfs.CrashNone && fs.crashAt == p {
		util.DPrintf(0, "crash at %v\n", p)
		panic(jfs.ErrCrashed)
	}
}

// Replayed returns the number of journal entries redone at mount.
func (fs *FileSys) Replayed() int {
	return fs.replayed
}

func (fs *FileSys) NumFree() uint64 {
	return fs.vol.Alloc.NumFree()
}
