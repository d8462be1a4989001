package fs

import (
	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/inode"
	"github.com/mit-pdos/go-jfs/jrnl"
)

//
// Journaled operations: write an intent entry, apply the operation, make its
// effects durable, then commit the entry. An entry still present at mount is
// redone by replay, so every operation here must be safe to apply twice.
//
// In deferred mode a finished operation's entry stays present until the next
// header write: the next operation's entry, or settle, which runs before
// anything else reaches disk. Replay therefore never sees an entry older
// than the last persisted change, and redoing it changes nothing.
//

func (fs *FileSys) begin(e *jrnl.Entry) uint64 {
	slot, ok := fs.log.Write(e, fs.done...)
	if !ok {
		fs.drain()
		slot, ok = fs.log.Write(e)
		if !ok {
			panic("begin: journal full after drain")
		}
	}
	fs.done = nil
	fs.maybeCrash(jfs.CrashAfterJournal)
	return slot
}

func (fs *FileSys) commit(slot uint64) {
	fs.maybeCrash(jfs.CrashBeforeCommit)
	if fs.cfg.Commit == CommitSync {
		fs.log.Commit(slot)
		return
	}
	fs.done = append(fs.done, slot)
}

// settle commits finished entries that are still marked present.
func (fs *FileSys) settle() {
	if len(fs.done) == 0 {
		return
	}
	fs.log.Commit(fs.done...)
	fs.done = nil
}

// drain makes every journaled operation durable and empties the journal.
func (fs *FileSys) drain() {
	util.DPrintf(1, "drain: %d entries\n", len(fs.log.Pending()))
	fs.bc.FlushAll()
	fs.log.Clear()
	fs.done = nil
}

func (fs *FileSys) Create(path string) (*inode.File, error) {
	return fs.createKind(path, jfs.FTYPE_REG, jrnl.KindCreate)
}

func (fs *FileSys) Mkdir(path string) (*inode.File, error) {
	return fs.createKind(path, jfs.FTYPE_DIR, jrnl.KindMkdir)
}

func (fs *FileSys) createKind(path string, kind jfs.Ftype, k jrnl.Kind) (*inode.File, error) {
	if uint64(len(path)) >= jfs.MAXPATHLEN {
		return nil, jfs.EBADPATH
	}
	slot := fs.begin(&jrnl.Entry{Kind: k, Path: path})
	f, err := fs.create(path, kind)
	fs.commit(slot)
	return f, err
}

func (fs *FileSys) Remove(path string) error {
	if uint64(len(path)) >= jfs.MAXPATHLEN {
		return jfs.EBADPATH
	}
	slot := fs.begin(&jrnl.Entry{Kind: jrnl.KindRemove, Path: path})
	err := fs.remove(path)
	if err == nil {
		fs.vol.Alloc.Flush()
	}
	fs.commit(slot)
	return err
}

// SetSize resizes f, recording f's disk location and name in the journal.
func (fs *FileSys) SetSize(f *inode.File, sz uint64) error {
	if sz > jfs.MAXFILESZ {
		return jfs.EINVAL
	}
	slot := fs.begin(&jrnl.Entry{Kind: jrnl.KindResize, Path: f.Name, Size: sz, Loc: f.Addr})
	err := fs.setSize(f, sz)
	if err == nil {
		fs.vol.FlushMeta(f)
		fs.vol.Alloc.Flush()
	}
	fs.commit(slot)
	return err
}

// Sync persists every block and, in deferred mode, retires the journal.
func (fs *FileSys) Sync() {
	if fs.cfg.Commit == CommitDeferred {
		fs.drain()
		return
	}
	fs.bc.FlushAll()
}

func (fs *FileSys) redo(e *jrnl.Entry) error {
	switch e.Kind {
	case jrnl.KindCreate, jrnl.KindMkdir:
		kind := jfs.FTYPE_REG
		if e.Kind == jrnl.KindMkdir {
			kind = jfs.FTYPE_DIR
		}
		_, err := fs.create(e.Path, kind)
		if err == jfs.EEXISTS {
			return nil
		}
		return err
	case jrnl.KindRemove:
		err := fs.remove(e.Path)
		if err == jfs.ENOTFOUND {
			return nil
		}
		return err
	case jrnl.KindResize:
		f := fs.vol.Get(e.Loc)
		if f.Free() || !f.HasName(e.Path) {
			// removed (and maybe reused) by a later operation
			return nil
		}
		return fs.setSize(f, e.Size)
	}
	panic("redo: unknown entry kind")
}

// replay redoes each present entry in slot order, then syncs and clears the
// journal. It returns the number of entries replayed.
func (fs *FileSys) replay() int {
	slots := fs.log.Pending()
	for _, slot := range slots {
		e := fs.log.Read(slot)
		err := fs.redo(e)
		util.DPrintf(0, "replay %d: %v: %v\n", slot, e, err)
	}
	fs.bc.FlushAll()
	fs.log.Clear()
	return len(slots)
}
