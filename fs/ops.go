package fs

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/dir"
	"github.com/mit-pdos/go-jfs/inode"
)

//
// Unjournaled operations. Each leaves its effects durable except for blocks
// freed by truncation, whose bitmap bits are persisted by the caller.
//

func (fs *FileSys) walk(path string) (*dir.Walk, error) {
	return dir.WalkPath(fs.vol, fs.Root(), path)
}

// create makes an empty file of the given kind at path and persists the
// parent directory.
func (fs *FileSys) create(path string, kind jfs.Ftype) (*inode.File, error) {
	w, err := fs.walk(path)
	if err == nil {
		return nil, jfs.EEXISTS
	}
	if err != jfs.ENOTFOUND || w == nil {
		return nil, err
	}
	if dir.IllegalName(w.Last) {
		return nil, jfs.EBADPATH
	}
	oldsz := w.Dir.Size
	f, err := dir.AllocSlot(fs.vol, w.Dir)
	if err != nil {
		return nil, err
	}
	fs.vol.Init(f, w.Last, kind)
	fs.bc.Flush(f.Addr.Blkno)
	if w.Dir.Size != oldsz {
		fs.vol.Flush(w.Dir)
	}
	util.DPrintf(1, "create %q -> %v\n", path, f)
	return f, nil
}

// remove frees path's blocks and its record.
func (fs *FileSys) remove(path string) error {
	w, err := fs.walk(path)
	if err != nil {
		return err
	}
	f := w.File
	if w.Dir == nil {
		return jfs.EINVAL
	}
	if f.IsDir() {
		empty, err := dir.Empty(fs.vol, f)
		if err != nil {
			return err
		}
		if !empty {
			return jfs.EINVAL
		}
	}
	fs.vol.TruncateBlocks(f, 0)
	f.Name = ""
	f.Size = 0
	fs.vol.Put(f)
	fs.maybeCrash(jfs.CrashBeforeRecordFlush)
	fs.bc.Flush(f.Addr.Blkno)
	util.DPrintf(1, "remove %q\n", path)
	return nil
}

func (fs *FileSys) setSize(f *inode.File, sz uint64) error {
	if f.IsDir() && sz%disk.BlockSize != 0 {
		return jfs.EINVAL
	}
	return fs.vol.SetSize(f, sz)
}

// Open resolves path.
func (fs *FileSys) Open(path string) (*inode.File, error) {
	w, err := fs.walk(path)
	if err != nil {
		return nil, err
	}
	return w.File, nil
}

func (fs *FileSys) Read(f *inode.File, data []byte, off uint64) (uint64, error) {
	return fs.vol.Read(f, data, off)
}

// Write stores data at off. Growth past the end is not journaled; the new
// size is persisted directly.
func (fs *FileSys) Write(f *inode.File, data []byte, off uint64) (uint64, error) {
	if f.IsDir() {
		return 0, jfs.EINVAL
	}
	return fs.vol.Write(f, data, off)
}

// Flush persists f's data and metadata.
func (fs *FileSys) Flush(f *inode.File) {
	fs.vol.Flush(f)
}

// List returns the names in the directory at path.
func (fs *FileSys) List(path string) ([]*inode.File, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	return dir.List(fs.vol, f)
}
