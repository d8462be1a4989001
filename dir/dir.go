package dir

import (
	"strings"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/addr"
	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/inode"
)

//
// A directory's content is an array of file records, BLKFILES per block.
// A record with an empty name is an unused slot.
//

func IllegalName(name string) bool {
	return name == "." || name == ".."
}

func nblocks(dir *inode.File) uint64 {
	if dir.Size%disk.BlockSize != 0 {
		panic("directory size not a multiple of the block size")
	}
	return dir.Size / disk.BlockSize
}

// scan calls visit on each record of dir until it returns true.
func scan(v *inode.Vol, dir *inode.File, visit func(f *inode.File) bool) (*inode.File, error) {
	for i := uint64(0); i < nblocks(dir); i++ {
		bn, _, err := v.GetBlock(dir, i)
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < jfs.BLKFILES; j++ {
			f := v.Get(addr.MkAddr(bn, j*jfs.FILESZ*8))
			if visit(f) {
				return f, nil
			}
		}
	}
	return nil, jfs.ENOTFOUND
}

// Lookup returns the first record in dir called name.
func Lookup(v *inode.Vol, dir *inode.File, name string) (*inode.File, error) {
	if !dir.IsDir() {
		return nil, jfs.ENOTFOUND
	}
	f, err := scan(v, dir, func(f *inode.File) bool { return f.HasName(name) })
	util.DPrintf(5, "Lookup %q in %q -> %v %v\n", name, dir.Name, f, err)
	return f, err
}

// AllocSlot returns an unused record in dir, growing dir by one block if
// every slot is taken.
func AllocSlot(v *inode.Vol, dir *inode.File) (*inode.File, error) {
	f, err := scan(v, dir, func(f *inode.File) bool { return f.Free() })
	if err != jfs.ENOTFOUND {
		return f, err
	}
	n := nblocks(dir)
	dir.Size += disk.BlockSize
	v.Put(dir)
	bn, _, err := v.GetBlock(dir, n)
	if err != nil {
		dir.Size -= disk.BlockSize
		v.Put(dir)
		return nil, err
	}
	util.DPrintf(1, "AllocSlot: %q grew to %d blocks\n", dir.Name, n+1)
	return v.Get(addr.MkAddr(bn, 0)), nil
}

// List returns the live records of dir.
func List(v *inode.Vol, dir *inode.File) ([]*inode.File, error) {
	if !dir.IsDir() {
		return nil, jfs.EINVAL
	}
	var files []*inode.File
	_, err := scan(v, dir, func(f *inode.File) bool {
		if !f.Free() {
			files = append(files, f)
		}
		return false
	})
	if err != jfs.ENOTFOUND {
		return nil, err
	}
	return files, nil
}

// Empty reports whether dir has no live records.
func Empty(v *inode.Vol, dir *inode.File) (bool, error) {
	files, err := List(v, dir)
	return len(files) == 0, err
}

// Walk is the result of resolving a path. When the path names an existing
// file, File is set. When only the last element is missing, File is nil and
// Dir and Last name where it would go.
type Walk struct {
	Dir  *inode.File
	File *inode.File
	Last string
}

// Elems splits path into its non-empty elements.
func Elems(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// WalkPath resolves path from root. Repeated slashes are ignored and the
// empty path names root. On ENOTFOUND the returned Walk is non-nil only if
// the parent directory exists.
func WalkPath(v *inode.Vol, root *inode.File, path string) (*Walk, error) {
	if uint64(len(path)) >= jfs.MAXPATHLEN {
		return nil, jfs.EBADPATH
	}
	elems := Elems(path)
	w := &Walk{File: root}
	for i, name := range elems {
		if !inode.ValidName(name) {
			return nil, jfs.EBADPATH
		}
		if !w.File.IsDir() {
			return nil, jfs.ENOTFOUND
		}
		w.Dir = w.File
		w.Last = name
		f, err := Lookup(v, w.Dir, name)
		if err == jfs.ENOTFOUND && i == len(elems)-1 {
			w.File = nil
			return w, err
		}
		if err != nil {
			return nil, err
		}
		w.File = f
	}
	return w, nil
}
