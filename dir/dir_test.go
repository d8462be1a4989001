package dir

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/addr"

	"github.com/mit-pdos/go-jfs/alloc"
	"github.com/mit-pdos/go-jfs/bcache"
	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/inode"
)

const DISKSZ uint64 = 1000

func mkRoot(t *testing.T) (*inode.Vol, *inode.File) {
	d := disk.NewMemDisk(DISKSZ)
	bc := bcache.MkBcache(d)
	v := inode.MkVol(bc, alloc.Format(bc, 2, DISKSZ, 12))
	root := v.Get(addr.MkAddr(1, 64))
	v.Init(root, "/", jfs.FTYPE_DIR)
	return v, root
}

func mkEntry(t *testing.T, v *inode.Vol, dir *inode.File, name string, kind jfs.Ftype) *inode.File {
	f, err := AllocSlot(v, dir)
	require.NoError(t, err)
	v.Init(f, name, kind)
	return f
}

func TestLookup(t *testing.T) {
	assert := assert.New(t)
	v, root := mkRoot(t)

	_, err := Lookup(v, root, "a")
	assert.Equal(jfs.ENOTFOUND, err)

	a := mkEntry(t, v, root, "a", jfs.FTYPE_REG)
	assert.Equal(disk.BlockSize, root.Size)
	f, err := Lookup(v, root, "a")
	assert.NoError(err)
	assert.Same(a, f)

	_, err = Lookup(v, a, "x")
	assert.Equal(jfs.ENOTFOUND, err, "lookup in a regular file")
}

func TestAllocSlotGrowth(t *testing.T) {
	assert := assert.New(t)
	v, root := mkRoot(t)

	var files []*inode.File
	for i := uint64(0); i < jfs.BLKFILES; i++ {
		files = append(files, mkEntry(t, v, root, fmt.Sprintf("f%d", i), jfs.FTYPE_REG))
	}
	assert.Equal(disk.BlockSize, root.Size)

	g := mkEntry(t, v, root, "g", jfs.FTYPE_REG)
	assert.Equal(2*disk.BlockSize, root.Size)
	assert.Equal(uint64(0), g.Addr.Off, "first slot of the new block")

	// a freed slot is reused without growing
	files[3].Name = ""
	v.Put(files[3])
	f, err := AllocSlot(v, root)
	assert.NoError(err)
	assert.Same(files[3], f)
	assert.Equal(2*disk.BlockSize, root.Size)
}

func TestAllocSlotNoSpace(t *testing.T) {
	d := disk.NewMemDisk(13)
	bc := bcache.MkBcache(d)
	v := inode.MkVol(bc, alloc.Format(bc, 2, 13, 13))
	root := v.Get(addr.MkAddr(1, 64))
	v.Init(root, "/", jfs.FTYPE_DIR)

	_, err := AllocSlot(v, root)
	assert.Equal(t, jfs.ENODISK, err)
	assert.Equal(t, uint64(0), root.Size, "size restored")
}

func TestList(t *testing.T) {
	v, root := mkRoot(t)
	empty, err := Empty(v, root)
	assert.NoError(t, err)
	assert.True(t, empty)

	mkEntry(t, v, root, "a", jfs.FTYPE_REG)
	b := mkEntry(t, v, root, "b", jfs.FTYPE_DIR)
	mkEntry(t, v, root, "c", jfs.FTYPE_REG)
	b.Name = ""
	v.Put(b)

	files, err := List(v, root)
	assert.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestWalkPath(t *testing.T) {
	assert := assert.New(t)
	v, root := mkRoot(t)
	sub := mkEntry(t, v, root, "sub", jfs.FTYPE_DIR)
	x := mkEntry(t, v, sub, "x", jfs.FTYPE_REG)
	mkEntry(t, v, root, "plain", jfs.FTYPE_REG)

	w, err := WalkPath(v, root, "")
	assert.NoError(err)
	assert.Same(root, w.File)

	w, err = WalkPath(v, root, "//sub///x")
	assert.NoError(err)
	assert.Same(sub, w.Dir)
	assert.Same(x, w.File)
	assert.Equal("x", w.Last)

	w, err = WalkPath(v, root, "/sub/y")
	assert.Equal(jfs.ENOTFOUND, err)
	require.NotNil(t, w)
	assert.Same(sub, w.Dir)
	assert.Nil(w.File)
	assert.Equal("y", w.Last)

	w, err = WalkPath(v, root, "/nodir/y")
	assert.Equal(jfs.ENOTFOUND, err)
	assert.Nil(w)

	_, err = WalkPath(v, root, "/plain/y")
	assert.Equal(jfs.ENOTFOUND, err)

	long := strings.Repeat("n", int(jfs.MAXNAMELEN))
	_, err = WalkPath(v, root, "/"+long)
	assert.Equal(jfs.EBADPATH, err)
	_, err = WalkPath(v, root, "/"+long[1:])
	assert.Equal(jfs.ENOTFOUND, err, "127 bytes fits")
}

func TestElems(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Elems("//a///b/"))
	assert.Empty(t, Elems("///"))
}
