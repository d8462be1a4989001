package fs

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/common"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/inode"
	"github.com/mit-pdos/go-jfs/jrnl"
)

var quiet = flag.Bool("quiet", false, "disable logging")

const DISKSZ uint64 = 2000

func checkFlags() {
	if *quiet {
		log.SetFlags(0)
		log.SetOutput(ioutil.Discard)
	}
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

type TestState struct {
	t   *testing.T
	d   disk.Disk
	cfg Config
	fs  *FileSys
}

func newTest(t *testing.T, cfg Config) *TestState {
	checkFlags()
	d := disk.NewMemDisk(DISKSZ)
	Mkfs(d)
	ts := &TestState{t: t, d: d, cfg: cfg}
	ts.fs = Mount(d, cfg)
	return ts
}

// remount discards everything not on disk and mounts again.
func (ts *TestState) remount() {
	ts.fs = Mount(ts.d, ts.cfg)
}

// crash runs op with p armed, expects it to stop there, and remounts.
func (ts *TestState) crash(p jfs.CrashPoint, op func()) {
	ts.fs.CrashAt(p)
	assert.PanicsWithError(ts.t, jfs.ErrCrashed.Error(), op, "crash at %v", p)
	ts.remount()
}

func (ts *TestState) create(path string) *inode.File {
	f, err := ts.fs.Create(path)
	require.NoError(ts.t, err, "create %s", path)
	return f
}

func (ts *TestState) write(f *inode.File, data []byte) {
	n, err := ts.fs.Write(f, data, 0)
	require.NoError(ts.t, err)
	require.Equal(ts.t, uint64(len(data)), n)
	ts.fs.Flush(f)
}

func (ts *TestState) read(path string) []byte {
	f, err := ts.fs.Open(path)
	require.NoError(ts.t, err, "open %s", path)
	buf := make([]byte, f.Size)
	n, err := ts.fs.Read(f, buf, 0)
	require.NoError(ts.t, err)
	return buf[:n]
}

func TestMkfsMount(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	root := ts.fs.Root()
	assert.True(t, root.IsDir())
	assert.Equal(t, "/", root.Name)
	assert.Equal(t, uint64(0), root.Size)
	assert.Equal(t, DISKSZ-uint64(ts.fs.Super.DataStart()), ts.fs.NumFree())
}

func TestMountBadDisk(t *testing.T) {
	d := disk.NewMemDisk(DISKSZ)
	assert.Panics(t, func() { Mount(d, DefaultConfig()) })
}

func TestCreateOpenRemove(t *testing.T) {
	assert := assert.New(t)
	ts := newTest(t, DefaultConfig())
	nfree := ts.fs.NumFree()

	f := ts.create("/a")
	_, err := ts.fs.Create("/a")
	assert.Equal(jfs.EEXISTS, err)
	_, err = ts.fs.Create("/nodir/a")
	assert.Equal(jfs.ENOTFOUND, err)
	_, err = ts.fs.Create("/..")
	assert.Equal(jfs.EBADPATH, err)

	g, err := ts.fs.Open("//a")
	assert.NoError(err)
	assert.Same(f, g)

	ts.write(f, mkdata(3*disk.BlockSize))
	assert.Equal(nfree-4, ts.fs.NumFree(), "3 data blocks and a directory block")

	assert.NoError(ts.fs.Remove("/a"))
	assert.Equal(nfree-1, ts.fs.NumFree())
	_, err = ts.fs.Open("/a")
	assert.Equal(jfs.ENOTFOUND, err)
	assert.Equal(jfs.ENOTFOUND, ts.fs.Remove("/a"))
	assert.Equal(jfs.EINVAL, ts.fs.Remove("/"))
}

func TestDirSlotReuse(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	a := ts.create("/a")
	ts.create("/b")
	sz := ts.fs.Root().Size

	require.NoError(t, ts.fs.Remove("/a"))
	c := ts.create("/c")
	assert.Equal(t, a.Addr, c.Addr)
	assert.Equal(t, sz, ts.fs.Root().Size, "directory did not grow")

	ts.remount()
	files, err := ts.fs.List("/")
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"b", "c"}, names)
}

func TestMkdir(t *testing.T) {
	assert := assert.New(t)
	ts := newTest(t, DefaultConfig())

	d, err := ts.fs.Mkdir("/d")
	require.NoError(t, err)
	assert.True(d.IsDir())
	f := ts.create("/d/f")
	ts.write(f, mkdata(10))

	assert.Equal(jfs.EINVAL, ts.fs.Remove("/d"), "not empty")
	_, err = ts.fs.Write(d, []byte{1}, 0)
	assert.Equal(jfs.EINVAL, err)
	assert.Equal(jfs.EINVAL, ts.fs.SetSize(d, 10))

	files, err := ts.fs.List("/d")
	assert.NoError(err)
	require.Len(t, files, 1)
	assert.Equal("f", files[0].Name)

	ts.remount()
	assert.Equal(mkdata(10), ts.read("/d/f"))
	assert.NoError(ts.fs.Remove("/d/f"))
	assert.NoError(ts.fs.Remove("/d"))
}

func TestEndToEnd(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	data := mkdata(5000)
	f := ts.create("/newmotd")
	ts.write(f, data)
	ts.remount()
	assert.Equal(t, data, ts.read("/newmotd"))
}

func TestIndirectRoundTrip(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	sz := jfs.NDIRECT*disk.BlockSize + 5000
	data := mkdata(sz)
	f := ts.create("/big")
	ts.write(f, data)
	ts.remount()
	assert.Equal(t, data, ts.read("/big"))
	g, err := ts.fs.Open("/big")
	require.NoError(t, err)
	assert.Equal(t, sz, g.Size)
	assert.NotEqual(t, common.NULLBNUM, g.Indirect())
}

func TestIndirectZeroedOnDisk(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	old := bytes.Repeat([]byte{0xff}, int((jfs.NDIRECT+4)*disk.BlockSize))
	ts.write(ts.create("/a"), old)
	require.NoError(t, ts.fs.Remove("/a"))

	f := ts.create("/b")
	data := mkdata((jfs.NDIRECT + 1) * disk.BlockSize)
	ts.write(f, data)
	// grows the file (persisting its record) without flushing the data
	_, err := ts.fs.Write(f, []byte{1}, (jfs.NDIRECT+2)*disk.BlockSize)
	require.NoError(t, err)

	ts.remount()
	got := ts.read("/b")
	require.Len(t, got, int((jfs.NDIRECT+2)*disk.BlockSize+1))
	assert.Equal(t, data, got[:len(data)])
	assert.Equal(t, make([]byte, len(got)-len(data)), got[len(data):],
		"blocks never written read as zeros")
}

func TestUnflushedLost(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	f := ts.create("/f")
	_, err := ts.fs.Write(f, mkdata(100), 0)
	require.NoError(t, err)
	ts.remount()
	// the size reached disk, the data did not
	assert.Equal(t, make([]byte, 100), ts.read("/f"))
}

func TestCrashCreate(t *testing.T) {
	for _, p := range []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashBeforeCommit} {
		t.Run(p.String(), func(t *testing.T) {
			ts := newTest(t, DefaultConfig())
			ts.crash(p, func() { ts.fs.Create("/f") })
			f, err := ts.fs.Open("/f")
			require.NoError(t, err)
			assert.Equal(t, uint64(0), f.Size)
			assert.Empty(t, ts.fs.log.Pending())
		})
	}
}

func TestCrashCreateDirGrowth(t *testing.T) {
	ts := newTest(t, DefaultConfig())
	for i := uint64(0); i < jfs.BLKFILES; i++ {
		ts.create(fmt.Sprintf("/f%d", i))
	}
	ts.crash(jfs.CrashMidFlush, func() { ts.fs.Create("/g") })

	files, err := ts.fs.List("/")
	require.NoError(t, err)
	assert.Len(t, files, int(jfs.BLKFILES)+1)
	_, err = ts.fs.Open("/g")
	assert.NoError(t, err)
	_, err = ts.fs.Open("/f15")
	assert.NoError(t, err)
}

func TestCrashRemove(t *testing.T) {
	for _, p := range []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashBeforeRecordFlush, jfs.CrashBeforeCommit} {
		t.Run(p.String(), func(t *testing.T) {
			ts := newTest(t, DefaultConfig())
			ts.write(ts.create("/f"), mkdata(3*disk.BlockSize))
			nfree := ts.fs.NumFree()

			ts.crash(p, func() { ts.fs.Remove("/f") })
			_, err := ts.fs.Open("/f")
			assert.Equal(t, jfs.ENOTFOUND, err)
			assert.Equal(t, nfree+3, ts.fs.NumFree())
		})
	}
}

func TestCrashResize(t *testing.T) {
	for _, p := range []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashMidTruncate,
		jfs.CrashBeforeRecordFlush, jfs.CrashBeforeCommit} {
		t.Run(p.String(), func(t *testing.T) {
			ts := newTest(t, DefaultConfig())
			data := mkdata((jfs.NDIRECT + 2) * disk.BlockSize)
			f := ts.create("/f")
			ts.write(f, data)
			nfree := ts.fs.NumFree()

			ts.crash(p, func() { ts.fs.SetSize(f, disk.BlockSize) })
			assert.Equal(t, data[:disk.BlockSize], ts.read("/f"))
			assert.Equal(t, nfree+jfs.NDIRECT+2, ts.fs.NumFree(), "11 data blocks and the indirect block")
		})
	}
}

func TestResizeReplayAfterReuse(t *testing.T) {
	ts := newTest(t, Config{Commit: CommitDeferred})
	f := ts.create("/f")
	ts.write(f, mkdata(2*disk.BlockSize))
	require.NoError(t, ts.fs.SetSize(f, disk.BlockSize))
	require.NoError(t, ts.fs.Remove("/f"))
	g := ts.create("/g")
	assert.Equal(t, f.Addr, g.Addr, "slot reused")
	ts.write(g, mkdata(3*disk.BlockSize))

	// replays create, resize, remove, create; the resize must not touch /g
	ts.remount()
	assert.Equal(t, mkdata(3*disk.BlockSize), ts.read("/g"))
}

func TestDeferredCommit(t *testing.T) {
	ts := newTest(t, Config{Commit: CommitDeferred})
	n := jfs.NJENTRY + 5
	for i := uint64(0); i < n; i++ {
		ts.create(fmt.Sprintf("/f%d", i))
		assert.Len(t, ts.fs.log.Pending(), 1, "committed by the next entry")
	}

	ts.crash(jfs.CrashAfterJournal, func() { ts.fs.Create("/last") })
	files, err := ts.fs.List("/")
	require.NoError(t, err)
	assert.Len(t, files, int(n)+1)

	ts.create("/x")
	ts.fs.Sync()
	assert.Empty(t, ts.fs.log.Pending())
}

func TestDeferredDrainWhenFull(t *testing.T) {
	ts := newTest(t, Config{Commit: CommitDeferred})
	ts.create("/a")
	for !ts.fs.log.Full() {
		_, ok := ts.fs.log.Write(&jrnl.Entry{Kind: jrnl.KindCreate, Path: "/a"})
		require.True(t, ok)
	}
	ts.create("/b")
	assert.Len(t, ts.fs.log.Pending(), 1, "drained before writing /b's entry")

	ts.remount()
	assert.Equal(t, 1, ts.fs.Replayed())
	_, err := ts.fs.Open("/b")
	assert.NoError(t, err)
}

func TestDeferredFlushSurvivesReplay(t *testing.T) {
	ts := newTest(t, Config{Commit: CommitDeferred})
	ts.write(ts.create("/f"), mkdata(disk.BlockSize))
	require.NoError(t, ts.fs.Remove("/f"))
	data := mkdata(3 * disk.BlockSize)
	ts.write(ts.create("/f"), data)

	ts.remount()
	assert.Equal(t, data, ts.read("/f"))

	f, err := ts.fs.Open("/f")
	require.NoError(t, err)
	require.NoError(t, ts.fs.SetSize(f, 0))
	data = mkdata(2 * disk.BlockSize)
	ts.write(f, data)

	ts.remount()
	assert.Equal(t, data, ts.read("/f"))
	assert.Equal(t, 0, ts.fs.Replayed())
}
