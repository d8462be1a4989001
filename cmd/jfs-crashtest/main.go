// jfs-crashtest runs each journaled operation with each crash point armed,
// reboots, and checks that the operation took effect exactly once.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rodaine/table"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/fs"
	"github.com/mit-pdos/go-jfs/util/diskimg"
)

const NBLOCKS uint64 = 4096

type scenario struct {
	name   string
	points []jfs.CrashPoint
	// setup runs on the first boot before the crash point is armed
	setup func(fsys *fs.FileSys) error
	// op is the operation that crashes
	op func(fsys *fs.FileSys)
	// check runs on the second boot
	check func(fsys *fs.FileSys) error
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

func writeFile(fsys *fs.FileSys, path string, sz uint64) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := fsys.Write(f, mkdata(sz), 0); err != nil {
		return err
	}
	fsys.Flush(f)
	return nil
}

func expectSize(fsys *fs.FileSys, path string, sz uint64) error {
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	if f.Size != sz {
		return fmt.Errorf("%s: size %d, expected %d", path, f.Size, sz)
	}
	return nil
}

var scenarios = []scenario{
	{
		name:   "create",
		points: []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashBeforeCommit},
		setup:  func(fsys *fs.FileSys) error { return nil },
		op:     func(fsys *fs.FileSys) { fsys.Create("/f") },
		check:  func(fsys *fs.FileSys) error { return expectSize(fsys, "/f", 0) },
	},
	{
		name:   "create-grow",
		points: []jfs.CrashPoint{jfs.CrashMidFlush},
		setup: func(fsys *fs.FileSys) error {
			for i := uint64(0); i < jfs.BLKFILES; i++ {
				if _, err := fsys.Create(fmt.Sprintf("/f%d", i)); err != nil {
					return err
				}
			}
			return nil
		},
		op:    func(fsys *fs.FileSys) { fsys.Create("/g") },
		check: func(fsys *fs.FileSys) error { return expectSize(fsys, "/g", 0) },
	},
	{
		name: "remove",
		points: []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashBeforeRecordFlush,
			jfs.CrashBeforeCommit},
		setup: func(fsys *fs.FileSys) error { return writeFile(fsys, "/f", 3*disk.BlockSize) },
		op:    func(fsys *fs.FileSys) { fsys.Remove("/f") },
		check: func(fsys *fs.FileSys) error {
			if _, err := fsys.Open("/f"); err != jfs.ENOTFOUND {
				return fmt.Errorf("/f still present (%v)", err)
			}
			return nil
		},
	},
	{
		name: "resize",
		points: []jfs.CrashPoint{jfs.CrashAfterJournal, jfs.CrashMidTruncate,
			jfs.CrashBeforeRecordFlush, jfs.CrashBeforeCommit},
		setup: func(fsys *fs.FileSys) error {
			return writeFile(fsys, "/f", (jfs.NDIRECT+2)*disk.BlockSize)
		},
		op: func(fsys *fs.FileSys) {
			f, _ := fsys.Open("/f")
			fsys.SetSize(f, disk.BlockSize)
		},
		check: func(fsys *fs.FileSys) error { return expectSize(fsys, "/f", disk.BlockSize) },
	},
}

// crashed runs op and reports whether it stopped at the armed crash point.
func crashed(op func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if r != jfs.ErrCrashed {
				panic(r)
			}
			ok = true
		}
	}()
	op()
	return false
}

type result struct {
	replayed int
	free     uint64
	err      error
}

func run(path string, sc scenario, p jfs.CrashPoint) result {
	os.Remove(path)
	img, err := diskimg.Open(path, NBLOCKS)
	if err != nil {
		return result{err: err}
	}
	fs.Mkfs(img)
	fsys := fs.Mount(img, fs.DefaultConfig())
	if err := sc.setup(fsys); err != nil {
		img.Close()
		return result{err: fmt.Errorf("setup: %w", err)}
	}
	fsys.CrashAt(p)
	if !crashed(func() { sc.op(fsys) }) {
		img.Close()
		return result{err: fmt.Errorf("did not reach %v", p)}
	}
	img.Close()

	img, err = diskimg.Open(path, NBLOCKS)
	if err != nil {
		return result{err: err}
	}
	defer img.Close()
	fsys = fs.Mount(img, fs.DefaultConfig())
	return result{replayed: fsys.Replayed(), free: fsys.NumFree(), err: sc.check(fsys)}
}

func main() {
	var dir string
	flag.StringVar(&dir, "dir", os.TempDir(), "directory for the disk image")
	verbose := flag.Bool("v", false, "show mount logging")
	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	flag.Parse()

	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	path := filepath.Join(dir, "jfs-crashtest-"+uuid.New().String()+".img")
	defer os.Remove(path)

	failed := 0
	tbl := table.New("op", "crash point", "replayed", "free", "result")
	for _, sc := range scenarios {
		for _, p := range sc.points {
			r := run(path, sc, p)
			status := "ok"
			if r.err != nil {
				status = r.err.Error()
				failed++
			}
			tbl.AddRow(sc.name, p, r.replayed, r.free, status)
		}
	}
	tbl.WithWriter(os.Stdout).Print()
	if failed > 0 {
		fmt.Printf("%d failures\n", failed)
		os.Exit(1)
	}
}
