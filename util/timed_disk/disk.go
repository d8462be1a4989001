package timed_disk

import (
	"io"
	"time"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-jfs/util/stats"
)

// Disk wraps a disk.Disk and records the latency of each call.
type Disk struct {
	d     disk.Disk
	stats *stats.Set
}

const (
	readOp int = iota
	writeOp
	barrierOp
)

var opNames = []string{"disk.Read", "disk.Write", "disk.Barrier"}

func New(d disk.Disk) *Disk {
	return &Disk{d: d, stats: stats.NewSet(opNames)}
}

var _ disk.Disk = &Disk{}

func (d *Disk) ReadTo(a uint64, b disk.Block) {
	defer d.stats.Record(readOp, time.Now())
	d.d.ReadTo(a, b)
}

func (d *Disk) Read(a uint64) disk.Block {
	buf := make(disk.Block, disk.BlockSize)
	d.ReadTo(a, buf)
	return buf
}

func (d *Disk) Write(a uint64, b disk.Block) {
	defer d.stats.Record(writeOp, time.Now())
	d.d.Write(a, b)
}

func (d *Disk) Barrier() {
	defer d.stats.Record(barrierOp, time.Now())
	d.d.Barrier()
}

func (d *Disk) Size() uint64 {
	return d.d.Size()
}

func (d *Disk) Close() {
	d.d.Close()
}

// Writes returns the number of blocks written so far.
func (d *Disk) Writes() uint32 {
	return d.stats.Get(writeOp).Count()
}

func (d *Disk) WriteStats(w io.Writer) {
	d.stats.WriteTable(w)
}

func (d *Disk) ResetStats() {
	d.stats.Reset()
}
