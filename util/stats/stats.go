// package stats tracks operation latencies
package stats

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rodaine/table"
)

type Op struct {
	count uint32
	nanos uint64
}

func (op *Op) Record(start time.Time) {
	atomic.AddUint32(&op.count, 1)
	dur := time.Since(start)
	atomic.AddUint64(&op.nanos, uint64(dur.Nanoseconds()))
}

func (op *Op) Reset() {
	atomic.StoreUint32(&op.count, 0)
	atomic.StoreUint64(&op.nanos, 0)
}

func (op *Op) load() Op {
	return Op{
		count: atomic.LoadUint32(&op.count),
		nanos: atomic.LoadUint64(&op.nanos),
	}
}

func (op Op) Count() uint32 {
	return op.count
}

func (op Op) MicrosPerOp() float64 {
	if op.count == 0 {
		return 0
	}
	return float64(op.nanos) / float64(op.count) / 1e3
}

// Set is a named group of operations, reported as one table.
type Set struct {
	names []string
	ops   []Op
}

func NewSet(names []string) *Set {
	return &Set{names: names, ops: make([]Op, len(names))}
}

func (s *Set) Record(i int, start time.Time) {
	s.ops[i].Record(start)
}

func (s *Set) Get(i int) Op {
	return s.ops[i].load()
}

func (s *Set) Reset() {
	for i := range s.ops {
		s.ops[i].Reset()
	}
}

func (s *Set) WriteTable(w io.Writer) {
	WriteTable(s.names, s.ops, w)
}

func WriteTable(names []string, ops []Op, w io.Writer) {
	if len(names) != len(ops) {
		panic("mismatched names and ops lists")
	}
	tbl := table.New("op", "count", "us")
	var total Op
	for i, name := range names {
		op := ops[i].load()
		total.count += op.count
		total.nanos += op.nanos
		if op.count == 0 {
			continue
		}
		tbl.AddRow(name, op.count, fmt.Sprintf("%0.1f us/op", op.MicrosPerOp()))
	}
	tbl.AddRow("total", total.count, fmt.Sprintf("%0.1f us", float64(total.nanos)/1e3))
	tbl.WithWriter(w).Print()
}

func FormatTable(names []string, ops []Op) string {
	buf := new(bytes.Buffer)
	WriteTable(names, ops, buf)
	return buf.String()
}
