package timed_disk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tchajed/goose/machine/disk"
)

func TestCounts(t *testing.T) {
	d := New(disk.NewMemDisk(10))
	blk := make(disk.Block, disk.BlockSize)
	blk[0] = 7
	d.Write(3, blk)
	d.Write(4, blk)
	d.Barrier()
	assert.Equal(t, byte(7), d.Read(3)[0])
	assert.Equal(t, uint32(2), d.Writes())
	assert.Equal(t, uint64(10), d.Size())

	var buf bytes.Buffer
	d.WriteStats(&buf)
	assert.Contains(t, buf.String(), "disk.Write")

	d.ResetStats()
	assert.Equal(t, uint32(0), d.Writes())
}
