package serve

import (
	"fmt"
	"sync/atomic"
)

const (
	O_RDONLY  uint32 = 0x0000
	O_WRONLY  uint32 = 0x0001
	O_RDWR    uint32 = 0x0002
	O_ACCMODE uint32 = 0x0003

	O_CREAT uint32 = 0x0100
	O_TRUNC uint32 = 0x0200
	O_EXCL  uint32 = 0x0400
	O_MKDIR uint32 = 0x0800
)

// Fd is the state of an open file shared between the server and the client
// that opened it. The server holds one reference for as long as the table
// slot is allocated; the client holds another until it closes the file.
type Fd struct {
	Id     uint64
	Offset uint64
	Mode   uint32
	refs   int32
}

func (fd *Fd) String() string {
	return fmt.Sprintf("fd %d off %d mode %#x refs %d", fd.Id, fd.Offset, fd.Mode, fd.Refs())
}

func (fd *Fd) Ref() {
	atomic.AddInt32(&fd.refs, 1)
}

func (fd *Fd) Unref() {
	if atomic.AddInt32(&fd.refs, -1) < 0 {
		panic("Unref: negative reference count")
	}
}

func (fd *Fd) Refs() int32 {
	return atomic.LoadInt32(&fd.refs)
}

func (fd *Fd) CanRead() bool {
	return fd.Mode&O_ACCMODE != O_WRONLY
}

func (fd *Fd) CanWrite() bool {
	return fd.Mode&O_ACCMODE != O_RDONLY
}
