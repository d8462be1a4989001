package serve

// Request is one of the request types below.
type Request interface {
	op() int
}

type OpenReq struct {
	Path string
	Mode uint32
}

type ReadReq struct {
	Id uint64
	N  uint64
}

type WriteReq struct {
	Id   uint64
	Data []byte
}

type SetSizeReq struct {
	Id   uint64
	Size uint64
}

type StatReq struct {
	Id uint64
}

type FlushReq struct {
	Id uint64
}

type RemoveReq struct {
	Path string
}

type SyncReq struct{}

// CloseReq drops the client's reference to an open file.
type CloseReq struct {
	Id uint64
}

type SeekReq struct {
	Id     uint64
	Offset uint64
}

type ListReq struct {
	Path string
}

func (*OpenReq) op() int    { return OP_OPEN }
func (*ReadReq) op() int    { return OP_READ }
func (*WriteReq) op() int   { return OP_WRITE }
func (*SetSizeReq) op() int { return OP_SETSIZE }
func (*StatReq) op() int    { return OP_STAT }
func (*FlushReq) op() int   { return OP_FLUSH }
func (*RemoveReq) op() int  { return OP_REMOVE }
func (*SyncReq) op() int    { return OP_SYNC }
func (*CloseReq) op() int   { return OP_CLOSE }
func (*SeekReq) op() int    { return OP_SEEK }
func (*ListReq) op() int    { return OP_LIST }

type Stat struct {
	Name  string
	Size  uint64
	IsDir bool
}

// Response carries a status (a result >= 0 or a negated error code) and
// whatever the request returns.
type Response struct {
	Status int32
	Fd     *Fd    // open
	Perm   uint32 // open: access mode granted
	Data   []byte // read
	Stat   Stat   // stat
	Names  []string
}
