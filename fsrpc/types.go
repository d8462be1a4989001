package fsrpc

const (
	JFS_PROGRAM uint32 = 0x20004A46
	JFS_V1      uint32 = 1
)

const (
	JFSPROC_NULL    uint32 = 0
	JFSPROC_OPEN    uint32 = 1
	JFSPROC_READ    uint32 = 2
	JFSPROC_WRITE   uint32 = 3
	JFSPROC_SETSIZE uint32 = 4
	JFSPROC_STAT    uint32 = 5
	JFSPROC_FLUSH   uint32 = 6
	JFSPROC_REMOVE  uint32 = 7
	JFSPROC_SYNC    uint32 = 8
	JFSPROC_CLOSE   uint32 = 9
	JFSPROC_SEEK    uint32 = 10
	JFSPROC_LIST    uint32 = 11
)

type Jfspath string
type Jfsid uint64

// Status is an int32 status carried as its two's-complement bits.
type Status uint32

func MkStatus(st int32) Status {
	return Status(uint32(st))
}

func (s Status) Int() int32 {
	return int32(uint32(s))
}

type JFS_OPENargs struct {
	Path Jfspath
	Mode uint32
}

type JFS_OPENres struct {
	Status Status
	Id     Jfsid
	Perm   uint32
}

type JFS_HANDLEargs struct {
	Id Jfsid
}

type JFS_READargs struct {
	Id    Jfsid
	Count uint32
}

type JFS_READres struct {
	Status Status
	Data   []byte
}

type JFS_WRITEargs struct {
	Id   Jfsid
	Data []byte
}

type JFS_SIZEargs struct {
	Id   Jfsid
	Size uint64
}

type JFS_STATres struct {
	Status Status
	Name   string
	Size   uint64
	Isdir  bool
}

type JFS_PATHargs struct {
	Path Jfspath
}

type JFS_STATUSres struct {
	Status Status
}

type JFS_entry struct {
	Name string
	Next *JFS_entry
}

type JFS_LISTres struct {
	Status  Status
	Entries *JFS_entry
}
