package inode

import (
	"bytes"
	"fmt"

	"github.com/goose-lang/std"
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/addr"
	"github.com/mit-pdos/go-journal/common"
	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-jfs/alloc"
	"github.com/mit-pdos/go-jfs/bcache"
	jfs "github.com/mit-pdos/go-jfs/common"
)

// Vol is the state file records live in: the block store, the allocator,
// and the records decoded so far. Each on-disk record has at most one *File,
// so every holder of a record sees the same in-memory copy.
type Vol struct {
	Bc    *bcache.Bcache
	Alloc *alloc.Alloc
	files map[addr.Addr]*File

	// Crash, if set, is called at each crash point.
	Crash func(p jfs.CrashPoint)
	// Settle, if set, is called before a record or data block is persisted
	// outside of a journaled operation's own writes.
	Settle func()
}

func MkVol(bc *bcache.Bcache, a *alloc.Alloc) *Vol {
	return &Vol{
		Bc:    bc,
		Alloc: a,
		files: make(map[addr.Addr]*File),
	}
}

func (v *Vol) crash(p jfs.CrashPoint) {
	if v.Crash != nil {
		v.Crash(p)
	}
}

func (v *Vol) settle() {
	if v.Settle != nil {
		v.Settle()
	}
}

// File is the in-memory copy of a 256-byte file record.
type File struct {
	Addr     addr.Addr // location of the on-disk record
	Name     string
	Size     uint64
	Kind     jfs.Ftype
	direct   [jfs.NDIRECT]common.Bnum
	indirect common.Bnum
}

func (f *File) String() string {
	return fmt.Sprintf("%q k %d sz %d @%d.%d %v ind %d", f.Name, f.Kind, f.Size,
		f.Addr.Blkno, f.Addr.Off/8, f.direct, f.indirect)
}

func (f *File) IsDir() bool {
	return f.Kind == jfs.FTYPE_DIR
}

// Free reports whether the record's slot is unused.
func (f *File) Free() bool {
	return f.Name == ""
}

func (f *File) Encode() []byte {
	enc := marshal.NewEnc(jfs.FILESZ)
	name := make([]byte, jfs.MAXNAMELEN)
	copy(name, f.Name)
	enc.PutBytes(name)
	enc.PutInt(f.Size)
	enc.PutInt32(uint32(f.Kind))
	for _, bn := range f.direct {
		enc.PutInt32(uint32(bn))
	}
	enc.PutInt32(uint32(f.indirect))
	return enc.Finish()
}

func Decode(b []byte, a addr.Addr) *File {
	f := &File{Addr: a}
	dec := marshal.NewDec(b)
	name := dec.GetBytes(jfs.MAXNAMELEN)
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	f.Name = string(name)
	f.Size = dec.GetInt()
	f.Kind = jfs.Ftype(dec.GetInt32())
	for i := range f.direct {
		f.direct[i] = common.Bnum(dec.GetInt32())
	}
	f.indirect = common.Bnum(dec.GetInt32())
	return f
}

// HasName compares the record's name with name byte for byte.
func (f *File) HasName(name string) bool {
	return std.BytesEqual([]byte(f.Name), []byte(name))
}

// ValidName reports whether name fits in a record.
func ValidName(name string) bool {
	return uint64(len(name)) < jfs.MAXNAMELEN
}

func recordOff(a addr.Addr) uint64 {
	return a.Off / 8
}

// Get returns the record at a, decoding it from its block on first use.
func (v *Vol) Get(a addr.Addr) *File {
	if f, ok := v.files[a]; ok {
		return f
	}
	if recordOff(a)+jfs.FILESZ > disk.BlockSize {
		panic(fmt.Sprintf("Get: bad record address %v", a))
	}
	off := recordOff(a)
	f := Decode(v.Bc.Block(a.Blkno)[off:off+jfs.FILESZ], a)
	v.files[a] = f
	return f
}

// forget drops the decoded records of a block that is being reused.
func (v *Vol) forget(bn common.Bnum) {
	for i := uint64(0); i < jfs.BLKFILES; i++ {
		delete(v.files, addr.MkAddr(bn, i*jfs.FILESZ*8))
	}
}

// Put copies f into its block in the store, without persisting it.
func (v *Vol) Put(f *File) {
	off := recordOff(f.Addr)
	copy(v.Bc.Block(f.Addr.Blkno)[off:off+jfs.FILESZ], f.Encode())
	util.DPrintf(10, "Put %v\n", f)
}

// PutFlush copies f into its block and persists the block.
func (v *Vol) PutFlush(f *File) {
	v.Put(f)
	v.Bc.Flush(f.Addr.Blkno)
}

// Init turns a free slot into an empty record called name.
func (v *Vol) Init(f *File, name string, kind jfs.Ftype) {
	if !f.Free() {
		panic("Init: slot in use")
	}
	f.Name = name
	f.Kind = kind
	f.Size = 0
	f.direct = [jfs.NDIRECT]common.Bnum{}
	f.indirect = 0
	v.Put(f)
}

// Read copies up to len(data) bytes starting at off into data and returns
// the number of bytes copied. Unmapped blocks read as zeros.
func (v *Vol) Read(f *File, data []byte, off uint64) (uint64, error) {
	if off >= f.Size {
		return 0, nil
	}
	count := util.Min(uint64(len(data)), f.Size-off)
	util.DPrintf(5, "Read: %q off %d cnt %d\n", f.Name, off, count)
	var n uint64
	for n < count {
		pos := off + n
		byteoff := pos % disk.BlockSize
		nbytes := util.Min(disk.BlockSize-byteoff, count-n)
		bn, err := v.lookup(f, pos/disk.BlockSize)
		if err != nil {
			return n, err
		}
		if bn == common.NULLBNUM {
			for i := uint64(0); i < nbytes; i++ {
				data[n+i] = 0
			}
		} else {
			blk := v.Bc.Block(bn)
			copy(data[n:n+nbytes], blk[byteoff:byteoff+nbytes])
		}
		n += nbytes
	}
	return n, nil
}

// Write copies data into f at off, growing f first if the write extends past
// its end. Blocks allocated before running out of space stay allocated.
func (v *Vol) Write(f *File, data []byte, off uint64) (uint64, error) {
	count := uint64(len(data))
	if util.SumOverflows(off, count) || off+count > jfs.MAXFILESZ {
		return 0, jfs.EINVAL
	}
	util.DPrintf(5, "Write: %q off %d cnt %d\n", f.Name, off, count)
	if off+count > f.Size {
		if err := v.SetSize(f, off+count); err != nil {
			return 0, err
		}
	}
	var n uint64
	for n < count {
		pos := off + n
		byteoff := pos % disk.BlockSize
		nbytes := util.Min(disk.BlockSize-byteoff, count-n)
		_, blk, err := v.GetBlock(f, pos/disk.BlockSize)
		if err != nil {
			return n, err
		}
		copy(blk[byteoff:byteoff+nbytes], data[n:n+nbytes])
		n += nbytes
	}
	return n, nil
}

// SetSize sets f's size to sz, freeing blocks past the new end, and persists
// the record. Growing allocates nothing.
func (v *Vol) SetSize(f *File, sz uint64) error {
	if sz > jfs.MAXFILESZ {
		return jfs.EINVAL
	}
	util.DPrintf(1, "SetSize: %q %d -> %d\n", f.Name, f.Size, sz)
	if sz < f.Size {
		v.TruncateBlocks(f, sz)
	}
	f.Size = sz
	v.Put(f)
	v.crash(jfs.CrashBeforeRecordFlush)
	v.settle()
	v.Bc.Flush(f.Addr.Blkno)
	return nil
}

// Flush persists f's data blocks, its indirect block and its record, in
// that order, so the record never points at blocks not yet on disk.
func (v *Vol) Flush(f *File) {
	v.settle()
	nblk := util.RoundUp(f.Size, disk.BlockSize)
	for fbn := uint64(0); fbn < nblk; fbn++ {
		bn, err := v.lookup(f, fbn)
		if err != nil || bn == common.NULLBNUM {
			continue
		}
		v.Bc.Flush(bn)
	}
	v.crash(jfs.CrashMidFlush)
	v.FlushMeta(f)
}

// FlushMeta persists f's indirect block and then its record, but no data.
func (v *Vol) FlushMeta(f *File) {
	v.settle()
	if f.indirect != common.NULLBNUM {
		v.Bc.Flush(f.indirect)
	}
	v.PutFlush(f)
}
