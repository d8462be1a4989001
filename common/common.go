package common

import (
	"errors"
	"fmt"

	"github.com/tchajed/goose/machine/disk"
)

const (
	PGSIZE  uint64 = 4096
	MAXOPEN uint64 = 1024

	NDIRECT   uint64 = 10
	NINDIRECT uint64 = disk.BlockSize / 4 // # uint32 blkno per indirect block
	MAXFILESZ uint64 = (NDIRECT + NINDIRECT) * disk.BlockSize

	FILESZ     uint64 = 256 // on-disk size of a file record
	BLKFILES   uint64 = disk.BlockSize / FILESZ
	MAXNAMELEN uint64 = 128

	JENTRYSZ   uint64 = 1024
	JENTRYHDR  uint64 = 32
	MAXPATHLEN uint64 = JENTRYSZ - JENTRYHDR
	JBLKENTRY  uint64 = disk.BlockSize / JENTRYSZ
	NJBLOCK    uint64 = 8
	NJENTRY    uint64 = NJBLOCK * JBLKENTRY
)

type Ftype uint32

const (
	FTYPE_REG Ftype = 0
	FTYPE_DIR Ftype = 1
)

// Err is a file-system error kind. Its value is the positive error code;
// requests report it negated.
type Err int32

const (
	EINVAL    Err = 3
	ENODISK   Err = 9
	EMAXOPEN  Err = 10
	ENOTFOUND Err = 11
	EBADPATH  Err = 12
	EEXISTS   Err = 13
)

var errNames = map[Err]string{
	EINVAL:    "invalid argument",
	ENODISK:   "out of disk space",
	EMAXOPEN:  "too many open files",
	ENOTFOUND: "file not found",
	EBADPATH:  "bad path",
	EEXISTS:   "file already exists",
}

func (e Err) Error() string {
	if s, ok := errNames[e]; ok {
		return s
	}
	return fmt.Sprintf("error %d", int32(e))
}

// Status is the wire form of e.
func (e Err) Status() int32 {
	return -int32(e)
}

// StatusOf converts the result of an operation into a wire status: n on
// success, the negated error code otherwise.
func StatusOf(n int32, err error) int32 {
	if err == nil {
		return n
	}
	if e, ok := err.(Err); ok {
		return e.Status()
	}
	return EINVAL.Status()
}

// FromStatus is the inverse of StatusOf for failed operations.
func FromStatus(st int32) error {
	if st >= 0 {
		return nil
	}
	return Err(-st)
}

// CrashPoint names a place in a mutating operation where the file system can
// be told to stop dead, simulating power loss.
type CrashPoint int

const (
	CrashNone CrashPoint = iota
	CrashAfterJournal
	CrashMidFlush
	CrashMidTruncate
	CrashBeforeRecordFlush
	CrashBeforeCommit
)

var crashNames = []string{
	"none",
	"after-journal",
	"mid-flush",
	"mid-truncate",
	"before-record-flush",
	"before-commit",
}

func (p CrashPoint) String() string {
	if int(p) < len(crashNames) {
		return crashNames[p]
	}
	return fmt.Sprintf("crash(%d)", int(p))
}

func ParseCrashPoint(s string) (CrashPoint, bool) {
	for i, n := range crashNames {
		if n == s {
			return CrashPoint(i), true
		}
	}
	return CrashNone, false
}

// ErrCrashed is the panic value raised at an armed crash point.
var ErrCrashed = errors.New("simulated crash")
