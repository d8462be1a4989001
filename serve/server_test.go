package serve

import (
	"flag"
	"io/ioutil"
	"log"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/tchajed/goose/machine/disk"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/fs"
)

var quiet = flag.Bool("quiet", false, "disable logging")

const DISKSZ uint64 = 3000

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

type ServerSuite struct {
	suite.Suite
	d   disk.Disk
	srv *Server
}

func (s *ServerSuite) SetupTest() {
	if *quiet {
		log.SetFlags(0)
		log.SetOutput(ioutil.Discard)
	}
	s.d = disk.NewMemDisk(DISKSZ)
	fs.Mkfs(s.d)
	s.srv = MkServer(fs.Mount(s.d, fs.DefaultConfig()))
}

func (s *ServerSuite) remount() {
	s.srv = MkServer(fs.Mount(s.d, fs.DefaultConfig()))
}

func (s *ServerSuite) open(path string, mode uint32) *Fd {
	r := s.srv.Dispatch(&OpenReq{Path: path, Mode: mode})
	s.Require().Equal(int32(0), r.Status, "open %s", path)
	s.Require().NotNil(r.Fd)
	return r.Fd
}

func (s *ServerSuite) write(fd *Fd, data []byte) {
	for len(data) > 0 {
		r := s.srv.Dispatch(&WriteReq{Id: fd.Id, Data: data})
		s.Require().Greater(r.Status, int32(0))
		data = data[r.Status:]
	}
}

func (s *ServerSuite) readAll(fd *Fd) []byte {
	var out []byte
	for {
		r := s.srv.Dispatch(&ReadReq{Id: fd.Id, N: 10000})
		s.Require().GreaterOrEqual(r.Status, int32(0))
		if r.Status == 0 {
			return out
		}
		out = append(out, r.Data...)
	}
}

func (s *ServerSuite) TestOpenMissing() {
	r := s.srv.Dispatch(&OpenReq{Path: "/nope", Mode: O_RDONLY})
	s.Equal(jfs.ENOTFOUND.Status(), r.Status)
	s.Nil(r.Fd)
}

func (s *ServerSuite) TestCreateExcl() {
	fd := s.open("/f", O_RDWR|O_CREAT)
	s.Equal(int32(2), fd.Refs())

	r := s.srv.Dispatch(&OpenReq{Path: "/f", Mode: O_RDWR | O_CREAT | O_EXCL})
	s.Equal(jfs.EEXISTS.Status(), r.Status)

	fd2 := s.open("/f", O_RDWR|O_CREAT)
	s.NotEqual(fd.Id, fd2.Id)
}

func (s *ServerSuite) TestReadWriteOffsets() {
	fd := s.open("/f", O_RDWR|O_CREAT)
	r := s.srv.Dispatch(&WriteReq{Id: fd.Id, Data: mkdata(2 * jfs.PGSIZE)})
	s.Equal(int32(jfs.PGSIZE), r.Status, "writes are capped at a page")
	s.Equal(jfs.PGSIZE, fd.Offset)

	s.Equal(int32(0), s.srv.Dispatch(&SeekReq{Id: fd.Id, Offset: 10}).Status)
	r = s.srv.Dispatch(&ReadReq{Id: fd.Id, N: 2 * jfs.PGSIZE})
	s.Equal(int32(jfs.PGSIZE-10), r.Status)
	s.Equal(mkdata(jfs.PGSIZE)[10:], r.Data)
	s.Equal(jfs.PGSIZE, fd.Offset)

	r = s.srv.Dispatch(&ReadReq{Id: fd.Id, N: 100})
	s.Equal(int32(0), r.Status, "at end of file")
}

func (s *ServerSuite) TestAccessMode() {
	s.open("/f", O_WRONLY|O_CREAT)
	rd := s.open("/f", O_RDONLY)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&WriteReq{Id: rd.Id, Data: []byte{1}}).Status)

	wr := s.open("/f", O_WRONLY)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&ReadReq{Id: wr.Id, N: 1}).Status)
}

func (s *ServerSuite) TestTruncAndStat() {
	fd := s.open("/f", O_RDWR|O_CREAT)
	s.write(fd, mkdata(5000))

	r := s.srv.Dispatch(&StatReq{Id: fd.Id})
	s.Equal(int32(0), r.Status)
	s.Equal(Stat{Name: "f", Size: 5000}, r.Stat)

	fd2 := s.open("/f", O_RDWR|O_TRUNC)
	r = s.srv.Dispatch(&StatReq{Id: fd2.Id})
	s.Equal(uint64(0), r.Stat.Size)

	s.Equal(int32(0), s.srv.Dispatch(&SetSizeReq{Id: fd2.Id, Size: 100}).Status)
	r = s.srv.Dispatch(&StatReq{Id: fd.Id})
	s.Equal(uint64(100), r.Stat.Size, "both handles see the same record")
}

func (s *ServerSuite) TestHandleRecycling() {
	fd := s.open("/f", O_RDWR|O_CREAT)
	s.Equal(uint64(jfs.MAXOPEN), fd.Id, "slot 0, first use")

	s.Equal(int32(0), s.srv.Dispatch(&CloseReq{Id: fd.Id}).Status)
	s.Equal(int32(1), fd.Refs())
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&StatReq{Id: fd.Id}).Status)

	fd2 := s.open("/f", O_RDONLY)
	s.Equal(fd.Id+jfs.MAXOPEN, fd2.Id, "same slot, new generation")
	s.Equal(fd.Id%jfs.MAXOPEN, fd2.Id%jfs.MAXOPEN)

	// the old id no longer works even though its slot is live again
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&StatReq{Id: fd.Id}).Status)
	s.Equal(int32(0), s.srv.Dispatch(&StatReq{Id: fd2.Id}).Status)
}

func (s *ServerSuite) TestTableFull() {
	for i := uint64(0); i < jfs.MAXOPEN; i++ {
		s.open("/", O_RDONLY)
	}
	r := s.srv.Dispatch(&OpenReq{Path: "/", Mode: O_RDONLY})
	s.Equal(jfs.EMAXOPEN.Status(), r.Status)
}

func (s *ServerSuite) TestFailedOpenFreesSlot() {
	r := s.srv.Dispatch(&OpenReq{Path: "/nope", Mode: O_RDONLY})
	s.Less(r.Status, int32(0))
	fd := s.open("/", O_RDONLY)
	s.Equal(2*jfs.MAXOPEN, fd.Id, "slot 0 again")
}

func (s *ServerSuite) TestRemoveAndList() {
	s.open("/a", O_RDWR|O_CREAT)
	s.open("/d", O_RDONLY|O_CREAT|O_MKDIR)
	s.open("/d/b", O_RDWR|O_CREAT)

	r := s.srv.Dispatch(&ListReq{Path: "/"})
	s.Equal(int32(2), r.Status)
	s.Equal([]string{"a", "d"}, r.Names)

	s.Equal(int32(0), s.srv.Dispatch(&RemoveReq{Path: "/a"}).Status)
	s.Equal(jfs.ENOTFOUND.Status(), s.srv.Dispatch(&RemoveReq{Path: "/a"}).Status)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&RemoveReq{Path: "/d"}).Status)

	r = s.srv.Dispatch(&ListReq{Path: "/d"})
	s.Equal([]string{"b"}, r.Names)
}

func (s *ServerSuite) TestRemovedWhileOpen() {
	fd := s.open("/a", O_RDWR|O_CREAT)
	s.write(fd, mkdata(10))
	s.Equal(int32(0), s.srv.Dispatch(&RemoveReq{Path: "/a"}).Status)

	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&WriteReq{Id: fd.Id, Data: []byte{1}}).Status)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&StatReq{Id: fd.Id}).Status)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&SetSizeReq{Id: fd.Id, Size: 5}).Status)
	s.Equal(jfs.EINVAL.Status(), s.srv.Dispatch(&FlushReq{Id: fd.Id}).Status)

	r := s.srv.Dispatch(&ListReq{Path: "/"})
	s.Empty(r.Names, "nothing was written back under the old record")

	s.Equal(int32(0), s.srv.Dispatch(&CloseReq{Id: fd.Id}).Status)
	s.Equal(int32(1), fd.Refs())
}

func (s *ServerSuite) TestEndToEnd() {
	data := mkdata(5000)
	fd := s.open("/newmotd", O_RDWR|O_CREAT)
	s.write(fd, data)
	s.Equal(int32(0), s.srv.Dispatch(&FlushReq{Id: fd.Id}).Status)
	s.Equal(int32(0), s.srv.Dispatch(&CloseReq{Id: fd.Id}).Status)

	s.remount()
	fd = s.open("/newmotd", O_RDONLY)
	s.Equal(data, s.readAll(fd))
}

func (s *ServerSuite) TestSync() {
	fd := s.open("/f", O_RDWR|O_CREAT)
	s.write(fd, mkdata(100))
	s.Equal(int32(0), s.srv.Dispatch(&SyncReq{}).Status)
	s.remount()
	fd = s.open("/f", O_RDONLY)
	s.Equal(mkdata(100), s.readAll(fd))
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}
