package serve

import (
	"context"
	"time"

	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/fs"
	"github.com/mit-pdos/go-jfs/inode"
	"github.com/mit-pdos/go-jfs/util/stats"
)

type openFile struct {
	id uint64
	f  *inode.File
	fd *Fd
}

type call struct {
	req   Request
	reply chan Response
}

// Server owns a file system and its open-file table. All requests are
// handled one at a time by the goroutine running Run.
type Server struct {
	fs    *fs.FileSys
	files []openFile
	in    chan *call
	stats *stats.Set
}

func MkServer(fsys *fs.FileSys) *Server {
	srv := &Server{
		fs:    fsys,
		files: make([]openFile, jfs.MAXOPEN),
		in:    make(chan *call),
		stats: stats.NewSet(opNames),
	}
	for i := range srv.files {
		srv.files[i].id = uint64(i)
	}
	return srv
}

// Run serves requests until ctx is cancelled.
func (srv *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-srv.in:
			c.reply <- srv.Dispatch(c.req)
		}
	}
}

// Call sends req to the goroutine running Run and waits for its response.
func (srv *Server) Call(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	c := &call{req: req, reply: make(chan Response, 1)}
	select {
	case srv.in <- c:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// allocSlot finds a table slot no client holds and gives it a fresh id.
func (srv *Server) allocSlot() (*openFile, error) {
	for i := range srv.files {
		o := &srv.files[i]
		if o.fd == nil || o.fd.Refs() <= 1 {
			o.id += jfs.MAXOPEN
			o.f = nil
			o.fd = &Fd{Id: o.id, refs: 1}
			return o, nil
		}
	}
	return nil, jfs.EMAXOPEN
}

// handle returns the open file for id, even if its file has since been
// removed; only close needs that.
func (srv *Server) handle(id uint64) (*openFile, error) {
	o := &srv.files[id%jfs.MAXOPEN]
	if o.fd == nil || o.fd.Refs() <= 1 || o.id != id || o.f == nil {
		return nil, jfs.EINVAL
	}
	return o, nil
}

func (srv *Server) lookup(id uint64) (*openFile, error) {
	o, err := srv.handle(id)
	if err != nil {
		return nil, err
	}
	// removed while open
	if o.f.Free() {
		return nil, jfs.EINVAL
	}
	return o, nil
}

func status(err error) int32 {
	return jfs.StatusOf(0, err)
}

// Dispatch handles a single request.
func (srv *Server) Dispatch(req Request) Response {
	defer srv.stats.Record(req.op(), time.Now())
	var r Response
	switch req := req.(type) {
	case *OpenReq:
		r = srv.open(req)
	case *ReadReq:
		r = srv.read(req)
	case *WriteReq:
		r = srv.write(req)
	case *SetSizeReq:
		o, err := srv.lookup(req.Id)
		if err == nil {
			err = srv.fs.SetSize(o.f, req.Size)
		}
		r.Status = status(err)
	case *StatReq:
		o, err := srv.lookup(req.Id)
		if err == nil {
			r.Stat = Stat{Name: o.f.Name, Size: o.f.Size, IsDir: o.f.IsDir()}
		}
		r.Status = status(err)
	case *FlushReq:
		o, err := srv.lookup(req.Id)
		if err == nil {
			srv.fs.Flush(o.f)
		}
		r.Status = status(err)
	case *RemoveReq:
		r.Status = status(srv.fs.Remove(req.Path))
	case *SyncReq:
		srv.fs.Sync()
	case *CloseReq:
		o, err := srv.handle(req.Id)
		if err == nil {
			o.fd.Unref()
		}
		r.Status = status(err)
	case *SeekReq:
		o, err := srv.lookup(req.Id)
		if err == nil {
			o.fd.Offset = req.Offset
		}
		r.Status = status(err)
	case *ListReq:
		files, err := srv.fs.List(req.Path)
		for _, f := range files {
			r.Names = append(r.Names, f.Name)
		}
		r.Status = jfs.StatusOf(int32(len(files)), err)
	default:
		r.Status = jfs.EINVAL.Status()
	}
	util.DPrintf(3, "Dispatch %T -> %d\n", req, r.Status)
	return r
}

func (srv *Server) openFile(req *OpenReq) (*inode.File, error) {
	if req.Mode&O_CREAT == 0 {
		return srv.fs.Open(req.Path)
	}
	var f *inode.File
	var err error
	if req.Mode&O_MKDIR != 0 {
		f, err = srv.fs.Mkdir(req.Path)
	} else {
		f, err = srv.fs.Create(req.Path)
	}
	if err == jfs.EEXISTS && req.Mode&O_EXCL == 0 {
		return srv.fs.Open(req.Path)
	}
	return f, err
}

func (srv *Server) open(req *OpenReq) Response {
	o, err := srv.allocSlot()
	if err != nil {
		return Response{Status: status(err)}
	}
	f, err := srv.openFile(req)
	if err != nil {
		return Response{Status: status(err)}
	}
	if req.Mode&O_TRUNC != 0 {
		if err := srv.fs.SetSize(f, 0); err != nil {
			return Response{Status: status(err)}
		}
	}
	o.f = f
	o.fd.Mode = req.Mode
	o.fd.Ref()
	util.DPrintf(1, "open %q -> %v\n", req.Path, o.fd)
	return Response{Fd: o.fd, Perm: req.Mode & O_ACCMODE}
}

func (srv *Server) read(req *ReadReq) Response {
	o, err := srv.lookup(req.Id)
	if err != nil {
		return Response{Status: status(err)}
	}
	if !o.fd.CanRead() {
		return Response{Status: jfs.EINVAL.Status()}
	}
	n := req.N
	if n > jfs.PGSIZE {
		n = jfs.PGSIZE
	}
	buf := make([]byte, n)
	cnt, err := srv.fs.Read(o.f, buf, o.fd.Offset)
	if err != nil {
		return Response{Status: status(err)}
	}
	o.fd.Offset += cnt
	return Response{Status: int32(cnt), Data: buf[:cnt]}
}

func (srv *Server) write(req *WriteReq) Response {
	o, err := srv.lookup(req.Id)
	if err != nil {
		return Response{Status: status(err)}
	}
	if !o.fd.CanWrite() {
		return Response{Status: jfs.EINVAL.Status()}
	}
	data := req.Data
	if uint64(len(data)) > jfs.PGSIZE {
		data = data[:jfs.PGSIZE]
	}
	cnt, err := srv.fs.Write(o.f, data, o.fd.Offset)
	o.fd.Offset += cnt
	return Response{Status: jfs.StatusOf(int32(cnt), err)}
}
