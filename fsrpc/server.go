package fsrpc

import (
	"context"

	"github.com/zeldovich/go-rpcgen/xdr"

	"github.com/mit-pdos/go-journal/util"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/serve"
)

// Backend is where decoded calls are sent, typically a *serve.Server.
type Backend interface {
	Call(ctx context.Context, req serve.Request) (serve.Response, error)
}

type rpcServer struct {
	b Backend
}

func (s *rpcServer) call(req serve.Request) serve.Response {
	r, err := s.b.Call(context.Background(), req)
	if err != nil {
		util.DPrintf(0, "rpc: %T: %v\n", req, err)
		return serve.Response{Status: jfs.EINVAL.Status()}
	}
	return r
}

func (s *rpcServer) status(req serve.Request) *JFS_STATUSres {
	return &JFS_STATUSres{Status: MkStatus(s.call(req).Status)}
}

func decode(x *xdr.XdrState, in xdr.Xdrable) error {
	in.Xdr(x)
	return x.Error()
}

func reg(proc uint32, h func(x *xdr.XdrState) (xdr.Xdrable, error)) xdr.ProcRegistration {
	return xdr.ProcRegistration{
		Prog:    JFS_PROGRAM,
		Vers:    JFS_V1,
		Proc:    proc,
		Handler: h,
	}
}

// Regs returns the procedures of JFS_PROGRAM, serviced by b.
func Regs(b Backend) []xdr.ProcRegistration {
	s := &rpcServer{b: b}
	return []xdr.ProcRegistration{
		reg(JFSPROC_NULL, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in xdr.Void
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return &xdr.Void{}, nil
		}),
		reg(JFSPROC_OPEN, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_OPENargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			r := s.call(&serve.OpenReq{Path: string(in.Path), Mode: in.Mode})
			out := &JFS_OPENres{Status: MkStatus(r.Status), Perm: r.Perm}
			if r.Fd != nil {
				out.Id = Jfsid(r.Fd.Id)
			}
			return out, nil
		}),
		reg(JFSPROC_READ, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_READargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			r := s.call(&serve.ReadReq{Id: uint64(in.Id), N: uint64(in.Count)})
			return &JFS_READres{Status: MkStatus(r.Status), Data: r.Data}, nil
		}),
		reg(JFSPROC_WRITE, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_WRITEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.WriteReq{Id: uint64(in.Id), Data: in.Data}), nil
		}),
		reg(JFSPROC_SETSIZE, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_SIZEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.SetSizeReq{Id: uint64(in.Id), Size: in.Size}), nil
		}),
		reg(JFSPROC_STAT, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_HANDLEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			r := s.call(&serve.StatReq{Id: uint64(in.Id)})
			return &JFS_STATres{
				Status: MkStatus(r.Status),
				Name:   r.Stat.Name,
				Size:   r.Stat.Size,
				Isdir:  r.Stat.IsDir,
			}, nil
		}),
		reg(JFSPROC_FLUSH, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_HANDLEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.FlushReq{Id: uint64(in.Id)}), nil
		}),
		reg(JFSPROC_REMOVE, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_PATHargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.RemoveReq{Path: string(in.Path)}), nil
		}),
		reg(JFSPROC_SYNC, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in xdr.Void
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.SyncReq{}), nil
		}),
		reg(JFSPROC_CLOSE, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_HANDLEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.CloseReq{Id: uint64(in.Id)}), nil
		}),
		reg(JFSPROC_SEEK, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_SIZEargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			return s.status(&serve.SeekReq{Id: uint64(in.Id), Offset: in.Size}), nil
		}),
		reg(JFSPROC_LIST, func(x *xdr.XdrState) (xdr.Xdrable, error) {
			var in JFS_PATHargs
			if err := decode(x, &in); err != nil {
				return nil, err
			}
			r := s.call(&serve.ListReq{Path: string(in.Path)})
			out := &JFS_LISTres{Status: MkStatus(r.Status)}
			for i := len(r.Names) - 1; i >= 0; i-- {
				out.Entries = &JFS_entry{Name: r.Names[i], Next: out.Entries}
			}
			return out, nil
		}),
	}
}
