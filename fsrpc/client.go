package fsrpc

import (
	"context"
	"fmt"
	"net"

	"github.com/zeldovich/go-rpcgen/rfc1057"
	"github.com/zeldovich/go-rpcgen/xdr"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/serve"
)

// Client sends requests to a remote server over ONC RPC.
type Client struct {
	clnt *rfc1057.Client
	cred rfc1057.Opaque_auth
	verf rfc1057.Opaque_auth
}

func MkClient(conn net.Conn) *Client {
	var none rfc1057.Opaque_auth
	none.Flavor = rfc1057.AUTH_NONE
	return &Client{
		clnt: rfc1057.MakeClient(conn, JFS_PROGRAM, JFS_V1),
		cred: none,
		verf: none,
	}
}

// Dial connects to addr, or asks the portmapper on host for the port if
// addr has no port.
func Dial(addr string) (*Client, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		port, err := PmapGetport(addr)
		if err != nil {
			return nil, err
		}
		addr = fmt.Sprintf("%s:%d", addr, port)
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return MkClient(conn), nil
}

func (c *Client) rpc(proc uint32, args xdr.Xdrable, res xdr.Xdrable) error {
	return c.clnt.Call(proc, c.cred, c.verf, args, res)
}

func (c *Client) Null() error {
	var arg, res xdr.Void
	return c.rpc(JFSPROC_NULL, &arg, &res)
}

func (c *Client) status(proc uint32, args xdr.Xdrable) (serve.Response, error) {
	var res JFS_STATUSres
	err := c.rpc(proc, args, &res)
	return serve.Response{Status: res.Status.Int()}, err
}

// Call translates req into the matching remote procedure.
func (c *Client) Call(ctx context.Context, req serve.Request) (serve.Response, error) {
	if err := ctx.Err(); err != nil {
		return serve.Response{}, err
	}
	switch req := req.(type) {
	case *serve.OpenReq:
		var res JFS_OPENres
		err := c.rpc(JFSPROC_OPEN, &JFS_OPENargs{Path: Jfspath(req.Path), Mode: req.Mode}, &res)
		r := serve.Response{Status: res.Status.Int(), Perm: res.Perm}
		if err == nil && r.Status >= 0 {
			r.Fd = &serve.Fd{Id: uint64(res.Id), Mode: req.Mode}
		}
		return r, err
	case *serve.ReadReq:
		var res JFS_READres
		err := c.rpc(JFSPROC_READ, &JFS_READargs{Id: Jfsid(req.Id), Count: uint32(req.N)}, &res)
		return serve.Response{Status: res.Status.Int(), Data: res.Data}, err
	case *serve.WriteReq:
		return c.status(JFSPROC_WRITE, &JFS_WRITEargs{Id: Jfsid(req.Id), Data: req.Data})
	case *serve.SetSizeReq:
		return c.status(JFSPROC_SETSIZE, &JFS_SIZEargs{Id: Jfsid(req.Id), Size: req.Size})
	case *serve.StatReq:
		var res JFS_STATres
		err := c.rpc(JFSPROC_STAT, &JFS_HANDLEargs{Id: Jfsid(req.Id)}, &res)
		return serve.Response{
			Status: res.Status.Int(),
			Stat:   serve.Stat{Name: res.Name, Size: res.Size, IsDir: res.Isdir},
		}, err
	case *serve.FlushReq:
		return c.status(JFSPROC_FLUSH, &JFS_HANDLEargs{Id: Jfsid(req.Id)})
	case *serve.RemoveReq:
		return c.status(JFSPROC_REMOVE, &JFS_PATHargs{Path: Jfspath(req.Path)})
	case *serve.SyncReq:
		return c.status(JFSPROC_SYNC, &xdr.Void{})
	case *serve.CloseReq:
		return c.status(JFSPROC_CLOSE, &JFS_HANDLEargs{Id: Jfsid(req.Id)})
	case *serve.SeekReq:
		return c.status(JFSPROC_SEEK, &JFS_SIZEargs{Id: Jfsid(req.Id), Size: req.Offset})
	case *serve.ListReq:
		var res JFS_LISTres
		err := c.rpc(JFSPROC_LIST, &JFS_PATHargs{Path: Jfspath(req.Path)}, &res)
		r := serve.Response{Status: res.Status.Int()}
		for e := res.Entries; e != nil; e = e.Next {
			r.Names = append(r.Names, e.Name)
		}
		return r, err
	}
	return serve.Response{Status: jfs.EINVAL.Status()}, nil
}
