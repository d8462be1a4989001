// Package client wraps the request protocol in file-like calls. It works
// over any transport that can deliver a request and return the response:
// the in-process server or the RPC client.
package client

import (
	"context"

	jfs "github.com/mit-pdos/go-jfs/common"
	"github.com/mit-pdos/go-jfs/serve"
)

type Caller interface {
	Call(ctx context.Context, req serve.Request) (serve.Response, error)
}

type Client struct {
	c Caller
}

func New(c Caller) *Client {
	return &Client{c: c}
}

func (c *Client) call(ctx context.Context, req serve.Request) (serve.Response, error) {
	r, err := c.c.Call(ctx, req)
	if err != nil {
		return r, err
	}
	return r, jfs.FromStatus(r.Status)
}

type File struct {
	c    *Client
	Id   uint64
	Perm uint32
}

func (c *Client) Open(ctx context.Context, path string, mode uint32) (*File, error) {
	r, err := c.call(ctx, &serve.OpenReq{Path: path, Mode: mode})
	if err != nil {
		return nil, err
	}
	return &File{c: c, Id: r.Fd.Id, Perm: r.Perm}, nil
}

func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.call(ctx, &serve.RemoveReq{Path: path})
	return err
}

func (c *Client) Sync(ctx context.Context) error {
	_, err := c.call(ctx, &serve.SyncReq{})
	return err
}

func (c *Client) List(ctx context.Context, path string) ([]string, error) {
	r, err := c.call(ctx, &serve.ListReq{Path: path})
	return r.Names, err
}

// Read reads at most one page at the file's offset.
func (f *File) Read(ctx context.Context, buf []byte) (int, error) {
	r, err := f.c.call(ctx, &serve.ReadReq{Id: f.Id, N: uint64(len(buf))})
	if err != nil {
		return 0, err
	}
	return copy(buf, r.Data), nil
}

// ReadFull reads until buf is full or the file ends.
func (f *File) ReadFull(ctx context.Context, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(ctx, buf[n:])
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
		n += m
	}
	return n, nil
}

// Write writes all of data at the file's offset, a page at a time.
func (f *File) Write(ctx context.Context, data []byte) (int, error) {
	n := 0
	for n < len(data) {
		r, err := f.c.call(ctx, &serve.WriteReq{Id: f.Id, Data: data[n:]})
		if err != nil {
			return n, err
		}
		if r.Status == 0 {
			return n, jfs.EINVAL
		}
		n += int(r.Status)
	}
	return n, nil
}

func (f *File) Seek(ctx context.Context, off uint64) error {
	_, err := f.c.call(ctx, &serve.SeekReq{Id: f.Id, Offset: off})
	return err
}

func (f *File) SetSize(ctx context.Context, sz uint64) error {
	_, err := f.c.call(ctx, &serve.SetSizeReq{Id: f.Id, Size: sz})
	return err
}

func (f *File) Stat(ctx context.Context) (serve.Stat, error) {
	r, err := f.c.call(ctx, &serve.StatReq{Id: f.Id})
	return r.Stat, err
}

func (f *File) Flush(ctx context.Context) error {
	_, err := f.c.call(ctx, &serve.FlushReq{Id: f.Id})
	return err
}

// Close flushes the file and releases the client's handle.
func (f *File) Close(ctx context.Context) error {
	if err := f.Flush(ctx); err != nil {
		return err
	}
	_, err := f.c.call(ctx, &serve.CloseReq{Id: f.Id})
	return err
}
