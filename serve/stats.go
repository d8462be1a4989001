package serve

import (
	"io"
)

const (
	OP_OPEN = iota
	OP_READ
	OP_WRITE
	OP_SETSIZE
	OP_STAT
	OP_FLUSH
	OP_REMOVE
	OP_SYNC
	OP_CLOSE
	OP_SEEK
	OP_LIST
	NUM_OPS
)

var opNames = []string{
	"OPEN",
	"READ",
	"WRITE",
	"SETSIZE",
	"STAT",
	"FLUSH",
	"REMOVE",
	"SYNC",
	"CLOSE",
	"SEEK",
	"LIST",
}

func (srv *Server) WriteOpStats(w io.Writer) {
	srv.stats.WriteTable(w)
}

func (srv *Server) ResetOpStats() {
	srv.stats.Reset()
}
