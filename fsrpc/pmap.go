package fsrpc

import (
	"errors"
	"fmt"
	"net"

	"github.com/zeldovich/go-rpcgen/rfc1057"
	"github.com/zeldovich/go-rpcgen/xdr"
)

func pmapClient(host string) (*rfc1057.Client, net.Conn, error) {
	pmapc, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, rfc1057.PMAP_PORT))
	if err != nil {
		return nil, nil, err
	}
	return rfc1057.MakeClient(pmapc, rfc1057.PMAP_PROG, rfc1057.PMAP_VERS), pmapc, nil
}

// PmapSetUnset registers (or unregisters) JFS_PROGRAM at port with the local
// portmapper.
func PmapSetUnset(port uint32, setit bool) error {
	var cred rfc1057.Opaque_auth
	cred.Flavor = rfc1057.AUTH_NONE

	pmap, conn, err := pmapClient("localhost")
	if err != nil {
		return err
	}
	defer conn.Close()

	arg := rfc1057.Mapping{
		Prog: JFS_PROGRAM,
		Vers: JFS_V1,
		Prot: rfc1057.IPPROTO_TCP,
		Port: port,
	}

	var res xdr.Bool
	var proc uint32
	if setit {
		proc = rfc1057.PMAPPROC_SET
	} else {
		proc = rfc1057.PMAPPROC_UNSET
	}

	err = pmap.Call(proc, cred, cred, &arg, &res)
	if err != nil {
		return err
	}
	if bool(res) {
		return nil
	}
	if setit {
		return errors.New("failed to set; is program already registered?")
	}
	return errors.New("failed to unset")
}

// PmapGetport asks the portmapper on host where JFS_PROGRAM listens.
func PmapGetport(host string) (uint32, error) {
	var cred rfc1057.Opaque_auth
	cred.Flavor = rfc1057.AUTH_NONE

	pmap, conn, err := pmapClient(host)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	arg := rfc1057.Mapping{
		Prog: JFS_PROGRAM,
		Vers: JFS_V1,
		Prot: rfc1057.IPPROTO_TCP,
	}
	var res xdr.Uint32
	if err := pmap.Call(rfc1057.PMAPPROC_GETPORT, cred, cred, &arg, &res); err != nil {
		return 0, err
	}
	if res == 0 {
		return 0, errors.New("program not registered")
	}
	return uint32(res), nil
}
