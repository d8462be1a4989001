package fsrpc

import "github.com/zeldovich/go-rpcgen/xdr"

func (v *Jfspath) Xdr(xs *xdr.XdrState) {
	xdr.XdrString(xs, int(-1), (*string)(v))
}
func (v *Jfsid) Xdr(xs *xdr.XdrState) {
	xdr.XdrU64(xs, (*uint64)(v))
}
func (v *Status) Xdr(xs *xdr.XdrState) {
	xdr.XdrU32(xs, (*uint32)(v))
}
func (v *JFS_OPENargs) Xdr(xs *xdr.XdrState) {
	(*Jfspath)(&((v).Path)).Xdr(xs)
	xdr.XdrU32(xs, &((v).Mode))
}
func (v *JFS_OPENres) Xdr(xs *xdr.XdrState) {
	(*Status)(&((v).Status)).Xdr(xs)
	(*Jfsid)(&((v).Id)).Xdr(xs)
	xdr.XdrU32(xs, &((v).Perm))
}
func (v *JFS_HANDLEargs) Xdr(xs *xdr.XdrState) {
	(*Jfsid)(&((v).Id)).Xdr(xs)
}
func (v *JFS_READargs) Xdr(xs *xdr.XdrState) {
	(*Jfsid)(&((v).Id)).Xdr(xs)
	xdr.XdrU32(xs, &((v).Count))
}
func (v *JFS_READres) Xdr(xs *xdr.XdrState) {
	(*Status)(&((v).Status)).Xdr(xs)
	xdr.XdrVarArray(xs, int(-1), (*[]byte)(&((v).Data)))
}
func (v *JFS_WRITEargs) Xdr(xs *xdr.XdrState) {
	(*Jfsid)(&((v).Id)).Xdr(xs)
	xdr.XdrVarArray(xs, int(-1), (*[]byte)(&((v).Data)))
}
func (v *JFS_SIZEargs) Xdr(xs *xdr.XdrState) {
	(*Jfsid)(&((v).Id)).Xdr(xs)
	xdr.XdrU64(xs, &((v).Size))
}
func (v *JFS_STATres) Xdr(xs *xdr.XdrState) {
	(*Status)(&((v).Status)).Xdr(xs)
	xdr.XdrString(xs, int(-1), &((v).Name))
	xdr.XdrU64(xs, &((v).Size))
	xdr.XdrBool(xs, &((v).Isdir))
}
func (v *JFS_PATHargs) Xdr(xs *xdr.XdrState) {
	(*Jfspath)(&((v).Path)).Xdr(xs)
}
func (v *JFS_STATUSres) Xdr(xs *xdr.XdrState) {
	(*Status)(&((v).Status)).Xdr(xs)
}
func (v *JFS_entry) Xdr(xs *xdr.XdrState) {
	xdr.XdrString(xs, int(-1), &((v).Name))
	if xs.Encoding() {
		opted := *(&((v).Next)) != nil
		xdr.XdrBool(xs, &opted)
		if opted {
			(*JFS_entry)(*(&((v).Next))).Xdr(xs)
		}
	}
	if xs.Decoding() {
		var opted bool
		xdr.XdrBool(xs, &opted)
		if opted {
			*(&((v).Next)) = new(JFS_entry)
			(*JFS_entry)(*(&((v).Next))).Xdr(xs)
		}
	}
}
func (v *JFS_LISTres) Xdr(xs *xdr.XdrState) {
	(*Status)(&((v).Status)).Xdr(xs)
	if xs.Encoding() {
		opted := *(&((v).Entries)) != nil
		xdr.XdrBool(xs, &opted)
		if opted {
			(*JFS_entry)(*(&((v).Entries))).Xdr(xs)
		}
	}
	if xs.Decoding() {
		var opted bool
		xdr.XdrBool(xs, &opted)
		if opted {
			*(&((v).Entries)) = new(JFS_entry)
			(*JFS_entry)(*(&((v).Entries))).Xdr(xs)
		}
	}
}
