// buf stages one device block between the drum array and a caller's buffer
package buf

import (
	"github.com/mit-pdos/go-drumvol/addr"
	"github.com/mit-pdos/go-drumvol/disk"
	"github.com/mit-pdos/go-drumvol/util"
)

// A Buf is the contents of the block at Addr. Addr.Off is where the caller's
// bytes begin within the block.
type Buf struct {
	Addr addr.Addr
	Blk  disk.Block
}

func MkBuf(a addr.Addr) *Buf {
	b := &Buf{
		Addr: a,
		Blk:  disk.MkBlock(),
	}
	return b
}

// room is the number of bytes between Addr.Off and the end of the block.
func (buf *Buf) room() uint64 {
	off := uint64(buf.Addr.Off)
	if off >= uint64(len(buf.Blk)) {
		return 0
	}
	return uint64(len(buf.Blk)) - off
}

// Install copies src into the block starting at Addr.Off, stopping at the
// end of src or of the block. Bytes outside that range are left alone.
// Returns the number of bytes installed.
func (buf *Buf) Install(src []byte) uint64 {
	n := util.Min(uint64(len(src)), buf.room())
	if n == 0 {
		return 0
	}
	off := uint64(buf.Addr.Off)
	copy(buf.Blk[off:off+n], src[:n])
	util.DPrintf(20, "%v: install %d\n", buf.Addr, n)
	return n
}

// CopyOut copies block bytes starting at Addr.Off into dst, stopping at the
// end of dst or of the block. Returns the number of bytes copied.
func (buf *Buf) CopyOut(dst []byte) uint64 {
	n := util.Min(uint64(len(dst)), buf.room())
	off := uint64(buf.Addr.Off)
	copy(dst[:n], buf.Blk[off:off+n])
	return n
}
