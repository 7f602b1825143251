package addr

import (
	"fmt"

	"github.com/mit-pdos/go-drumvol/common"
)

// VAddr is a linear virtual address into the drum array.
//
// Bits 31-16 select the drum, bits 15-8 the block within the drum and bits
// 7-0 the byte within the block.
type VAddr uint32

const (
	drumShift  = 16
	blockShift = 8
	blockMask  = 0xff00
	offMask    = 0xff
)

func DrumOf(va VAddr) common.Drum {
	return common.Drum(va >> drumShift)
}

func BlockOf(va VAddr) common.Bnum {
	return common.Bnum((va & blockMask) >> blockShift)
}

func OffsetOf(va VAddr) uint32 {
	return uint32(va & offMask)
}

// Addr identifies a byte on the drum array.
//
// Drum and Blkno locate the block; Off is the byte offset within it. Addr is
// not validated: Drum may exceed the array and Blkno may name a block past
// the end of a drum.
type Addr struct {
	Drum  common.Drum
	Blkno common.Bnum
	Off   uint32 // offset in bytes
}

func MkAddr(drum common.Drum, blkno common.Bnum, off uint32) Addr {
	return Addr{Drum: drum, Blkno: blkno, Off: off}
}

// Decode splits va into its drum, block and offset.
func Decode(va VAddr) Addr {
	return MkAddr(DrumOf(va), BlockOf(va), OffsetOf(va))
}

// VAddr packs a back into a virtual address. Fields wider than their bit
// range are truncated.
func (a Addr) VAddr() VAddr {
	return VAddr(a.Drum)<<drumShift |
		VAddr(a.Blkno&0xff)<<blockShift |
		VAddr(a.Off&offMask)
}

// Flatid is the byte position of a on the array if blocks were laid out
// drum after drum.
func (a Addr) Flatid() uint64 {
	blk := uint64(a.Drum)*common.BlocksPerDrum + uint64(a.Blkno)
	return blk*common.BlockSize + uint64(a.Off)
}

func (a Addr) String() string {
	return fmt.Sprintf("%d/%d+%d", a.Drum, a.Blkno, a.Off)
}

// MkByteAddr is the Addr of the n-th byte past start.
func MkByteAddr(start Addr, n uint64) Addr {
	pos := start.Flatid() + n
	blk := pos / common.BlockSize
	return MkAddr(
		common.Drum(blk/common.BlocksPerDrum),
		common.Bnum(blk%common.BlocksPerDrum),
		uint32(pos%common.BlockSize))
}
