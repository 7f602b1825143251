// Package drum simulates a drum array storage device.
//
// The device is driven by packed command words (see Command) submitted one
// at a time. It keeps a head position (drum, block): SeekDrum and SeekBlock
// move it, and every DiskRead or DiskWrite transfers the block under the
// head and then advances the head by one block. Nothing wraps the head onto
// the next drum; the caller must seek there.
//
// Contents live in a disk.Disk of drums*BlocksPerDrum blocks plus one header
// block at the end that records the geometry, a mount generation and which
// drums have been formatted.
package drum

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-drumvol/common"
	"github.com/mit-pdos/go-drumvol/disk"
	"github.com/mit-pdos/go-drumvol/util"
)

// Device is the single primitive the volume layer drives.
//
// b must be a block-sized buffer for DiskRead (filled) and DiskWrite
// (consumed) and is ignored otherwise. A non-nil error means the device
// rejected the command.
type Device interface {
	Submit(c Command, b disk.Block) error
}

var (
	ErrMounted    = errors.New("device already mounted")
	ErrNotMounted = errors.New("device not mounted")
	ErrBadSeek    = errors.New("seek out of range")
	ErrBadHead    = errors.New("head past end of drum")
	ErrBadOp      = errors.New("unknown opcode")
	ErrNoBuffer   = errors.New("missing or mis-sized transfer buffer")
	ErrBadHeader  = errors.New("bad drum array header")
	ErrGeometry   = errors.New("backing store too small for a drum")
)

const hdrMagic uint64 = 0x534d5341 // "SMSA"

// header is the persistent part of the array's state.
type header struct {
	magic     uint64
	drums     uint64
	gen       uint64 // incremented by every mount
	formatted uint64 // bit i set once drum i has been formatted
}

func decodeHeader(b disk.Block) header {
	dec := marshal.NewDec(b)
	var h header
	h.magic = dec.GetInt()
	h.drums = dec.GetInt()
	h.gen = dec.GetInt()
	h.formatted = dec.GetInt()
	return h
}

func (h header) encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(h.magic)
	enc.PutInt(h.drums)
	enc.PutInt(h.gen)
	enc.PutInt(h.formatted)
	return enc.Finish()
}

// Stats counts the commands an Array accepted, by opcode.
type Stats [NumOps]uint64

func (s Stats) String() string {
	var parts []string
	for op := OpCode(0); op < NumOps; op++ {
		parts = append(parts, fmt.Sprintf("%v=%d", op, s[op]))
	}
	return strings.Join(parts, " ")
}

var _ Device = (*Array)(nil)

// Array is a simulated drum array backed by a disk.Disk.
type Array struct {
	mu      *sync.Mutex
	d       disk.Disk
	hdr     header
	hdrBlk  uint64
	mounted bool
	drum    uint64 // head
	blk     uint64
	stats   Stats
	nfail   uint64
}

// MkArray builds an array over d, using as many whole drums as fit (at most
// MaxDrums) and one block for the header. A d that already carries a header
// keeps its contents and formatted-drum record.
func MkArray(d disk.Disk) (*Array, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sz < common.BlocksPerDrum+1 {
		return nil, fmt.Errorf("%d blocks: %w", sz, ErrGeometry)
	}
	drums := util.Min((sz-1)/common.BlocksPerDrum, common.MaxDrums)
	hdrBlk := drums * common.BlocksPerDrum
	b, err := d.Read(hdrBlk)
	if err != nil {
		return nil, err
	}
	h := decodeHeader(b)
	switch {
	case h.magic == 0:
		h = header{magic: hdrMagic, drums: drums}
	case h.magic != hdrMagic:
		return nil, fmt.Errorf("magic %#x: %w", h.magic, ErrBadHeader)
	case h.drums != drums:
		return nil, fmt.Errorf("header has %d drums, store fits %d: %w",
			h.drums, drums, ErrBadHeader)
	}
	util.DPrintf(1, "MkArray: %d drums, gen %d\n", drums, h.gen)
	return &Array{
		mu:     new(sync.Mutex),
		d:      d,
		hdr:    h,
		hdrBlk: hdrBlk,
	}, nil
}

// NewMemArray is an array of drums drums held in memory.
func NewMemArray(drums uint64) *Array {
	a, err := MkArray(disk.NewMemDisk(drums*common.BlocksPerDrum + 1))
	if err != nil {
		panic(err)
	}
	return a
}

// ArrayBlocks is the size of the store an array of drums drums needs.
func ArrayBlocks(drums uint64) uint64 {
	return drums*common.BlocksPerDrum + 1
}

func (a *Array) Drums() uint64 {
	return a.hdr.drums
}

func (a *Array) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Failures is the number of rejected commands.
func (a *Array) Failures() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nfail
}

// Generation is the number of successful mounts recorded in the header.
func (a *Array) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hdr.gen
}

// Formatted reports whether drum has ever been formatted.
func (a *Array) Formatted(drum uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return drum < a.hdr.drums && a.hdr.formatted&(1<<drum) != 0
}

// Head is the current head position.
func (a *Array) Head() (uint64, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drum, a.blk
}

func (a *Array) Mounted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted
}

func (a *Array) writeHdr() error {
	err := a.d.Write(a.hdrBlk, a.hdr.encode())
	if err != nil {
		return err
	}
	return a.d.Barrier()
}

func (a *Array) transfer(op OpCode, b disk.Block) error {
	if uint64(len(b)) != common.BlockSize {
		return ErrNoBuffer
	}
	if a.blk > common.MaxBlockID {
		return fmt.Errorf("drum %d block %d: %w", a.drum, a.blk, ErrBadHead)
	}
	bn := a.drum*common.BlocksPerDrum + a.blk
	var err error
	if op == OpDiskRead {
		err = a.d.ReadTo(bn, b)
	} else {
		err = a.d.Write(bn, b)
	}
	if err != nil {
		return err
	}
	a.blk++
	return nil
}

func (a *Array) format(drum uint64) error {
	if drum >= a.hdr.drums {
		return fmt.Errorf("format drum %d: %w", drum, ErrBadSeek)
	}
	zero := disk.MkBlock()
	for i := uint64(0); i < common.BlocksPerDrum; i++ {
		err := a.d.Write(drum*common.BlocksPerDrum+i, zero)
		if err != nil {
			return err
		}
	}
	a.hdr.formatted |= 1 << drum
	a.drum, a.blk = drum, 0
	return a.writeHdr()
}

func (a *Array) submit(c Command, b disk.Block) error {
	op := c.Op()
	if op >= NumOps {
		return fmt.Errorf("%v: %w", c, ErrBadOp)
	}
	if op == OpMount {
		if a.mounted {
			return ErrMounted
		}
		a.hdr.gen++
		if err := a.writeHdr(); err != nil {
			a.hdr.gen--
			return err
		}
		a.mounted = true
		a.drum, a.blk = 0, 0
		return nil
	}
	if !a.mounted {
		return ErrNotMounted
	}
	switch op {
	case OpUnmount:
		a.mounted = false
		return a.d.Barrier()
	case OpFormatDrum:
		return a.format(uint64(c.ParamA()))
	case OpSeekDrum:
		drum := uint64(c.ParamA())
		if drum >= a.hdr.drums {
			return fmt.Errorf("drum %d: %w", drum, ErrBadSeek)
		}
		a.drum, a.blk = drum, 0
		return nil
	case OpSeekBlock:
		blk := uint64(c.ParamB())
		if blk > common.MaxBlockID {
			return fmt.Errorf("block %d: %w", blk, ErrBadSeek)
		}
		a.blk = blk
		return nil
	default:
		return a.transfer(op, b)
	}
}

// Submit executes c synchronously.
func (a *Array) Submit(c Command, b disk.Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.submit(c, b)
	if err != nil {
		a.nfail++
		util.DPrintf(1, "Submit %v: %v\n", c, err)
		return err
	}
	if c.Op() < NumOps {
		a.stats[c.Op()]++
	}
	util.DPrintf(5, "Submit %v: head %d/%d\n", c, a.drum, a.blk)
	return nil
}

// Close releases the backing store.
func (a *Array) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.d.Close()
}
