// Package vol exposes a drum array as one linear virtual address space.
//
// A virtual address names a drum, a block on that drum and a byte within the
// block (see addr.VAddr). Read and Write accept any address and length; the
// volume walks the transfer block by block, crossing onto the next drum when
// it runs off the end of one, and drives the device with seek, read and
// write commands. Writes always read the block first and write back the
// whole block, so bytes of a partially written block outside the requested
// range are preserved.
//
// Any error leaves a transfer partially applied: blocks before the failing
// one have already been read or written, and the device head is wherever
// the last accepted command left it.
package vol

import (
	"sync"

	"github.com/golang/glog"

	"github.com/mit-pdos/go-drumvol/addr"
	"github.com/mit-pdos/go-drumvol/buf"
	"github.com/mit-pdos/go-drumvol/common"
	"github.com/mit-pdos/go-drumvol/disk"
	"github.com/mit-pdos/go-drumvol/drum"
	"github.com/mit-pdos/go-drumvol/util"
)

// Volume is the virtual address space of one device.
//
// The device's head is shared state, so the volume runs one operation at a
// time.
type Volume struct {
	mu    *sync.Mutex
	dev   drum.Device
	drums uint64 // addresses on drums >= drums are out of range
}

type geometry interface {
	Drums() uint64
}

// MkVolume addresses the first drums drums of dev, capped at
// common.MaxDrums and, when dev reports one, at dev's own drum count.
// Addresses past the cap are out of range rather than left for the device to
// reject.
func MkVolume(dev drum.Device, drums uint64) *Volume {
	drums = util.Min(drums, common.MaxDrums)
	if g, ok := dev.(geometry); ok {
		drums = util.Min(drums, g.Drums())
	}
	v := &Volume{
		mu:    new(sync.Mutex),
		dev:   dev,
		drums: drums,
	}
	return v
}

// Drums is the number of addressable drums.
func (v *Volume) Drums() uint64 {
	return v.drums
}

// Size is the number of addressable bytes.
func (v *Volume) Size() uint64 {
	return v.drums * common.DrumSize
}

// issue returns a function that submits the command it is handed, so that
// call sites read v.issue(op, a, nil)(drum.SeekDrum(d)). A command that
// failed to encode or that the device rejected becomes a device-command
// error.
func (v *Volume) issue(op string, a addr.Addr, b disk.Block) func(drum.Command, error) error {
	return func(c drum.Command, err error) error {
		if err == nil {
			err = v.dev.Submit(c, b)
		}
		if err != nil {
			return &Error{Kind: ErrDeviceCommand, Op: op, Addr: a, Cmd: c, Err: err}
		}
		return nil
	}
}

// Mount makes the volume available and formats drum 0.
//
// Formatting is attempted on every mount and its failure is only logged:
// Mount reports success as long as the device accepted the mount.
func (v *Volume) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	err := v.issue("mount", addr.Addr{}, nil)(drum.Mount())
	if err != nil {
		e := err.(*Error)
		e.Kind = ErrMount
		glog.Errorf("%v", e)
		return e
	}
	err = v.issue("mount", addr.Addr{}, nil)(drum.FormatDrum(0))
	if err != nil {
		glog.Warningf("%v", err)
	}
	util.DPrintf(1, "Mount: %d drums\n", v.drums)
	return nil
}

type statser interface {
	Stats() drum.Stats
}

// Unmount makes the volume unavailable. It does not flush anything: every
// accepted write is already on the device.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	err := v.issue("unmount", addr.Addr{}, nil)(drum.Unmount())
	if err != nil {
		e := err.(*Error)
		e.Kind = ErrUnmount
		glog.Errorf("%v", e)
		return e
	}
	if s, ok := v.dev.(statser); ok {
		util.DPrintf(1, "Unmount: %v\n", s.Stats())
	}
	return nil
}

// Read copies length bytes starting at va into dst.
func (v *Volume) Read(va addr.VAddr, length uint32, dst []byte) error {
	if length == 0 {
		return nil
	}
	if uint64(len(dst)) < uint64(length) {
		return &Error{Kind: ErrShortBuffer, Op: "read", Addr: addr.Decode(va)}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transfer("read", va, dst[:length])
}

// Write copies length bytes from src to the volume starting at va.
func (v *Volume) Write(va addr.VAddr, length uint32, src []byte) error {
	if length == 0 {
		return nil
	}
	if uint64(len(src)) < uint64(length) {
		return &Error{Kind: ErrShortBuffer, Op: "write", Addr: addr.Decode(va)}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transfer("write", va, src[:length])
}

// transfer moves data between the volume and a caller buffer, one block per
// iteration. For op "write" data is the source, otherwise the destination.
//
// Each block's staging address is the position of the next byte to move, so
// only the first block starts at the address's byte offset. Only the first
// block needs an explicit seek; each DiskRead/DiskWrite advances the head to the next
// block. When the walk runs off the last block of a drum it continues at
// block 0 of the next drum, which needs a drum seek.
func (v *Volume) transfer(op string, va addr.VAddr, data []byte) error {
	write := op == "write"
	start := addr.Decode(va)
	d := start.Drum
	blk := start.Blkno
	first := true
	var n uint64
	util.DPrintf(3, "%s: %v len %d\n", op, start, len(data))
	for n < uint64(len(data)) {
		rollover := false
		if uint64(blk) >= common.BlocksPerDrum {
			blk = 0
			d++
			rollover = true
		}
		a := addr.MkByteAddr(start, n)
		if uint64(d) >= v.drums || uint64(blk) > common.MaxBlockID {
			err := &Error{Kind: ErrAddressOutOfRange, Op: op, Addr: a}
			glog.Errorf("%v (%d of %d bytes done)", err, n, len(data))
			return err
		}
		if first {
			if err := v.issue(op, a, nil)(drum.SeekDrum(d)); err != nil {
				return err
			}
			if err := v.issue(op, a, nil)(drum.SeekBlock(blk)); err != nil {
				return err
			}
		} else if rollover {
			if err := v.issue(op, a, nil)(drum.SeekDrum(d)); err != nil {
				return err
			}
		}
		first = false

		b := buf.MkBuf(a)
		if err := v.issue(op, a, b.Blk)(drum.DiskRead(d, blk)); err != nil {
			return err
		}
		blk++

		if !write {
			n += b.CopyOut(data[n:])
			continue
		}
		n += b.Install(data[n:])
		if err := v.issue(op, a, nil)(drum.SeekBlock(blk - 1)); err != nil {
			return err
		}
		if err := v.issue(op, a, b.Blk)(drum.DiskWrite(d, blk-1)); err != nil {
			return err
		}
	}
	return nil
}
