package disk

import (
	"fmt"
	"sync"

	goosedisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-drumvol/util"
)

// PerPacked is the number of blocks stored in one goose disk block.
const PerPacked uint64 = goosedisk.BlockSize / BlockSize

var _ Disk = (*packedDisk)(nil)

// packedDisk stores PerPacked blocks in each block of a goose disk. Writes
// read the enclosing goose block, install the block and write it back.
type packedDisk struct {
	mu *sync.Mutex // serializes read-modify-write of shared goose blocks
	d  goosedisk.Disk
}

// NewPackedDisk exposes d as a Disk of d.Size()*PerPacked blocks.
func NewPackedDisk(d goosedisk.Disk) Disk {
	return &packedDisk{mu: new(sync.Mutex), d: d}
}

func (p *packedDisk) locate(a uint64) (uint64, uint64, error) {
	if a >= p.d.Size()*PerPacked {
		return 0, 0, fmt.Errorf("packed %v: %w", a, ErrOutOfBounds)
	}
	return a / PerPacked, (a % PerPacked) * BlockSize, nil
}

func (p *packedDisk) ReadTo(a uint64, b Block) error {
	if uint64(len(b)) != BlockSize {
		return fmt.Errorf("read %v: %w (%d bytes)", a, ErrBlockSize, len(b))
	}
	gblk, off, err := p.locate(a)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	blk := p.d.Read(gblk)
	copy(b, blk[off:off+BlockSize])
	return nil
}

func (p *packedDisk) Read(a uint64) (Block, error) {
	b := MkBlock()
	err := p.ReadTo(a, b)
	return b, err
}

func (p *packedDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return fmt.Errorf("write %v: %w (%d bytes)", a, ErrBlockSize, len(v))
	}
	gblk, off, err := p.locate(a)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	blk := p.d.Read(gblk)
	copy(blk[off:off+BlockSize], v)
	p.d.Write(gblk, blk)
	util.DPrintf(10, "packed write: %v in %v+%v\n", a, gblk, off)
	return nil
}

func (p *packedDisk) Size() (uint64, error) {
	return p.d.Size() * PerPacked, nil
}

func (p *packedDisk) Barrier() error {
	p.d.Barrier()
	return nil
}

func (p *packedDisk) Close() error {
	p.d.Close()
	return nil
}
