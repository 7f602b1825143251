package common

const (
	BlockSize     uint64 = 256 // bytes per block
	MaxDrums      uint64 = 16
	BlocksPerDrum uint64 = 256
	MaxBlockID    uint64 = BlocksPerDrum - 1

	DrumSize uint64 = BlocksPerDrum * BlockSize
)

type Drum = uint32
type Bnum = uint32
