package drum

import (
	"errors"
	"fmt"
)

// OpCode is the operation a Command asks the device to perform.
type OpCode uint32

const (
	OpMount OpCode = iota
	OpUnmount
	OpSeekDrum
	OpSeekBlock
	OpDiskRead
	OpDiskWrite
	OpFormatDrum
	NumOps
)

var opNames = [NumOps]string{
	"MOUNT", "UNMOUNT", "SEEK_DRUM", "SEEK_BLOCK",
	"DISK_READ", "DISK_WRITE", "FORMAT_DRUM",
}

func (op OpCode) String() string {
	if op < NumOps {
		return opNames[op]
	}
	return fmt.Sprintf("OP(%d)", uint32(op))
}

// Layout of a command word, most significant bits first:
//
//	[ opcode:6 | a:4 | b:22 ]
const (
	opBits = 6
	aBits  = 4
	bBits  = 22

	aShift  = bBits
	opShift = aBits + bBits

	MaxOp     = 1<<opBits - 1
	MaxParamA = 1<<aBits - 1
	MaxParamB = 1<<bBits - 1
)

var ErrParamOverflow = errors.New("command parameter exceeds its field")

// Command is a packed device command word. A is usually a drum, B a block.
type Command uint32

// MkCommand packs op, a and b. It fails rather than truncate a field.
func MkCommand(op OpCode, a uint32, b uint32) (Command, error) {
	if op > MaxOp {
		return 0, fmt.Errorf("opcode %d: %w", uint32(op), ErrParamOverflow)
	}
	if a > MaxParamA {
		return 0, fmt.Errorf("%v a=%d: %w", op, a, ErrParamOverflow)
	}
	if b > MaxParamB {
		return 0, fmt.Errorf("%v b=%d: %w", op, b, ErrParamOverflow)
	}
	return Command(uint32(op)<<opShift | a<<aShift | b), nil
}

func (c Command) Op() OpCode {
	return OpCode(uint32(c) >> opShift)
}

func (c Command) ParamA() uint32 {
	return (uint32(c) >> aShift) & MaxParamA
}

func (c Command) ParamB() uint32 {
	return uint32(c) & MaxParamB
}

func (c Command) String() string {
	return fmt.Sprintf("%v(%d,%d)", c.Op(), c.ParamA(), c.ParamB())
}

// One constructor per opcode, each placing its arguments in the fields the
// device reads them from.

func Mount() (Command, error) {
	return MkCommand(OpMount, 0, 0)
}

func Unmount() (Command, error) {
	return MkCommand(OpUnmount, 0, 0)
}

func FormatDrum(drum uint32) (Command, error) {
	return MkCommand(OpFormatDrum, drum, 0)
}

func SeekDrum(drum uint32) (Command, error) {
	return MkCommand(OpSeekDrum, drum, 0)
}

func SeekBlock(blk uint32) (Command, error) {
	return MkCommand(OpSeekBlock, 0, blk)
}

func DiskRead(drum uint32, blk uint32) (Command, error) {
	return MkCommand(OpDiskRead, drum, blk)
}

func DiskWrite(drum uint32, blk uint32) (Command, error) {
	return MkCommand(OpDiskWrite, drum, blk)
}
