package vol

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-drumvol/addr"
	"github.com/mit-pdos/go-drumvol/drum"
)

// Kinds of volume errors. Match them with errors.Is.
var (
	ErrMount             = errors.New("mount failed")
	ErrUnmount           = errors.New("unmount failed")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrDeviceCommand     = errors.New("device command failed")
	ErrShortBuffer       = errors.New("buffer shorter than length")
)

// Error describes a failed volume operation. Err, when set, is the device's
// own error and is reachable through errors.Is and errors.As.
type Error struct {
	Kind error
	Op   string
	Addr addr.Addr
	Cmd  drum.Command
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("drumvol %s %v: %v", e.Op, e.Addr, e.Kind)
	if e.Err != nil {
		s += fmt.Sprintf(": %v: %v", e.Cmd, e.Err)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}
