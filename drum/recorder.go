package drum

import (
	"sync"

	"github.com/mit-pdos/go-drumvol/common"
	"github.com/mit-pdos/go-drumvol/disk"
)

var _ Device = (*Recorder)(nil)

// Recorder passes commands through to a device and remembers each one,
// whether or not the device accepted it.
type Recorder struct {
	mu   *sync.Mutex
	dev  Device
	cmds []Command
}

func MkRecorder(dev Device) *Recorder {
	return &Recorder{mu: new(sync.Mutex), dev: dev}
}

// Drums reports the wrapped device's drum count, or common.MaxDrums if the
// device does not say.
func (r *Recorder) Drums() uint64 {
	if g, ok := r.dev.(interface{ Drums() uint64 }); ok {
		return g.Drums()
	}
	return common.MaxDrums
}

func (r *Recorder) Submit(c Command, b disk.Block) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
	return r.dev.Submit(c, b)
}

// Commands returns a copy of the trace so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmds := make([]Command, len(r.cmds))
	copy(cmds, r.cmds)
	return cmds
}

// Ops is Commands reduced to opcodes.
func (r *Recorder) Ops() []OpCode {
	var ops []OpCode
	for _, c := range r.Commands() {
		ops = append(ops, c.Op())
	}
	return ops
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.cmds = nil
	r.mu.Unlock()
}
