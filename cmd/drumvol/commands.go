package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/subcommands"

	"github.com/mit-pdos/go-drumvol/addr"
	"github.com/mit-pdos/go-drumvol/common"
	"github.com/mit-pdos/go-drumvol/util"
)

func parseVAddr(s string) (addr.VAddr, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return addr.VAddr(v), nil
}

// checkRange returns n as a transfer length, rejecting lengths that do not
// fit 32 bits and ranges that run past the end of the address space.
func checkRange(va addr.VAddr, n uint64) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("length %d does not fit 32 bits", n)
	}
	if n > 0 && util.SumOverflows32(uint32(va), uint32(n-1)) {
		return 0, fmt.Errorf("%d bytes at %#x run past the address space", n, uint32(va))
	}
	return uint32(n), nil
}

type infoCmd struct{}

func (*infoCmd) Name() string     { return "info" }
func (*infoCmd) Synopsis() string { return "describe the drum array" }
func (*infoCmd) Usage() string    { return "info\n" }

func (*infoCmd) SetFlags(*flag.FlagSet) {}

func (*infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	arr, err := openArray()
	if err != nil {
		glog.Error(err)
		return subcommands.ExitFailure
	}
	defer arr.Close()
	drums := arr.Drums()
	fmt.Printf("drums:      %d\n", drums)
	fmt.Printf("block size: %d\n", common.BlockSize)
	fmt.Printf("capacity:   %s\n", humanize.IBytes(drums*common.DrumSize))
	fmt.Printf("mounts:     %d\n", arr.Generation())
	var formatted []uint64
	for d := uint64(0); d < drums; d++ {
		if arr.Formatted(d) {
			formatted = append(formatted, d)
		}
	}
	fmt.Printf("formatted:  %v\n", formatted)
	return subcommands.ExitSuccess
}

type readCmd struct {
	addr   string
	length uint
}

func (*readCmd) Name() string     { return "read" }
func (*readCmd) Synopsis() string { return "hex dump a range of the volume" }
func (*readCmd) Usage() string    { return "read -addr ADDR -len N\n" }

func (c *readCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "0", "virtual address (drum<<16 | block<<8 | offset)")
	f.UintVar(&c.length, "len", uint(common.BlockSize), "bytes to read")
}

func (c *readCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	va, err := parseVAddr(c.addr)
	if err != nil {
		glog.Error(err)
		return subcommands.ExitUsageError
	}
	n, err := checkRange(va, uint64(c.length))
	if err != nil {
		glog.Errorf("bad -len: %v", err)
		return subcommands.ExitUsageError
	}
	s, err := mount()
	if err != nil {
		glog.Error(err)
		return subcommands.ExitFailure
	}
	data := make([]byte, n)
	err = s.v.Read(va, n, data)
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		glog.Error(err)
		return subcommands.ExitFailure
	}
	fmt.Print(hex.Dump(data))
	return subcommands.ExitSuccess
}

type writeCmd struct {
	addr string
	data string
}

func (*writeCmd) Name() string     { return "write" }
func (*writeCmd) Synopsis() string { return "write hex bytes to the volume" }
func (*writeCmd) Usage() string    { return "write -addr ADDR -data HEX\n" }

func (c *writeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "0", "virtual address (drum<<16 | block<<8 | offset)")
	f.StringVar(&c.data, "data", "", "bytes to write, hex encoded")
}

func (c *writeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	va, err := parseVAddr(c.addr)
	if err != nil {
		glog.Error(err)
		return subcommands.ExitUsageError
	}
	data, err := hex.DecodeString(c.data)
	if err != nil {
		glog.Errorf("bad -data: %v", err)
		return subcommands.ExitUsageError
	}
	n, err := checkRange(va, uint64(len(data)))
	if err != nil {
		glog.Errorf("bad -data: %v", err)
		return subcommands.ExitUsageError
	}
	s, err := mount()
	if err != nil {
		glog.Error(err)
		return subcommands.ExitFailure
	}
	err = s.v.Write(va, n, data)
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		glog.Error(err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes at %v\n", len(data), addr.Decode(va))
	return subcommands.ExitSuccess
}
