// drumvol reads and writes the virtual address space of a file-backed drum
// array.
//
// Every read and write mounts the volume, and mounting formats drum 0, so
// data written to drum 0 does not survive to the next invocation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	goosedisk "github.com/tchajed/goose/machine/disk"
	"go.uber.org/multierr"

	"github.com/mit-pdos/go-drumvol/common"
	"github.com/mit-pdos/go-drumvol/disk"
	"github.com/mit-pdos/go-drumvol/drum"
	"github.com/mit-pdos/go-drumvol/util"
	"github.com/mit-pdos/go-drumvol/vol"
)

var (
	diskPath = flag.String("disk", "drumvol.img", "backing file of the drum array")
	numDrums = flag.Uint64("drums", common.MaxDrums, "number of drums in a new array; an existing image keeps its own")
	packed   = flag.Bool("packed", false, "store the array in 4KiB blocks of a goose file disk")
	trace    = flag.Bool("trace", false, "print every device command")
)

type session struct {
	arr *drum.Array
	rec *drum.Recorder
	v   *vol.Volume
}

// imageBlocks returns the size of the existing image at path in unit-byte
// blocks, or 0 if there is no regular, non-empty file there.
func imageBlocks(path string, unit uint64) (uint64, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() || fi.Size() == 0 {
		return 0, nil
	}
	if uint64(fi.Size())%unit != 0 {
		return 0, fmt.Errorf("%s: size %d is not a multiple of %d", path, fi.Size(), unit)
	}
	return uint64(fi.Size()) / unit, nil
}

// openStore sizes the store from the image when one exists, so -drums only
// shapes new arrays.
func openStore() (disk.Disk, error) {
	unit := disk.BlockSize
	if *packed {
		unit = goosedisk.BlockSize
	}
	n, err := imageBlocks(*diskPath, unit)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n = util.RoundUp(drum.ArrayBlocks(*numDrums)*disk.BlockSize, unit)
	} else {
		util.DPrintf(1, "%s: existing image of %d blocks, ignoring -drums\n", *diskPath, n)
	}
	if !*packed {
		return disk.NewFileDisk(*diskPath, n)
	}
	g, err := goosedisk.NewFileDisk(*diskPath, n)
	if err != nil {
		return nil, err
	}
	return disk.NewPackedDisk(g), nil
}

func openArray() (*drum.Array, error) {
	if *numDrums == 0 || *numDrums > common.MaxDrums {
		return nil, fmt.Errorf("-drums must be in [1, %d]", common.MaxDrums)
	}
	d, err := openStore()
	if err != nil {
		return nil, err
	}
	arr, err := drum.MkArray(d)
	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	return arr, nil
}

// mount opens the array and mounts its volume.
func mount() (*session, error) {
	arr, err := openArray()
	if err != nil {
		return nil, err
	}
	s := &session{arr: arr, rec: drum.MkRecorder(arr)}
	s.v = vol.MkVolume(s.rec, arr.Drums())
	if err := s.v.Mount(); err != nil {
		return nil, multierr.Append(err, arr.Close())
	}
	return s, nil
}

func (s *session) close() error {
	err := multierr.Combine(s.v.Unmount(), s.arr.Close())
	if *trace {
		for _, c := range s.rec.Commands() {
			fmt.Fprintln(os.Stderr, c)
		}
	}
	return err
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&infoCmd{}, "")
	subcommands.Register(&readCmd{}, "")
	subcommands.Register(&writeCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
