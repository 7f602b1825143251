package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-drumvol/addr"
	"github.com/mit-pdos/go-drumvol/drum"
)

func TestParseVAddr(t *testing.T) {
	assert := assert.New(t)
	va, err := parseVAddr("0x0102c8")
	assert.NoError(err)
	assert.Equal(addr.MkAddr(1, 2, 200), addr.Decode(va))
	_, err = parseVAddr("0x1ffffffff")
	assert.Error(err, "address wider than 32 bits")
	_, err = parseVAddr("drum")
	assert.Error(err)
}

func TestCheckRange(t *testing.T) {
	assert := assert.New(t)
	n, err := checkRange(0x0102c8, 300)
	assert.NoError(err)
	assert.Equal(uint32(300), n)

	_, err = checkRange(0, math.MaxUint32+10)
	assert.Error(err, "length wider than 32 bits")

	n, err = checkRange(0xffffff00, 256)
	assert.NoError(err, "range ends on the last address")
	assert.Equal(uint32(256), n)
	_, err = checkRange(0xffffff00, 257)
	assert.Error(err, "range wraps the address space")

	n, err = checkRange(0xffffffff, 0)
	assert.NoError(err)
	assert.Equal(uint32(0), n)
}

func TestReadRejectsWideLen(t *testing.T) {
	wide := uint64(math.MaxUint32) + 10
	if uint64(^uint(0)) < wide {
		t.Skip("uint is 32 bits")
	}
	withFlags(t, 2, false)
	c := &readCmd{addr: "0", length: uint(wide)}
	assert.Equal(t, subcommands.ExitUsageError, c.Execute(context.Background(), nil))
	_, err := os.Stat(*diskPath)
	assert.True(t, os.IsNotExist(err), "rejected before the image is opened")
}

func withFlags(t *testing.T, drums uint64, pack bool) {
	oldPath, oldDrums, oldPacked := *diskPath, *numDrums, *packed
	*diskPath = filepath.Join(t.TempDir(), "vol.img")
	*numDrums = drums
	*packed = pack
	t.Cleanup(func() {
		*diskPath, *numDrums, *packed = oldPath, oldDrums, oldPacked
	})
}

func roundTrip(t *testing.T) {
	va := addr.MkAddr(1, 4, 250).VAddr()
	data := []byte("spans two blocks")

	s, err := mount()
	require.NoError(t, err)
	require.NoError(t, s.v.Write(va, uint32(len(data)), data))
	require.NoError(t, s.close())

	s, err = mount()
	require.NoError(t, err)
	got := make([]byte, len(data))
	require.NoError(t, s.v.Read(va, uint32(len(got)), got))
	assert.Equal(t, data, got, "data on drum 1 survives remount")
	assert.Contains(t, s.rec.Ops(), drum.OpFormatDrum)
	require.NoError(t, s.close())

	arr, err := openArray()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), arr.Generation())
	assert.True(t, arr.Formatted(0))
	assert.NoError(t, arr.Close())
}

func TestFileRoundTrip(t *testing.T) {
	withFlags(t, 2, false)
	roundTrip(t)
}

func TestPackedRoundTrip(t *testing.T) {
	withFlags(t, 3, true)
	roundTrip(t)
}

func TestBadDrumCount(t *testing.T) {
	withFlags(t, 17, false)
	_, err := openArray()
	assert.Error(t, err)
}

func reopenKeepsImage(t *testing.T) {
	va := addr.MkAddr(3, 9, 0).VAddr()
	data := []byte("keep me")

	s, err := mount()
	require.NoError(t, err)
	require.NoError(t, s.v.Write(va, uint32(len(data)), data))
	require.NoError(t, s.close())
	fi, err := os.Stat(*diskPath)
	require.NoError(t, err)
	size := fi.Size()

	*numDrums = 2
	arr, err := openArray()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), arr.Drums(), "geometry comes from the image")
	assert.Equal(t, uint64(1), arr.Generation())
	require.NoError(t, arr.Close())

	fi, err = os.Stat(*diskPath)
	require.NoError(t, err)
	assert.Equal(t, size, fi.Size(), "image must not shrink")

	s, err = mount()
	require.NoError(t, err)
	got := make([]byte, len(data))
	require.NoError(t, s.v.Read(va, uint32(len(got)), got))
	assert.Equal(t, data, got)
	assert.Equal(t, uint64(2), s.arr.Generation())
	require.NoError(t, s.close())
}

func TestFileReopenOtherDrums(t *testing.T) {
	withFlags(t, 4, false)
	reopenKeepsImage(t)
}

func TestPackedReopenOtherDrums(t *testing.T) {
	withFlags(t, 4, true)
	reopenKeepsImage(t)
}

func TestImageBlocks(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	n, err := imageBlocks(filepath.Join(dir, "missing.img"), 256)
	assert.NoError(err)
	assert.Equal(uint64(0), n)

	p := filepath.Join(dir, "odd.img")
	require.NoError(t, os.WriteFile(p, make([]byte, 300), 0644))
	_, err = imageBlocks(p, 256)
	assert.Error(err, "size not a multiple of the block size")

	n, err = imageBlocks(p, 100)
	assert.NoError(err)
	assert.Equal(uint64(3), n)
}
