package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(2), Min(2, 3))
	assert.Equal(uint64(2), Min(3, 2))
	assert.Equal(uint64(2), Min(2, 2))
}

func TestRoundUp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(4), RoundUp(10, 3))
	assert.Equal(uint64(3), RoundUp(9, 3), "exact division")
	assert.Equal(uint64(0), RoundUp(0, 3))
	assert.Equal(uint64(5), RoundUp(256*4+255, 256))
	assert.Equal(uint64(5), RoundUp(256*4+1, 256), "round up by sz-1")
}

func TestSumOverflows32(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(false, SumOverflows32(1<<31-1, 1<<31))
	assert.Equal(false, SumOverflows32(0, 1<<32-1))
	assert.Equal(true, SumOverflows32(1<<31, 1<<31))
	assert.Equal(true, SumOverflows32(1<<32-1, 1))
}
