package util

import (
	"fmt"

	"github.com/golang/glog"
)

// DPrintf logs at glog verbosity level. Level 0 always prints.
func DPrintf(level uint64, format string, a ...interface{}) {
	if glog.V(glog.Level(level)) {
		glog.InfoDepth(1, fmt.Sprintf(format, a...))
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

// SumOverflows32 reports whether a+b wraps around 32 bits.
func SumOverflows32(a uint32, b uint32) bool {
	return a+b < a
}
