package engine

import (
	"math"

	"github.com/prometheus/procfs"
)

// procRoot is overridden in tests.
var procRoot = procfs.DefaultMountPoint

// AvailableMemoryBytes returns MemAvailable from /proc/meminfo. When the value
// cannot be determined it returns math.MaxInt64 so budget checks do not block
// loads on hosts without procfs.
func AvailableMemoryBytes() int64 {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return math.MaxInt64
	}
	mi, err := fs.Meminfo()
	if err != nil || mi.MemAvailable == nil {
		return math.MaxInt64
	}
	kb := *mi.MemAvailable
	if kb > math.MaxInt64/1024 {
		return math.MaxInt64
	}
	return int64(kb) * 1024
}
