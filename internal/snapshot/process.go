package snapshot

import (
	"runtime"
	"time"

	"github.com/prometheus/procfs"
)

// ProcessMetrics describes the host process at capture time.
type ProcessMetrics struct {
	HeapAlloc      uint64        `json:"heap_alloc"`
	Sys            uint64        `json:"sys"`
	Goroutines     int           `json:"goroutines"`
	ResidentMemory uint64        `json:"resident_memory,omitempty"`
	CPUSeconds     float64       `json:"cpu_seconds,omitempty"`
	Uptime         time.Duration `json:"uptime"`
}

var processStart = time.Now()

// ReadProcessMetrics reads runtime memory stats and, where procfs is
// available, resident memory and CPU time. procfs failures leave those
// fields zero.
func ReadProcessMetrics() ProcessMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	pm := ProcessMetrics{
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(processStart),
	}

	proc, err := procfs.Self()
	if err != nil {
		return pm
	}
	stat, err := proc.Stat()
	if err != nil {
		return pm
	}
	pm.ResidentMemory = uint64(stat.ResidentMemory())
	pm.CPUSeconds = stat.CPUTime()
	if started, err := stat.StartTime(); err == nil && started > 0 {
		pm.Uptime = time.Since(time.Unix(0, int64(started*float64(time.Second))))
	}
	return pm
}
