package binutil

import (
	"context"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// ProcessStats is a sample of the resource usage of this process
type ProcessStats struct {
	RSS          uint64
	CPUPercent   float64
	NumGoroutine int
}

// ProcessMonitor samples the resource usage of this process
type ProcessMonitor struct {
	p *process.Process
}

// NewProcessMonitor creates a ProcessMonitor of this process
func NewProcessMonitor() (*ProcessMonitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "open process failed")
	}
	return &ProcessMonitor{p: p}, nil
}

// Sample returns the current resource usage.
// CPUPercent is averaged over the process lifetime.
func (pm *ProcessMonitor) Sample(ctx context.Context) (ProcessStats, error) {
	stats := ProcessStats{NumGoroutine: runtime.NumGoroutine()}
	mem, err := pm.p.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "read memory info failed")
	}
	stats.RSS = mem.RSS
	stats.CPUPercent, err = pm.p.CPUPercentWithContext(ctx)
	return stats, errors.Wrap(err, "read cpu percent failed")
}
