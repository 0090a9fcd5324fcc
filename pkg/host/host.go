// Package host describes the machine measurements are taken on.
package host

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/pojntfx/rambench/pkg/kernels"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

type Info struct {
	CPUModel        string   `json:"cpu_model"`
	LogicalCPUs     int      `json:"logical_cpus"`
	TotalMemory     uint64   `json:"total_memory"`
	AvailableMemory uint64   `json:"available_memory"`
	OS              string   `json:"os"`
	Arch            string   `json:"arch"`
	Width           int      `json:"width"`
	Features        []string `json:"features"`
}

func GetInfo(ctx context.Context) (Info, error) {
	info := Info{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Width:    int(kernels.DefaultWidth()),
		Features: kernels.Features(),
	}

	cpus, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("could not get CPU info: %w", err)
	}

	if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	info.LogicalCPUs, err = cpu.CountsWithContext(ctx, true)
	if err != nil {
		return Info{}, fmt.Errorf("could not count CPUs: %w", err)
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("could not get memory info: %w", err)
	}

	info.TotalMemory = vmStat.Total
	info.AvailableMemory = vmStat.Available

	return info, nil
}

// SafeLimit returns the number of bytes, fraction of the currently available
// memory, that the buffers of one measurement may hold together.
func SafeLimit(ctx context.Context, fraction float64) (int, error) {
	if fraction <= 0 || fraction > 1 {
		return 0, fmt.Errorf("fraction %v is not in (0, 1]", fraction)
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not get memory info: %w", err)
	}

	return limitFor(vmStat.Available, fraction), nil
}

func limitFor(available uint64, fraction float64) int {
	limit := float64(available) * fraction
	if limit >= math.MaxInt {
		return math.MaxInt
	}

	return int(limit)
}
