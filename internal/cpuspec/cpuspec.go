// Package cpuspec reports CPU facts used to size inference thread pools.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about the host CPU
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
	HasAVX2       bool
}

// GetCPUSpec returns the detected CPU specification
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		HasAVX2:       cpuid.CPU.Supports(cpuid.AVX2),
	}
}

// OptimalThreadCount returns the thread count for an inference interpreter.
// Physical cores are preferred; the result never exceeds runtime.NumCPU,
// which honors container CPU limits.
func (c CPUSpec) OptimalThreadCount() int {
	available := runtime.NumCPU()
	switch {
	case c.PhysicalCores > 0:
		return min(c.PhysicalCores, available)
	case c.LogicalCores > 0:
		return min(c.LogicalCores, available)
	default:
		return available
	}
}

// ThreadCount resolves a configured thread count. Zero selects the optimal
// count; values above the available CPUs are capped.
func ThreadCount(configured int) int {
	available := runtime.NumCPU()
	if configured <= 0 {
		return GetCPUSpec().OptimalThreadCount()
	}
	return min(configured, available)
}
