// Package sysinfo collects host metadata for the scan report header.
package sysinfo

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ancients-collective/vitals/internal/types"
)

// Collect gathers system information via gopsutil. Every probe is best
// effort: a failing probe leaves its field zero rather than failing the
// scan, so the result is always usable.
func Collect() types.SystemInfo {
	info := types.SystemInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCount: runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if hi, err := host.Info(); err == nil {
		info.OSVersion = hi.KernelVersion
		info.UptimeHours = hi.Uptime / 3600
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotalMB = vm.Total / (1024 * 1024)
	}

	return info
}
