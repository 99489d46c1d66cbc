package buildinfo

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}

// SysInfo describes the machine a plan was computed on. Solve times are only
// comparable between runs on similar hardware.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	CPUs     int    `json:"cpus"`
	RAM      string `json:"ram"`
}

// System probes the host. Fields that cannot be read are left empty.
func System() SysInfo {
	si := SysInfo{CPUs: runtime.NumCPU()}
	if hs, err := host.Info(); err == nil {
		si.Platform = hs.Platform
	}
	if si.Platform == "" {
		si.Platform = runtime.GOOS + "/" + runtime.GOARCH
	}
	if cs, err := cpu.Info(); err == nil && len(cs) > 0 {
		si.CPU = cs[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		si.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return si
}
