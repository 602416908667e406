// Package host reports the local machine's CPU, RAM and NVIDIA GPUs, shown next to the
// dashboard so the operator can judge whether training here is viable.
package host

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const gb = 1024 * 1024 * 1024

// GPU is one group of identical CUDA devices reported by nvidia-smi.
type GPU struct {
	Name   string  `json:"name"`
	VRAMGB float64 `json:"vram_gb"`
	Count  int     `json:"count"`
}

// Specs holds the detected host facts.
type Specs struct {
	CPUName        string  `json:"cpu_name"`
	CPUCores       int     `json:"cpu_cores"`
	TotalRAMGB     float64 `json:"total_ram_gb"`
	AvailableRAMGB float64 `json:"available_ram_gb"`
	GPU            *GPU    `json:"gpu,omitempty"`
	WSL            bool    `json:"wsl"`
}

// Summary is the one-line form used in the TUI header.
func (s *Specs) Summary() string {
	line := fmt.Sprintf("%s (%d cores)  RAM %.1f/%.1f GB", s.CPUName, s.CPUCores, s.AvailableRAMGB, s.TotalRAMGB)
	if s.WSL {
		line += " (WSL)"
	}
	if s.GPU != nil {
		line += "  GPU " + s.GPU.String()
	} else {
		line += "  GPU none"
	}
	return line
}

func (g *GPU) String() string {
	if g.Count > 1 {
		return fmt.Sprintf("%s x%d (%.1f GB)", g.Name, g.Count, g.VRAMGB)
	}
	return fmt.Sprintf("%s (%.1f GB)", g.Name, g.VRAMGB)
}

// Detect returns specs for the current machine.
func Detect() (*Specs, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("mem: %w", err)
	}
	total := float64(v.Total) / float64(gb)
	avail := float64(v.Available) / float64(gb)
	if v.Available == 0 && v.Total > 0 {
		avail = total * 0.8
	}

	name := "Unknown CPU"
	if infos, _ := cpu.Info(); len(infos) > 0 {
		name = infos[0].ModelName
		if name == "" {
			name = infos[0].VendorID
		}
	}
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}

	return &Specs{
		CPUName:        name,
		CPUCores:       cores,
		TotalRAMGB:     total,
		AvailableRAMGB: avail,
		GPU:            detectNvidia(),
		WSL:            IsRunningInWSL(),
	}, nil
}

func detectNvidia() *GPU {
	out, err := exec.Command("nvidia-smi", "--query-gpu=memory.total,name", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}
	return parseNvidiaSMI(out)
}

// parseNvidiaSMI reads "memory.total,name" CSV rows (MiB). VRAM is summed across devices.
func parseNvidiaSMI(out []byte) *GPU {
	var totalMB float64
	var count int
	var first string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		var mb float64
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%f", &mb); err != nil {
			continue
		}
		totalMB += mb
		count++
		if first == "" && len(parts) > 1 {
			first = strings.TrimSpace(parts[1])
		}
	}
	if count == 0 {
		return nil
	}
	if first == "" {
		first = "NVIDIA GPU"
	}
	return &GPU{Name: first, VRAMGB: totalMB / 1024, Count: count}
}

var (
	wslOnce sync.Once
	wslVal  bool
)

// IsRunningInWSL returns true if running under WSL (Linux only).
func IsRunningInWSL() bool {
	wslOnce.Do(func() {
		if runtime.GOOS != "linux" {
			return
		}
		if os.Getenv("WSL_INTEROP") != "" || os.Getenv("WSL_DISTRO_NAME") != "" {
			wslVal = true
			return
		}
		for _, p := range []string{"/proc/sys/kernel/osrelease", "/proc/version"} {
			b, _ := os.ReadFile(p)
			if strings.Contains(strings.ToLower(string(b)), "microsoft") {
				wslVal = true
				return
			}
		}
	})
	return wslVal
}
