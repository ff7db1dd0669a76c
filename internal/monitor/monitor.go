// Package monitor samples CPU, memory, disk and load, and renders the
// live dashboard and site health sweeps.
package monitor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

// cpuSample holds the busy/total jiffy counters from /proc/stat.
type cpuSample struct {
	busy  uint64
	total uint64
}

// ParseProcStatCPU reads the aggregate cpu line of /proc/stat.
func ParseProcStatCPU(content string) (cpuSample, bool) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		if len(fields) < 4 {
			return cpuSample{}, false
		}
		var s cpuSample
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return cpuSample{}, false
			}
			s.total += v
			if i != 3 && i != 4 { // skip idle and iowait
				s.busy += v
			}
		}
		return s, true
	}
	return cpuSample{}, false
}

// CPUPercentBetween computes utilization from two /proc/stat samples.
func CPUPercentBetween(before, after cpuSample) float64 {
	dTotal := after.total - before.total
	if dTotal == 0 {
		return 0
	}
	return float64(after.busy-before.busy) / float64(dTotal) * 100
}

// CPUPercent samples /proc/stat twice over the interval.
func CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	first, err := readProcStat()
	if err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(interval):
	}
	second, err := readProcStat()
	if err != nil {
		return 0, err
	}
	return CPUPercentBetween(first, second), nil
}

func readProcStat() (cpuSample, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return cpuSample{}, fmt.Errorf("failed to read /proc/stat: %w", err)
	}
	s, ok := ParseProcStatCPU(string(data))
	if !ok {
		return cpuSample{}, fmt.Errorf("unexpected /proc/stat format")
	}
	return s, nil
}

// MemInfo is parsed from `free -b`.
type MemInfo struct {
	TotalMB     float64
	UsedMB      float64
	Percent     float64
	SwapPercent float64
}

// ParseFree parses `free -b` output.
func ParseFree(output string) (MemInfo, bool) {
	var info MemInfo
	var found bool
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		total, err1 := strconv.ParseFloat(fields[1], 64)
		used, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Mem:"):
			info.TotalMB = total / (1024 * 1024)
			info.UsedMB = used / (1024 * 1024)
			if total > 0 {
				info.Percent = used / total * 100
			}
			found = true
		case strings.HasPrefix(line, "Swap:"):
			if total > 0 {
				info.SwapPercent = used / total * 100
			}
		}
	}
	return info, found
}

// Memory samples memory via free -b.
func Memory(ctx context.Context) (MemInfo, error) {
	out := shell.Runner{}.Output(ctx, "free", "-b")
	info, ok := ParseFree(out)
	if !ok {
		return MemInfo{}, fmt.Errorf("failed to parse free output")
	}
	return info, nil
}

// DiskUsage holds one df row.
type DiskUsage struct {
	Filesystem string
	Mount      string
	SizeGB     float64
	UsedGB     float64
	Percent    float64
}

// ParseDF parses `df -B1` output, skipping pseudo filesystems.
func ParseDF(output string) []DiskUsage {
	var out []DiskUsage
	for i, line := range strings.Split(output, "\n") {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		if strings.HasPrefix(fields[0], "tmpfs") || strings.HasPrefix(fields[0], "devtmpfs") ||
			strings.HasPrefix(fields[0], "overlay") || fields[0] == "none" {
			continue
		}
		size, err1 := strconv.ParseFloat(fields[1], 64)
		used, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		pct := 0.0
		if size > 0 {
			pct = used / size * 100
		}
		out = append(out, DiskUsage{
			Filesystem: fields[0],
			Mount:      fields[5],
			SizeGB:     size / (1024 * 1024 * 1024),
			UsedGB:     used / (1024 * 1024 * 1024),
			Percent:    pct,
		})
	}
	return out
}

// Disks samples filesystem usage for the given mounts (all when empty).
func Disks(ctx context.Context, mounts ...string) []DiskUsage {
	args := append([]string{"-B1"}, mounts...)
	out := shell.Runner{}.Output(ctx, "df", args...)
	return ParseDF(out)
}

// LoadAvg holds /proc/loadavg values.
type LoadAvg struct {
	Load1, Load5, Load15 float64
}

// ParseLoadAvg parses /proc/loadavg content.
func ParseLoadAvg(content string) (LoadAvg, bool) {
	fields := strings.Fields(content)
	if len(fields) < 3 {
		return LoadAvg{}, false
	}
	l1, err1 := strconv.ParseFloat(fields[0], 64)
	l5, err2 := strconv.ParseFloat(fields[1], 64)
	l15, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return LoadAvg{}, false
	}
	return LoadAvg{Load1: l1, Load5: l5, Load15: l15}, true
}

// Load reads /proc/loadavg.
func Load() (LoadAvg, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return LoadAvg{}, fmt.Errorf("failed to read /proc/loadavg: %w", err)
	}
	l, ok := ParseLoadAvg(string(data))
	if !ok {
		return LoadAvg{}, fmt.Errorf("unexpected /proc/loadavg format")
	}
	return l, nil
}

// CPUCount returns the number of online processors.
func CPUCount(ctx context.Context) int {
	out := shell.Runner{}.Output(ctx, "nproc")
	if n, err := strconv.Atoi(strings.TrimSpace(out)); err == nil && n > 0 {
		return n
	}
	return 1
}

// Uptime returns the pretty system uptime.
func Uptime(ctx context.Context) string {
	return strings.TrimSpace(shell.Runner{}.Output(ctx, "uptime", "-p"))
}

// Snapshot collects one full metric sample.
func Snapshot(ctx context.Context) (models.MetricSnapshot, error) {
	snap := models.MetricSnapshot{
		Timestamp:   time.Now(),
		DiskPercent: make(map[string]float64),
	}

	cpu, err := CPUPercent(ctx, time.Second)
	if err != nil {
		return snap, err
	}
	snap.CPUPercent = cpu

	mem, err := Memory(ctx)
	if err != nil {
		return snap, err
	}
	snap.MemPercent = mem.Percent
	snap.MemUsedMB = mem.UsedMB
	snap.MemTotalMB = mem.TotalMB
	snap.SwapPercent = mem.SwapPercent

	if load, err := Load(); err == nil {
		snap.Load1, snap.Load5, snap.Load15 = load.Load1, load.Load5, load.Load15
	}
	snap.CPUCount = CPUCount(ctx)

	for _, d := range Disks(ctx, "/", "/var", "/home") {
		snap.DiskPercent[d.Mount] = d.Percent
	}
	return snap, nil
}

// ProgressBar renders a fixed-width usage bar: [████████----] 66.7%
func ProgressBar(value, max float64, width int) string {
	if width <= 0 {
		width = 20
	}
	pct := 0.0
	if max > 0 {
		pct = value / max
	}
	if pct > 1 {
		pct = 1
	}
	if pct < 0 {
		pct = 0
	}
	filled := int(pct*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]" +
		fmt.Sprintf(" %.1f%%", pct*100)
}
