package monitor

import (
	"strings"
	"testing"
)

const procStat = `cpu  1000 50 300 8000 200 0 25 0 0 0
cpu0 500 25 150 4000 100 0 10 0 0 0
intr 12345
ctxt 6789`

func TestParseProcStatCPU(t *testing.T) {
	s, ok := ParseProcStatCPU(procStat)
	if !ok {
		t.Fatal("parse failed")
	}
	// busy = everything except idle (8000) and iowait (200)
	if s.busy != 1375 {
		t.Errorf("busy = %d, want 1375", s.busy)
	}
	if s.total != 9575 {
		t.Errorf("total = %d, want 9575", s.total)
	}
}

func TestParseProcStatCPUBad(t *testing.T) {
	if _, ok := ParseProcStatCPU("cpu0 1 2 3 4\n"); ok {
		t.Error("should not match per-cpu line")
	}
	if _, ok := ParseProcStatCPU(""); ok {
		t.Error("should fail on empty input")
	}
}

func TestCPUPercentBetween(t *testing.T) {
	before := cpuSample{busy: 1000, total: 10000}
	after := cpuSample{busy: 1500, total: 11000}
	if got := CPUPercentBetween(before, after); got != 50 {
		t.Errorf("cpu%% = %v, want 50", got)
	}
	if got := CPUPercentBetween(before, before); got != 0 {
		t.Errorf("cpu%% = %v, want 0 for equal samples", got)
	}
}

const freeOutput = `              total        used        free      shared  buff/cache   available
Mem:     4129972224  2064986112   516246528    10485760  1548739584  1858076672
Swap:    2147483648   214748364  1932735284`

func TestParseFree(t *testing.T) {
	info, ok := ParseFree(freeOutput)
	if !ok {
		t.Fatal("parse failed")
	}
	if info.Percent < 49.9 || info.Percent > 50.1 {
		t.Errorf("mem%% = %v, want ~50", info.Percent)
	}
	if info.TotalMB < 3938 || info.TotalMB > 3939 {
		t.Errorf("total = %v MB", info.TotalMB)
	}
	if info.SwapPercent < 9.9 || info.SwapPercent > 10.1 {
		t.Errorf("swap%% = %v, want ~10", info.SwapPercent)
	}
}

func TestParseFreeGarbage(t *testing.T) {
	if _, ok := ParseFree("no memory info here"); ok {
		t.Error("expected failure")
	}
}

const dfOutput = `Filesystem              1B-blocks        Used   Available Use% Mounted on
/dev/sda1             53687091200 26843545600 26843545600  50% /
tmpfs                  2147483648           0  2147483648   0% /dev/shm
/dev/sdb1            107374182400 96636764160 10737418240  90% /var`

func TestParseDF(t *testing.T) {
	disks := ParseDF(dfOutput)
	if len(disks) != 2 {
		t.Fatalf("disks = %v, want 2 (tmpfs skipped)", disks)
	}
	if disks[0].Mount != "/" || disks[0].Percent != 50 {
		t.Errorf("first = %+v", disks[0])
	}
	if disks[1].Mount != "/var" || disks[1].Percent != 90 {
		t.Errorf("second = %+v", disks[1])
	}
	if disks[0].SizeGB != 50 {
		t.Errorf("size = %v GB, want 50", disks[0].SizeGB)
	}
}

func TestParseLoadAvg(t *testing.T) {
	l, ok := ParseLoadAvg("0.52 1.10 2.35 2/345 12345\n")
	if !ok {
		t.Fatal("parse failed")
	}
	if l.Load1 != 0.52 || l.Load5 != 1.10 || l.Load15 != 2.35 {
		t.Errorf("load = %+v", l)
	}
	if _, ok := ParseLoadAvg("x y"); ok {
		t.Error("expected failure")
	}
}

func TestProgressBar(t *testing.T) {
	bar := ProgressBar(50, 100, 10)
	if !strings.Contains(bar, "50.0%") {
		t.Errorf("bar = %q", bar)
	}
	if strings.Count(bar, "█") != 5 {
		t.Errorf("bar = %q, want 5 filled cells", bar)
	}
	full := ProgressBar(200, 100, 10)
	if strings.Count(full, "█") != 10 || !strings.Contains(full, "100.0%") {
		t.Errorf("full = %q", full)
	}
	empty := ProgressBar(0, 100, 10)
	if strings.Count(empty, "█") != 0 {
		t.Errorf("empty = %q", empty)
	}
}
