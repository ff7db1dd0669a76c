package hardening

import (
	"context"
	"strings"
	"testing"
)

func TestJailLocalCoversExpectedJails(t *testing.T) {
	for _, jail := range []string{"[sshd]", "[nginx-http-auth]", "[nginx-limit-req]"} {
		if !strings.Contains(jailLocal, jail) {
			t.Errorf("jail.local missing %s", jail)
		}
	}
	if !strings.Contains(jailLocal, "bantime = 86400") {
		t.Error("sshd jail should carry the long ban")
	}
}

func TestSysctlHardeningSettings(t *testing.T) {
	required := []string{
		"net.ipv4.tcp_syncookies = 1",
		"net.ipv4.conf.all.rp_filter = 1",
		"fs.suid_dumpable = 0",
		"kernel.randomize_va_space = 2",
	}
	for _, line := range required {
		if !strings.Contains(sysctlHardening, line) {
			t.Errorf("sysctl config missing %q", line)
		}
	}
}

func TestSSHDSettingsEnforceKeyOnly(t *testing.T) {
	want := map[string]string{
		"PermitRootLogin":        "no",
		"PasswordAuthentication": "no",
		"MaxAuthTries":           "3",
	}
	found := 0
	for _, s := range sshdSettings {
		if v, ok := want[s.Key]; ok {
			found++
			if s.Value != v {
				t.Errorf("%s = %q, want %q", s.Key, s.Value, v)
			}
		}
	}
	if found != len(want) {
		t.Errorf("found %d of %d expected settings", found, len(want))
	}
}

func TestStepsOrderUserBeforeSSH(t *testing.T) {
	steps := New().Steps(context.Background(), "forge")
	userIdx, sshIdx := -1, -1
	for i, s := range steps {
		switch s.Name {
		case "Create deploy user":
			userIdx = i
		case "Harden SSH":
			sshIdx = i
		}
	}
	if userIdx == -1 || sshIdx == -1 {
		t.Fatal("expected both user and SSH steps")
	}
	if userIdx > sshIdx {
		t.Error("deploy user must be created before SSH is locked down")
	}
	if len(steps) != 9 {
		t.Errorf("steps = %d, want 9", len(steps))
	}
}
