package phpman

import "testing"

func TestParseInstalledVersions(t *testing.T) {
	output := `ii  php8.3          8.3.6-0ubuntu1  all  server-side scripting language
ii  php8.3-cli      8.3.6-0ubuntu1  amd64 command-line interpreter
ii  php8.1          8.1.27-1  all  server-side scripting language
ii  php-common      2:93  all  common files`
	versions := ParseInstalledVersions(output)
	if len(versions) != 2 {
		t.Fatalf("versions = %v, want 2", versions)
	}
	if versions[0] != "8.3" || versions[1] != "8.1" {
		t.Errorf("versions = %v, want newest first", versions)
	}
}

func TestParseInstalledVersionsEmpty(t *testing.T) {
	if v := ParseInstalledVersions(""); len(v) != 0 {
		t.Fatalf("versions = %v", v)
	}
}

func TestParseMemTotalMB(t *testing.T) {
	content := "MemTotal:        4030468 kB\nMemFree:          504172 kB\n"
	mb, ok := ParseMemTotalMB(content)
	if !ok {
		t.Fatal("parse failed")
	}
	if mb != 3936 {
		t.Errorf("mb = %d, want 3936", mb)
	}
	if _, ok := ParseMemTotalMB("nothing here"); ok {
		t.Error("expected failure")
	}
}

func TestCalculatePoolSettings(t *testing.T) {
	// 4GB box, 50MB workers: 75% of 4096 = 3072 / 50 = 61 children
	p := CalculatePoolSettings(ServerSpecs{TotalMemMB: 4096, CPUCount: 2}, 50)
	if p.MaxChildren != 61 {
		t.Errorf("max_children = %d, want 61", p.MaxChildren)
	}
	if p.StartServers != 15 {
		t.Errorf("start_servers = %d, want 15", p.StartServers)
	}
	if p.MinSpareServers < 1 || p.MaxSpareServers >= p.MaxChildren {
		t.Errorf("spares out of range: %+v", p)
	}
}

func TestCalculatePoolSettingsTinyBox(t *testing.T) {
	p := CalculatePoolSettings(ServerSpecs{TotalMemMB: 128, CPUCount: 1}, 50)
	if p.MaxChildren < 2 {
		t.Errorf("max_children = %d, want >= 2", p.MaxChildren)
	}
	if p.StartServers < 1 || p.MinSpareServers < 1 {
		t.Errorf("settings below FPM minimums: %+v", p)
	}
	if p.MaxSpareServers < p.MinSpareServers {
		t.Errorf("max_spare < min_spare: %+v", p)
	}
}

func TestExtensionBundlesNonEmpty(t *testing.T) {
	for name, exts := range ExtensionBundles {
		if len(exts) == 0 {
			t.Errorf("bundle %q is empty", name)
		}
	}
}
