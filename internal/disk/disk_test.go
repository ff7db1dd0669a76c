package disk

import "testing"

func TestParseDU(t *testing.T) {
	output := "1073741824\t/var/www/site-a\n536870912\t/var/www/site-b\n2147483648\t/var/www\n"
	entries := ParseDU(output, "/var/www")
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2 (total row dropped)", entries)
	}
	if entries[0].Path != "/var/www/site-a" || entries[0].SizeMB != 1024 {
		t.Errorf("first = %+v", entries[0])
	}
	if entries[1].SizeMB != 512 {
		t.Errorf("second = %+v", entries[1])
	}
}

func TestParseFindSizes(t *testing.T) {
	output := "104857600\t/var/log/big.log\n524288000\t/home/user/dump.sql\n"
	entries := ParseFindSizes(output)
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0].Path != "/home/user/dump.sql" {
		t.Errorf("expected largest first, got %+v", entries[0])
	}
	if entries[1].SizeMB != 100 {
		t.Errorf("size = %v, want 100", entries[1].SizeMB)
	}
}

func TestParseFdupes(t *testing.T) {
	output := `/var/www/a/logo.png
/var/www/b/logo.png

/tmp/one.txt
/tmp/two.txt
/tmp/three.txt

/orphan/single.txt
`
	groups := ParseFdupes(output)
	if len(groups) != 2 {
		t.Fatalf("groups = %v, want 2", groups)
	}
	if len(groups[0]) != 2 || len(groups[1]) != 3 {
		t.Errorf("group sizes = %d, %d", len(groups[0]), len(groups[1]))
	}
}

func TestCleanupStepsShallowSubset(t *testing.T) {
	var shallow, deep int
	for _, s := range CleanupSteps() {
		if s.Deep {
			deep++
		} else {
			shallow++
		}
		if len(s.Command) == 0 {
			t.Errorf("step %q has no command", s.Name)
		}
	}
	if shallow == 0 || deep == 0 {
		t.Errorf("shallow = %d, deep = %d", shallow, deep)
	}
}
