package diagnostics

import "testing"

func TestGuideForKnownCodes(t *testing.T) {
	for _, code := range []int{403, 404, 419, 500, 502, 504} {
		g, ok := GuideFor(code)
		if !ok {
			t.Fatalf("no guide for %d", code)
		}
		if g.Code != code {
			t.Errorf("guide code = %d, want %d", g.Code, code)
		}
		if len(g.Causes) == 0 || len(g.Fixes) == 0 {
			t.Errorf("guide %d is missing causes or fixes", code)
		}
	}
}

func TestGuideForUnknown(t *testing.T) {
	if _, ok := GuideFor(418); ok {
		t.Error("expected no guide for 418")
	}
}

func TestParseGuideCode(t *testing.T) {
	code, err := ParseGuideCode(" 502 ")
	if err != nil {
		t.Fatal(err)
	}
	if code != 502 {
		t.Errorf("code = %d, want 502", code)
	}
	if _, err := ParseGuideCode("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestFixesDefaultsPHPVersion(t *testing.T) {
	fixes := Fixes("")
	found := false
	for _, f := range fixes {
		if f.Name == "Restart PHP-FPM 8.3" {
			found = true
		}
	}
	if !found {
		t.Error("expected default PHP version 8.3 in fix list")
	}
}

func TestFixesMarkDangerous(t *testing.T) {
	for _, f := range Fixes("8.3") {
		switch f.Name {
		case "Reset /var/www ownership to www-data", "Clear nginx cache":
			if !f.Dangerous {
				t.Errorf("%s should be dangerous", f.Name)
			}
		default:
			if f.Dangerous {
				t.Errorf("%s should not be dangerous", f.Name)
			}
		}
	}
}
