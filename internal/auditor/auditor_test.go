package auditor

import (
	"strings"
	"testing"
)

const hardenedVhost = `server {
    listen 443 ssl;
    server_name example.com;
    ssl_certificate /etc/letsencrypt/live/example.com/fullchain.pem;
    add_header X-Frame-Options "SAMEORIGIN" always;
    add_header X-Content-Type-Options "nosniff" always;
    add_header X-XSS-Protection "1; mode=block" always;
    add_header Referrer-Policy "strict-origin-when-cross-origin" always;
    add_header Permissions-Policy "geolocation=(), microphone=(), camera=()" always;
    gzip on;
    client_max_body_size 100M;
    proxy_buffer_size 128k;
    proxy_read_timeout 60s;
}
`

const bareVhost = `server {
    listen 80;
    server_name example.com;
    root /var/www/example.com/public;
}
`

func TestAuditVhostContentHardened(t *testing.T) {
	issues := AuditVhostContent("example.com", "/tmp/x", hardenedVhost)
	if len(issues) != 0 {
		t.Errorf("hardened vhost should be clean, got %d issues: %+v", len(issues), issues)
	}
}

func TestAuditVhostContentBare(t *testing.T) {
	issues := AuditVhostContent("example.com", "/tmp/x", bareVhost)
	headers, opts := 0, 0
	for _, i := range issues {
		switch i.Type {
		case "nginx_header":
			headers++
		case "nginx_optimization":
			opts++
		}
		if !i.Fixable {
			t.Errorf("%s should be fixable", i.Type)
		}
	}
	if headers != len(SecurityHeaders) {
		t.Errorf("headers = %d, want %d", headers, len(SecurityHeaders))
	}
	if opts != len(Optimizations) {
		t.Errorf("optimizations = %d, want %d", opts, len(Optimizations))
	}
}

func TestAuditVhostSSLListenerWithoutCert(t *testing.T) {
	conf := "server {\n    listen 443 ssl;\n    server_name x.com;\n}\n"
	issues := AuditVhostContent("x.com", "/tmp/x", conf)
	found := false
	for _, i := range issues {
		if i.Type == "nginx_ssl" {
			found = true
			if i.Fixable {
				t.Error("missing certificate is not auto-fixable")
			}
		}
	}
	if !found {
		t.Error("expected nginx_ssl issue")
	}
}

func TestParsePHPValue(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"512M", 512 << 20, true},
		{"1G", 1 << 30, true},
		{"64K", 64 << 10, true},
		{"300", 300, true},
		{"On", 1, true},
		{"Off", 0, true},
		{"", 0, true},
		{"garbage", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePHPValue(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParsePHPValue(%q) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestComparePHPSetting(t *testing.T) {
	mem := PHPSettings[0] // memory_limit min 256M
	if _, bad := comparePHPSetting("8.3", mem, "128M"); !bad {
		t.Error("128M below the 256M floor should flag")
	}
	if _, bad := comparePHPSetting("8.3", mem, "512M"); bad {
		t.Error("512M should pass")
	}
	var display PHPSetting
	for _, s := range PHPSettings {
		if s.Name == "display_errors" {
			display = s
		}
	}
	if _, bad := comparePHPSetting("8.3", display, "On"); !bad {
		t.Error("display_errors On should flag")
	}
	if _, bad := comparePHPSetting("8.3", display, "Off"); bad {
		t.Error("display_errors Off should pass")
	}
}

func TestInsertDirectives(t *testing.T) {
	out, changed := InsertDirectives(bareVhost, []string{
		`add_header X-Frame-Options "SAMEORIGIN" always;`,
		"gzip on;\ngzip_vary on;",
	})
	if !changed {
		t.Fatal("expected change")
	}
	nameIdx := strings.Index(out, "server_name")
	headerIdx := strings.Index(out, "X-Frame-Options")
	rootIdx := strings.Index(out, "root /var/www")
	if headerIdx < nameIdx || headerIdx > rootIdx {
		t.Error("directive not inserted after server_name")
	}
	if !strings.Contains(out, "gzip_vary on;") {
		t.Error("multi-line directive missing")
	}
}

func TestInsertDirectivesSkipsPresent(t *testing.T) {
	_, changed := InsertDirectives(hardenedVhost, []string{
		`add_header X-Frame-Options "SAMEORIGIN" always;`,
	})
	if changed {
		t.Error("present directive should not be re-inserted")
	}
}

func TestInsertDirectivesNoServerName(t *testing.T) {
	_, changed := InsertDirectives("server {\n listen 80;\n}", []string{"gzip on;"})
	if changed {
		t.Error("no insertion point means no change")
	}
}

func TestFixable(t *testing.T) {
	issues := []Issue{{Fixable: true}, {Fixable: false}, {Fixable: true}}
	if got := len(Fixable(issues)); got != 2 {
		t.Errorf("Fixable = %d, want 2", got)
	}
}
