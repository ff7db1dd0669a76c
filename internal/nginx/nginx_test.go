package nginx

import (
	"strings"
	"testing"
)

func TestRenderStaticSite(t *testing.T) {
	out, err := Render(VhostConfig{
		Domain:       "example.com",
		Type:         "static",
		DocumentRoot: "/var/www/example.com/public",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"server_name example.com;",
		"root /var/www/example.com/public;",
		"try_files $uri $uri/ =404;",
		"listen 80;",
		"add_header X-Frame-Options",
		"gzip on;",
		".well-known/acme-challenge",
		"client_max_body_size 64m;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in rendered config:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ssl_certificate") {
		t.Error("non-SSL site should not reference certificates")
	}
}

func TestRenderPHPSite(t *testing.T) {
	out, err := Render(VhostConfig{
		Domain:       "app.example.com",
		Type:         "php",
		DocumentRoot: "/var/www/app.example.com/public",
		PHPVersion:   "8.3",
		IncludeWWW:   true,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"server_name app.example.com www.app.example.com;",
		"fastcgi_pass unix:/run/php/php8.3-fpm.sock;",
		"index index.php index.html;",
		"try_files $uri $uri/ /index.php?$query_string;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestRenderProxySiteWithSSL(t *testing.T) {
	out, err := Render(VhostConfig{
		Domain: "next.example.com",
		Type:   "nextjs",
		Port:   3000,
		SSL:    true,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"proxy_pass http://127.0.0.1:3000;",
		"listen 443 ssl;",
		"return 301 https://$host$request_uri;",
		"ssl_certificate /etc/letsencrypt/live/next.example.com/fullchain.pem;",
		"ssl_certificate_key /etc/letsencrypt/live/next.example.com/privkey.pem;",
		"Strict-Transport-Security",
		"proxy_set_header Upgrade $http_upgrade;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestRenderValidation(t *testing.T) {
	cases := []VhostConfig{
		{Domain: "x.com", Type: "nextjs"},                                // missing port
		{Domain: "x.com", Type: "php", DocumentRoot: "/var/www/x"},       // missing php version
		{Domain: "x.com", Type: "php", PHPVersion: "8.3"},                // missing root
		{Domain: "x.com", Type: "static"},                                // missing root
		{Domain: "x.com", Type: "wordpress", DocumentRoot: "/var/www/x"}, // unknown type
	}
	for _, c := range cases {
		if _, err := Render(c); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}

func TestDetectSite(t *testing.T) {
	proxyConf := `server {
    listen 80;
    server_name next.example.com;
    location / {
        proxy_pass http://127.0.0.1:3123;
    }
}`
	d := DetectSite(proxyConf)
	if d.Type != "nextjs" || d.Port != 3123 {
		t.Errorf("proxy detect = %+v", d)
	}

	phpConf := `server {
    root /var/www/shop/public;
    ssl_certificate /etc/letsencrypt/live/shop/fullchain.pem;
    location ~ \.php$ {
        fastcgi_pass unix:/run/php/php8.2-fpm.sock;
    }
}`
	d = DetectSite(phpConf)
	if d.Type != "php" || d.PHPVersion != "8.2" || !d.SSL {
		t.Errorf("php detect = %+v", d)
	}
	if d.DocumentRoot != "/var/www/shop/public" {
		t.Errorf("root = %q", d.DocumentRoot)
	}

	staticConf := "server {\n    root /srv/static;\n}"
	d = DetectSite(staticConf)
	if d.Type != "static" || d.DocumentRoot != "/srv/static" {
		t.Errorf("static detect = %+v", d)
	}
}

func TestRenderedConfigBalancedBraces(t *testing.T) {
	for _, typ := range TemplateTypes() {
		cfg := VhostConfig{Domain: "t.com", Type: typ, Port: 3000, DocumentRoot: "/var/www/t", PHPVersion: "8.3"}
		for _, ssl := range []bool{false, true} {
			cfg.SSL = ssl
			out, err := Render(cfg)
			if err != nil {
				t.Fatalf("Render(%s ssl=%v): %v", typ, ssl, err)
			}
			if strings.Count(out, "{") != strings.Count(out, "}") {
				t.Errorf("unbalanced braces for %s ssl=%v", typ, ssl)
			}
		}
	}
}
