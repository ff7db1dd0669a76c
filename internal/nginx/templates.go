package nginx

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// VhostConfig holds everything a vhost template needs.
type VhostConfig struct {
	Domain       string
	IncludeWWW   bool
	Type         string // nextjs, nuxt, php, static
	Port         int    // proxied apps
	DocumentRoot string // php and static
	PHPVersion   string
	MaxBodySize  string // e.g. "64m"
	SSL          bool
	CertPath     string
	KeyPath      string
	AccessLog    string
	ErrorLog     string
}

// ServerNames renders the server_name directive value.
func (v VhostConfig) ServerNames() string {
	if v.IncludeWWW {
		return v.Domain + " www." + v.Domain
	}
	return v.Domain
}

const securityHeaders = `    # Security headers
    add_header X-Frame-Options "SAMEORIGIN" always;
    add_header X-Content-Type-Options "nosniff" always;
    add_header X-XSS-Protection "1; mode=block" always;
    add_header Referrer-Policy "strict-origin-when-cross-origin" always;
`

const gzipConfig = `    # Compression
    gzip on;
    gzip_vary on;
    gzip_comp_level 5;
    gzip_min_length 256;
    gzip_types text/plain text/css text/xml application/json application/javascript application/xml+rss image/svg+xml;
`

const sslConfig = `    ssl_protocols TLSv1.2 TLSv1.3;
    ssl_prefer_server_ciphers on;
    ssl_ciphers ECDHE-ECDSA-AES128-GCM-SHA256:ECDHE-RSA-AES128-GCM-SHA256:ECDHE-ECDSA-AES256-GCM-SHA384:ECDHE-RSA-AES256-GCM-SHA384;
    ssl_session_timeout 1d;
    ssl_session_cache shared:SSL:10m;
    add_header Strict-Transport-Security "max-age=63072000" always;
`

const acmeLocation = `    location ^~ /.well-known/acme-challenge/ {
        root /var/www/_letsencrypt;
        default_type "text/plain";
        allow all;
    }
`

const vhostTemplate = `# Managed by forge - {{.Domain}} ({{.Type}})
{{- if .SSL}}
server {
    listen 80;
    listen [::]:80;
    server_name {{.ServerNames}};

{{acme}}
    location / {
        return 301 https://$host$request_uri;
    }
}
{{- end}}

server {
{{- if .SSL}}
    listen 443 ssl;
    listen [::]:443 ssl;
    http2 on;
{{- else}}
    listen 80;
    listen [::]:80;
{{- end}}
    server_name {{.ServerNames}};

{{- if .SSL}}

    ssl_certificate {{.CertPath}};
    ssl_certificate_key {{.KeyPath}};
{{ssl}}
{{- end}}

    access_log {{.AccessLog}};
    error_log {{.ErrorLog}};

    client_max_body_size {{.MaxBodySize}};

{{headers}}
{{gzip}}
{{- if proxied .Type}}
    location / {
        proxy_pass http://127.0.0.1:{{.Port}};
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection "upgrade";
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_cache_bypass $http_upgrade;
        proxy_read_timeout 60s;
    }

    location /_next/static/ {
        proxy_pass http://127.0.0.1:{{.Port}};
        proxy_cache_valid 60m;
        add_header Cache-Control "public, max-age=3600, immutable";
    }
{{- else if isphp .Type}}
    root {{.DocumentRoot}};
    index index.php index.html;

    location / {
        try_files $uri $uri/ /index.php?$query_string;
    }

    location ~ \.php$ {
        include snippets/fastcgi-php.conf;
        fastcgi_pass unix:/run/php/php{{.PHPVersion}}-fpm.sock;
        fastcgi_hide_header X-Powered-By;
    }

    location ~ /\.(?!well-known) {
        deny all;
    }
{{- else}}
    root {{.DocumentRoot}};
    index index.html index.htm;

    location / {
        try_files $uri $uri/ =404;
    }

    location ~* \.(css|js|jpg|jpeg|png|gif|ico|svg|woff2?)$ {
        expires 30d;
        add_header Cache-Control "public, immutable";
    }

    location ~ /\.(?!well-known) {
        deny all;
    }
{{- end}}

{{- if not .SSL}}

{{acme}}
{{- end}}
}
`

var vhostTmpl = template.Must(template.New("vhost").Funcs(template.FuncMap{
	"headers": func() string { return strings.TrimRight(securityHeaders, "\n") },
	"gzip":    func() string { return strings.TrimRight(gzipConfig, "\n") },
	"ssl":     func() string { return strings.TrimRight(sslConfig, "\n") },
	"acme":    func() string { return strings.TrimRight(acmeLocation, "\n") },
	"proxied": func(t string) bool { return t == "nextjs" || t == "nuxt" },
	"isphp":   func(t string) bool { return t == "php" },
}).Parse(vhostTemplate))

// TemplateTypes lists the supported site types.
func TemplateTypes() []string {
	return []string{"nextjs", "nuxt", "php", "static"}
}

// Render produces the vhost file contents for a site. Defaults are
// filled for log paths and body size when unset.
func Render(cfg VhostConfig) (string, error) {
	switch cfg.Type {
	case "nextjs", "nuxt":
		if cfg.Port == 0 {
			return "", fmt.Errorf("port required for %s sites", cfg.Type)
		}
	case "php":
		if cfg.DocumentRoot == "" {
			return "", fmt.Errorf("document root required for php sites")
		}
		if cfg.PHPVersion == "" {
			return "", fmt.Errorf("php version required for php sites")
		}
	case "static":
		if cfg.DocumentRoot == "" {
			return "", fmt.Errorf("document root required for static sites")
		}
	default:
		return "", fmt.Errorf("unknown site type: %q", cfg.Type)
	}
	if cfg.MaxBodySize == "" {
		cfg.MaxBodySize = "64m"
	}
	if cfg.AccessLog == "" {
		cfg.AccessLog = fmt.Sprintf("/var/log/nginx/%s.access.log", cfg.Domain)
	}
	if cfg.ErrorLog == "" {
		cfg.ErrorLog = fmt.Sprintf("/var/log/nginx/%s.error.log", cfg.Domain)
	}
	if cfg.SSL {
		if cfg.CertPath == "" {
			cfg.CertPath = fmt.Sprintf("/etc/letsencrypt/live/%s/fullchain.pem", cfg.Domain)
		}
		if cfg.KeyPath == "" {
			cfg.KeyPath = fmt.Sprintf("/etc/letsencrypt/live/%s/privkey.pem", cfg.Domain)
		}
	}

	var buf bytes.Buffer
	if err := vhostTmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render vhost template: %w", err)
	}
	return buf.String(), nil
}
