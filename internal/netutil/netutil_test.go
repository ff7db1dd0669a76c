package netutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const ipAddrOutput = `1: lo    inet 127.0.0.1/8 scope host lo\       valid_lft forever preferred_lft forever
2: eth0    inet 203.0.113.10/24 brd 203.0.113.255 scope global eth0\       valid_lft forever preferred_lft forever
2: eth0    inet6 fe80::1/64 scope link \       valid_lft forever preferred_lft forever
2: eth0    inet6 2001:db8::10/64 scope global \       valid_lft forever preferred_lft forever`

func TestParseLocalIPs(t *testing.T) {
	ips := ParseLocalIPs(ipAddrOutput)
	if len(ips) != 2 {
		t.Fatalf("ips = %v, want 2 entries", ips)
	}
	if ips[0] != "203.0.113.10" || ips[1] != "2001:db8::10" {
		t.Errorf("ips = %v", ips)
	}
}

const ssOutput = `State      Recv-Q Send-Q Local Address:Port  Peer Address:Port Process
LISTEN     0      511          0.0.0.0:80         0.0.0.0:*     users:(("nginx",pid=815,fd=6))
LISTEN     0      128          0.0.0.0:22         0.0.0.0:*     users:(("sshd",pid=612,fd=3))
LISTEN     0      511        127.0.0.1:3000       0.0.0.0:*     users:(("node",pid=1200,fd=18))`

func TestParseListeningPorts(t *testing.T) {
	ports := ParseListeningPorts(ssOutput)
	if len(ports) != 3 {
		t.Fatalf("ports = %v, want 3 entries", ports)
	}
	if ports[0].Port != 80 || ports[0].Process != "nginx" {
		t.Errorf("first = %+v", ports[0])
	}
	if ports[2].Address != "127.0.0.1" || ports[2].Port != 3000 || ports[2].Process != "node" {
		t.Errorf("third = %+v", ports[2])
	}
}

func TestParseListeningPortsEmpty(t *testing.T) {
	if ports := ParseListeningPorts(""); len(ports) != 0 {
		t.Fatalf("ports = %v, want none", ports)
	}
}

func TestHTTPCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.UserAgent(), "Forge/") {
			t.Errorf("user agent = %q", r.UserAgent())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := HTTPCheck(context.Background(), srv.URL, 2*time.Second)
	if res.Err != nil {
		t.Fatalf("err = %v", res.Err)
	}
	if res.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestHTTPCheckUnreachable(t *testing.T) {
	res := HTTPCheck(context.Background(), "http://127.0.0.1:1", 500*time.Millisecond)
	if res.Err == nil {
		t.Fatal("expected error for closed port")
	}
}

func TestPortOpen(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")
	host, portStr, _ := strings.Cut(addr, ":")
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	if !PortOpen(host, port, time.Second) {
		t.Error("expected test server port to be open")
	}
	if PortOpen("127.0.0.1", 1, 200*time.Millisecond) {
		t.Error("port 1 should be closed")
	}
}
