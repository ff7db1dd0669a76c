// Package hardening applies CIS-style security baselines: sshd
// lockdown, UFW, fail2ban, kernel sysctls, automatic updates, and a
// non-root deploy user.
package hardening

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/forgecli/forge/internal/shell"
	"github.com/forgecli/forge/internal/term"
)

const sshdConfig = "/etc/ssh/sshd_config"

// sshdSettings are enforced in sshd_config, replacing both commented
// and uncommented forms.
var sshdSettings = []struct{ Key, Value string }{
	{"PermitRootLogin", "no"},
	{"PasswordAuthentication", "no"},
	{"PermitEmptyPasswords", "no"},
	{"MaxAuthTries", "3"},
	{"X11Forwarding", "no"},
	{"LoginGraceTime", "60"},
}

const jailLocal = `[DEFAULT]
bantime = 3600
findtime = 600
maxretry = 3
backend = systemd

[sshd]
enabled = true
port = ssh
filter = sshd
logpath = /var/log/auth.log
maxretry = 3
bantime = 86400

[nginx-http-auth]
enabled = true
filter = nginx-http-auth
port = http,https
logpath = /var/log/nginx/error.log

[nginx-limit-req]
enabled = true
filter = nginx-limit-req
port = http,https
logpath = /var/log/nginx/error.log
`

const sysctlHardening = `# IP Spoofing protection
net.ipv4.conf.all.rp_filter = 1
net.ipv4.conf.default.rp_filter = 1

# Ignore ICMP broadcast requests
net.ipv4.icmp_echo_ignore_broadcasts = 1

# Disable source packet routing
net.ipv4.conf.all.accept_source_route = 0
net.ipv6.conf.all.accept_source_route = 0
net.ipv4.conf.default.accept_source_route = 0
net.ipv6.conf.default.accept_source_route = 0

# Ignore send redirects
net.ipv4.conf.all.send_redirects = 0
net.ipv4.conf.default.send_redirects = 0

# Block SYN attacks
net.ipv4.tcp_syncookies = 1
net.ipv4.tcp_max_syn_backlog = 2048
net.ipv4.tcp_synack_retries = 2
net.ipv4.tcp_syn_retries = 5

# Log Martians
net.ipv4.conf.all.log_martians = 1
net.ipv4.icmp_ignore_bogus_error_responses = 1

# Ignore ICMP redirects
net.ipv4.conf.all.accept_redirects = 0
net.ipv6.conf.all.accept_redirects = 0
net.ipv4.conf.default.accept_redirects = 0
net.ipv6.conf.default.accept_redirects = 0

# Restrict core dumps
fs.suid_dumpable = 0

# Randomize virtual address space
kernel.randomize_va_space = 2
`

// unusedServices widen the attack surface on a web server.
var unusedServices = []string{"cups", "avahi-daemon", "bluetooth", "ModemManager"}

// Hardener applies the individual hardening measures.
type Hardener struct {
	runner shell.Runner
}

func New() *Hardener {
	return &Hardener{runner: shell.Runner{Sudo: true}}
}

// HardenSSH enforces key-only, non-root SSH access.
func (h *Hardener) HardenSSH(ctx context.Context) error {
	for _, s := range sshdSettings {
		// handle both "#Key val" and "Key val" lines
		exprs := []string{
			fmt.Sprintf("s/^#%s.*/%s %s/", s.Key, s.Key, s.Value),
			fmt.Sprintf("s/^%s.*/%s %s/", s.Key, s.Key, s.Value),
		}
		for _, expr := range exprs {
			if res := h.runner.Run(ctx, "sed", "-i", expr, sshdConfig); !res.Ok() {
				return fmt.Errorf("sshd_config %s: %s", s.Key, res.Stderr)
			}
		}
	}
	if res := h.runner.Run(ctx, "systemctl", "restart", "sshd"); !res.Ok() {
		return fmt.Errorf("restart sshd: %s", res.Stderr)
	}
	return nil
}

// SetupFirewall resets UFW to deny-incoming with SSH/HTTP/HTTPS open.
func (h *Hardener) SetupFirewall(ctx context.Context) error {
	if !shell.CommandExists("ufw") {
		if res := h.runner.Run(ctx, "apt-get", "install", "-y", "ufw"); !res.Ok() {
			return fmt.Errorf("install ufw: %s", res.Stderr)
		}
	}
	cmds := [][]string{
		{"ufw", "--force", "reset"},
		{"ufw", "default", "deny", "incoming"},
		{"ufw", "default", "allow", "outgoing"},
		{"ufw", "allow", "OpenSSH"},
		{"ufw", "allow", "22/tcp"},
		{"ufw", "allow", "80/tcp"},
		{"ufw", "allow", "443/tcp"},
		{"ufw", "--force", "enable"},
	}
	for _, cmd := range cmds {
		if res := h.runner.Run(ctx, cmd[0], cmd[1:]...); !res.Ok() {
			return fmt.Errorf("%s: %s", strings.Join(cmd, " "), res.Stderr)
		}
	}
	return nil
}

// SetupFail2ban installs fail2ban with jails for sshd and nginx.
func (h *Hardener) SetupFail2ban(ctx context.Context) error {
	if res := h.runner.Run(ctx, "apt-get", "install", "-y", "fail2ban"); !res.Ok() {
		return fmt.Errorf("install fail2ban: %s", res.Stderr)
	}
	if err := h.writeFile(ctx, "/etc/fail2ban/jail.local", jailLocal); err != nil {
		return err
	}
	h.runner.Run(ctx, "systemctl", "enable", "fail2ban")
	if res := h.runner.Run(ctx, "systemctl", "restart", "fail2ban"); !res.Ok() {
		return fmt.Errorf("restart fail2ban: %s", res.Stderr)
	}
	return nil
}

// DisableUnusedServices stops and disables desktop-class daemons.
func (h *Hardener) DisableUnusedServices(ctx context.Context) error {
	for _, unit := range unusedServices {
		h.runner.Run(ctx, "systemctl", "stop", unit)
		h.runner.Run(ctx, "systemctl", "disable", unit)
	}
	return nil
}

// SetupAutomaticUpdates enables unattended security upgrades.
func (h *Hardener) SetupAutomaticUpdates(ctx context.Context) error {
	if res := h.runner.Run(ctx, "apt-get", "install", "-y", "unattended-upgrades", "apt-listchanges"); !res.Ok() {
		return fmt.Errorf("install unattended-upgrades: %s", res.Stderr)
	}
	h.runner.RunShell(ctx, "echo unattended-upgrades unattended-upgrades/enable_auto_updates boolean true | debconf-set-selections")
	h.runner.Run(ctx, "dpkg-reconfigure", "-f", "noninteractive", "unattended-upgrades")
	return nil
}

// SecureSharedMemory remounts /run/shm noexec,nosuid via fstab.
func (h *Hardener) SecureSharedMemory(ctx context.Context) error {
	const entry = "tmpfs /run/shm tmpfs defaults,noexec,nosuid 0 0"
	data, err := os.ReadFile("/etc/fstab")
	if err == nil && strings.Contains(string(data), "/run/shm") {
		return nil
	}
	res := h.runner.RunShell(ctx, fmt.Sprintf("echo %q >> /etc/fstab", entry))
	if !res.Ok() {
		return fmt.Errorf("fstab: %s", res.Stderr)
	}
	return nil
}

// ApplySysctl writes the kernel hardening drop-in and reloads.
func (h *Hardener) ApplySysctl(ctx context.Context) error {
	if err := h.writeFile(ctx, "/etc/sysctl.d/99-forge-hardening.conf", sysctlHardening); err != nil {
		return err
	}
	if res := h.runner.Run(ctx, "sysctl", "--system"); !res.Ok() {
		return fmt.Errorf("sysctl --system: %s", res.Stderr)
	}
	return nil
}

// SetupLogwatch installs log summarizing.
func (h *Hardener) SetupLogwatch(ctx context.Context) error {
	if res := h.runner.Run(ctx, "apt-get", "install", "-y", "logwatch"); !res.Ok() {
		return fmt.Errorf("install logwatch: %s", res.Stderr)
	}
	return nil
}

// CreateDeployUser adds a sudo-capable non-root user with an SSH
// directory ready for keys.
func (h *Hardener) CreateDeployUser(ctx context.Context, username string) error {
	if username == "" {
		username = "forge"
	}
	if res := h.runner.Run(ctx, "useradd", "-m", "-s", "/bin/bash", username); !res.Ok() {
		if !strings.Contains(res.Stderr, "already exists") {
			return fmt.Errorf("useradd: %s", res.Stderr)
		}
	}
	h.runner.Run(ctx, "usermod", "-aG", "sudo", username)
	h.runner.Run(ctx, "usermod", "-aG", "www-data", username)
	sudoers := fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", username)
	if err := h.writeFile(ctx, "/etc/sudoers.d/"+username, sudoers); err != nil {
		return err
	}
	h.runner.Run(ctx, "chmod", "440", "/etc/sudoers.d/"+username)
	home := "/home/" + username
	h.runner.Run(ctx, "mkdir", "-p", home+"/.ssh")
	h.runner.Run(ctx, "chmod", "700", home+"/.ssh")
	h.runner.Run(ctx, "touch", home+"/.ssh/authorized_keys")
	h.runner.Run(ctx, "chmod", "600", home+"/.ssh/authorized_keys")
	h.runner.Run(ctx, "chown", "-R", username+":"+username, home+"/.ssh")
	return nil
}

func (h *Hardener) writeFile(ctx context.Context, path, content string) error {
	tmp, err := os.CreateTemp("", "forge-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()
	if res := h.runner.Run(ctx, "cp", tmp.Name(), path); !res.Ok() {
		return fmt.Errorf("write %s: %s", path, res.Stderr)
	}
	h.runner.Run(ctx, "chmod", "644", path)
	return nil
}

// Steps returns the full hardening run in order. The SSH step comes
// after the deploy user so key-only auth never locks anyone out.
func (h *Hardener) Steps(ctx context.Context, deployUser string) []term.Step {
	wrap := func(fn func(context.Context) error) func() (string, error) {
		return func() (string, error) { return "", fn(ctx) }
	}
	return []term.Step{
		{Name: "Create deploy user", Run: func() (string, error) {
			return "", h.CreateDeployUser(ctx, deployUser)
		}},
		{Name: "Harden SSH", Run: wrap(h.HardenSSH)},
		{Name: "Configure UFW firewall", Run: wrap(h.SetupFirewall)},
		{Name: "Install Fail2Ban", Run: wrap(h.SetupFail2ban)},
		{Name: "Disable unused services", Run: wrap(h.DisableUnusedServices)},
		{Name: "Enable automatic security updates", Run: wrap(h.SetupAutomaticUpdates)},
		{Name: "Secure shared memory", Run: wrap(h.SecureSharedMemory)},
		{Name: "Apply kernel hardening", Run: wrap(h.ApplySysctl)},
		{Name: "Install Logwatch", Run: wrap(h.SetupLogwatch)},
	}
}
