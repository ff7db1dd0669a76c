package auditor

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// InsertDirectives adds directives after the first server_name line.
// Directives already present in the config are skipped.
func InsertDirectives(content string, directives []string) (string, bool) {
	lines := strings.Split(content, "\n")
	insertAt := -1
	for i, line := range lines {
		if strings.Contains(line, "server_name") {
			insertAt = i + 1
			break
		}
	}
	if insertAt == -1 {
		return content, false
	}
	var add []string
	for _, d := range directives {
		if d == "" || strings.Contains(content, strings.TrimSpace(strings.Split(d, "\n")[0])) {
			continue
		}
		for _, dl := range strings.Split(d, "\n") {
			add = append(add, "    "+strings.TrimSpace(dl))
		}
	}
	if len(add) == 0 {
		return content, false
	}
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:insertAt]...)
	out = append(out, add...)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n"), true
}

// FixResult reports what happened for one issue.
type FixResult struct {
	Issue Issue
	Err   error
}

// Fix applies every fixable issue, grouped so nginx is only tested and
// reloaded once.
func (a *Auditor) Fix(ctx context.Context, issues []Issue) []FixResult {
	var results []FixResult
	byVhost := make(map[string][]Issue)
	for _, issue := range issues {
		if !issue.Fixable {
			continue
		}
		switch issue.Type {
		case "nginx_header", "nginx_optimization":
			byVhost[issue.configPath] = append(byVhost[issue.configPath], issue)
		case "php_setting":
			results = append(results, FixResult{issue, a.fixPHPSetting(ctx, issue)})
		case "service_not_running":
			results = append(results, FixResult{issue, a.systemctl(ctx, "start", issue.Target)})
		case "service_not_enabled":
			results = append(results, FixResult{issue, a.systemctl(ctx, "enable", issue.Target)})
		case "security_firewall", "security_firewall_missing":
			results = append(results, FixResult{issue, a.enableFirewall(ctx, issue.Type == "security_firewall_missing")})
		case "security_fail2ban_missing":
			results = append(results, FixResult{issue, a.installFail2ban(ctx)})
		case "security_fail2ban":
			results = append(results, FixResult{issue, a.systemctl(ctx, "start", "fail2ban")})
		case "security_ssh_root":
			results = append(results, FixResult{issue, a.disableRootLogin(ctx)})
		}
	}

	touched := false
	for path, vhostIssues := range byVhost {
		err := a.patchVhost(ctx, path, vhostIssues)
		if err == nil {
			touched = true
		}
		for _, issue := range vhostIssues {
			results = append(results, FixResult{issue, err})
		}
	}
	if touched {
		if res := a.runner.Run(ctx, "nginx", "-t"); !res.Ok() {
			results = append(results, FixResult{
				Issue: Issue{Category: "Nginx", Description: "config test after fixes"},
				Err:   fmt.Errorf("nginx -t failed: %s", res.Stderr),
			})
		} else {
			a.runner.Run(ctx, "systemctl", "reload", "nginx")
		}
	}
	return results
}

func (a *Auditor) patchVhost(ctx context.Context, path string, issues []Issue) error {
	content, err := os.ReadFile(path)
	if err != nil {
		out := a.runner.Output(ctx, "cat", path)
		if out == "" {
			return fmt.Errorf("cannot read %s", path)
		}
		content = []byte(out)
	}
	var directives []string
	for _, issue := range issues {
		directives = append(directives, issue.directive)
	}
	patched, changed := InsertDirectives(string(content), directives)
	if !changed {
		return nil
	}
	tmp, err := os.CreateTemp("", "vhost-*.conf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(patched); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()
	if res := a.runner.Run(ctx, "cp", tmp.Name(), path); !res.Ok() {
		return fmt.Errorf("write %s: %s", path, res.Stderr)
	}
	a.runner.Run(ctx, "chmod", "644", path)
	return nil
}

func (a *Auditor) fixPHPSetting(ctx context.Context, issue Issue) error {
	ini := fmt.Sprintf("/etc/php/%s/fpm/php.ini", issue.Target)
	expr := fmt.Sprintf("s|^;\\?%s = .*|%s = %s|", issue.setting, issue.setting, issue.value)
	if res := a.runner.Run(ctx, "sed", "-i", expr, ini); !res.Ok() {
		return fmt.Errorf("sed %s: %s", issue.setting, res.Stderr)
	}
	a.runner.Run(ctx, "systemctl", "restart", "php"+issue.Target+"-fpm")
	return nil
}

func (a *Auditor) systemctl(ctx context.Context, verb, unit string) error {
	if res := a.runner.Run(ctx, "systemctl", verb, unit); !res.Ok() {
		return fmt.Errorf("systemctl %s %s: %s", verb, unit, res.Stderr)
	}
	return nil
}

func (a *Auditor) enableFirewall(ctx context.Context, install bool) error {
	if install {
		if res := a.runner.Run(ctx, "apt-get", "install", "-y", "ufw"); !res.Ok() {
			return fmt.Errorf("install ufw: %s", res.Stderr)
		}
	}
	// allow ssh before enabling to avoid locking ourselves out
	a.runner.Run(ctx, "ufw", "allow", "ssh")
	a.runner.Run(ctx, "ufw", "allow", "http")
	a.runner.Run(ctx, "ufw", "allow", "https")
	if res := a.runner.Run(ctx, "ufw", "--force", "enable"); !res.Ok() {
		return fmt.Errorf("ufw enable: %s", res.Stderr)
	}
	return nil
}

func (a *Auditor) installFail2ban(ctx context.Context) error {
	if res := a.runner.Run(ctx, "apt-get", "install", "-y", "fail2ban"); !res.Ok() {
		return fmt.Errorf("install fail2ban: %s", res.Stderr)
	}
	a.runner.Run(ctx, "systemctl", "enable", "fail2ban")
	return a.systemctl(ctx, "start", "fail2ban")
}

func (a *Auditor) disableRootLogin(ctx context.Context) error {
	res := a.runner.Run(ctx, "sed", "-i",
		"s/^PermitRootLogin yes/PermitRootLogin prohibit-password/",
		"/etc/ssh/sshd_config")
	if !res.Ok() {
		return fmt.Errorf("sshd_config: %s", res.Stderr)
	}
	a.runner.Run(ctx, "systemctl", "reload", "sshd")
	return nil
}
