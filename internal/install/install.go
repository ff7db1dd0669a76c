// Package install holds the apt/curl recipes for server packages and
// runs them with streamed output.
package install

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgecli/forge/internal/shell"
	"github.com/forgecli/forge/internal/term"
)

const nvmVersion = "v0.39.7"

// DefaultPHPExtensions are installed alongside every PHP version.
var DefaultPHPExtensions = []string{
	"cli", "fpm", "mysql", "pgsql", "sqlite3", "redis", "mbstring",
	"xml", "curl", "zip", "bcmath", "gd", "intl", "readline", "opcache",
}

// Recipe describes how to install one package.
type Recipe struct {
	Key      string
	Name     string
	CheckCmd string     // binary whose presence means installed
	Steps    [][]string // commands run in order, via sudo
}

// Recipes lists everything the installer menu offers, in menu order.
func Recipes() []Recipe {
	return []Recipe{
		{
			Key: "nginx", Name: "Nginx", CheckCmd: "nginx",
			Steps: [][]string{
				{"apt-get", "update"},
				{"apt-get", "install", "-y", "nginx"},
				{"systemctl", "enable", "--now", "nginx"},
			},
		},
		{
			Key: "node", Name: "Node.js (via NVM)", CheckCmd: "node",
			Steps: [][]string{
				{"sh", "-c", fmt.Sprintf("curl -fsSL https://raw.githubusercontent.com/nvm-sh/nvm/%s/install.sh | bash", nvmVersion)},
				{"sh", "-c", `export NVM_DIR="$HOME/.nvm" && . "$NVM_DIR/nvm.sh" && nvm install --lts`},
			},
		},
		{
			Key: "pm2", Name: "PM2 Process Manager", CheckCmd: "pm2",
			Steps: [][]string{
				{"sh", "-c", `export NVM_DIR="$HOME/.nvm" && . "$NVM_DIR/nvm.sh" 2>/dev/null; npm install -g pm2`},
			},
		},
		{
			Key: "redis", Name: "Redis", CheckCmd: "redis-cli",
			Steps: [][]string{
				{"apt-get", "install", "-y", "redis-server"},
				{"systemctl", "enable", "--now", "redis-server"},
			},
		},
		{
			Key: "memcached", Name: "Memcached", CheckCmd: "memcached",
			Steps: [][]string{
				{"apt-get", "install", "-y", "memcached"},
				{"systemctl", "enable", "--now", "memcached"},
			},
		},
		{
			Key: "certbot", Name: "Certbot (Let's Encrypt)", CheckCmd: "certbot",
			Steps: [][]string{
				{"apt-get", "install", "-y", "certbot", "python3-certbot-nginx"},
			},
		},
		{
			Key: "composer", Name: "Composer", CheckCmd: "composer",
			Steps: [][]string{
				{"sh", "-c", "curl -sS https://getcomposer.org/installer | php -- --install-dir=/usr/local/bin --filename=composer"},
			},
		},
		{
			Key: "mysql", Name: "MySQL Server", CheckCmd: "mysql",
			Steps: [][]string{
				{"apt-get", "install", "-y", "mysql-server"},
				{"systemctl", "enable", "--now", "mysql"},
			},
		},
		{
			Key: "mariadb", Name: "MariaDB Server", CheckCmd: "mariadb",
			Steps: [][]string{
				{"apt-get", "install", "-y", "mariadb-server"},
				{"systemctl", "enable", "--now", "mariadb"},
			},
		},
		{
			Key: "postgresql", Name: "PostgreSQL", CheckCmd: "psql",
			Steps: [][]string{
				{"apt-get", "install", "-y", "postgresql", "postgresql-contrib"},
				{"systemctl", "enable", "--now", "postgresql"},
			},
		},
		{
			Key: "supervisor", Name: "Supervisor", CheckCmd: "supervisorctl",
			Steps: [][]string{
				{"apt-get", "install", "-y", "supervisor"},
				{"systemctl", "enable", "--now", "supervisor"},
			},
		},
		{
			Key: "docker", Name: "Docker Engine", CheckCmd: "docker",
			Steps: [][]string{
				{"apt-get", "install", "-y", "ca-certificates", "curl"},
				{"install", "-m", "0755", "-d", "/etc/apt/keyrings"},
				{"sh", "-c", "curl -fsSL https://download.docker.com/linux/ubuntu/gpg -o /etc/apt/keyrings/docker.asc"},
				{"chmod", "a+r", "/etc/apt/keyrings/docker.asc"},
				{"sh", "-c", `echo "deb [arch=$(dpkg --print-architecture) signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/ubuntu $(. /etc/os-release && echo $VERSION_CODENAME) stable" > /etc/apt/sources.list.d/docker.list`},
				{"apt-get", "update"},
				{"apt-get", "install", "-y", "docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"},
				{"sh", "-c", "usermod -aG docker ${SUDO_USER:-$USER} || true"},
			},
		},
		{
			Key: "fdupes", Name: "fdupes (duplicate finder)", CheckCmd: "fdupes",
			Steps: [][]string{
				{"apt-get", "install", "-y", "fdupes"},
			},
		},
		{
			Key: "clamav", Name: "ClamAV Antivirus", CheckCmd: "clamscan",
			Steps: [][]string{
				{"apt-get", "install", "-y", "clamav", "clamav-daemon"},
			},
		},
	}
}

// Installed reports whether a recipe's binary is already present.
func (r Recipe) Installed() bool {
	return r.CheckCmd != "" && shell.CommandExists(r.CheckCmd)
}

// Installer runs recipes with streamed output.
type Installer struct {
	runner shell.Runner
}

func NewInstaller() *Installer {
	return &Installer{runner: shell.Runner{Sudo: true}}
}

// Run executes a recipe's steps in order, stopping at the first
// failure.
func (ins *Installer) Run(ctx context.Context, r Recipe) error {
	var steps []term.Step
	for _, cmd := range r.Steps {
		cmd := cmd
		steps = append(steps, term.Step{
			Name: strings.Join(cmd, " "),
			Run: func() (string, error) {
				res := ins.runner.Run(ctx, cmd[0], cmd[1:]...)
				if !res.Ok() {
					return "", fmt.Errorf("%s", firstNonEmpty(res.Stderr, res.Stdout))
				}
				return "", nil
			},
		})
	}
	return term.RunSteps(steps)
}

// PHPRecipe builds the install recipe for one PHP version with the
// default extension set, adding the ondrej PPA when needed.
func PHPRecipe(version string) Recipe {
	pkgs := make([]string, 0, len(DefaultPHPExtensions))
	for _, ext := range DefaultPHPExtensions {
		pkgs = append(pkgs, fmt.Sprintf("php%s-%s", version, ext))
	}
	return Recipe{
		Key:      "php" + version,
		Name:     "PHP " + version,
		CheckCmd: "php" + version,
		Steps: [][]string{
			{"apt-get", "install", "-y", "software-properties-common"},
			{"sh", "-c", "grep -rq ondrej/php /etc/apt/sources.list.d/ 2>/dev/null || add-apt-repository -y ppa:ondrej/php"},
			{"apt-get", "update"},
			append([]string{"apt-get", "install", "-y", "php" + version}, pkgs...),
			{"systemctl", "enable", "--now", fmt.Sprintf("php%s-fpm", version)},
		},
	}
}

// PHPPackageInstalled checks dpkg for an installed php version.
func PHPPackageInstalled(ctx context.Context, version string) bool {
	res := shell.Runner{}.Run(ctx, "sh", "-c",
		fmt.Sprintf("dpkg -l php%s 2>/dev/null | grep -q '^ii'", version))
	return res.Ok()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
