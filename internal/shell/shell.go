// Package shell runs external commands and reports their exit code,
// stdout and stderr. Everything forge does to the host goes through here.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Result holds the outcome of a finished command.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool { return r.Code == 0 }

// Runner executes commands, optionally prefixing sudo. The zero value
// runs commands as the current user.
type Runner struct {
	Sudo bool
}

// Run executes a command and captures its output. A missing binary is
// reported as exit code 127 rather than an error, so callers can treat
// "not installed" as a normal outcome.
func (r Runner) Run(ctx context.Context, name string, args ...string) Result {
	name, args = r.wrap(name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimRight(stdout.String(), "\n"),
		Stderr: strings.TrimRight(stderr.String(), "\n"),
	}
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrNotFound):
		res.Code = 127
		res.Stderr = fmt.Sprintf("Command not found: %s", name)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
		} else {
			res.Code = 1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	if res.Code != 0 {
		slog.Debug("command failed", "cmd", name, "args", args, "code", res.Code)
	}
	return res
}

// RunShell executes a shell pipeline via sh -c.
func (r Runner) RunShell(ctx context.Context, script string) Result {
	if r.Sudo && os.Geteuid() != 0 {
		return Runner{}.Run(ctx, "sudo", "sh", "-c", script)
	}
	return Runner{}.Run(ctx, "sh", "-c", script)
}

// Output returns stdout if the command succeeded, or "" otherwise.
func (r Runner) Output(ctx context.Context, name string, args ...string) string {
	res := r.Run(ctx, name, args...)
	if !res.Ok() {
		return ""
	}
	return res.Stdout
}

// Stream runs a command and forwards each output line to fn as it is
// produced. Used for apt installs, tail -f and journalctl -f; the
// command is killed when ctx is cancelled.
func (r Runner) Stream(ctx context.Context, fn func(line string), name string, args ...string) error {
	name, args = r.wrap(name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("command not found: %s", name)
		}
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		pw.Close()
	}()
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	err := <-done
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r Runner) wrap(name string, args []string) (string, []string) {
	if r.Sudo && os.Geteuid() != 0 {
		return "sudo", append([]string{name}, args...)
	}
	return name, args
}

// CommandExists reports whether name resolves on PATH.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
