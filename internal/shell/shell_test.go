package shell

import (
	"context"
	"strings"
	"testing"
)

func TestRunCapturesOutput(t *testing.T) {
	var r Runner
	res := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	if !res.Ok() {
		t.Fatalf("expected success, got code %d", res.Code)
	}
	if res.Stdout != "out" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "out")
	}
	if res.Stderr != "err" {
		t.Errorf("stderr = %q, want %q", res.Stderr, "err")
	}
}

func TestRunExitCode(t *testing.T) {
	var r Runner
	res := r.Run(context.Background(), "sh", "-c", "exit 3")
	if res.Code != 3 {
		t.Fatalf("code = %d, want 3", res.Code)
	}
}

func TestRunMissingCommand(t *testing.T) {
	var r Runner
	res := r.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if res.Code != 127 {
		t.Fatalf("code = %d, want 127", res.Code)
	}
	if !strings.Contains(res.Stderr, "Command not found") {
		t.Errorf("stderr = %q, want not-found message", res.Stderr)
	}
}

func TestOutputOnFailure(t *testing.T) {
	var r Runner
	if out := r.Output(context.Background(), "sh", "-c", "echo x; exit 1"); out != "" {
		t.Fatalf("Output = %q, want empty on failure", out)
	}
}

func TestStream(t *testing.T) {
	var r Runner
	var lines []string
	err := r.Stream(context.Background(), func(l string) { lines = append(lines, l) },
		"sh", "-c", "echo a; echo b")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestCommandExists(t *testing.T) {
	if !CommandExists("sh") {
		t.Error("sh should exist")
	}
	if CommandExists("definitely-not-a-real-binary-xyz") {
		t.Error("bogus binary should not exist")
	}
}
