package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/forgecli/forge/internal/updater"
)

func TestCommandTree(t *testing.T) {
	root := New()
	if root.Use != "forge" {
		t.Fatalf("root use = %q", root.Use)
	}

	want := map[string]bool{"status": false, "collect": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %s subcommand", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := New()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("forge version: %v", err)
	}
	if got := out.String(); !strings.Contains(got, updater.Version) {
		t.Errorf("output %q does not contain version %q", got, updater.Version)
	}
}

func TestCollectFlags(t *testing.T) {
	cmd := newCollectCmd()
	for _, flag := range []string{"watch", "interval", "verbose"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("collect is missing --%s", flag)
		}
	}
}
