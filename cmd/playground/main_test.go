// Package main provides tests for the playground CLI.
package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaped-ai/playground/internal/cli"
	"github.com/shaped-ai/playground/internal/cli/config"
)

func newRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("PLAYGROUND_STATE_PATH", filepath.Join(t.TempDir(), "state.db"))

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := newRoot(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(output, "playground v") {
		t.Errorf("version output should contain 'playground v', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := newRoot(t, "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}

	expectedCommands := []string{"tabs", "share", "open", "export", "import", "watch", "shell", "partitions", "ui"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := newRoot(t, "nonexistent"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestTabsListThroughRoot(t *testing.T) {
	output, err := newRoot(t, "tabs", "list", "-o", "markdown")
	if err != nil {
		t.Fatalf("tabs list error = %v", err)
	}
	if !strings.Contains(output, "## Tabs (1)") {
		t.Errorf("expected a fresh workspace with one tab, got: %s", output)
	}
}
