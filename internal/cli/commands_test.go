package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

const rigScene = `
selection = ["spine", "hips"]

[[nodes]]
name = "hips"
translate = [0, 1, 0]

[[nodes]]
name = "spine"
parent = "hips"
translate = [0, 0.5, 0]

[[nodes]]
name = "prop"
translate = [2, 0, 0]
`

const hipsScript = `
steps:
  - select: [hips]
  - move: [1, 0, 0]
  - deselect: true
`

// execute runs the root command with isolated cache and config directories
// and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	var errOut syncBuffer

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return dir
}

func TestRunCommand(t *testing.T) {
	dir := isolate(t)
	scenePath := filepath.Join(dir, "rig.toml")
	scriptPath := filepath.Join(dir, "edit.yaml")
	resultPath := filepath.Join(dir, "result.json")
	if err := os.WriteFile(scenePath, []byte(rigScene), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(scriptPath, []byte(hipsScript), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", scenePath, "--script", scriptPath, "-o", resultPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Replayed", "|hips|spine", "3 steps", resultPath} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(resultPath); err != nil {
		t.Errorf("result file not written: %v", err)
	}

	out, err = execute(t, "cache", "show", scenePath)
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	if !strings.Contains(out, "1 cached offsets") || !strings.Contains(out, "hips") {
		t.Errorf("cache show output:\n%s", out)
	}

	out, err = execute(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 cached entries") {
		t.Errorf("cache clear output:\n%s", out)
	}

	out, err = execute(t, "cache", "show", scenePath)
	if err != nil {
		t.Fatalf("cache show after clear: %v", err)
	}
	if !strings.Contains(out, "No offsets cached") {
		t.Errorf("cache show after clear:\n%s", out)
	}
}

func TestRunCommandErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := execute(t, "run", filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("run on a missing scene should fail")
	}
	if _, err := execute(t, "run"); err == nil {
		t.Error("run without a scene should fail")
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want := filepath.Join(dir, "cache", appName)
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestOrderCommand(t *testing.T) {
	dir := isolate(t)
	scenePath := filepath.Join(dir, "rig.toml")
	if err := os.WriteFile(scenePath, []byte(rigScene), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("scene selection", func(t *testing.T) {
		out, err := execute(t, "order", scenePath)
		if err != nil {
			t.Fatalf("order: %v", err)
		}
		hips := strings.Index(out, "|hips ")
		spine := strings.Index(out, "|hips|spine")
		if hips < 0 || spine < 0 || hips > spine {
			t.Errorf("hips should come before spine:\n%s", out)
		}
	})

	t.Run("dot", func(t *testing.T) {
		out, err := execute(t, "order", scenePath, "--select", "prop,spine,hips", "-f", "dot", "--reduce")
		if err != nil {
			t.Fatalf("order: %v", err)
		}
		if !strings.HasPrefix(out, "digraph G {") || !strings.Contains(out, "3. spine") {
			t.Errorf("dot output:\n%s", out)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "order.dot")
		if _, err := execute(t, "order", scenePath, "-f", "dot", "-o", path); err != nil {
			t.Fatalf("order: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || !bytes.HasPrefix(data, []byte("digraph")) {
			t.Errorf("order file = %q, %v", data, err)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := execute(t, "order", scenePath, "-f", "png"); err == nil {
			t.Error("unknown format should fail")
		}
		if _, err := execute(t, "order", scenePath, "--select", "nobody"); err == nil {
			t.Error("unknown node should fail")
		}
	})
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	scenePath := filepath.Join(dir, "rig.toml")
	if err := os.WriteFile(scenePath, []byte(rigScene), 0o644); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("epsilon = 0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", bad, "order", scenePath); err == nil {
		t.Error("an invalid config file should fail the command")
	}
	if _, err := execute(t, "--config", filepath.Join(dir, "none.toml"), "order", scenePath); err == nil {
		t.Error("an explicit missing config file should fail the command")
	}
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)

	for _, shell := range completionShells {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(out, appName) {
				t.Errorf("completion %s output does not mention %s", shell, appName)
			}
		})
	}

	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("unknown shell should fail")
	}
}
