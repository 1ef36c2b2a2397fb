package services

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	apperrors "launchdock/internal/infrastructure/errors"
)

func writeTempScript(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("print('hi')\n"), 0o755); err != nil {
		t.Fatalf("Failed to write temp script: %v", err)
	}
	return path
}

func TestCommandForInterpreters(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command table differs on windows")
	}

	d := NewDispatcher()

	tests := []struct {
		file     string
		expected []string
	}{
		{"script.py", []string{"python3"}},
		{"script.js", []string{"node"}},
		{"script.rb", []string{"ruby"}},
		{"script.sh", []string{"sh"}},
		{"script.ts", []string{"deno", "run"}},
		{"script.go", []string{"go", "run"}},
		{"script.ps1", []string{"powershell", "-ExecutionPolicy", "Bypass", "-File"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := writeTempScript(t, tt.file)
			cmd, err := d.CommandFor(path, []string{"arg1"})
			if err != nil {
				t.Fatalf("CommandFor failed: %v", err)
			}
			if len(cmd.Compile) != 0 {
				t.Errorf("No compile step expected for %s", tt.file)
			}

			want := append(append([]string{}, tt.expected...), path, "arg1")
			if len(cmd.Argv) != len(want) {
				t.Fatalf("Argv = %v, want %v", cmd.Argv, want)
			}
			for i := range want {
				if cmd.Argv[i] != want[i] {
					t.Errorf("Argv[%d] = %s, want %s", i, cmd.Argv[i], want[i])
				}
			}
		})
	}
}

func TestCommandForCaseInsensitiveExtension(t *testing.T) {
	d := NewDispatcher()
	path := writeTempScript(t, "SCRIPT.PY")

	cmd, err := d.CommandFor(path, nil)
	if err != nil {
		t.Fatalf("CommandFor failed for uppercase extension: %v", err)
	}
	if len(cmd.Argv) == 0 {
		t.Fatal("Empty argv")
	}
}

func TestCommandForRustCompilesFirst(t *testing.T) {
	d := NewDispatcher()
	path := writeTempScript(t, "tool.rs")

	cmd, err := d.CommandFor(path, []string{"--fast"})
	if err != nil {
		t.Fatalf("CommandFor failed: %v", err)
	}
	if len(cmd.Compile) == 0 || cmd.Compile[0] != "rustc" {
		t.Fatalf("Expected rustc compile step, got %v", cmd.Compile)
	}

	bin := cmd.Argv[0]
	if !strings.Contains(bin, "launchdock_tool") {
		t.Errorf("Compiled binary path should derive from the source name, got %s", bin)
	}
	// Compile output and run target must agree
	found := false
	for _, arg := range cmd.Compile {
		if arg == bin {
			found = true
		}
	}
	if !found {
		t.Errorf("Compile step %v does not produce the run target %s", cmd.Compile, bin)
	}
	if cmd.Argv[len(cmd.Argv)-1] != "--fast" {
		t.Errorf("Extra args should pass through to the binary: %v", cmd.Argv)
	}
}

func TestCommandForRustTargetsUniquePerRun(t *testing.T) {
	d := NewDispatcher()
	path := writeTempScript(t, "tool.rs")

	first, err := d.CommandFor(path, nil)
	if err != nil {
		t.Fatalf("CommandFor failed: %v", err)
	}
	second, err := d.CommandFor(path, nil)
	if err != nil {
		t.Fatalf("CommandFor failed: %v", err)
	}

	// Concurrent runs of same-named sources must not share a binary
	if first.Argv[0] == second.Argv[0] {
		t.Errorf("Compile targets collide across runs: %s", first.Argv[0])
	}
}

func TestCommandForExecutableRunsDirectly(t *testing.T) {
	d := NewDispatcher()
	path := writeTempScript(t, "tool.exe")

	cmd, err := d.CommandFor(path, []string{"-v"})
	if err != nil {
		t.Fatalf("CommandFor failed: %v", err)
	}
	if cmd.Argv[0] != path {
		t.Errorf("Executables should run directly, got %v", cmd.Argv)
	}
}

func TestCommandForMissingFile(t *testing.T) {
	d := NewDispatcher()

	_, err := d.CommandFor(filepath.Join(t.TempDir(), "missing.py"), nil)
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND for missing file, got %v", err)
	}
}

func TestCommandForUnsupportedExtension(t *testing.T) {
	d := NewDispatcher()
	path := writeTempScript(t, "document.txt")

	_, err := d.CommandFor(path, nil)
	if !apperrors.IsUnsupported(err) {
		t.Errorf("Expected UNSUPPORTED for .txt, got %v", err)
	}
}

func TestSupportedAndExtensions(t *testing.T) {
	d := NewDispatcher()

	if !d.Supported(".py") || !d.Supported(".PY") {
		t.Error("Supported should be case-insensitive")
	}
	if d.Supported(".txt") {
		t.Error(".txt must not be supported")
	}

	exts := d.Extensions()
	if len(exts) == 0 {
		t.Fatal("Extensions returned nothing")
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Errorf("Extensions not sorted: %v", exts)
			break
		}
	}
}
