package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeTestScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.py")
	if err := os.WriteFile(path, []byte("print('hi')\n"), 0o755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

// setTestConfigHome points os.UserConfigDir at a temp dir so app state never
// touches the real user profile
func setTestConfigHome(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	switch runtime.GOOS {
	case "windows":
		t.Setenv("AppData", dir)
	case "darwin":
		t.Setenv("HOME", dir)
	default:
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
}

func TestNewAppRejectsInvalidDatabaseConfig(t *testing.T) {
	setTestConfigHome(t)
	t.Setenv("LAUNCHDOCK_DB_JOURNAL_MODE", "BOGUS")

	a := NewApp("production")
	defer a.Shutdown(context.Background())

	if a.persistent {
		t.Error("Invalid journal mode override should never reach the database connection")
	}

	// The registry still works on the in-memory fallback
	entry, err := a.AddScript(writeTestScript(t), "")
	if err != nil {
		t.Fatalf("AddScript on the fallback repository failed: %v", err)
	}
	scripts, err := a.GetScripts()
	if err != nil {
		t.Fatalf("GetScripts failed: %v", err)
	}
	if len(scripts) != 1 || scripts[0].ID != entry.ID {
		t.Errorf("Fallback registry lost the entry: %+v", scripts)
	}
}

func TestNewAppPersistsWithDefaultConfig(t *testing.T) {
	setTestConfigHome(t)

	a := NewApp("production")
	defer a.Shutdown(context.Background())

	if !a.persistent {
		t.Error("Default production config should connect and migrate")
	}
}
