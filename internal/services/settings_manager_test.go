package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/types"
)

func newTestSettingsManager(t *testing.T) *SettingsManager {
	t.Helper()
	return NewSettingsManager(filepath.Join(t.TempDir(), "settings.json"), nil)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	sm := newTestSettingsManager(t)

	if err := sm.Load(); err != nil {
		t.Fatalf("Load should tolerate a missing file: %v", err)
	}

	got := sm.Get()
	want := types.DefaultSettings()
	if got.UI.Transparency != want.UI.Transparency {
		t.Errorf("Transparency = %v, want default %v", got.UI.Transparency, want.UI.Transparency)
	}
	if got.Execution.MaxConcurrent != want.Execution.MaxConcurrent {
		t.Errorf("MaxConcurrent = %d, want default %d", got.Execution.MaxConcurrent, want.Execution.MaxConcurrent)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	sm := NewSettingsManager(path, nil)

	updated := *types.DefaultSettings()
	updated.UI.Transparency = 0.5
	updated.UI.Theme = "amber"
	updated.Execution.DefaultTimeoutSec = 12.5
	updated.Editor.DefaultEditor = "vim"

	if err := sm.Update(updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A fresh manager reading the same file sees identical values
	reloaded := NewSettingsManager(path, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	got := reloaded.Get()
	if got != updated {
		t.Errorf("Round-trip mismatch:\n got %+v\nwant %+v", got, updated)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	// A partial document keeps defaults for everything it omits
	partial := `{"ui": {"transparency": 0.5, "alwaysOnTop": true, "theme": "violet", "fontSize": 10, "showTooltips": true}}`
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	sm := NewSettingsManager(path, nil)
	if err := sm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := sm.Get()
	if got.UI.Transparency != 0.5 {
		t.Errorf("Stored value not applied: %v", got.UI.Transparency)
	}
	if got.Execution.HistoryLimit != types.DefaultSettings().Execution.HistoryLimit {
		t.Errorf("Omitted section should keep the default, got %d", got.Execution.HistoryLimit)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	sm := NewSettingsManager(path, nil)
	if err := sm.Load(); err == nil {
		t.Error("Expected error for corrupt settings file")
	}
}

func TestUpdateValidation(t *testing.T) {
	sm := newTestSettingsManager(t)

	tests := []struct {
		name   string
		mutate func(*types.Settings)
	}{
		{"transparency above one", func(s *types.Settings) { s.UI.Transparency = 1.5 }},
		{"negative transparency", func(s *types.Settings) { s.UI.Transparency = -0.1 }},
		{"tiny font", func(s *types.Settings) { s.UI.FontSize = 2 }},
		{"zero timeout", func(s *types.Settings) { s.Execution.DefaultTimeoutSec = 0 }},
		{"zero concurrency", func(s *types.Settings) { s.Execution.MaxConcurrent = 0 }},
		{"tiny output limit", func(s *types.Settings) { s.Execution.OutputLimitBytes = 10 }},
		{"zero history limit", func(s *types.Settings) { s.Execution.HistoryLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := *types.DefaultSettings()
			tt.mutate(&settings)
			if err := sm.Update(settings); !apperrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	// Rejected updates must not change the current settings
	got := sm.Get()
	if got != *types.DefaultSettings() {
		t.Errorf("Settings changed after rejected updates: %+v", got)
	}
}

func TestUpdateNotifiesListeners(t *testing.T) {
	sm := newTestSettingsManager(t)

	var seen []types.Settings
	sm.AddListener(func(s types.Settings) {
		seen = append(seen, s)
	})

	updated := *types.DefaultSettings()
	updated.UI.Theme = "amber"
	if err := sm.Update(updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(seen))
	}
	if seen[0].UI.Theme != "amber" {
		t.Errorf("Listener saw theme %s, want amber", seen[0].UI.Theme)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	sm := newTestSettingsManager(t)

	updated := *types.DefaultSettings()
	updated.UI.FontSize = 14
	if err := sm.Update(updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := sm.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if sm.Get() != *types.DefaultSettings() {
		t.Errorf("Reset did not restore defaults: %+v", sm.Get())
	}
}

func TestPersistWritesValidJSONAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	sm := NewSettingsManager(path, nil)

	if err := sm.Update(*types.DefaultSettings()); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Settings file not written: %v", err)
	}
	var doc types.Settings
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Settings file is not valid JSON: %v", err)
	}

	// No leftover temp files from the atomic write
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.Name() != "settings.json" {
			t.Errorf("Unexpected leftover file: %s", entry.Name())
		}
	}
}
