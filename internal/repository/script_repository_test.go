package repository

import (
	"context"
	"testing"
	"time"

	"launchdock/internal/database"
	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

func setupTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	logger := logging.NewDefaultLogger()
	dbService := database.NewSQLiteService(logger)

	ctx := context.Background()
	if err := dbService.Connect(ctx, database.TestConfig()); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { dbService.Close() })

	if err := dbService.Migrate(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewSQLiteRepository(dbService, logger)
}

func TestNewSQLiteRepository(t *testing.T) {
	repo := setupTestRepository(t)

	if repo.db == nil {
		t.Error("Repository db is nil")
	}
	if repo.logger == nil {
		t.Error("Repository logger is nil")
	}
	if repo.retryConfig == nil {
		t.Error("Repository retryConfig is nil")
	}
}

func TestAddAndGetScript(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	entry := &types.ScriptEntry{
		Path:   "/scripts/deploy.py",
		Label:  "Deploy",
		Editor: "vscode",
	}

	id, err := repo.AddScript(ctx, entry)
	if err != nil {
		t.Fatalf("AddScript failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero id")
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Error("Timestamps should be set on insert")
	}

	got, err := repo.GetScript(ctx, id)
	if err != nil {
		t.Fatalf("GetScript failed: %v", err)
	}
	if got.Path != entry.Path || got.Label != entry.Label || got.Editor != entry.Editor {
		t.Errorf("Round-trip mismatch: %+v", got)
	}

	byPath, err := repo.GetScriptByPath(ctx, entry.Path)
	if err != nil {
		t.Fatalf("GetScriptByPath failed: %v", err)
	}
	if byPath.ID != id {
		t.Errorf("GetScriptByPath returned id %d, want %d", byPath.ID, id)
	}
}

func TestAddScriptRejectsDuplicatePath(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	if _, err := repo.AddScript(ctx, &types.ScriptEntry{Path: "/scripts/a.sh", Label: "a"}); err != nil {
		t.Fatalf("First AddScript failed: %v", err)
	}

	_, err := repo.AddScript(ctx, &types.ScriptEntry{Path: "/scripts/a.sh", Label: "again"})
	if !apperrors.IsDuplicate(err) {
		t.Errorf("Expected DUPLICATE error, got %v", err)
	}
}

func TestAddScriptValidation(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	if _, err := repo.AddScript(ctx, nil); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error for nil entry, got %v", err)
	}
	if _, err := repo.AddScript(ctx, &types.ScriptEntry{}); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error for empty path, got %v", err)
	}
}

func TestRemoveScript(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	id, err := repo.AddScript(ctx, &types.ScriptEntry{Path: "/scripts/tmp.py", Label: "tmp"})
	if err != nil {
		t.Fatalf("AddScript failed: %v", err)
	}

	if err := repo.RemoveScript(ctx, id); err != nil {
		t.Fatalf("RemoveScript failed: %v", err)
	}
	if _, err := repo.GetScript(ctx, id); !apperrors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND after removal, got %v", err)
	}
	if err := repo.RemoveScript(ctx, id); !apperrors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND for second removal, got %v", err)
	}
}

func TestUpdateOperations(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	id, err := repo.AddScript(ctx, &types.ScriptEntry{Path: "/scripts/old.py", Label: "old"})
	if err != nil {
		t.Fatalf("AddScript failed: %v", err)
	}
	before, _ := repo.GetScript(ctx, id)

	time.Sleep(5 * time.Millisecond)

	if err := repo.RenameScript(ctx, id, "fresh"); err != nil {
		t.Fatalf("RenameScript failed: %v", err)
	}
	if err := repo.UpdateScriptPath(ctx, id, "/scripts/new.py"); err != nil {
		t.Fatalf("UpdateScriptPath failed: %v", err)
	}
	if err := repo.SetScriptEditor(ctx, id, "vim"); err != nil {
		t.Fatalf("SetScriptEditor failed: %v", err)
	}
	if err := repo.ReorderScript(ctx, id, 3); err != nil {
		t.Fatalf("ReorderScript failed: %v", err)
	}

	got, err := repo.GetScript(ctx, id)
	if err != nil {
		t.Fatalf("GetScript failed: %v", err)
	}
	if got.Label != "fresh" || got.Path != "/scripts/new.py" || got.Editor != "vim" || got.Position != 3 {
		t.Errorf("Updates not applied: %+v", got)
	}
	if !got.UpdatedAt.After(before.UpdatedAt) {
		t.Error("UpdatedAt should advance on update")
	}
}

func TestUpdateValidationAndNotFound(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	if err := repo.RenameScript(ctx, 1, ""); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error for empty label, got %v", err)
	}
	if err := repo.ReorderScript(ctx, 1, -1); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error for negative position, got %v", err)
	}
	if err := repo.RenameScript(ctx, 9999, "x"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND for missing id, got %v", err)
	}
}

func TestListScriptsOrderedByPosition(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	paths := []struct {
		path     string
		position int
	}{
		{"/scripts/c.py", 2},
		{"/scripts/a.py", 0},
		{"/scripts/b.py", 1},
	}
	for _, p := range paths {
		_, err := repo.AddScript(ctx, &types.ScriptEntry{Path: p.path, Label: p.path, Position: p.position})
		if err != nil {
			t.Fatalf("AddScript(%s) failed: %v", p.path, err)
		}
	}

	entries, err := repo.ListScripts(ctx)
	if err != nil {
		t.Fatalf("ListScripts failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	expected := []string{"/scripts/a.py", "/scripts/b.py", "/scripts/c.py"}
	for i, want := range expected {
		if entries[i].Path != want {
			t.Errorf("Position %d: got %s, want %s", i, entries[i].Path, want)
		}
	}
}
