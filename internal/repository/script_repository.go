package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

// AddScript inserts a new script entry and returns its id.
// Duplicate paths are rejected with a DUPLICATE error.
func (r *SQLiteRepository) AddScript(ctx context.Context, entry *types.ScriptEntry) (int64, error) {
	start := time.Now()

	if entry == nil {
		return 0, apperrors.HandleValidationError("AddScript", "entry", "nil", "script entry is nil")
	}
	if entry.Path == "" {
		return 0, apperrors.HandleValidationError("AddScript", "path", "", "script path cannot be empty")
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	var id int64
	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO scripts (path, label, icon, editor, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.Path, entry.Label, entry.Icon, entry.Editor, entry.Position,
			entry.CreatedAt, entry.UpdatedAt)
		if err != nil {
			appErr := apperrors.NewWithContext("AddScript", err, r.classifyError(err), map[string]string{
				"path": entry.Path,
			})
			if appErr.IsRetryable() {
				r.logger.Debug("Retryable error in AddScript", "error", err, "path", entry.Path)
			} else {
				logging.LogError(r.logger, appErr, "AddScript", map[string]any{
					"path": entry.Path,
				})
			}
			return appErr
		}

		id, err = res.LastInsertId()
		if err != nil {
			return apperrors.WrapStorageError("AddScript", err)
		}
		return nil
	})

	if err == nil {
		entry.ID = id
		logging.LogOperation(r.logger, "AddScript", time.Since(start), map[string]any{
			"path": entry.Path,
			"id":   id,
		})
	}

	return id, err
}

// RemoveScript deletes a script entry by id
func (r *SQLiteRepository) RemoveScript(ctx context.Context, id int64) error {
	start := time.Now()

	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
		if err != nil {
			return apperrors.NewWithContext("RemoveScript", err, r.classifyError(err), map[string]string{
				"id": fmt.Sprintf("%d", id),
			})
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return apperrors.WrapStorageError("RemoveScript", err)
		}
		if affected == 0 {
			return apperrors.HandleNotFound("RemoveScript", "script", fmt.Sprintf("%d", id))
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "RemoveScript", time.Since(start), map[string]any{
			"id": id,
		})
	}

	return err
}

// RenameScript updates the display label of a script entry
func (r *SQLiteRepository) RenameScript(ctx context.Context, id int64, label string) error {
	if label == "" {
		return apperrors.HandleValidationError("RenameScript", "label", "", "label cannot be empty")
	}
	return r.updateScriptColumn(ctx, "RenameScript", id, "label", label)
}

// UpdateScriptPath updates the on-disk path of a script entry
func (r *SQLiteRepository) UpdateScriptPath(ctx context.Context, id int64, path string) error {
	if path == "" {
		return apperrors.HandleValidationError("UpdateScriptPath", "path", "", "path cannot be empty")
	}
	return r.updateScriptColumn(ctx, "UpdateScriptPath", id, "path", path)
}

// SetScriptEditor updates the preferred editor of a script entry
func (r *SQLiteRepository) SetScriptEditor(ctx context.Context, id int64, editor string) error {
	return r.updateScriptColumn(ctx, "SetScriptEditor", id, "editor", editor)
}

// ReorderScript updates the toolbar position of a script entry
func (r *SQLiteRepository) ReorderScript(ctx context.Context, id int64, position int) error {
	if position < 0 {
		return apperrors.HandleValidationError("ReorderScript", "position", fmt.Sprintf("%d", position), "position cannot be negative")
	}
	return r.updateScriptColumn(ctx, "ReorderScript", id, "position", position)
}

// updateScriptColumn updates a single column on a script row, bumping updated_at
func (r *SQLiteRepository) updateScriptColumn(ctx context.Context, op string, id int64, column string, value any) error {
	start := time.Now()

	// column is always a compile-time constant from the callers above
	query := fmt.Sprintf(`UPDATE scripts SET %s = ?, updated_at = ? WHERE id = ?`, column)

	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		res, err := r.db.ExecContext(ctx, query, value, time.Now(), id)
		if err != nil {
			appErr := apperrors.NewWithContext(op, err, r.classifyError(err), map[string]string{
				"id": fmt.Sprintf("%d", id),
			})
			if appErr.IsRetryable() {
				r.logger.Debug("Retryable error in "+op, "error", err, "id", id)
			} else {
				logging.LogError(r.logger, appErr, op, map[string]any{"id": id})
			}
			return appErr
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return apperrors.WrapStorageError(op, err)
		}
		if affected == 0 {
			return apperrors.HandleNotFound(op, "script", fmt.Sprintf("%d", id))
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, op, time.Since(start), map[string]any{
			"id": id,
		})
	}

	return err
}

// GetScript retrieves a script entry by id
func (r *SQLiteRepository) GetScript(ctx context.Context, id int64) (*types.ScriptEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, path, label, icon, editor, position, created_at, updated_at
		 FROM scripts WHERE id = ?`, id)
	entry, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.HandleNotFound("GetScript", "script", fmt.Sprintf("%d", id))
		}
		return nil, apperrors.WrapStorageError("GetScript", err)
	}
	return entry, nil
}

// GetScriptByPath retrieves a script entry by its path
func (r *SQLiteRepository) GetScriptByPath(ctx context.Context, path string) (*types.ScriptEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, path, label, icon, editor, position, created_at, updated_at
		 FROM scripts WHERE path = ?`, path)
	entry, err := scanScript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.HandleNotFound("GetScriptByPath", "script", path)
		}
		return nil, apperrors.WrapStorageError("GetScriptByPath", err)
	}
	return entry, nil
}

// ListScripts returns all script entries ordered by toolbar position
func (r *SQLiteRepository) ListScripts(ctx context.Context) ([]types.ScriptEntry, error) {
	start := time.Now()

	var entries []types.ScriptEntry
	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, path, label, icon, editor, position, created_at, updated_at
			 FROM scripts ORDER BY position, id`)
		if err != nil {
			return apperrors.WrapStorageError("ListScripts", err)
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			entry, err := scanScript(rows)
			if err != nil {
				return apperrors.WrapStorageError("ListScripts", err)
			}
			entries = append(entries, *entry)
		}
		return apperrors.WrapStorageError("ListScripts", rows.Err())
	})

	if err == nil {
		logging.LogOperation(r.logger, "ListScripts", time.Since(start), map[string]any{
			"count": len(entries),
		})
	}

	return entries, err
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (*types.ScriptEntry, error) {
	var entry types.ScriptEntry
	err := row.Scan(&entry.ID, &entry.Path, &entry.Label, &entry.Icon,
		&entry.Editor, &entry.Position, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
