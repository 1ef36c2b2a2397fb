package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

// AppendRecord inserts a finalized execution record and evicts the oldest
// records beyond limit inside the same transaction. A limit <= 0 disables
// eviction.
func (r *SQLiteRepository) AppendRecord(ctx context.Context, record *types.ExecutionRecord, limit int) (int64, error) {
	start := time.Now()

	if record == nil {
		return 0, apperrors.HandleValidationError("AppendRecord", "record", "nil", "execution record is nil")
	}
	if !record.Status.Valid() {
		return 0, apperrors.HandleValidationError("AppendRecord", "status", string(record.Status), "unknown execution status")
	}
	if record.FinishedAt.Before(record.StartedAt) {
		return 0, apperrors.HandleValidationError("AppendRecord", "finishedAt",
			record.FinishedAt.Format(time.RFC3339), "finish time precedes start time")
	}

	argsJSON, err := json.Marshal(record.Args)
	if err != nil {
		return 0, apperrors.New("AppendRecord", err, apperrors.ErrCodeValidation)
	}

	var id int64
	err = apperrors.WithRetry(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return apperrors.WrapStorageError("AppendRecord", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO execution_records
			 (task_id, script_path, args, status, exit_code, stdout, stderr, error_msg, started_at, finished_at, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.TaskID, record.ScriptPath, string(argsJSON), string(record.Status),
			record.ExitCode, record.Stdout, record.Stderr, record.ErrorMsg,
			record.StartedAt, record.FinishedAt, record.DurationMS)
		if err != nil {
			appErr := apperrors.NewWithContext("AppendRecord", err, r.classifyError(err), map[string]string{
				"script_path": record.ScriptPath,
				"status":      string(record.Status),
			})
			if appErr.IsRetryable() {
				r.logger.Debug("Retryable error in AppendRecord", "error", err, "script", record.ScriptPath)
			} else {
				logging.LogError(r.logger, appErr, "AppendRecord", map[string]any{
					"script_path": record.ScriptPath,
				})
			}
			return appErr
		}

		id, err = res.LastInsertId()
		if err != nil {
			return apperrors.WrapStorageError("AppendRecord", err)
		}

		// Oldest records are evicted first once the cap is exceeded
		if limit > 0 {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM execution_records WHERE id NOT IN
				 (SELECT id FROM execution_records ORDER BY id DESC LIMIT ?)`, limit)
			if err != nil {
				return apperrors.WrapStorageErrorWithContext("AppendRecord", err, map[string]string{
					"phase": "eviction",
				})
			}
		}

		if err := tx.Commit(); err != nil {
			return apperrors.WrapStorageError("AppendRecord", err)
		}
		return nil
	})

	if err == nil {
		record.ID = id
		logging.LogOperation(r.logger, "AppendRecord", time.Since(start), map[string]any{
			"script_path": record.ScriptPath,
			"status":      string(record.Status),
		})
	}

	return id, err
}

// ListRecent returns the most recent execution records, newest first
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryRecords(ctx, "ListRecent",
		`SELECT id, task_id, script_path, args, status, exit_code, stdout, stderr, error_msg, started_at, finished_at, duration_ms
		 FROM execution_records ORDER BY id DESC LIMIT ?`, limit)
}

// ListByScript returns the most recent records for one script path, newest first
func (r *SQLiteRepository) ListByScript(ctx context.Context, scriptPath string, limit int) ([]types.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryRecords(ctx, "ListByScript",
		`SELECT id, task_id, script_path, args, status, exit_code, stdout, stderr, error_msg, started_at, finished_at, duration_ms
		 FROM execution_records WHERE script_path = ? ORDER BY id DESC LIMIT ?`, scriptPath, limit)
}

// LastStatus returns the status of the most recent run for a script path
func (r *SQLiteRepository) LastStatus(ctx context.Context, scriptPath string) (types.ExecutionStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM execution_records WHERE script_path = ? ORDER BY id DESC LIMIT 1`,
		scriptPath).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StatusIdle, apperrors.HandleNotFound("LastStatus", "execution_record", scriptPath)
		}
		return types.StatusIdle, apperrors.WrapStorageError("LastStatus", err)
	}
	return types.ExecutionStatus(status), nil
}

// CountRecords returns the total number of stored execution records
func (r *SQLiteRepository) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM execution_records`).Scan(&count)
	if err != nil {
		return 0, apperrors.WrapStorageError("CountRecords", err)
	}
	return count, nil
}

// ClearHistory removes all execution records
func (r *SQLiteRepository) ClearHistory(ctx context.Context) error {
	start := time.Now()

	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM execution_records`)
		if err != nil {
			return apperrors.WrapStorageError("ClearHistory", err)
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "ClearHistory", time.Since(start), nil)
	}
	return err
}

// Stats computes aggregate statistics over the stored history
func (r *SQLiteRepository) Stats(ctx context.Context) (*types.ExecStats, error) {
	start := time.Now()

	stats := &types.ExecStats{}
	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*),
			        COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			        COALESCE(AVG(CASE WHEN duration_ms > 0 THEN duration_ms END), 0)
			 FROM execution_records`)

		var total, successful int64
		var avgDuration float64
		if err := row.Scan(&total, &successful, &avgDuration); err != nil {
			return apperrors.WrapStorageError("Stats", err)
		}

		stats.TotalRuns = total
		stats.AverageDuration = avgDuration
		if total > 0 {
			stats.SuccessRate = float64(successful) / float64(total) * 100
		}

		rows, err := r.db.QueryContext(ctx,
			`SELECT script_path, COUNT(*) AS runs FROM execution_records
			 GROUP BY script_path ORDER BY runs DESC LIMIT 10`)
		if err != nil {
			return apperrors.WrapStorageError("Stats", err)
		}
		defer rows.Close()

		stats.MostExecuted = stats.MostExecuted[:0]
		for rows.Next() {
			var sr types.ScriptRuns
			if err := rows.Scan(&sr.ScriptPath, &sr.Runs); err != nil {
				return apperrors.WrapStorageError("Stats", err)
			}
			stats.MostExecuted = append(stats.MostExecuted, sr)
		}
		return apperrors.WrapStorageError("Stats", rows.Err())
	})

	if err == nil {
		logging.LogOperation(r.logger, "Stats", time.Since(start), map[string]any{
			"total_runs": stats.TotalRuns,
		})
	}

	return stats, err
}

// queryRecords runs a record query with retry and scans the result set
func (r *SQLiteRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]types.ExecutionRecord, error) {
	var records []types.ExecutionRecord

	err := apperrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return apperrors.WrapStorageError(op, err)
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var rec types.ExecutionRecord
			var argsJSON, status string
			err := rows.Scan(&rec.ID, &rec.TaskID, &rec.ScriptPath, &argsJSON, &status,
				&rec.ExitCode, &rec.Stdout, &rec.Stderr, &rec.ErrorMsg,
				&rec.StartedAt, &rec.FinishedAt, &rec.DurationMS)
			if err != nil {
				return apperrors.WrapStorageError(op, err)
			}
			rec.Status = types.ExecutionStatus(status)
			if err := json.Unmarshal([]byte(argsJSON), &rec.Args); err != nil {
				return apperrors.NewWithContext(op, err, apperrors.ErrCodeCorruption, map[string]string{
					"record_id": fmt.Sprintf("%d", rec.ID),
				})
			}
			records = append(records, rec)
		}
		return apperrors.WrapStorageError(op, rows.Err())
	})

	return records, err
}
