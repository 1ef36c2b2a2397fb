package repository

import (
	"context"

	"launchdock/internal/types"
)

// ScriptRepository defines persistence operations for toolbar script entries
type ScriptRepository interface {
	AddScript(ctx context.Context, entry *types.ScriptEntry) (int64, error)
	RemoveScript(ctx context.Context, id int64) error
	RenameScript(ctx context.Context, id int64, label string) error
	UpdateScriptPath(ctx context.Context, id int64, path string) error
	SetScriptEditor(ctx context.Context, id int64, editor string) error
	ReorderScript(ctx context.Context, id int64, position int) error
	GetScript(ctx context.Context, id int64) (*types.ScriptEntry, error)
	GetScriptByPath(ctx context.Context, path string) (*types.ScriptEntry, error)
	ListScripts(ctx context.Context) ([]types.ScriptEntry, error)
}

// HistoryRepository defines persistence operations for execution records.
// The history is append-only and capped: AppendRecord evicts the oldest
// records beyond the given limit.
type HistoryRepository interface {
	AppendRecord(ctx context.Context, record *types.ExecutionRecord, limit int) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]types.ExecutionRecord, error)
	ListByScript(ctx context.Context, scriptPath string, limit int) ([]types.ExecutionRecord, error)
	LastStatus(ctx context.Context, scriptPath string) (types.ExecutionStatus, error)
	CountRecords(ctx context.Context) (int64, error)
	ClearHistory(ctx context.Context) error
	Stats(ctx context.Context) (*types.ExecStats, error)
}
