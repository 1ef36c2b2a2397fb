package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

// MemoryRepository implements ScriptRepository and HistoryRepository in
// memory. Used when the database is unavailable so the application keeps
// working without persistence.
type MemoryRepository struct {
	mutex   sync.RWMutex
	scripts map[int64]*types.ScriptEntry
	records []types.ExecutionRecord
	nextID  int64
	logger  logging.Logger
}

var (
	_ ScriptRepository  = (*MemoryRepository)(nil)
	_ HistoryRepository = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(logger logging.Logger) *MemoryRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MemoryRepository{
		scripts: make(map[int64]*types.ScriptEntry),
		nextID:  1,
		logger:  logger,
	}
}

// AddScript stores a script entry, rejecting duplicate paths
func (m *MemoryRepository) AddScript(ctx context.Context, entry *types.ScriptEntry) (int64, error) {
	if entry == nil {
		return 0, apperrors.HandleValidationError("AddScript", "entry", "nil", "script entry is nil")
	}
	if entry.Path == "" {
		return 0, apperrors.HandleValidationError("AddScript", "path", "", "script path cannot be empty")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, existing := range m.scripts {
		if existing.Path == entry.Path {
			return 0, apperrors.NewWithContext("AddScript", fmt.Errorf("path already pinned"),
				apperrors.ErrCodeDuplicate, map[string]string{"path": entry.Path})
		}
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.ID = m.nextID
	m.nextID++

	stored := *entry
	m.scripts[entry.ID] = &stored
	return entry.ID, nil
}

// RemoveScript deletes a script entry by id
func (m *MemoryRepository) RemoveScript(ctx context.Context, id int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.scripts[id]; !ok {
		return apperrors.HandleNotFound("RemoveScript", "script", fmt.Sprintf("%d", id))
	}
	delete(m.scripts, id)
	return nil
}

// RenameScript updates the display label of a script entry
func (m *MemoryRepository) RenameScript(ctx context.Context, id int64, label string) error {
	if label == "" {
		return apperrors.HandleValidationError("RenameScript", "label", "", "label cannot be empty")
	}
	return m.mutate("RenameScript", id, func(e *types.ScriptEntry) { e.Label = label })
}

// UpdateScriptPath updates the on-disk path of a script entry
func (m *MemoryRepository) UpdateScriptPath(ctx context.Context, id int64, path string) error {
	if path == "" {
		return apperrors.HandleValidationError("UpdateScriptPath", "path", "", "path cannot be empty")
	}
	return m.mutate("UpdateScriptPath", id, func(e *types.ScriptEntry) { e.Path = path })
}

// SetScriptEditor updates the preferred editor of a script entry
func (m *MemoryRepository) SetScriptEditor(ctx context.Context, id int64, editor string) error {
	return m.mutate("SetScriptEditor", id, func(e *types.ScriptEntry) { e.Editor = editor })
}

// ReorderScript updates the toolbar position of a script entry
func (m *MemoryRepository) ReorderScript(ctx context.Context, id int64, position int) error {
	if position < 0 {
		return apperrors.HandleValidationError("ReorderScript", "position",
			fmt.Sprintf("%d", position), "position cannot be negative")
	}
	return m.mutate("ReorderScript", id, func(e *types.ScriptEntry) { e.Position = position })
}

func (m *MemoryRepository) mutate(op string, id int64, apply func(*types.ScriptEntry)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, ok := m.scripts[id]
	if !ok {
		return apperrors.HandleNotFound(op, "script", fmt.Sprintf("%d", id))
	}
	apply(entry)
	entry.UpdatedAt = time.Now()
	return nil
}

// GetScript retrieves a script entry by id
func (m *MemoryRepository) GetScript(ctx context.Context, id int64) (*types.ScriptEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, ok := m.scripts[id]
	if !ok {
		return nil, apperrors.HandleNotFound("GetScript", "script", fmt.Sprintf("%d", id))
	}
	copied := *entry
	return &copied, nil
}

// GetScriptByPath retrieves a script entry by its path
func (m *MemoryRepository) GetScriptByPath(ctx context.Context, path string) (*types.ScriptEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, entry := range m.scripts {
		if entry.Path == path {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, apperrors.HandleNotFound("GetScriptByPath", "script", path)
}

// ListScripts returns all script entries ordered by toolbar position
func (m *MemoryRepository) ListScripts(ctx context.Context) ([]types.ScriptEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entries := make([]types.ScriptEntry, 0, len(m.scripts))
	for _, entry := range m.scripts {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// AppendRecord appends a finalized execution record, evicting oldest first
// past the limit
func (m *MemoryRepository) AppendRecord(ctx context.Context, record *types.ExecutionRecord, limit int) (int64, error) {
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

	m.mutex.Lock()
	defer m.mutex.Unlock()

	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *record)
	if limit > 0 {
		if overflow := len(m.records) - limit; overflow > 0 {
			m.records = m.records[overflow:]
		}
	}
	return record.ID, nil
}

// ListRecent returns the most recent execution records, newest first
func (m *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.collect(limit, func(types.ExecutionRecord) bool { return true }), nil
}

// ListByScript returns the most recent records for one script path, newest first
func (m *MemoryRepository) ListByScript(ctx context.Context, scriptPath string, limit int) ([]types.ExecutionRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.collect(limit, func(r types.ExecutionRecord) bool { return r.ScriptPath == scriptPath }), nil
}

func (m *MemoryRepository) collect(limit int, match func(types.ExecutionRecord) bool) []types.ExecutionRecord {
	if limit <= 0 {
		limit = 50
	}
	var out []types.ExecutionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if match(m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	return out
}

// LastStatus returns the status of the most recent run for a script path
func (m *MemoryRepository) LastStatus(ctx context.Context, scriptPath string) (types.ExecutionStatus, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].ScriptPath == scriptPath {
			return m.records[i].Status, nil
		}
	}
	return types.StatusIdle, apperrors.HandleNotFound("LastStatus", "execution_record", scriptPath)
}

// CountRecords returns the total number of stored execution records
func (m *MemoryRepository) CountRecords(ctx context.Context) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return int64(len(m.records)), nil
}

// ClearHistory removes all execution records
func (m *MemoryRepository) ClearHistory(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = nil
	return nil
}

// Stats computes aggregate statistics by linear scan
func (m *MemoryRepository) Stats(ctx context.Context) (*types.ExecStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := &types.ExecStats{TotalRuns: int64(len(m.records))}
	if stats.TotalRuns == 0 {
		return stats, nil
	}

	var successful, durationSum, durationCount int64
	runs := make(map[string]int64)
	for _, rec := range m.records {
		if rec.Status == types.StatusSuccess {
			successful++
		}
		if rec.DurationMS > 0 {
			durationSum += rec.DurationMS
			durationCount++
		}
		runs[rec.ScriptPath]++
	}

	stats.SuccessRate = float64(successful) / float64(stats.TotalRuns) * 100
	if durationCount > 0 {
		stats.AverageDuration = float64(durationSum) / float64(durationCount)
	}

	most := make([]types.ScriptRuns, 0, len(runs))
	for path, count := range runs {
		most = append(most, types.ScriptRuns{ScriptPath: path, Runs: count})
	}
	sort.Slice(most, func(i, j int) bool {
		if most[i].Runs != most[j].Runs {
			return most[i].Runs > most[j].Runs
		}
		return most[i].ScriptPath < most[j].ScriptPath
	})
	if len(most) > 10 {
		most = most[:10]
	}
	stats.MostExecuted = most
	return stats, nil
}
