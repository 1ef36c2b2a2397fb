package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/platform"
	"launchdock/internal/repository"
	"launchdock/internal/types"
)

// StatusListener receives a snapshot of the record on every status change
type StatusListener func(taskID string, record types.ExecutionRecord)

// childWaitDelay bounds how long Wait blocks on output pipes held open by
// orphaned descendants after the child itself is gone
const childWaitDelay = 3 * time.Second

// ExecutionManager launches scripts through the dispatcher, tracks active
// runs, enforces the concurrency limit and persists finalized records.
type ExecutionManager struct {
	dispatcher *Dispatcher
	history    repository.HistoryRepository
	logger     logging.Logger

	mutex     sync.RWMutex
	active    map[string]*executionTask
	listeners []StatusListener

	sem     chan struct{}
	taskSeq atomic.Int64

	defaultTimeout time.Duration
	outputLimit    int
	historyLimit   int

	persistenceEnabled bool
	memHistory         []types.ExecutionRecord // fallback when persistence is unavailable
}

// executionTask tracks one in-flight run
type executionTask struct {
	id        string
	record    types.ExecutionRecord
	cancel    context.CancelFunc
	cancelled bool
}

// ExecutionConfig carries the settings-driven knobs for the manager
type ExecutionConfig struct {
	DefaultTimeout time.Duration
	MaxConcurrent  int
	OutputLimit    int
	HistoryLimit   int
}

// NewExecutionManager creates an execution manager. history may be nil, in
// which case records are kept in memory only.
func NewExecutionManager(dispatcher *Dispatcher, history repository.HistoryRepository, logger logging.Logger, cfg ExecutionConfig) *ExecutionManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.OutputLimit <= 0 {
		cfg.OutputLimit = 64 * 1024
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}

	return &ExecutionManager{
		dispatcher:         dispatcher,
		history:            history,
		logger:             logger,
		active:             make(map[string]*executionTask),
		sem:                make(chan struct{}, cfg.MaxConcurrent),
		defaultTimeout:     cfg.DefaultTimeout,
		outputLimit:        cfg.OutputLimit,
		historyLimit:       cfg.HistoryLimit,
		persistenceEnabled: history != nil,
	}
}

// SetPersistenceEnabled toggles record persistence; when disabled, records
// accumulate in a bounded in-memory list instead
func (em *ExecutionManager) SetPersistenceEnabled(enabled bool) {
	em.mutex.Lock()
	defer em.mutex.Unlock()
	em.persistenceEnabled = enabled && em.history != nil
}

// SetDefaultTimeout updates the timeout applied when no override is given
func (em *ExecutionManager) SetDefaultTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	em.mutex.Lock()
	defer em.mutex.Unlock()
	em.defaultTimeout = d
}

// SetHistoryLimit updates the history eviction cap
func (em *ExecutionManager) SetHistoryLimit(limit int) {
	if limit <= 0 {
		return
	}
	em.mutex.Lock()
	defer em.mutex.Unlock()
	em.historyLimit = limit
}

// AddStatusListener registers a listener for status change notifications
func (em *ExecutionManager) AddStatusListener(listener StatusListener) {
	em.mutex.Lock()
	defer em.mutex.Unlock()
	em.listeners = append(em.listeners, listener)
}

// Execute resolves the command for a file and launches it in the background.
// Returns the task id used to query or cancel the run. A zero timeout uses
// the configured default.
func (em *ExecutionManager) Execute(path string, args []string, timeout time.Duration) (string, error) {
	cmd, err := em.dispatcher.CommandFor(path, args)
	if err != nil {
		return "", err
	}

	em.mutex.Lock()
	if timeout <= 0 {
		timeout = em.defaultTimeout
	}

	taskID := fmt.Sprintf("task_%d_%d", time.Now().UnixMilli(), em.taskSeq.Add(1))
	ctx, cancel := context.WithCancel(context.Background())
	task := &executionTask{
		id:     taskID,
		cancel: cancel,
		record: types.ExecutionRecord{
			TaskID:     taskID,
			ScriptPath: path,
			Args:       args,
			Status:     types.StatusIdle,
		},
	}
	em.active[taskID] = task
	em.mutex.Unlock()

	go em.run(ctx, task, cmd, timeout)

	return taskID, nil
}

// run executes the task off the caller's goroutine, bounded by the semaphore
func (em *ExecutionManager) run(ctx context.Context, task *executionTask, cmd Command, timeout time.Duration) {
	select {
	case em.sem <- struct{}{}:
		defer func() { <-em.sem }()
	case <-ctx.Done():
		em.finalize(task, types.StatusCancelled, 0, "", "", "cancelled before start")
		return
	}

	em.mutex.Lock()
	task.record.StartedAt = time.Now()
	em.mutex.Unlock()

	em.setStatus(task, types.StatusRunning)

	runCtx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	// Optional compile step, e.g. rustc before running the produced binary
	if len(cmd.Compile) > 0 {
		if stderr, err := em.runCompileStep(runCtx, cmd.Compile, task.record.ScriptPath); err != nil {
			status, msg := em.classifyFailure(runCtx, task, err)
			em.finalize(task, status, exitCodeOf(err), "", stderr, msg)
			return
		}
	}

	stdout, stderr, exitCode, err := em.runChild(runCtx, cmd.Argv, filepath.Dir(task.record.ScriptPath))

	// ErrWaitDelay means the child exited cleanly but a descendant still
	// held the output pipes past the grace period
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		em.finalize(task, types.StatusSuccess, 0, stdout, stderr, "")
		return
	}

	status, msg := em.classifyFailure(runCtx, task, err)
	em.finalize(task, status, exitCode, stdout, stderr, msg)
}

// runCompileStep runs the compile command, returning captured stderr on failure
func (em *ExecutionManager) runCompileStep(ctx context.Context, argv []string, scriptPath string) (string, error) {
	child := exec.CommandContext(ctx, argv[0], argv[1:]...)
	child.Dir = filepath.Dir(scriptPath)
	platform.PrepareCommand(child)
	child.Cancel = func() error { return platform.KillProcessTree(child.Process) }
	child.WaitDelay = childWaitDelay

	var stderr limitedBuffer
	stderr.limit = em.outputLimit
	child.Stderr = &stderr

	em.logger.Debug("Running compile step", "command", argv[0], "script", scriptPath)
	err := child.Run()
	return stderr.String(), err
}

// runChild spawns the child process and captures bounded stdout/stderr.
// The child runs in its own process group so cancel and timeout take down
// the whole tree; WaitDelay keeps pipes held by escaped descendants from
// blocking finalization.
func (em *ExecutionManager) runChild(ctx context.Context, argv []string, dir string) (string, string, int, error) {
	child := exec.CommandContext(ctx, argv[0], argv[1:]...)
	child.Dir = dir
	platform.PrepareCommand(child)
	child.Cancel = func() error { return platform.KillProcessTree(child.Process) }
	child.WaitDelay = childWaitDelay

	var stdout, stderr limitedBuffer
	stdout.limit = em.outputLimit
	stderr.limit = em.outputLimit
	child.Stdout = &stdout
	child.Stderr = &stderr

	err := child.Run()

	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return stdout.String(), stderr.String(), exitCode, err
}

// classifyFailure maps a child process error to a terminal status and message
func (em *ExecutionManager) classifyFailure(ctx context.Context, task *executionTask, err error) (types.ExecutionStatus, string) {
	em.mutex.RLock()
	cancelled := task.cancelled
	em.mutex.RUnlock()

	switch {
	case cancelled:
		return types.StatusCancelled, "cancelled by user"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return types.StatusTimeout, "process timed out and was terminated"
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return types.StatusError, fmt.Sprintf("command not found: %s", execErr.Name)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, exec.ErrNotFound) {
		return types.StatusError, fmt.Sprintf("command not found: %s", pathErr.Path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return types.StatusError, fmt.Sprintf("exited with code %d", exitErr.ExitCode())
	}

	return types.StatusError, err.Error()
}

// setStatus updates the task status and notifies listeners
func (em *ExecutionManager) setStatus(task *executionTask, status types.ExecutionStatus) {
	em.mutex.Lock()
	task.record.Status = status
	snapshot := task.record
	listeners := append([]StatusListener(nil), em.listeners...)
	em.mutex.Unlock()

	for _, listener := range listeners {
		listener(task.id, snapshot)
	}
}

// finalize completes the record, persists it and removes the task
func (em *ExecutionManager) finalize(task *executionTask, status types.ExecutionStatus, exitCode int, stdout, stderr, errorMsg string) {
	now := time.Now()

	em.mutex.Lock()
	task.record.Status = status
	task.record.ExitCode = exitCode
	task.record.Stdout = stdout
	task.record.Stderr = stderr
	task.record.ErrorMsg = errorMsg
	if task.record.StartedAt.IsZero() {
		task.record.StartedAt = now
	}
	task.record.FinishedAt = now
	task.record.DurationMS = now.Sub(task.record.StartedAt).Milliseconds()

	snapshot := task.record
	listeners := append([]StatusListener(nil), em.listeners...)
	limit := em.historyLimit
	persist := em.persistenceEnabled
	delete(em.active, task.id)
	em.mutex.Unlock()

	if persist {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := em.history.AppendRecord(ctx, &snapshot, limit); err != nil {
			// Persistence failures are non-fatal; keep the record in memory
			logging.LogError(em.logger, err, "finalize", map[string]any{
				"task_id": task.id,
			})
			em.appendMemory(snapshot)
		}
	} else {
		em.appendMemory(snapshot)
	}

	for _, listener := range listeners {
		listener(task.id, snapshot)
	}
}

// appendMemory keeps the in-memory fallback list within the history limit
func (em *ExecutionManager) appendMemory(record types.ExecutionRecord) {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	em.memHistory = append(em.memHistory, record)
	if overflow := len(em.memHistory) - em.historyLimit; overflow > 0 {
		em.memHistory = em.memHistory[overflow:]
	}
}

// Cancel kills the child process of a running task and marks it cancelled
func (em *ExecutionManager) Cancel(taskID string) error {
	em.mutex.Lock()
	task, ok := em.active[taskID]
	if ok {
		task.cancelled = true
	}
	em.mutex.Unlock()

	if !ok {
		return apperrors.HandleNotFound("Cancel", "task", taskID)
	}

	task.cancel()
	em.logger.Info("Cancelled execution task", "task_id", taskID)
	return nil
}

// TaskStatus returns the current status of an active task
func (em *ExecutionManager) TaskStatus(taskID string) (types.ExecutionStatus, bool) {
	em.mutex.RLock()
	defer em.mutex.RUnlock()

	task, ok := em.active[taskID]
	if !ok {
		return types.StatusIdle, false
	}
	return task.record.Status, true
}

// ActiveTasks returns snapshots of all in-flight runs
func (em *ExecutionManager) ActiveTasks() []types.ExecutionRecord {
	em.mutex.RLock()
	defer em.mutex.RUnlock()

	tasks := make([]types.ExecutionRecord, 0, len(em.active))
	for _, task := range em.active {
		tasks = append(tasks, task.record)
	}
	return tasks
}

// RecentRecords returns recent history, falling back to the in-memory list
// when persistence is unavailable
func (em *ExecutionManager) RecentRecords(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	em.mutex.RLock()
	persist := em.persistenceEnabled
	em.mutex.RUnlock()

	if persist {
		return em.history.ListRecent(ctx, limit)
	}

	em.mutex.RLock()
	defer em.mutex.RUnlock()

	if limit <= 0 || limit > len(em.memHistory) {
		limit = len(em.memHistory)
	}
	// Newest first, matching the repository ordering
	records := make([]types.ExecutionRecord, 0, limit)
	for i := len(em.memHistory) - 1; i >= len(em.memHistory)-limit; i-- {
		records = append(records, em.memHistory[i])
	}
	return records, nil
}

// Statistics computes aggregate stats, scanning the in-memory list when
// persistence is unavailable
func (em *ExecutionManager) Statistics(ctx context.Context) (*types.ExecStats, error) {
	em.mutex.RLock()
	persist := em.persistenceEnabled
	em.mutex.RUnlock()

	if persist {
		return em.history.Stats(ctx)
	}

	em.mutex.RLock()
	defer em.mutex.RUnlock()

	stats := &types.ExecStats{TotalRuns: int64(len(em.memHistory))}
	if stats.TotalRuns == 0 {
		return stats, nil
	}

	var successful int64
	var durationSum, durationCount int64
	runs := make(map[string]int64)
	for _, rec := range em.memHistory {
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
	for path, count := range runs {
		stats.MostExecuted = append(stats.MostExecuted, types.ScriptRuns{ScriptPath: path, Runs: count})
	}
	// Same ordering and cap as the SQL aggregate
	sort.Slice(stats.MostExecuted, func(i, j int) bool {
		if stats.MostExecuted[i].Runs != stats.MostExecuted[j].Runs {
			return stats.MostExecuted[i].Runs > stats.MostExecuted[j].Runs
		}
		return stats.MostExecuted[i].ScriptPath < stats.MostExecuted[j].ScriptPath
	})
	if len(stats.MostExecuted) > 10 {
		stats.MostExecuted = stats.MostExecuted[:10]
	}
	return stats, nil
}

// exitCodeOf extracts the exit code from an ExitError, 0 otherwise
func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 0
}

// limitedBuffer caps captured output at limit bytes, dropping the overflow
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	remaining := lb.limit - lb.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			lb.buf.Write(p[:remaining])
		} else {
			lb.buf.Write(p)
		}
	}
	// Report full write so the child never sees a pipe error
	return len(p), nil
}

func (lb *limitedBuffer) String() string {
	return lb.buf.String()
}
