package types

import "time"

// ExecutionStatus is the small fixed set of states a run moves through
type ExecutionStatus string

const (
	StatusIdle      ExecutionStatus = "idle"
	StatusRunning   ExecutionStatus = "running"
	StatusSuccess   ExecutionStatus = "success"
	StatusError     ExecutionStatus = "error"
	StatusTimeout   ExecutionStatus = "timeout"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a final state
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is one of the known states
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusSuccess, StatusError, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}

// ExecutionRecord captures one historical run's metadata and outcome
type ExecutionRecord struct {
	ID         int64           `json:"id"`
	TaskID     string          `json:"taskId"`
	ScriptPath string          `json:"scriptPath"`
	Args       []string        `json:"args"`
	Status     ExecutionStatus `json:"status"`
	ExitCode   int             `json:"exitCode"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
	ErrorMsg   string          `json:"errorMsg"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	DurationMS int64           `json:"durationMs"`
}

// ExecStats holds aggregate statistics computed over the execution history
type ExecStats struct {
	TotalRuns       int64        `json:"totalRuns"`
	SuccessRate     float64      `json:"successRate"` // percentage, 0 when no runs
	AverageDuration float64      `json:"averageDuration"`
	MostExecuted    []ScriptRuns `json:"mostExecuted"`
}

// ScriptRuns pairs a script path with its run count
type ScriptRuns struct {
	ScriptPath string `json:"scriptPath"`
	Runs       int64  `json:"runs"`
}
