package domain

import "time"

// TaskStatus describes the lifecycle state of a background task.
type TaskStatus string

// Available task statuses.
const (
	// TaskStatusPending means the task is queued but not yet started.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning means a worker is executing the task.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusCompleted means the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed means the task function returned an error.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusCancelled means the task was cancelled before or during execution.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true once the task can no longer change state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is recognised.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskPriority orders tasks in the processor queue. Higher values are
// dequeued first; within a level dispatch is FIFO.
type TaskPriority int

// Available task priorities.
const (
	// PriorityLow is for housekeeping work.
	PriorityLow TaskPriority = iota

	// PriorityNormal is for initial folder scans.
	PriorityNormal

	// PriorityHigh is for interactive file events.
	PriorityHigh

	// PriorityUrgent preempts all queued work.
	PriorityUrgent
)

// IsValid returns true if the priority is recognised.
func (p TaskPriority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// String returns a human-readable priority name.
func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ProcessingTask tracks one unit of background work from submission to
// its terminal state. Created on submit, mutated only by the executing
// worker, retained until age-based cleanup.
type ProcessingTask struct {
	// ID is the unique task identifier.
	ID string

	// Name is a human-readable label (usually the file path).
	Name string

	// Kind categorises the task ("ingest", "remove", "rescan", ...).
	Kind string

	// Priority is the scheduling priority.
	Priority TaskPriority

	// Status is the current lifecycle state.
	Status TaskStatus

	// Progress is the completion percentage (0-100).
	Progress float64

	// CurrentStep and TotalSteps describe pipeline position.
	CurrentStep int
	TotalSteps  int

	// CreatedAt is when the task was submitted.
	CreatedAt time.Time

	// StartedAt is when a worker picked the task up.
	StartedAt time.Time

	// CompletedAt is when the task reached a terminal state.
	CompletedAt time.Time

	// ErrorMessage holds the failure reason for Failed tasks.
	ErrorMessage string

	// Result is the task function's return value.
	Result any

	// Metadata contains submitter-defined key-value pairs.
	Metadata map[string]any
}

// Duration returns the wall-clock execution time, zero until completion.
func (t *ProcessingTask) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// ProgressUpdate is a structured status event emitted on every state
// transition of a ProcessingTask or FileRecord. Consumed by external
// surfaces (CLI output, MCP, SSE).
type ProgressUpdate struct {
	// TaskID identifies the task, empty for file-level updates.
	TaskID string `json:"task_id,omitempty"`

	// Path identifies the file, empty for task-level updates.
	Path string `json:"path,omitempty"`

	// Progress is the completion percentage (0-100).
	Progress float64 `json:"progress"`

	// Message is a human-readable description of the transition.
	Message string `json:"message"`

	// Status is the new task status.
	Status TaskStatus `json:"status"`
}

// ProcessorStats aggregates completed work across the pool.
type ProcessorStats struct {
	// Submitted is the number of tasks accepted.
	Submitted int

	// Completed is the number of tasks that finished successfully.
	Completed int

	// Failed is the number of tasks that returned an error.
	Failed int

	// Cancelled is the number of tasks cancelled before completion.
	Cancelled int

	// TotalDuration is the summed execution time of completed tasks.
	TotalDuration time.Duration

	// AverageDuration is TotalDuration / Completed, zero when none.
	AverageDuration time.Duration
}
