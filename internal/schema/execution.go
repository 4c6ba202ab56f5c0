package schema

import "fmt"

// ExecutionStatus is the lifecycle state of a task execution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusPaused    ExecutionStatus = "paused"
	StatusCompleted ExecutionStatus = "completed"
)

// IsActive reports whether the status occupies the single active slot.
func (s ExecutionStatus) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// CanTransition reports whether an execution may move from s to next.
//
//	running   -> paused | completed
//	paused    -> running | completed
//	completed -> (terminal)
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	switch s {
	case StatusRunning:
		return next == StatusPaused || next == StatusCompleted
	case StatusPaused:
		return next == StatusRunning || next == StatusCompleted
	default:
		return false
	}
}

// TaskExecution is one timed run of a task template.
type TaskExecution struct {
	ID             string `json:"id"`
	TaskTemplateID string `json:"taskTemplateId"`
	TaskName       string `json:"taskName"` // template name at start time
	StartTime      int64  `json:"startTime"`
	EndTime        int64  `json:"endTime,omitempty"`
	PausedTime     int64  `json:"pausedTime,omitempty"` // set only while paused

	// TotalPausedDuration is cumulative paused time in seconds.
	TotalPausedDuration float64         `json:"totalPausedDuration"`
	ActualDuration      int             `json:"actualDuration,omitempty"` // minutes
	ActualReward        float64         `json:"actualReward"`
	Status              ExecutionStatus `json:"status"`
}

// Transition moves the execution to next, or returns an error naming both
// states if the move is not allowed.
func (e *TaskExecution) Transition(next ExecutionStatus) error {
	if !e.Status.CanTransition(next) {
		return fmt.Errorf("cannot move execution %s from %s to %s", e.ID, e.Status, next)
	}
	e.Status = next
	return nil
}

// ActiveExecution returns the execution currently running or paused, or nil.
func (d *Document) ActiveExecution() *TaskExecution {
	for i := range d.TaskExecutions {
		if d.TaskExecutions[i].Status.IsActive() {
			return &d.TaskExecutions[i]
		}
	}
	return nil
}
