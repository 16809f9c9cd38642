package scheduler

import "time"

// Status is the run-state of the scheduler.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
)

// Mode selects how a run advances through the candidate queue.
type Mode string

const (
	// ModeManual advances one case per explicit ProcessNextCase call.
	ModeManual Mode = "manual"

	// ModeAutomatic loops over the queue unattended until exhaustion
	// or Stop.
	ModeAutomatic Mode = "automatic"
)

// RunState tracks one start-to-stop lifecycle of the scheduler. It is
// created by Start, mutated only by the scheduler, and replaced on the
// next Start. The mode is fixed for the lifetime of the run.
type RunState struct {
	RunID          string
	Status         Status
	Mode           Mode
	CurrentCaseID  string
	ProcessedCount int
	Errors         []string
	StartedAt      time.Time
	EndedAt        *time.Time
}
