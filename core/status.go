package core

// WorkerState is the lifecycle state of one execution worker.
type WorkerState string

const (
	StateIdle      WorkerState = "idle"
	StateRunning   WorkerState = "running"
	StatePaused    WorkerState = "paused"
	StateStopped   WorkerState = "stopped"
	StateCompleted WorkerState = "completed"
	StateFailed    WorkerState = "failed"
)

// Terminal reports whether the state is final for a run.
func (s WorkerState) Terminal() bool {
	switch s {
	case StateStopped, StateCompleted, StateFailed:
		return true
	}
	return false
}
