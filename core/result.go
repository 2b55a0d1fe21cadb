package core

import "time"

// RunReport is the outcome of one worker's run.
//
// A failed run carries the last command, the error kind and the iteration
// count; a completed run carries total iterations and elapsed time.
type RunReport struct {
	Target      string        `json:"target"`
	State       WorkerState   `json:"state"`
	Iterations  int           `json:"iterations"`
	Elapsed     time.Duration `json:"elapsed"`
	LastCommand string        `json:"lastCommand,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
	ErrorKind   Kind          `json:"errorKind,omitempty"`
}

// Failed reports whether the run ended with an unrecovered error.
func (r RunReport) Failed() bool {
	return r.State == StateFailed
}
