package jobs

import (
	"context"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/convert"
)

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateFailed   State = "failed"
	StateCanceled State = "canceled"
)

// Terminal reports whether a job in this state will never change again.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCanceled
}

// Result is what a finished task produced.
type Result struct {
	Files    []convert.AudioFile
	Complete string
}

// Task does the work of a job. It must call report as it makes progress
// and return promptly once ctx is canceled.
type Task func(ctx context.Context, report convert.Progress) (Result, error)

// Job is a snapshot of a submitted task.
type Job struct {
	ID       string              `json:"id"`
	State    State               `json:"state"`
	Progress float64             `json:"progress"`
	Message  string              `json:"message,omitempty"`
	Files    []convert.AudioFile `json:"files,omitempty"`
	Complete string              `json:"complete,omitempty"`
	Err      string              `json:"error,omitempty"`
	Created  time.Time           `json:"created"`
	Started  time.Time           `json:"started,omitempty"`
	Finished time.Time           `json:"finished,omitempty"`
}

// Update is sent to subscribers whenever a job changes.
type Update struct {
	ID       string  `json:"id"`
	State    State   `json:"state"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
	Err      string  `json:"error,omitempty"`
}

func (j Job) update() Update {
	return Update{ID: j.ID, State: j.State, Progress: j.Progress, Message: j.Message, Err: j.Err}
}
