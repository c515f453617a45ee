package pipeline

import (
	"time"

	"github.com/google/uuid"

	"voicegen/internal/pkg/voicegen/output"
)

type State int

const (
	Idle State = iota
	Preparing
	Synthesizing
	PostProcessing
	Complete
	Failed
)

var stateNames = map[State]string{
	Idle:           "idle",
	Preparing:      "preparing",
	Synthesizing:   "synthesizing",
	PostProcessing: "postprocessing",
	Complete:       "complete",
	Failed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Active reports whether a job in this state still owns the worker.
func (s State) Active() bool {
	return s == Preparing || s == Synthesizing || s == PostProcessing
}

type Job struct {
	ID        uuid.UUID
	Request   Request
	State     State
	Progress  float64
	Err       error
	Artifact  *output.Artifact
	StartedAt time.Time
	UpdatedAt time.Time
}

// Observer is told about every job transition. It runs on the UI loop and
// must not block.
type Observer interface {
	JobChanged(job Job)
}

type ObserverFunc func(job Job)

func (f ObserverFunc) JobChanged(job Job) {
	f(job)
}
