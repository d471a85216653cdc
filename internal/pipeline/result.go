package pipeline

import (
	"sync"
	"time"
)

// StepOutcome records one executed or resumed step in completion order.
type StepOutcome struct {
	Step    string `json:"step"`
	Resumed bool   `json:"resumed"`
}

// Result accumulates the state of one pipeline run. It is created at run
// start, mutated until the run terminates, and returned to the caller in both
// the success and the failure path. Steps that dispatch concurrently record
// their outcomes through the same Result, so mutation is mutex-guarded.
type Result struct {
	RunID          string            `json:"run_id"`
	Workdir        string            `json:"workdir"`
	Duration       float64           `json:"duration_seconds"`
	StepsCompleted []StepOutcome     `json:"steps_completed"`
	Artifacts      map[string]string `json:"artifacts"`
	Errors         []string          `json:"errors"`

	mu sync.Mutex
}

func newResult(runID, workdir string) *Result {
	return &Result{
		RunID:     runID,
		Workdir:   workdir,
		Artifacts: make(map[string]string),
	}
}

func (r *Result) recordStep(step string, resumed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StepsCompleted = append(r.StepsCompleted, StepOutcome{Step: step, Resumed: resumed})
}

func (r *Result) recordArtifact(key, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Artifacts[key] = path
}

func (r *Result) recordError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err.Error())
}

func (r *Result) finish(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(start).Seconds()
}

// Failed reports whether the run recorded any error.
func (r *Result) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) > 0
}
