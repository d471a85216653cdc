package worker

import (
	"context"
	"encoding/json"

	"deepcast/internal/command"
)

// Progress is one progress line emitted by a step worker. Percent is nil when
// the worker reported no completion estimate.
type Progress struct {
	Message string
	Percent *int
}

// ProgressFunc receives streamed progress lines while a step runs.
type ProgressFunc func(Progress)

// Worker executes one pipeline step. The subprocess implementation is the
// default; tests substitute in-process fakes without touching the orchestrator.
type Worker interface {
	Invoke(ctx context.Context, step string, args []command.Arg, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error)
}
