package pipeline

import "sync"

// Event is one progress notification: a step transition or a fine-grained
// in-step update with an optional completion percentage.
type Event struct {
	Step    string
	Message string
	Percent *int
}

// Reporter receives progress events. Reporters are invoked synchronously in
// the step's completion path and never concurrently; implementations that
// need to decouple should hand off to their own goroutine or channel.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a plain function to the Reporter interface. This is the
// single registration shape: whether the caller's handler is synchronous or
// dispatches asynchronously is the handler's own business, detected nowhere.
type ReporterFunc func(Event)

// Report implements Reporter.
func (f ReporterFunc) Report(e Event) {
	if f != nil {
		f(e)
	}
}

// NopReporter discards all events.
var NopReporter = ReporterFunc(nil)

// syncReporter serializes Report calls so concurrently dispatched steps can
// share one downstream reporter without requiring it to be goroutine-safe.
type syncReporter struct {
	mu   sync.Mutex
	next Reporter
}

func (s *syncReporter) Report(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Report(e)
}
