package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"deepcast/internal/pipeline"
)

// consoleReporter renders pipeline progress to the terminal. On a TTY it
// drives one progress bar per step; otherwise it falls back to plain lines so
// logs stay readable when piped.
type consoleReporter struct {
	mu   sync.Mutex
	out  io.Writer
	tty  bool
	step string
	bar  *progressbar.ProgressBar
}

func newConsoleReporter(out io.Writer) *consoleReporter {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleReporter{out: out, tty: tty}
}

// Report implements pipeline.Reporter.
func (r *consoleReporter) Report(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tty {
		if e.Percent != nil {
			fmt.Fprintf(r.out, "%s: %s (%d%%)\n", e.Step, e.Message, *e.Percent)
		} else {
			fmt.Fprintf(r.out, "%s: %s\n", e.Step, e.Message)
		}
		return
	}

	if e.Step != r.step {
		r.finishBar()
		r.step = e.Step
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(e.Step),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
	}
	if e.Percent != nil {
		_ = r.bar.Set(*e.Percent)
	}
	switch e.Message {
	case "completed", "resumed":
		r.finishBar()
		fmt.Fprintf(r.out, "%s: %s\n", e.Step, e.Message)
	}
}

func (r *consoleReporter) finishBar() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
	r.step = ""
}

func (r *consoleReporter) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBar()
}
