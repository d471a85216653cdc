package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"deepcast/internal/command"
	"deepcast/internal/logging"
	"deepcast/internal/services"
)

var commandContext = exec.CommandContext

// maxResultLine bounds a single stdout line; transcripts serialized on one
// line can be large.
const maxResultLine = 32 << 20

// Subprocess invokes step workers as external processes speaking
// newline-delimited JSON over stdio.
type Subprocess struct {
	builder command.Builder
	logger  *slog.Logger
}

// NewSubprocess constructs the default subprocess-backed Worker.
func NewSubprocess(builder command.Builder, logger *slog.Logger) *Subprocess {
	return &Subprocess{
		builder: builder,
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

type progressLine struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Percent *int   `json:"percent"`
}

// Invoke runs one step to completion. The input document, when present, is
// written to the worker's stdin and the stream closed. Stdout lines tagged
// {"type":"progress"} are forwarded to progress; the last non-progress JSON
// line (or the whole stdout when no progress lines appear) is the result.
func (s *Subprocess) Invoke(ctx context.Context, step string, args []command.Arg, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	argv := s.builder.Build(step, args...)
	cmd := commandContext(ctx, argv[0], argv[1:]...) //nolint:gosec

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if len(input) > 0 {
		cmd.Stdin = bytes.NewReader(input)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, step, "stdout pipe", "", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(classify(step), step, "start worker", "", err)
	}

	var (
		lastResult []byte
		allOutput  bytes.Buffer
		sawLines   bool
	)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxResultLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		sawLines = true
		allOutput.Write(line)
		allOutput.WriteByte('\n')

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var p progressLine
		if err := json.Unmarshal(trimmed, &p); err == nil && p.Type == "progress" {
			if progress != nil {
				progress(Progress{Message: p.Message, Percent: p.Percent})
			}
			continue
		}
		lastResult = append(lastResult[:0], trimmed...)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Drain so Wait does not block on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(allOutput.String())
		}
		s.logger.Debug("worker failed",
			logging.String(logging.FieldStep, step),
			logging.String("detail", detail),
			logging.Error(waitErr),
		)
		return nil, services.Wrap(classify(step), step, "worker exited", detail, waitErr)
	}
	if scanErr != nil {
		return nil, services.Wrap(services.ErrExternalTool, step, "read worker output", "", scanErr)
	}

	result := lastResult
	if result == nil {
		result = bytes.TrimSpace(allOutput.Bytes())
	}
	if len(result) == 0 || !json.Valid(result) {
		msg := "worker produced no parseable JSON result"
		if !sawLines {
			msg = "worker produced no output"
		}
		return nil, services.Wrap(services.ErrExternalTool, step, "parse worker output", msg, nil)
	}
	return json.RawMessage(append([]byte(nil), result...)), nil
}

// classify maps a failed step to its error class: fetch failures are
// transport problems, transcode failures are audio problems, everything else
// is a generic worker failure.
func classify(step string) error {
	switch step {
	case "fetch":
		return services.ErrNetwork
	case "transcode":
		return services.ErrAudio
	default:
		return services.ErrExternalTool
	}
}
