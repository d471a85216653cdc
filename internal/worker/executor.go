package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"deepcast/internal/command"
	"deepcast/internal/services"
)

// Executor exposes one typed operation per pipeline step on top of a Worker.
// All operations except Fetch receive the previous step's JSON document.
type Executor struct {
	worker Worker
	retry  RetryPolicy
}

// NewExecutor wires an Executor to the given Worker. The retry policy applies
// to the fetch step only.
func NewExecutor(w Worker, retry RetryPolicy) *Executor {
	return &Executor{worker: w, retry: retry}
}

// FetchParams selects the episode to download.
type FetchParams struct {
	Show          string
	RSSURL        string
	YouTubeURL    string
	Date          string
	TitleContains string
}

// Fetch resolves and downloads the episode, returning episode metadata. Fetch
// is the only step with an automatic retry policy; downloads are idempotent.
func (e *Executor) Fetch(ctx context.Context, p FetchParams, progress ProgressFunc) (json.RawMessage, error) {
	var args []command.Arg
	if p.Show != "" {
		args = append(args, command.Value("--show", p.Show))
	}
	if p.RSSURL != "" {
		args = append(args, command.Value("--rss-url", p.RSSURL))
	}
	if p.YouTubeURL != "" {
		args = append(args, command.Value("--youtube-url", p.YouTubeURL))
	}
	if p.Date != "" {
		args = append(args, command.Value("--date", p.Date))
	}
	if p.TitleContains != "" {
		args = append(args, command.Value("--title-contains", p.TitleContains))
	}
	var result json.RawMessage
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var invokeErr error
		result, invokeErr = e.worker.Invoke(ctx, "fetch", args, nil, progress)
		return invokeErr
	})
	return result, err
}

// TranscodeParams tunes audio conversion.
type TranscodeParams struct {
	Preset string
}

// Transcode converts the fetched media to ASR-ready audio.
func (e *Executor) Transcode(ctx context.Context, p TranscodeParams, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	if err := requireInputFile("transcode", input); err != nil {
		return nil, err
	}
	var args []command.Arg
	if p.Preset != "" {
		args = append(args, command.Value("--preset", p.Preset))
	}
	return e.worker.Invoke(ctx, "transcode", args, input, progress)
}

// TranscribeParams selects the ASR model and provider.
type TranscribeParams struct {
	Model    string
	Compute  string
	Provider string
	Preset   string
}

// Transcribe runs speech-to-text over the transcoded audio.
func (e *Executor) Transcribe(ctx context.Context, p TranscribeParams, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	if err := requireInputFile("transcribe", input); err != nil {
		return nil, err
	}
	var args []command.Arg
	if p.Model != "" {
		args = append(args, command.Value("--model", p.Model))
	}
	if p.Compute != "" {
		args = append(args, command.Value("--compute", p.Compute))
	}
	if p.Provider != "" {
		args = append(args, command.Value("--provider", p.Provider))
	}
	if p.Preset != "" {
		args = append(args, command.Value("--preset", p.Preset))
	}
	return e.worker.Invoke(ctx, "transcribe", args, input, progress)
}

// PreprocessParams tunes transcript cleanup.
type PreprocessParams struct {
	Track   string
	Restore bool
}

// Preprocess cleans the raw transcript, optionally for one dual-mode track.
func (e *Executor) Preprocess(ctx context.Context, p PreprocessParams, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	var args []command.Arg
	if p.Track != "" {
		args = append(args, command.Value("--track", p.Track))
	}
	if p.Restore {
		args = append(args, command.Flag("--restore"))
	}
	return e.worker.Invoke(ctx, "preprocess", args, input, progress)
}

// Align adds word-level timestamps via forced alignment.
func (e *Executor) Align(ctx context.Context, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	return e.worker.Invoke(ctx, "align", nil, input, progress)
}

// DiarizeParams tunes speaker labeling.
type DiarizeParams struct {
	MinSpeakers int
	MaxSpeakers int
}

// Diarize labels transcript segments with speaker identity.
func (e *Executor) Diarize(ctx context.Context, p DiarizeParams, input json.RawMessage, progress ProgressFunc) (json.RawMessage, error) {
	var args []command.Arg
	if p.MinSpeakers > 0 {
		args = append(args, command.Value("--min-speakers", strconv.Itoa(p.MinSpeakers)))
	}
	if p.MaxSpeakers > 0 {
		args = append(args, command.Value("--max-speakers", strconv.Itoa(p.MaxSpeakers)))
	}
	return e.worker.Invoke(ctx, "diarize", args, input, progress)
}

// requireInputFile rejects the invocation before any subprocess starts when
// the input document references an audio file that is not on disk.
func requireInputFile(step string, input json.RawMessage) error {
	if len(input) == 0 {
		return nil
	}
	var probe struct {
		AudioPath string `json:"audio_path"`
		MediaPath string `json:"media_path"`
	}
	if err := json.Unmarshal(input, &probe); err != nil {
		return nil
	}
	for _, path := range []string{probe.AudioPath, probe.MediaPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrValidation, step, "check input", "input file missing: "+path, nil)
		}
	}
	return nil
}
