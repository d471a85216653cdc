package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"deepcast/internal/logging"
	"deepcast/internal/services"
	"deepcast/internal/services/llm"
	"deepcast/internal/transcript"
)

// Completer is the slice of the LLM client the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Validate() error
}

// Limits tunes chunking and map-phase concurrency.
type Limits struct {
	// ChunkChars is the per-chunk character budget.
	ChunkChars int
	// MapConcurrency caps simultaneously in-flight map calls regardless of
	// chunk count.
	MapConcurrency int
}

// Options carries per-run analysis settings.
type Options struct {
	AnalysisType string
	Model        string
	Temperature  *float64
	Structured   bool
	Track        string
}

// Brief is the persisted result of one deepcast analysis.
type Brief struct {
	AnalysisType string          `json:"analysis_type"`
	Model        string          `json:"model,omitempty"`
	Track        string          `json:"track,omitempty"`
	Markdown     string          `json:"markdown"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Chunks       int             `json:"chunks"`
}

// ProgressFunc receives fine-grained analysis progress.
type ProgressFunc func(message string, percent *int)

// Analyzer runs the map-reduce analysis over a transcript. It holds no state
// between runs; every analysis is a pure function of its inputs.
type Analyzer struct {
	client Completer
	limits Limits
	logger *slog.Logger
}

// New constructs an Analyzer.
func New(client Completer, limits Limits, logger *slog.Logger) *Analyzer {
	if limits.ChunkChars <= 0 {
		limits.ChunkChars = 24000
	}
	if limits.MapConcurrency <= 0 {
		limits.MapConcurrency = 3
	}
	return &Analyzer{
		client: client,
		limits: limits,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// Analyze chunks the transcript, maps each chunk through one LLM call with
// bounded concurrency, and reduces the ordered map outputs into one brief.
func (a *Analyzer) Analyze(ctx context.Context, doc *transcript.Document, opts Options, progress ProgressFunc) (*Brief, error) {
	if err := a.client.Validate(); err != nil {
		return nil, err
	}

	text, err := transcript.RenderText(doc)
	if err != nil {
		return nil, err
	}

	analysisType := strings.TrimSpace(opts.AnalysisType)
	if analysisType == "" {
		analysisType = "analysis"
	}

	chunks := SplitIntoChunks(text, a.limits.ChunkChars)
	a.logger.Debug("transcript chunked",
		logging.Int("chunks", len(chunks)),
		logging.Int("chars", len(text)),
		logging.Int("budget", a.limits.ChunkChars),
	)

	mapped, err := a.mapPhase(ctx, chunks, analysisType, opts, progress)
	if err != nil {
		return nil, services.Wrap(services.ErrAI, "deepcast", "map phase failed", "", err)
	}

	reduced, err := a.reducePhase(ctx, mapped, analysisType, opts, progress)
	if err != nil {
		return nil, services.Wrap(services.ErrAI, "deepcast", "reduce phase failed", "", err)
	}

	brief := &Brief{
		AnalysisType: analysisType,
		Model:        opts.Model,
		Track:        opts.Track,
		Markdown:     reduced,
		Chunks:       len(chunks),
	}
	if opts.Structured {
		brief.Markdown, brief.Payload = ExtractStructured(reduced)
	}
	return brief, nil
}

// mapPhase runs one call per chunk under the concurrency ceiling. Results
// land at their chunk's index so output order matches chunk order no matter
// when each call completes.
func (a *Analyzer) mapPhase(ctx context.Context, chunks []string, analysisType string, opts Options, progress ProgressFunc) ([]string, error) {
	if len(chunks) == 1 {
		report(progress, "analyzing transcript", nil)
		out, err := a.client.Complete(ctx, llm.Request{
			SystemPrompt: fmt.Sprintf(mapSystemPrompt, analysisType),
			UserPrompt:   chunks[0],
			Model:        opts.Model,
			Temperature:  opts.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	}

	results := make([]string, len(chunks))
	var completed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.limits.MapConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := a.client.Complete(gCtx, llm.Request{
				SystemPrompt: fmt.Sprintf(mapSystemPrompt, analysisType),
				UserPrompt:   chunk,
				Model:        opts.Model,
				Temperature:  opts.Temperature,
			})
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = out
			done := int(completed.Add(1))
			percent := done * 100 / len(chunks)
			report(progress, fmt.Sprintf("analyzed section %d of %d", done, len(chunks)), &percent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reducePhase synthesizes the ordered map outputs into one result.
func (a *Analyzer) reducePhase(ctx context.Context, mapped []string, analysisType string, opts Options, progress ProgressFunc) (string, error) {
	if len(mapped) == 1 && !opts.Structured {
		return mapped[0], nil
	}

	report(progress, "synthesizing final result", nil)
	system := fmt.Sprintf(reduceSystemPrompt, strings.TrimSpace(mapOutputSeparator), analysisType)
	if opts.Structured {
		system += structuredSuffix
	}
	return a.client.Complete(ctx, llm.Request{
		SystemPrompt: system,
		UserPrompt:   strings.Join(mapped, mapOutputSeparator),
		Model:        opts.Model,
		Temperature:  opts.Temperature,
	})
}

func report(progress ProgressFunc, message string, percent *int) {
	if progress != nil {
		progress(message, percent)
	}
}
