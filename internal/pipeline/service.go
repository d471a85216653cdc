package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"deepcast/internal/analysis"
	"deepcast/internal/artifacts"
	"deepcast/internal/config"
	"deepcast/internal/logging"
	"deepcast/internal/services"
	"deepcast/internal/transcript"
	"deepcast/internal/worker"
)

// Service drives one episode through the step machine
// Fetch → Transcode → Transcribe → [Preprocess] → {Align, Diarize} → [Deepcast],
// with dual mode forking after transcription. Every artifact-producing node
// resolves through the artifact store first, so interrupted runs resume from
// whatever is missing.
type Service struct {
	cfg      *config.Config
	exec     *worker.Executor
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

// New constructs a pipeline service.
func New(cfg *config.Config, exec *worker.Executor, analyzer *analysis.Analyzer, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		exec:     exec,
		analyzer: analyzer,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process runs one episode to completion or first failure. Artifacts already
// on disk are left intact on failure so a retry resumes past them. The
// returned Result is populated in both paths.
func (s *Service) Process(ctx context.Context, req config.Pipeline, reporter Reporter) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	workdir := req.ResolveWorkdir(s.cfg.Paths.WorkdirRoot)
	result := newResult(runID, workdir)
	defer result.finish(start)

	if reporter == nil {
		reporter = NopReporter
	}
	reporter = &syncReporter{next: reporter}

	ctx = services.WithRequestID(ctx, runID)
	ctx = services.WithEpisode(ctx, req.Label())
	logger := logging.WithContext(ctx, s.logger)

	if err := req.Validate(); err != nil {
		result.recordError(err)
		return result, err
	}

	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("workdir", workdir),
		logging.Bool("dual", req.Dual),
	)

	resolver := artifacts.NewResolver(artifacts.NewFSStore(workdir), logger)
	run := &episodeRun{
		svc:      s,
		req:      req,
		resolver: resolver,
		reporter: reporter,
		result:   result,
		logger:   logger,
	}

	if err := run.execute(ctx); err != nil {
		result.recordError(err)
		logger.Error("pipeline failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.Error(err),
		)
		return result, err
	}

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("steps", len(result.StepsCompleted)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// episodeRun holds the per-run wiring so step helpers stay short.
type episodeRun struct {
	svc      *Service
	req      config.Pipeline
	resolver *artifacts.Resolver
	reporter Reporter
	result   *Result
	logger   *slog.Logger
}

func (r *episodeRun) execute(ctx context.Context) error {
	episodeMeta, err := r.runStep(ctx, artifacts.Key{Step: artifacts.StepFetch}, func(ctx context.Context) (json.RawMessage, error) {
		return r.svc.exec.Fetch(ctx, worker.FetchParams{
			Show:          r.req.Show,
			RSSURL:        r.req.RSSURL,
			YouTubeURL:    r.req.YouTubeURL,
			Date:          r.req.Date,
			TitleContains: r.req.TitleContains,
		}, r.stepProgress(artifacts.StepFetch))
	})
	if err != nil {
		return err
	}

	audioMeta, err := r.runStep(ctx, artifacts.Key{Step: artifacts.StepTranscode}, func(ctx context.Context) (json.RawMessage, error) {
		return r.svc.exec.Transcode(ctx, worker.TranscodeParams{Preset: r.req.Preset}, episodeMeta, r.stepProgress(artifacts.StepTranscode))
	})
	if err != nil {
		return err
	}

	variant := artifacts.Variant(r.req.EffectiveModel(), "")
	rawTranscript, err := r.runTranscribe(ctx, variant, audioMeta)
	if err != nil {
		return err
	}

	if r.req.Dual {
		return r.executeDual(ctx, rawTranscript)
	}

	current := rawTranscript
	if r.req.Preprocess {
		current, err = r.runStep(ctx, artifacts.Key{Step: artifacts.StepPreprocess, Variant: variant}, func(ctx context.Context) (json.RawMessage, error) {
			return r.svc.exec.Preprocess(ctx, worker.PreprocessParams{Restore: r.req.Restore}, current, r.stepProgress(artifacts.StepPreprocess))
		})
		if err != nil {
			return err
		}
	}

	current, err = r.runEnhancements(ctx, variant, current)
	if err != nil {
		return err
	}

	if r.req.Deepcast {
		if _, err := r.runDeepcast(ctx, "", current); err != nil {
			return err
		}
	}

	return r.writeLatest(current)
}

// runEnhancements applies the {Align, Diarize} joined node: both requested
// means concurrent dispatch with the diarized document as merge carrier, one
// requested runs alone, neither passes the transcript through unchanged.
func (r *episodeRun) runEnhancements(ctx context.Context, variant string, current json.RawMessage) (json.RawMessage, error) {
	switch {
	case r.req.Align && r.req.Diarize:
		var alignedRaw, diarizedRaw json.RawMessage
		results, err := worker.RunConcurrent(ctx,
			func(ctx context.Context) (json.RawMessage, error) {
				return r.runStep(ctx, artifacts.Key{Step: artifacts.StepAlign, Variant: variant}, func(ctx context.Context) (json.RawMessage, error) {
					return r.svc.exec.Align(ctx, current, r.stepProgress(artifacts.StepAlign))
				})
			},
			func(ctx context.Context) (json.RawMessage, error) {
				return r.runStep(ctx, artifacts.Key{Step: artifacts.StepDiarize, Variant: variant}, func(ctx context.Context) (json.RawMessage, error) {
					return r.svc.exec.Diarize(ctx, worker.DiarizeParams{}, current, r.stepProgress(artifacts.StepDiarize))
				})
			},
		)
		if err != nil {
			return nil, err
		}
		alignedRaw, diarizedRaw = results[0], results[1]

		aligned, err := transcript.Decode(alignedRaw)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, artifacts.StepAlign, "decode result", "", err)
		}
		diarized, err := transcript.Decode(diarizedRaw)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, artifacts.StepDiarize, "decode result", "", err)
		}
		return transcript.Encode(transcript.MergeAlignDiarize(aligned, diarized))

	case r.req.Align:
		return r.runStep(ctx, artifacts.Key{Step: artifacts.StepAlign, Variant: variant}, func(ctx context.Context) (json.RawMessage, error) {
			return r.svc.exec.Align(ctx, current, r.stepProgress(artifacts.StepAlign))
		})

	case r.req.Diarize:
		return r.runStep(ctx, artifacts.Key{Step: artifacts.StepDiarize, Variant: variant}, func(ctx context.Context) (json.RawMessage, error) {
			return r.svc.exec.Diarize(ctx, worker.DiarizeParams{}, current, r.stepProgress(artifacts.StepDiarize))
		})

	default:
		return current, nil
	}
}

// runTranscribe is runStep with the transcription model fallback applied.
func (r *episodeRun) runTranscribe(ctx context.Context, variant string, audioMeta json.RawMessage) (json.RawMessage, error) {
	step := artifacts.StepTranscribe
	r.reporter.Report(Event{Step: step, Message: "started"})

	doc, resumed, err := r.resolver.ResolveTranscript(ctx, variant, func(ctx context.Context) (json.RawMessage, error) {
		return r.svc.exec.Transcribe(ctx, worker.TranscribeParams{
			Model:    r.req.EffectiveModel(),
			Compute:  r.req.Compute,
			Provider: r.req.ASRProvider,
			Preset:   r.req.Preset,
		}, audioMeta, r.stepProgress(step))
	})
	if err != nil {
		return nil, err
	}
	r.completeStep(step, artifacts.Key{Step: step, Variant: variant}, resumed)
	return doc, nil
}

// runDeepcast analyzes the current transcript for one track ("" outside dual
// mode) and persists the brief as an artifact.
func (r *episodeRun) runDeepcast(ctx context.Context, track string, current json.RawMessage) (json.RawMessage, error) {
	variant := artifacts.Variant(r.deepcastModelName(), track)
	key := artifacts.Key{Step: artifacts.StepDeepcast, Variant: variant}
	return r.runStep(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		doc, err := transcript.Decode(current)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, artifacts.StepDeepcast, "decode transcript", "", err)
		}
		opts := r.analysisOptions(track)
		brief, err := r.svc.analyzer.Analyze(ctx, doc, opts, func(message string, percent *int) {
			r.reporter.Report(Event{Step: artifacts.StepDeepcast, Message: message, Percent: percent})
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(brief)
	})
}

func (r *episodeRun) analysisOptions(track string) analysis.Options {
	opts := analysis.Options{
		AnalysisType: r.req.AnalysisType,
		Model:        r.req.DeepcastModel,
		Track:        track,
		Structured:   true,
	}
	if r.req.DeepcastTemp > 0 {
		temp := r.req.DeepcastTemp
		opts.Temperature = &temp
	}
	return opts
}

// deepcastModelName names the artifact variant for analysis briefs; the
// configured default model applies when the request does not override it.
func (r *episodeRun) deepcastModelName() string {
	if r.req.DeepcastModel != "" {
		return r.req.DeepcastModel
	}
	return r.svc.cfg.LLM.Model
}

// runStep resolves one artifact-producing node: resume when the artifact
// exists, compute and persist otherwise, reporting transitions either way.
func (r *episodeRun) runStep(ctx context.Context, key artifacts.Key, compute artifacts.ComputeFunc) (json.RawMessage, error) {
	r.reporter.Report(Event{Step: key.Step, Message: "started"})
	doc, resumed, err := r.resolver.ResolveOrCompute(ctx, key, compute)
	if err != nil {
		return nil, err
	}
	r.completeStep(key.Step, key, resumed)
	return doc, nil
}

func (r *episodeRun) completeStep(step string, key artifacts.Key, resumed bool) {
	r.result.recordStep(step+variantSuffix(key.Variant), resumed)
	r.result.recordArtifact(artifactKey(key), r.resolver.Store().Path(key))
	message := "completed"
	if resumed {
		message = "resumed"
	}
	r.reporter.Report(Event{Step: step, Message: message})
	r.logger.Info("step "+message,
		logging.String(logging.FieldStep, step),
		logging.String("variant", key.Variant),
		logging.Bool("resumed", resumed),
	)
}

func (r *episodeRun) writeLatest(current json.RawMessage) error {
	store, ok := r.resolver.Store().(*artifacts.FSStore)
	if !ok {
		return nil
	}
	if err := store.PutLatest(current); err != nil {
		return err
	}
	r.result.recordArtifact("latest", filepath.Join(store.Workdir(), artifacts.LatestName))
	return nil
}

// stepProgress adapts worker progress lines onto the run's reporter.
func (r *episodeRun) stepProgress(step string) worker.ProgressFunc {
	return func(p worker.Progress) {
		r.reporter.Report(Event{Step: step, Message: p.Message, Percent: p.Percent})
	}
}

func artifactKey(key artifacts.Key) string {
	return key.Step + variantSuffix(key.Variant)
}

func variantSuffix(variant string) string {
	if variant == "" {
		return ""
	}
	return ":" + variant
}
