package pipeline

import (
	"context"
	"encoding/json"

	"deepcast/internal/analysis"
	"deepcast/internal/artifacts"
	"deepcast/internal/services"
	"deepcast/internal/worker"
)

// Dual-mode track names. Precision favors clean, conservative transcription;
// recall favors catching everything at the cost of noise.
const (
	TrackPrecision = "precision"
	TrackRecall    = "recall"
)

// executeDual runs the dual-track DAG after transcription:
//
//	preprocess(precision), preprocess(recall)   (concurrent)
//	→ deepcast(precision), deepcast(recall)     (concurrent)
//	→ agreement
//	→ consensus                                 (unless NoConsensus)
//
// Every node resolves through the artifact store, so a partially-completed
// dual run resumes from whichever nodes are missing.
func (r *episodeRun) executeDual(ctx context.Context, rawTranscript json.RawMessage) error {
	preprocessed, err := worker.RunConcurrent(ctx,
		r.dualPreprocessOp(TrackPrecision, rawTranscript),
		r.dualPreprocessOp(TrackRecall, rawTranscript),
	)
	if err != nil {
		return err
	}

	briefs, err := worker.RunConcurrent(ctx,
		func(ctx context.Context) (json.RawMessage, error) {
			return r.runDeepcast(services.WithTrack(ctx, TrackPrecision), TrackPrecision, preprocessed[0])
		},
		func(ctx context.Context) (json.RawMessage, error) {
			return r.runDeepcast(services.WithTrack(ctx, TrackRecall), TrackRecall, preprocessed[1])
		},
	)
	if err != nil {
		return err
	}

	precision, err := decodeBrief(briefs[0])
	if err != nil {
		return err
	}
	recall, err := decodeBrief(briefs[1])
	if err != nil {
		return err
	}

	opts := r.analysisOptions("")
	if _, err := r.runStep(ctx, artifacts.Key{Step: artifacts.StepAgreement}, func(ctx context.Context) (json.RawMessage, error) {
		brief, err := r.svc.analyzer.Agreement(ctx, precision, recall, opts)
		if err != nil {
			return nil, err
		}
		return json.Marshal(brief)
	}); err != nil {
		return err
	}

	if !r.req.NoConsensus {
		if _, err := r.runStep(ctx, artifacts.Key{Step: artifacts.StepConsensus}, func(ctx context.Context) (json.RawMessage, error) {
			brief, err := r.svc.analyzer.Consensus(ctx, precision, recall, opts)
			if err != nil {
				return nil, err
			}
			return json.Marshal(brief)
		}); err != nil {
			return err
		}
	}

	// The precision track's cleaned transcript is the run's most-enhanced
	// transcript in dual mode.
	return r.writeLatest(preprocessed[0])
}

func (r *episodeRun) dualPreprocessOp(track string, rawTranscript json.RawMessage) worker.Op {
	return func(ctx context.Context) (json.RawMessage, error) {
		key := artifacts.Key{Step: artifacts.StepPreprocess, Variant: artifacts.Variant(r.req.EffectiveModel(), track)}
		return r.runStep(services.WithTrack(ctx, track), key, func(ctx context.Context) (json.RawMessage, error) {
			return r.svc.exec.Preprocess(ctx, worker.PreprocessParams{
				Track:   track,
				Restore: r.req.Restore,
			}, rawTranscript, r.stepProgress(artifacts.StepPreprocess))
		})
	}
}

func decodeBrief(raw json.RawMessage) (*analysis.Brief, error) {
	var brief analysis.Brief
	if err := json.Unmarshal(raw, &brief); err != nil {
		return nil, services.Wrap(services.ErrAI, artifacts.StepDeepcast, "decode brief", "", err)
	}
	return &brief, nil
}
