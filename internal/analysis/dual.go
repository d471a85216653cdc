package analysis

import (
	"context"

	"deepcast/internal/services"
	"deepcast/internal/services/llm"
)

// Agreement compares the precision and recall track analyses pairwise and
// reports where they agree and diverge.
func (a *Analyzer) Agreement(ctx context.Context, precision, recall *Brief, opts Options) (*Brief, error) {
	if err := a.client.Validate(); err != nil {
		return nil, err
	}
	out, err := a.client.Complete(ctx, llm.Request{
		SystemPrompt: agreementSystemPrompt,
		UserPrompt:   precision.Markdown + trackSeparator + recall.Markdown,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrAI, "agreement", "compare analyses", "", err)
	}
	return &Brief{
		AnalysisType: "agreement",
		Model:        opts.Model,
		Markdown:     out,
	}, nil
}

// Consensus reconciles the two track analyses into one authoritative result.
func (a *Analyzer) Consensus(ctx context.Context, precision, recall *Brief, opts Options) (*Brief, error) {
	if err := a.client.Validate(); err != nil {
		return nil, err
	}
	out, err := a.client.Complete(ctx, llm.Request{
		SystemPrompt: consensusSystemPrompt,
		UserPrompt:   precision.Markdown + trackSeparator + recall.Markdown,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrAI, "consensus", "synthesize analyses", "", err)
	}
	return &Brief{
		AnalysisType: "consensus",
		Model:        opts.Model,
		Markdown:     out,
	}, nil
}
