package worker

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"
)

// Op is one step invocation prepared for concurrent dispatch.
type Op func(context.Context) (json.RawMessage, error)

// RunConcurrent dispatches all ops at once and returns their results in
// dispatch order regardless of completion order. The first error cancels the
// remaining ops.
func RunConcurrent(ctx context.Context, ops ...Op) ([]json.RawMessage, error) {
	results := make([]json.RawMessage, len(ops))
	g, gCtx := errgroup.WithContext(ctx)
	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			result, err := op(gCtx)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
