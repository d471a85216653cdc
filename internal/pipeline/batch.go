package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"deepcast/internal/config"
	"deepcast/internal/logging"
)

// BatchCallback receives per-episode lifecycle notifications during a batch
// run. status is "started", "completed", or "failed".
type BatchCallback func(index int, label, status string)

// ProcessBatch runs each request through Process with at most maxConcurrent
// episodes in flight. Results are returned in request order. Per-episode
// failures are recorded in the corresponding Result and do not stop the other
// episodes; the error return is reserved for context cancellation.
func (s *Service) ProcessBatch(ctx context.Context, reqs []config.Pipeline, maxConcurrent int, cb BatchCallback) ([]*Result, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if cb == nil {
		cb = func(int, string, string) {}
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	results := make([]*Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return results, err
		}
		wg.Add(1)
		go func(i int, req config.Pipeline) {
			defer wg.Done()
			defer sem.Release(1)

			label := req.Label()
			cb(i, label, "started")
			reporter := ReporterFunc(func(e Event) {
				cb(i, label, e.Step+": "+e.Message)
			})
			result, err := s.Process(ctx, req, reporter)
			results[i] = result
			if err != nil {
				cb(i, label, "failed")
				s.logger.Error("batch episode failed",
					logging.Int("index", i),
					logging.String(logging.FieldEpisode, label),
					logging.Error(err),
				)
				return
			}
			cb(i, label, "completed")
		}(i, req)
	}
	wg.Wait()

	return results, ctx.Err()
}
