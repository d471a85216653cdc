package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRunConcurrentPreservesDispatchOrder(t *testing.T) {
	slow := func(ctx context.Context) (json.RawMessage, error) {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return json.RawMessage(`"slow"`), nil
	}
	fast := func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`"fast"`), nil
	}

	results, err := RunConcurrent(context.Background(), slow, fast)
	if err != nil {
		t.Fatalf("RunConcurrent: %v", err)
	}
	if string(results[0]) != `"slow"` || string(results[1]) != `"fast"` {
		t.Fatalf("results out of dispatch order: %s, %s", results[0], results[1])
	}
}

func TestRunConcurrentFirstErrorCancelsSiblings(t *testing.T) {
	wantErr := errors.New("boom")
	siblingCanceled := make(chan struct{})

	failing := func(ctx context.Context) (json.RawMessage, error) {
		return nil, wantErr
	}
	waiting := func(ctx context.Context) (json.RawMessage, error) {
		select {
		case <-ctx.Done():
			close(siblingCanceled)
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return json.RawMessage(`{}`), nil
		}
	}

	_, err := RunConcurrent(context.Background(), failing, waiting)
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunConcurrent = %v, want %v", err, wantErr)
	}
	select {
	case <-siblingCanceled:
	case <-time.After(time.Second):
		t.Fatal("sibling op was not canceled after the first failure")
	}
}

func TestRunConcurrentNoOps(t *testing.T) {
	results, err := RunConcurrent(context.Background())
	if err != nil || len(results) != 0 {
		t.Fatalf("RunConcurrent() = %v, %v", results, err)
	}
}
