package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"deepcast/internal/analysis"
	"deepcast/internal/artifacts"
	"deepcast/internal/command"
	"deepcast/internal/config"
	"deepcast/internal/logging"
	"deepcast/internal/services"
	"deepcast/internal/services/llm"
	"deepcast/internal/worker"
)

// stubWorker fakes the external step worker. Each step returns a canned JSON
// document; invocations and in-flight concurrency are tracked.
type stubWorker struct {
	mu          sync.Mutex
	invocations map[string]int
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	delay       time.Duration
	// fetchDelays overrides delay for fetch calls, consumed in invocation
	// order, so episodes can be skewed to finish out of dispatch order.
	fetchDelays []time.Duration
	fetchSeen   int
	mediaPath   string
	failStep    string
}

func newStubWorker(t *testing.T) *stubWorker {
	t.Helper()
	media := filepath.Join(t.TempDir(), "episode.mp3")
	if err := os.WriteFile(media, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &stubWorker{invocations: make(map[string]int), mediaPath: media}
}

func (s *stubWorker) Invoke(ctx context.Context, step string, args []command.Arg, input json.RawMessage, progress worker.ProgressFunc) (json.RawMessage, error) {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInFlight.Load()
		if current <= max || s.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	delay := s.delay
	if step == "fetch" && len(s.fetchDelays) > 0 {
		s.mu.Lock()
		if s.fetchSeen < len(s.fetchDelays) {
			delay = s.fetchDelays[s.fetchSeen]
		}
		s.fetchSeen++
		s.mu.Unlock()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.invocations[step]++
	s.mu.Unlock()

	if step == s.failStep {
		return nil, services.Wrap(services.ErrExternalTool, step, "worker exited", "stub failure", nil)
	}

	switch step {
	case "fetch":
		return json.Marshal(map[string]string{"media_path": s.mediaPath, "title": "Test Episode"})
	case "transcode":
		return json.Marshal(map[string]string{"audio_path": s.mediaPath})
	default:
		doc := map[string]any{
			"segments": []map[string]any{
				{"text": "Hello from " + step},
				{"text": "Another line"},
			},
		}
		return json.Marshal(doc)
	}
}

func (s *stubWorker) count(step string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations[step]
}

func (s *stubWorker) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.invocations {
		total += n
	}
	return total
}

// stubCompleter fakes the LLM for deepcast analysis.
type stubCompleter struct {
	mu    sync.Mutex
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return "## Brief\n\nInsights.\n---JSON---\n{\"title\":\"Test Episode\"}", nil
}

func (s *stubCompleter) Validate() error { return nil }

func newTestService(t *testing.T, stub *stubWorker) (*Service, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkdirRoot = t.TempDir()
	cfg.LLM.APIKey = "test"

	exec := worker.NewExecutor(stub, worker.RetryPolicy{MaxAttempts: 1})
	analyzer := analysis.New(&stubCompleter{}, analysis.Limits{}, logging.NewNop())
	return New(&cfg, exec, analyzer, logging.NewNop()), &cfg
}

func baseRequest() config.Pipeline {
	return config.Pipeline{
		RSSURL: "https://example.com/feed",
		Date:   "2026-08-01",
	}
}

func TestProcessSingleModeFullPipeline(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	req.Preprocess = true
	req.Align = true
	req.Diarize = true
	req.Deepcast = true

	result, err := svc.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Failed() {
		t.Fatalf("result errors: %v", result.Errors)
	}

	for _, step := range []string{"fetch", "transcode", "transcribe", "preprocess", "align", "diarize"} {
		if stub.count(step) != 1 {
			t.Errorf("step %s invoked %d times, want 1", step, stub.count(step))
		}
	}
	if len(result.StepsCompleted) != 7 {
		t.Errorf("steps completed = %d, want 7 (six worker steps plus deepcast)", len(result.StepsCompleted))
	}

	latest := filepath.Join(result.Workdir, artifacts.LatestName)
	if _, err := os.Stat(latest); err != nil {
		t.Errorf("latest.json missing: %v", err)
	}
	brief := filepath.Join(result.Workdir, "deepcast-brief-"+artifacts.Variant(svc.cfg.LLM.Model, "")+".json")
	if _, err := os.Stat(brief); err != nil {
		t.Errorf("analysis brief missing: %v", err)
	}
}

func TestProcessValidatesBeforeAnyWork(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := config.Pipeline{} // no selector
	result, err := svc.Process(context.Background(), req, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Process = %v, want validation error", err)
	}
	if !result.Failed() {
		t.Fatal("failed run must record its error")
	}
	if stub.total() != 0 {
		t.Fatalf("no worker may run on invalid input, ran %d", stub.total())
	}
}

func TestProcessResumesFromArtifacts(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	req.Preprocess = true

	if _, err := svc.Process(context.Background(), req, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstTotal := stub.total()

	result, err := svc.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stub.total() != firstTotal {
		t.Fatalf("second run invoked %d extra workers, want 0", stub.total()-firstTotal)
	}
	for _, step := range result.StepsCompleted {
		if !step.Resumed {
			t.Errorf("step %s should be resumed on the second run", step.Step)
		}
	}
}

func TestProcessResumesPastFailure(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	req.Preprocess = true

	stub.failStep = "preprocess"
	if _, err := svc.Process(context.Background(), req, nil); err == nil {
		t.Fatal("expected preprocess failure")
	}
	if stub.count("fetch") != 1 || stub.count("transcribe") != 1 {
		t.Fatal("earlier steps should have run before the failure")
	}

	stub.failStep = ""
	if _, err := svc.Process(context.Background(), req, nil); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	// The retry resumes everything before preprocess from disk.
	if stub.count("fetch") != 1 || stub.count("transcode") != 1 || stub.count("transcribe") != 1 {
		t.Fatalf("completed steps must not recompute: %v", stub.invocations)
	}
	if stub.count("preprocess") != 2 {
		t.Fatalf("preprocess should run again, ran %d times", stub.count("preprocess"))
	}
}

func TestProcessAlignDiarizeRunConcurrently(t *testing.T) {
	stub := newStubWorker(t)
	stub.delay = 30 * time.Millisecond
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	req.Align = true
	req.Diarize = true

	if _, err := svc.Process(context.Background(), req, nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if max := stub.maxInFlight.Load(); max < 2 {
		t.Fatalf("align and diarize should overlap, max in flight = %d", max)
	}
}

func TestProcessMergesAlignAndDiarize(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	req.Align = true
	req.Diarize = true

	result, err := svc.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(result.Workdir, artifacts.LatestName))
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	var doc struct {
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("latest not a transcript: %v", err)
	}
	if len(doc.Segments) == 0 {
		t.Fatal("merged transcript has no segments")
	}
}

// Concurrently dispatched steps share one Result and one reporter; every
// outcome and artifact must land regardless of interleaving. The plain
// (unsynchronized) reporter here is deliberate: the pipeline serializes
// events before they reach it.
func TestProcessRecordsConcurrentStepOutcomes(t *testing.T) {
	for i := 0; i < 5; i++ {
		stub := newStubWorker(t)
		svc, _ := newTestService(t, stub)

		req := baseRequest()
		req.Align = true
		req.Diarize = true

		var events []Event
		reporter := ReporterFunc(func(e Event) { events = append(events, e) })

		result, err := svc.Process(context.Background(), req, reporter)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}

		recorded := map[string]bool{}
		for _, outcome := range result.StepsCompleted {
			recorded[strings.SplitN(outcome.Step, ":", 2)[0]] = true
		}
		for _, step := range []string{"fetch", "transcode", "transcribe", "align", "diarize"} {
			if !recorded[step] {
				t.Fatalf("step %s missing from outcomes: %+v", step, result.StepsCompleted)
			}
		}

		variant := artifacts.Variant(req.EffectiveModel(), "")
		for _, key := range []string{"align:" + variant, "diarize:" + variant} {
			if result.Artifacts[key] == "" {
				t.Fatalf("artifact %s not recorded: %v", key, result.Artifacts)
			}
		}
		if len(events) == 0 {
			t.Fatal("reporter saw no events")
		}
	}
}

func TestProcessReportsProgress(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	var mu sync.Mutex
	var events []Event
	reporter := ReporterFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	req := baseRequest()
	if _, err := svc.Process(context.Background(), req, reporter); err != nil {
		t.Fatalf("Process: %v", err)
	}

	started := map[string]bool{}
	completed := map[string]bool{}
	for _, e := range events {
		switch e.Message {
		case "started":
			started[e.Step] = true
		case "completed", "resumed":
			completed[e.Step] = true
		}
	}
	for _, step := range []string{"fetch", "transcode", "transcribe"} {
		if !started[step] || !completed[step] {
			t.Errorf("step %s missing start/complete events: started=%v completed=%v", step, started[step], completed[step])
		}
	}
}

func TestProcessCancellation(t *testing.T) {
	stub := newStubWorker(t)
	stub.delay = 5 * time.Second
	svc, _ := newTestService(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Process(ctx, baseRequest(), nil)
	if err == nil {
		t.Fatal("canceled run must fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error should carry cancellation, got %v", err)
	}
}

func TestProcessFailureArtifactsSurviveForResume(t *testing.T) {
	stub := newStubWorker(t)
	svc, _ := newTestService(t, stub)

	req := baseRequest()
	stub.failStep = "transcribe"

	result, err := svc.Process(context.Background(), req, nil)
	if err == nil {
		t.Fatal("expected transcribe failure")
	}
	for _, name := range []string{"episode-meta.json", "audio-meta.json"} {
		if _, statErr := os.Stat(filepath.Join(result.Workdir, name)); statErr != nil {
			t.Errorf("artifact %s should survive the failure: %v", name, statErr)
		}
	}
}
