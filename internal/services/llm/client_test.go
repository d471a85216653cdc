package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"deepcast/internal/services"
)

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, content)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []Option{WithSleeper(func(time.Duration) {})}
	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test/model",
	}, append(base, opts...)...)
	return client, server
}

func TestCompleteHappyPath(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, completionBody("the answer"))
	})

	content, err := client.Complete(context.Background(), Request{
		SystemPrompt: "system",
		UserPrompt:   "user",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "the answer" {
		t.Fatalf("content = %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestCompleteRequiresPrompts(t *testing.T) {
	client := NewClient(Config{APIKey: "k", Model: "m"})
	if _, err := client.Complete(context.Background(), Request{UserPrompt: "u"}); err == nil {
		t.Fatal("missing system prompt must fail")
	}
	if _, err := client.Complete(context.Background(), Request{SystemPrompt: "s"}); err == nil {
		t.Fatal("missing user prompt must fail")
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	if err := client.Validate(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing api key should be a configuration error, got %v", err)
	}
	client = NewClient(Config{APIKey: "k"})
	if err := client.Validate(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing model should be a configuration error, got %v", err)
	}
}

func TestCompleteRetriesOn429(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("eventually"))
	}, WithRetryMaxAttempts(5))

	content, err := client.Complete(context.Background(), Request{SystemPrompt: "s", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "eventually" {
		t.Fatalf("content = %q", content)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, WithRetryMaxAttempts(5))

	_, err := client.Complete(context.Background(), Request{SystemPrompt: "s", UserPrompt: "u"})
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("400 must not retry, calls = %d", calls.Load())
	}
}

func TestCompleteRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			fmt.Fprint(w, `{"choices":[{"message":{"content":""},"finish_reason":"length"}]}`)
			return
		}
		fmt.Fprint(w, completionBody("filled in"))
	}, WithRetryMaxAttempts(3))

	content, err := client.Complete(context.Background(), Request{SystemPrompt: "s", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "filled in" {
		t.Fatalf("content = %q", content)
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryMaxAttempts(2))

	_, err := client.Complete(context.Background(), Request{SystemPrompt: "s", UserPrompt: "u"})
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	cases := []struct {
		name    string
		content string
	}{
		{"plain", `{"title":"Ep"}`},
		{"fenced", "```json\n{\"title\":\"Ep\"}\n```"},
		{"bare fence", "```\n{\"title\":\"Ep\"}\n```"},
		{"prose wrapped", "Here is the JSON you asked for: {\"title\":\"Ep\"} hope it helps"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p payload
			if err := DecodeJSON(tc.content, &p); err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if p.Title != "Ep" {
				t.Fatalf("title = %q", p.Title)
			}
		})
	}

	var p payload
	if err := DecodeJSON("", &p); err == nil {
		t.Fatal("empty payload must fail")
	}
	if err := DecodeJSON("no json here", &p); err == nil {
		t.Fatal("non-JSON payload must fail")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", "[1,2]"},
		{"{\"a\":1}", `{"a":1}`},
		{"  plain text  ", "plain text"},
	}
	for _, tc := range cases {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("7"); !ok || d != 7*time.Second {
		t.Fatalf("parseRetryAfter(7) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header should not parse")
	}
	if _, ok := parseRetryAfter("-3"); ok {
		t.Fatal("negative seconds should not parse")
	}
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if d, ok := parseRetryAfter(future); !ok || d <= 0 {
		t.Fatalf("http-date header = %v, %v", d, ok)
	}
}
