package transcript

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"deepcast/internal/services"
)

func ptr(v float64) *float64 { return &v }

func TestRenderTextWithTimestampsAndSpeakers(t *testing.T) {
	doc := &Document{
		Segments: []Segment{
			{Text: "Welcome back.", Start: ptr(0), End: ptr(4), Speaker: "SPEAKER_00"},
			{Text: "Glad to be here.", Start: ptr(4.5), End: ptr(65.2), Speaker: "SPEAKER_01"},
			{Text: "   ", Start: ptr(66), End: ptr(67)},
			{Text: "Let's begin.", Start: ptr(3700), End: ptr(3704)},
		},
	}

	got, err := RenderText(doc)
	if err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	want := strings.Join([]string{
		"[00:00:00] SPEAKER_00: Welcome back.",
		"[00:00:04] SPEAKER_01: Glad to be here.",
		"[01:01:40] Let's begin.",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RenderText mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTextOmitsTimestampsWhenIncomplete(t *testing.T) {
	doc := &Document{
		Segments: []Segment{
			{Text: "First.", Start: ptr(0), End: ptr(2)},
			{Text: "No timing here."},
		},
	}

	got, err := RenderText(doc)
	if err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	if strings.Contains(got, "[") {
		t.Fatalf("partial timing must render without timestamps, got %q", got)
	}
	if got != "First.\nNo timing here." {
		t.Fatalf("RenderText = %q", got)
	}
}

func TestRenderTextFallsBackToRawText(t *testing.T) {
	got, err := RenderText(&Document{Text: "  whole transcript as text  "})
	if err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	if got != "whole transcript as text" {
		t.Fatalf("RenderText = %q", got)
	}
}

func TestRenderTextEmptyDocument(t *testing.T) {
	_, err := RenderText(&Document{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty document should fail validation, got %v", err)
	}
	_, err = RenderText(nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("nil document should fail validation, got %v", err)
	}
}

func TestMergeAlignDiarize(t *testing.T) {
	aligned := &Document{
		Segments: []Segment{
			{Text: "Hello", Start: ptr(0.5), End: ptr(1.5), Words: []Word{{Word: "Hello", Start: 0.5, End: 1.5}}},
			{Text: "there", Start: ptr(1.6), End: ptr(2.0)},
		},
	}
	diarized := &Document{
		Segments: []Segment{
			{Text: "Hello", Speaker: "SPEAKER_00"},
			{Text: "there", Speaker: "SPEAKER_01"},
			{Text: "extra", Speaker: "SPEAKER_01"},
		},
		Language: "en",
	}

	merged := MergeAlignDiarize(aligned, diarized)

	if merged.Language != "en" {
		t.Fatalf("diarized document should be the carrier")
	}
	if merged.Segments[0].Speaker != "SPEAKER_00" || merged.Segments[0].Start == nil || *merged.Segments[0].Start != 0.5 {
		t.Fatalf("segment 0 should keep speaker and absorb timing: %+v", merged.Segments[0])
	}
	if len(merged.Segments[0].Words) != 1 {
		t.Fatalf("segment 0 should absorb word alignment")
	}
	if merged.Segments[2].Start != nil {
		t.Fatalf("unmatched diarized segment must stay untimed")
	}

	// The inputs must not be mutated.
	if diarized.Segments[0].Start != nil {
		t.Fatal("merge mutated the diarized input")
	}
}

func TestMergeAlignDiarizeNilInputs(t *testing.T) {
	doc := &Document{Text: "x"}
	if got := MergeAlignDiarize(nil, doc); got != doc {
		t.Fatal("nil aligned should return diarized")
	}
	if got := MergeAlignDiarize(doc, nil); got != doc {
		t.Fatal("nil diarized should return aligned")
	}
}
