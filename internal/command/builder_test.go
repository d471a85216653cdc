package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildOrdersArgs(t *testing.T) {
	builder := NewBuilder("deepcast-worker")

	got := builder.Build("transcribe",
		Value("--model", "large-v3"),
		Flag("--preprocess"),
		Value("--compute", "int8"),
	)
	want := []string{"deepcast-worker", "transcribe", "--model", "large-v3", "--preprocess", "--compute", "int8"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	builder := NewBuilder("worker")
	args := []Arg{Value("--a", "1"), Flag("--b"), Value("--c", "3")}

	first := builder.Build("fetch", args...)
	second := builder.Build("fetch", args...)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical inputs must build identical argv (-first +second):\n%s", diff)
	}
}

func TestBuildNoArgs(t *testing.T) {
	builder := NewBuilder("worker")
	got := builder.Build("align")
	want := []string{"worker", "align"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}
}
