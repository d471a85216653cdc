package analysis

import (
	"strings"
	"testing"
)

func TestSplitIntoChunksSmallTextIsOneChunk(t *testing.T) {
	chunks := SplitIntoChunks("short text", 100)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitIntoChunksNeverSplitsLines(t *testing.T) {
	lines := []string{
		"first line of the transcript",
		"second line",
		"third line with a bit more text",
		"fourth",
		"fifth line rounding things out",
	}
	text := strings.Join(lines, "\n")

	chunks := SplitIntoChunks(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if i < len(chunks)-1 && len(chunk) > 40 {
			t.Errorf("chunk %d exceeds budget: %d chars", i, len(chunk))
		}
		for _, line := range strings.Split(chunk, "\n") {
			if !contains(lines, line) {
				t.Errorf("chunk %d contains partial line %q", i, line)
			}
		}
	}

	// Joining chunks reconstructs the original line sequence.
	if got := strings.Join(chunks, "\n"); got != text {
		t.Fatalf("chunks do not reconstruct input:\n%q\nwant\n%q", got, text)
	}
}

func TestSplitIntoChunksOversizedLineKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 200)
	text := "short\n" + long + "\nshort again"

	chunks := SplitIntoChunks(text, 50)
	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, long) {
			found = true
		}
	}
	if !found {
		t.Fatal("oversized line must survive intact in some chunk")
	}
}

func TestSplitIntoChunksEmptyInput(t *testing.T) {
	chunks := SplitIntoChunks("", 10)
	if len(chunks) != 1 {
		t.Fatalf("empty input should still yield one chunk, got %d", len(chunks))
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
