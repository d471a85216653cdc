package analysis

import "strings"

// SplitIntoChunks splits text into chunks of at most budget characters,
// accumulating whole lines greedily. Lines are never split: a chunk boundary
// only ever moves between lines, so joining the chunks with newlines
// reconstructs the original line sequence. A single line longer than the
// budget is kept whole; the budget is a soft ceiling for that one case.
func SplitIntoChunks(text string, budget int) []string {
	if budget <= 0 || len(text) <= budget {
		return []string{text}
	}

	lines := strings.Split(text, "\n")
	chunks := make([]string, 0, len(text)/budget+1)

	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+1+len(line) > budget {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		chunks = append(chunks, "")
	}
	return chunks
}
