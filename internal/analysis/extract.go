package analysis

import (
	"encoding/json"
	"strings"

	"deepcast/internal/services/llm"
)

// PayloadDelimiter separates the narrative output from the structured JSON
// payload in a reduce response.
const PayloadDelimiter = "---JSON---"

// ExtractStructured splits a reduce output into its narrative text and an
// optional structured payload. Everything before the delimiter line is
// narrative; everything after is a JSON candidate with code fences stripped.
// A payload that fails to parse is dropped rather than failing the operation.
func ExtractStructured(output string) (string, json.RawMessage) {
	idx := delimiterIndex(output)
	if idx < 0 {
		return strings.TrimSpace(output), nil
	}

	narrative := strings.TrimSpace(output[:idx])
	candidate := strings.TrimSpace(output[idx+len(PayloadDelimiter):])
	candidate = llm.StripCodeFence(candidate)
	if candidate == "" || !json.Valid([]byte(candidate)) {
		return narrative, nil
	}
	return narrative, json.RawMessage(candidate)
}

// delimiterIndex finds the delimiter on a line of its own.
func delimiterIndex(output string) int {
	offset := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == PayloadDelimiter {
			return offset + strings.Index(line, PayloadDelimiter)
		}
		offset += len(line) + 1
	}
	return -1
}
