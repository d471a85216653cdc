package transcript

import (
	"encoding/json"
	"fmt"
	"strings"

	"deepcast/internal/services"
)

// Word carries word-level alignment timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one transcribed span. Start and End are pointers because
// timestamps are optional until alignment has run.
type Segment struct {
	Text    string   `json:"text"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Speaker string   `json:"speaker,omitempty"`
	Words   []Word   `json:"words,omitempty"`
}

// Document is the transcript payload exchanged between pipeline steps.
type Document struct {
	Segments []Segment `json:"segments,omitempty"`
	Text     string    `json:"text,omitempty"`
	Language string    `json:"language,omitempty"`
	Model    string    `json:"model,omitempty"`
	Track    string    `json:"track,omitempty"`
}

// Decode parses a raw step result into a Document.
func Decode(raw json.RawMessage) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &doc, nil
}

// Encode serializes a Document back into a raw step payload.
func Encode(doc *Document) (json.RawMessage, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

// RenderText flattens the document to plain text for analysis. Each segment
// renders as an optional [HH:MM:SS] timestamp (present only when every
// non-empty segment carries start and end), an optional speaker label, and the
// trimmed text. Empty segments are dropped. With no segments the raw text
// field is used; when both are empty a validation error is returned.
func RenderText(doc *Document) (string, error) {
	if doc == nil {
		return "", services.Wrap(services.ErrValidation, "transcript", "render", "document is nil", nil)
	}

	lines := make([]string, 0, len(doc.Segments))
	timed := len(doc.Segments) > 0
	for _, seg := range doc.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if seg.Start == nil || seg.End == nil {
			timed = false
		}
	}
	for _, seg := range doc.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		var b strings.Builder
		if timed && seg.Start != nil {
			b.WriteString(formatTimestamp(*seg.Start))
			b.WriteByte(' ')
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(text)
		lines = append(lines, b.String())
	}

	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}
	if text := strings.TrimSpace(doc.Text); text != "" {
		return text, nil
	}
	return "", services.Wrap(services.ErrValidation, "transcript", "render", "transcript has no segments and no text", nil)
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, (total%3600)/60, total%60)
}

// MergeAlignDiarize combines concurrent align and diarize outputs. The
// diarized document is the carrier: it keeps speaker labels and absorbs the
// aligned document's timing and word data segment by segment.
func MergeAlignDiarize(aligned, diarized *Document) *Document {
	if diarized == nil {
		return aligned
	}
	if aligned == nil {
		return diarized
	}
	merged := *diarized
	merged.Segments = make([]Segment, len(diarized.Segments))
	copy(merged.Segments, diarized.Segments)
	for i := range merged.Segments {
		if i >= len(aligned.Segments) {
			break
		}
		src := aligned.Segments[i]
		if src.Start != nil {
			merged.Segments[i].Start = src.Start
		}
		if src.End != nil {
			merged.Segments[i].End = src.End
		}
		if len(src.Words) > 0 {
			merged.Segments[i].Words = src.Words
		}
	}
	return &merged
}
