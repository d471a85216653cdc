package analysis

import "testing"

func TestExtractStructured(t *testing.T) {
	output := "## Summary\n\nA fine episode.\n\n---JSON---\n{\"title\":\"Ep 1\",\"topics\":[\"go\"]}"

	narrative, payload := ExtractStructured(output)
	if narrative != "## Summary\n\nA fine episode." {
		t.Fatalf("narrative = %q", narrative)
	}
	if string(payload) != `{"title":"Ep 1","topics":["go"]}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestExtractStructuredCodeFencedPayload(t *testing.T) {
	output := "Narrative.\n---JSON---\n```json\n{\"title\":\"x\"}\n```"

	narrative, payload := ExtractStructured(output)
	if narrative != "Narrative." {
		t.Fatalf("narrative = %q", narrative)
	}
	if string(payload) != `{"title":"x"}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestExtractStructuredNoDelimiter(t *testing.T) {
	narrative, payload := ExtractStructured("  just narrative  ")
	if narrative != "just narrative" || payload != nil {
		t.Fatalf("got %q, %s", narrative, payload)
	}
}

func TestExtractStructuredMalformedPayloadIsNonFatal(t *testing.T) {
	narrative, payload := ExtractStructured("Narrative.\n---JSON---\n{broken json")
	if narrative != "Narrative." {
		t.Fatalf("narrative = %q", narrative)
	}
	if payload != nil {
		t.Fatalf("malformed payload should be dropped, got %s", payload)
	}
}

func TestExtractStructuredDelimiterMustOwnItsLine(t *testing.T) {
	output := "Mentioning ---JSON--- inline should not split.\nStill narrative."
	narrative, payload := ExtractStructured(output)
	if payload != nil {
		t.Fatalf("inline delimiter must not trigger extraction")
	}
	if narrative != output {
		t.Fatalf("narrative = %q", narrative)
	}
}
