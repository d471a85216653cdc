package artifacts

import (
	"strings"
)

// Step names with on-disk artifacts.
const (
	StepFetch      = "fetch"
	StepTranscode  = "transcode"
	StepTranscribe = "transcribe"
	StepPreprocess = "preprocess"
	StepAlign      = "align"
	StepDiarize    = "diarize"
	StepDeepcast   = "deepcast"
	StepAgreement  = "agreement"
	StepConsensus  = "consensus"
)

// LatestName is always overwritten with the most-enhanced transcript of a run.
const LatestName = "latest.json"

// Key identifies one artifact: the producing step plus a variant encoding
// model, preset, and dual-mode track (e.g. "large_v3-recall").
type Key struct {
	Step    string
	Variant string
}

// Variant builds a variant key from an ASR model name and an optional
// dual-mode track. Model punctuation is flattened to underscores so the track
// suffix stays unambiguous in filenames.
func Variant(model, track string) string {
	v := sanitizeModel(model)
	if track != "" {
		if v == "" {
			return track
		}
		v += "-" + track
	}
	return v
}

func sanitizeModel(model string) string {
	replacer := strings.NewReplacer("-", "_", ".", "_", " ", "_", "/", "_")
	return replacer.Replace(strings.TrimSpace(model))
}

// Filename returns the canonical artifact filename for key.
func Filename(key Key) string {
	switch key.Step {
	case StepFetch:
		return "episode-meta.json"
	case StepTranscode:
		return "audio-meta.json"
	case StepTranscribe:
		return "transcript-" + key.Variant + ".json"
	case StepPreprocess:
		return "transcript-preprocessed-" + key.Variant + ".json"
	case StepAlign:
		return "transcript-aligned-" + key.Variant + ".json"
	case StepDiarize:
		return "transcript-diarized-" + key.Variant + ".json"
	case StepDeepcast:
		if key.Variant == "" {
			return "deepcast-brief.json"
		}
		return "deepcast-brief-" + key.Variant + ".json"
	case StepAgreement:
		return "agreement.json"
	case StepConsensus:
		return "consensus.json"
	default:
		if key.Variant == "" {
			return key.Step + ".json"
		}
		return key.Step + "-" + key.Variant + ".json"
	}
}

// LegacyFilenames returns deprecated filename patterns still probed for
// resume, in probe order. Canonical names always win; these are read-only
// compatibility shims for workdirs written by earlier releases.
func LegacyFilenames(key Key) []string {
	switch key.Step {
	case StepTranscribe:
		return []string{"transcription-" + key.Variant + ".json"}
	case StepAlign:
		return []string{"aligned-" + key.Variant + ".json"}
	default:
		return nil
	}
}

// modelRank orders ASR models by sophistication for transcript fallback.
// Unknown models rank below tiny so an exact unknown match never loses to a
// known smaller model by accident.
var modelRank = map[string]int{
	"tiny":     1,
	"base":     2,
	"small":    3,
	"medium":   4,
	"large":    5,
	"large-v2": 6,
	"large-v3": 7,
}

// rankModel returns the sophistication rank of a sanitized variant.
func rankModel(variant string) int {
	model := strings.ReplaceAll(variant, "_", "-")
	if rank, ok := modelRank[model]; ok {
		return rank
	}
	return 0
}

// transcriptVariant extracts the variant from a canonical transcript filename,
// or "" when the name is not a plain transcript artifact.
func transcriptVariant(name string) string {
	if !strings.HasPrefix(name, "transcript-") || !strings.HasSuffix(name, ".json") {
		return ""
	}
	variant := strings.TrimSuffix(strings.TrimPrefix(name, "transcript-"), ".json")
	for _, reserved := range []string{"preprocessed-", "aligned-", "diarized-"} {
		if strings.HasPrefix(variant, reserved) {
			return ""
		}
	}
	return variant
}
