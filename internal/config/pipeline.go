package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"deepcast/internal/services"
)

// Pipeline describes a single episode run. It is constructed once and stays
// immutable for the lifetime of the run.
type Pipeline struct {
	// Source selectors. Exactly one must be set.
	Show       string
	RSSURL     string
	YouTubeURL string

	// Episode selectors.
	Date          string
	TitleContains string

	// Workdir overrides the derived episode working directory.
	Workdir string

	// ASR options.
	Model       string
	Compute     string
	ASRProvider string
	Preset      string

	// Enhancement flags.
	Preprocess  bool
	Restore     bool
	Align       bool
	Diarize     bool
	Dual        bool
	NoConsensus bool

	// Analysis options.
	Deepcast      bool
	DeepcastModel string
	DeepcastTemp  float64
	AnalysisType  string

	// Output flags.
	ExtractMarkdown bool
	DeepcastPDF     bool
}

// Validate checks the run request for contradictions. It never mutates the
// receiver; dual mode in particular requires preprocess rather than enabling it.
func (p Pipeline) Validate() error {
	selectors := 0
	for _, s := range []string{p.Show, p.RSSURL, p.YouTubeURL} {
		if strings.TrimSpace(s) != "" {
			selectors++
		}
	}
	if selectors != 1 {
		return services.Wrap(services.ErrValidation, "config", "validate",
			fmt.Sprintf("exactly one of show, rss_url, youtube_url must be set, got %d", selectors), nil)
	}
	if p.Dual && !p.Preprocess {
		return services.Wrap(services.ErrValidation, "config", "validate",
			"dual mode requires preprocess: precision/recall tracks need split transcripts", nil)
	}
	if p.DeepcastTemp < 0 || p.DeepcastTemp > 2 {
		return services.Wrap(services.ErrValidation, "config", "validate",
			"deepcast temperature must be between 0 and 2", nil)
	}
	return nil
}

// EffectiveModel returns the ASR model, defaulting when unset.
func (p Pipeline) EffectiveModel() string {
	if m := strings.TrimSpace(p.Model); m != "" {
		return m
	}
	return "large-v3"
}

// Label returns a short human-readable identifier for logging.
func (p Pipeline) Label() string {
	switch {
	case p.Show != "":
		if p.Date != "" {
			return p.Show + " " + p.Date
		}
		return p.Show
	case p.RSSURL != "":
		return p.RSSURL
	default:
		return p.YouTubeURL
	}
}

// ResolveWorkdir returns the episode working directory: the explicit override
// when present, otherwise root/<slug(show)>/<date>.
func (p Pipeline) ResolveWorkdir(root string) string {
	if strings.TrimSpace(p.Workdir) != "" {
		return p.Workdir
	}
	name := p.Show
	if name == "" {
		name = "episode"
	}
	dir := Slugify(name)
	if p.Date != "" {
		dir = filepath.Join(dir, p.Date)
	}
	return filepath.Join(root, dir)
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a show title to a filesystem-safe directory name:
// diacritics stripped, lowercased, non-alphanumerics collapsed to hyphens.
func Slugify(title string) string {
	flattened, _, err := transform.String(deaccent, title)
	if err != nil {
		flattened = title
	}
	var b strings.Builder
	b.Grow(len(flattened))
	lastHyphen := true
	for _, r := range strings.ToLower(flattened) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
