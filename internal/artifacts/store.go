package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"deepcast/internal/fileutil"
	"deepcast/internal/logging"
)

// Store is the artifact persistence contract. The filesystem implementation
// is the default; tests may substitute an in-memory store.
type Store interface {
	// Get returns the artifact for key when it exists and parses as JSON.
	Get(key Key) (json.RawMessage, bool, error)
	// Put persists the artifact for key.
	Put(key Key, doc json.RawMessage) error
	// Path reports where the artifact for key lives (or would live).
	Path(key Key) string
}

// FSStore persists artifacts as JSON files in an episode working directory.
// Artifacts are never mutated in place: one logical writer per run, and
// re-runs with the same key read them back unchanged.
type FSStore struct {
	workdir string
}

// NewFSStore creates a filesystem store rooted at the episode workdir.
func NewFSStore(workdir string) *FSStore {
	return &FSStore{workdir: workdir}
}

// Workdir returns the episode working directory.
func (s *FSStore) Workdir() string {
	return s.workdir
}

// Path returns the canonical location for key.
func (s *FSStore) Path(key Key) string {
	return filepath.Join(s.workdir, Filename(key))
}

// Get probes the canonical filename first, then any legacy names. A file that
// exists but does not parse as JSON counts as a miss so the step recomputes.
func (s *FSStore) Get(key Key) (json.RawMessage, bool, error) {
	names := append([]string{Filename(key)}, LegacyFilenames(key)...)
	for _, name := range names {
		doc, err := s.read(filepath.Join(s.workdir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, false, err
		}
		if doc == nil {
			// Present but corrupt; fall through to recompute.
			continue
		}
		return doc, true, nil
	}
	return nil, false, nil
}

// Put writes the artifact atomically at the canonical path.
func (s *FSStore) Put(key Key, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("artifact %s: refusing to persist invalid JSON", Filename(key))
	}
	return fileutil.WriteFileAtomic(s.Path(key), doc, 0o644)
}

// PutLatest overwrites latest.json with the most-enhanced transcript.
func (s *FSStore) PutLatest(doc json.RawMessage) error {
	return fileutil.WriteFileAtomic(filepath.Join(s.workdir, LatestName), doc, 0o644)
}

// BestTranscriptVariant scans existing transcript artifacts and returns the
// most capable variant by model sophistication, for transcription fallback.
func (s *FSStore) BestTranscriptVariant() (string, bool) {
	entries, err := os.ReadDir(s.workdir)
	if err != nil {
		return "", false
	}
	best := ""
	bestRank := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		variant := transcriptVariant(entry.Name())
		if variant == "" {
			continue
		}
		if rank := rankModel(variant); rank > bestRank {
			best, bestRank = variant, rank
		}
	}
	return best, best != ""
}

func (s *FSStore) read(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// ComputeFunc produces an artifact when no cached copy exists.
type ComputeFunc func(context.Context) (json.RawMessage, error)

// Resolver applies resume semantics on top of a Store.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver wires a Resolver to a store.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logging.NewComponentLogger(logger, "artifacts"),
	}
}

// Store exposes the underlying store.
func (r *Resolver) Store() Store {
	return r.store
}

// ResolveOrCompute returns the cached artifact for key when present,
// otherwise invokes compute and persists its result. Computing the same key
// twice on an unchanged filesystem always resumes the second time.
func (r *Resolver) ResolveOrCompute(ctx context.Context, key Key, compute ComputeFunc) (json.RawMessage, bool, error) {
	doc, ok, err := r.store.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("probe artifact %s: %w", Filename(key), err)
	}
	if ok {
		r.logger.Debug("artifact resumed",
			logging.String(logging.FieldStep, key.Step),
			logging.String("variant", key.Variant),
			logging.String("path", r.store.Path(key)),
		)
		return doc, true, nil
	}

	doc, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := r.store.Put(key, doc); err != nil {
		return nil, false, fmt.Errorf("persist artifact %s: %w", Filename(key), err)
	}
	return doc, false, nil
}

// ResolveTranscript is ResolveOrCompute for the transcription step with model
// fallback: when the requested variant is absent but transcripts from other
// models exist, the most capable one is reused instead of recomputing, and the
// substitution is logged.
func (r *Resolver) ResolveTranscript(ctx context.Context, variant string, compute ComputeFunc) (json.RawMessage, bool, error) {
	key := Key{Step: StepTranscribe, Variant: variant}
	doc, ok, err := r.store.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("probe artifact %s: %w", Filename(key), err)
	}
	if ok {
		return doc, true, nil
	}

	if fsStore, isFS := r.store.(*FSStore); isFS {
		if fallback, found := fsStore.BestTranscriptVariant(); found && fallback != variant {
			fallbackKey := Key{Step: StepTranscribe, Variant: fallback}
			if doc, ok, err := r.store.Get(fallbackKey); err == nil && ok {
				r.logger.Warn("transcript model fallback",
					logging.String("requested_variant", variant),
					logging.String("using_variant", fallback),
					logging.String("path", r.store.Path(fallbackKey)),
				)
				return doc, true, nil
			}
		}
	}

	doc, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := r.store.Put(key, doc); err != nil {
		return nil, false, fmt.Errorf("persist artifact %s: %w", Filename(key), err)
	}
	return doc, false, nil
}
