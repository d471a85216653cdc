// Package analysis implements the deepcast step: a transcript is flattened to
// text, split into line-atomic chunks, analyzed chunk-by-chunk with bounded
// concurrency (map), and synthesized into a single brief (reduce), optionally
// with an embedded structured JSON payload.
package analysis
