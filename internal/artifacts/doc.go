// Package artifacts is the pipeline's resume layer: every step output is a
// JSON file in the episode workdir keyed by step and variant, probed before a
// step runs so unchanged work is never recomputed.
package artifacts
