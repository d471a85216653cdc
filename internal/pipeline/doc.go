// Package pipeline orchestrates episode runs: it sequences the worker steps,
// forks the dual-track analysis DAG, resumes from persisted artifacts, and
// streams progress to a caller-provided reporter.
package pipeline
