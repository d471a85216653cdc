// Package worker executes external step workers. Workers are separate
// processes invoked per step: they receive zero or one JSON document on
// stdin, stream progress lines on stdout, and finish with a JSON result.
// The Worker interface keeps that boundary explicit so tests can substitute
// in-process implementations.
package worker
