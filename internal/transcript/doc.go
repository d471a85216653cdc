// Package transcript models the JSON transcript documents exchanged between
// pipeline steps and provides rendering and merge helpers.
package transcript
