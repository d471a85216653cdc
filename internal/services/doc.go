// Package services provides the shared error taxonomy and context annotations
// used across pipeline components. Step implementations wrap failures with one
// of the sentinel markers so the orchestrator and CLI can classify them without
// inspecting message text.
package services
