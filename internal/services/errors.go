package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed or contradictory pipeline configuration.
	// No subprocess is invoked once a validation error is raised.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing credentials or unusable application settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrNetwork marks retryable transport failures during fetch/download.
	ErrNetwork = errors.New("network error")
	// ErrAudio marks download or transcode failures.
	ErrAudio = errors.New("audio error")
	// ErrAI marks map/reduce analysis failures and credential problems in the LLM path.
	ErrAI = errors.New("ai error")
	// ErrExternalTool marks a step worker that exited non-zero or produced
	// output the executor could not parse.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails captures the classification and human-readable message of a
// wrapped step error.
type ErrorDetails struct {
	Marker  error
	Message string
}

// Details classifies err against the sentinel markers and strips the marker
// prefix from the message so callers can present it directly.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: err.Error()}
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNetwork, ErrAudio, ErrAI, ErrExternalTool} {
		if errors.Is(err, marker) {
			details.Marker = marker
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, marker.Error()+":"))
			break
		}
	}
	return details
}

// Retryable reports whether the error is eligible for the fetch-layer retry
// policy. Only transport failures retry; every other class fails fast.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
