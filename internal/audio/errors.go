package audio

import "codeberg.org/thomiel/adored/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("audio_invalid_config")

	// Capture Errors
	ErrReadFailed    = errors.ErrorCode("audio_read_failed")
	ErrEngineStopped = errors.ErrorCode("audio_engine_stopped")
)
