package fingerprint

import "codeberg.org/thomiel/adored/internal/errors"

const (
	// Configuration Errors
	ErrUnknownAlgorithm = errors.ErrorCode("fingerprint_unknown_algorithm")

	// Computation Errors
	ErrComputeFailed = errors.ErrorCode("fingerprint_compute_failed")
)
