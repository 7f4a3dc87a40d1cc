package delivery

import "codeberg.org/thomiel/adored/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig

	// Submission Errors
	ErrTransportFailed = errors.ErrorCode("delivery_transport_failed")
	ErrEncodeFailed    = errors.ErrorCode("delivery_encode_failed")
	ErrInvalidRecord   = errors.ErrorCode("delivery_invalid_record")

	// Service Errors
	ErrInitReporting = errors.ErrInitReporting
)
