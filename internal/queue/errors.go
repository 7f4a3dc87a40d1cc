package queue

import "codeberg.org/thomiel/adored/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("queue_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("queue_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("queue_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("queue_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("queue_transaction_failed")

	// Storage Errors
	ErrStorageAccess   = errors.ErrorCode("queue_storage_access_failed")
	ErrStorageReadOnly = errors.ErrorCode("queue_storage_read_only")
	ErrStorageInit     = errors.ErrInitFailed
	ErrStorageClose    = errors.ErrShutdownFailed

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("queue_invalid_record")
)
