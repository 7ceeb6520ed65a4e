package history

import "codeberg.org/mutker/formctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrInvalidDBPath    = errors.ErrorCode("history_invalid_db_path")
	ErrInvalidRetention = errors.ErrorCode("history_invalid_retention")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("history_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("history_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("history_invalid_record")
	ErrEmptySession  = errors.ErrEmptySession
	ErrExportFailed  = errors.ErrorCode("history_export_failed")
)
