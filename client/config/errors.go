package config

import "github.com/gear6io/metabridge/pkg/errors"

// Config-specific error codes
var (
	ErrConfigFileReadFailed     = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed    = errors.MustNewCode("config.file_parse_failed")
	ErrConfigFileMarshalFailed  = errors.MustNewCode("config.file_marshal_failed")
	ErrConfigFileWriteFailed    = errors.MustNewCode("config.file_write_failed")
	ErrMetastoreHostRequired    = errors.MustNewCode("config.metastore_host_required")
	ErrMetastorePortInvalid     = errors.MustNewCode("config.metastore_port_invalid")
	ErrMetastoreVersionRequired = errors.MustNewCode("config.metastore_version_required")
	ErrMetastoreTimeoutInvalid  = errors.MustNewCode("config.metastore_timeout_invalid")

	// Logging-specific error codes
	ErrLogDirectoryCreationFailed = errors.MustNewCode("config.log_directory_creation_failed")
	ErrLogFileOpenFailed          = errors.MustNewCode("config.log_file_open_failed")
	ErrLogFilePathRequired        = errors.MustNewCode("config.log_file_path_required")
	ErrLogRotationFailed          = errors.MustNewCode("config.log_rotation_failed")
	ErrLogBackupScanFailed        = errors.MustNewCode("config.log_backup_scan_failed")
	ErrLogBackupRemoveFailed      = errors.MustNewCode("config.log_backup_remove_failed")
	ErrLogCleanupFailed           = errors.MustNewCode("config.log_cleanup_failed")
)
