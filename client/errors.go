package client

import "github.com/gear6io/metabridge/pkg/errors"

// Error codes for client package
var (
	// Construction errors
	ErrVersionUnsupported = errors.MustNewCode("client.version_unsupported")
	ErrAuthorizerRequired = errors.MustNewCode("client.authorizer_required")
	ErrConnectionFailed   = errors.MustNewCode("client.connection_failed")

	// Connection state errors
	ErrClientClosed = errors.MustNewCode("client.closed")

	// Retry coordinator errors
	ErrRpcTransient = errors.MustNewCode("client.rpc_transient")

	// Command runner errors
	ErrQueryFailed           = errors.MustNewCode("client.query_failed")
	ErrCommandBlank          = errors.MustNewCode("client.command_blank")
	ErrResultsMaybeTruncated = errors.MustNewCode("client.results_maybe_truncated")

	// Translation errors
	ErrFormatUnresolved       = errors.MustNewCode("client.format_unresolved")
	ErrTableTypeUnknown       = errors.MustNewCode("client.table_type_unknown")
	ErrPartitionColumnOverlap = errors.MustNewCode("client.partition_column_overlap")

	// Partition operation errors
	ErrPartitionArity = errors.MustNewCode("client.partition_arity")
	ErrTableDetached  = errors.MustNewCode("client.table_detached")

	// Predicate errors
	ErrPredicateOpUnsupported = errors.MustNewCode("client.predicate_op_unsupported")

	// Database errors
	ErrDatabaseNotFound = errors.MustNewCode("client.database_not_found")
)
