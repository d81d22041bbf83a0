package hms

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Service-declared failures. Each arrives as a dedicated field of an RPC
// result struct and surfaces to callers as a plain Go error.

// NoSuchObjectError reports a missing database, table, or partition.
type NoSuchObjectError struct {
	Message string
}

func (e *NoSuchObjectError) Error() string {
	return "no such object: " + e.Message
}

func (e *NoSuchObjectError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "NoSuchObjectException", e.Message)
}

func (e *NoSuchObjectError) Read(ctx context.Context, p thrift.TProtocol) error {
	return readMessageStruct(ctx, p, &e.Message)
}

// AlreadyExistsError reports a create call that collided with an existing
// object.
type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string {
	return "already exists: " + e.Message
}

func (e *AlreadyExistsError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "AlreadyExistsException", e.Message)
}

func (e *AlreadyExistsError) Read(ctx context.Context, p thrift.TProtocol) error {
	return readMessageStruct(ctx, p, &e.Message)
}

// InvalidObjectError reports a malformed record rejected by the server.
type InvalidObjectError struct {
	Message string
}

func (e *InvalidObjectError) Error() string {
	return "invalid object: " + e.Message
}

func (e *InvalidObjectError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "InvalidObjectException", e.Message)
}

func (e *InvalidObjectError) Read(ctx context.Context, p thrift.TProtocol) error {
	return readMessageStruct(ctx, p, &e.Message)
}

// InvalidOperationError reports an operation the server refuses for the
// target object, such as altering a view into a table.
type InvalidOperationError struct {
	Message string
}

func (e *InvalidOperationError) Error() string {
	return "invalid operation: " + e.Message
}

func (e *InvalidOperationError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "InvalidOperationException", e.Message)
}

func (e *InvalidOperationError) Read(ctx context.Context, p thrift.TProtocol) error {
	return readMessageStruct(ctx, p, &e.Message)
}

// MetaError is the server's catch-all failure.
type MetaError struct {
	Message string
}

func (e *MetaError) Error() string {
	return "metastore: " + e.Message
}

func (e *MetaError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "MetaException", e.Message)
}

func (e *MetaError) Read(ctx context.Context, p thrift.TProtocol) error {
	return readMessageStruct(ctx, p, &e.Message)
}

// All service exceptions share the single-message wire layout.
func writeMessageStruct(ctx context.Context, p thrift.TProtocol, name, message string) error {
	if err := p.WriteStructBegin(ctx, name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "message", message); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func readMessageStruct(ctx context.Context, p thrift.TProtocol, message *string) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRING {
			v, err := p.ReadString(ctx)
			if err != nil {
				return true, err
			}
			*message = v
			return true, nil
		}
		return false, nil
	})
}
