package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// opaqueError hides its cause from the rendered message, the way remote
// stacks that only keep the chain do.
type opaqueError struct{ cause error }

func (o opaqueError) Error() string { return "operation failed" }
func (o opaqueError) Unwrap() error { return o.cause }

func TestIsTransient(t *testing.T) {
	transient := []struct {
		name string
		err  error
	}{
		{"TransportException", thrift.NewTTransportException(thrift.NOT_OPEN, "broken pipe")},
		{"ProtocolException", thrift.NewTProtocolExceptionWithType(thrift.INVALID_DATA, stderrors.New("bad frame"))},
		{"ApplicationException", thrift.NewTApplicationException(thrift.INTERNAL_ERROR, "server overloaded")},
		{"WrappedTransport", fmt.Errorf("get_table: %w", thrift.NewTTransportException(thrift.TIMED_OUT, "read timed out"))},
		{"NetError", &net.OpError{Op: "read", Net: "tcp", Err: stderrors.New("connection reset by peer")}},
		{"ClosedConn", hms.ErrConnClosed},
		{"WrappedClosedConn", fmt.Errorf("ping: %w", hms.ErrConnClosed)},
		{"MessageMarker", stderrors.New("org.apache.thrift.transport.TTransportException: java.net.SocketTimeoutException")},
		{"MarkerDeepInChain", opaqueError{cause: stderrors.New("TApplicationException: Internal error processing get_table")}},
	}
	for _, tc := range transient {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, isTransient(tc.err))
		})
	}

	permanent := []struct {
		name string
		err  error
	}{
		{"Nil", nil},
		{"MetaError", &hms.MetaError{Message: "metadata store corrupt"}},
		{"NoSuchObject", &hms.NoSuchObjectError{Message: "table sales.events"}},
		{"PlainError", stderrors.New("boom")},
		{"QueryFailure", errors.New(ErrQueryFailed, "command returned code 1", nil)},
	}
	for _, tc := range permanent {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, isTransient(tc.err))
		})
	}
}

func TestRetryRecoversFromDroppedConnection(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("2", "50ms"))
	ctx := context.Background()

	require.NoError(t, c.CreateDatabase(ctx, &Database{Name: "sales"}))

	srv.DropActiveConns()

	db, err := c.GetDatabase(ctx, "sales")
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Equal(t, "sales", db.Name)
}

func TestRetryExhaustionReportsTransient(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("1", "50ms"))

	require.NoError(t, srv.Close())

	err := c.Ping(context.Background())
	require.Error(t, err)

	e := errors.AsError(err)
	assert.Equal(t, ErrRpcTransient, e.Code)
	// One retry beyond the first attempt, then the limit cuts in.
	assert.Equal(t, "2", e.Context["attempts"])
	assert.NotEmpty(t, e.Context["remote"])
	require.NotNil(t, e.Cause)
}

func TestNonTransientFailureIsNotRetried(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("3", "10ms"))
	ctx := context.Background()

	require.NoError(t, c.CreateDatabase(ctx, &Database{Name: "sales"}))
	srv.FailNext("get_database", "backend glitch")

	// A retry would consume the injected failure and then succeed, so an
	// error here proves the declared failure went through exactly once.
	_, err := c.GetDatabase(ctx, "sales")
	require.Error(t, err)

	var meta *hms.MetaError
	require.ErrorAs(t, err, &meta)
	assert.Contains(t, meta.Message, "backend glitch")

	db, err := c.GetDatabase(ctx, "sales")
	require.NoError(t, err)
	require.NotNil(t, db)
}

func TestRetryLimitZeroMeansSingleAttempt(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("0", "50ms"))

	require.NoError(t, srv.Close())

	err := c.Ping(context.Background())
	require.Error(t, err)

	e := errors.AsError(err)
	assert.Equal(t, ErrRpcTransient, e.Code)
	assert.Equal(t, "1", e.Context["attempts"])
}

func TestCanceledContextStopsRetrying(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("5", "50ms"))

	require.NoError(t, srv.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ping(ctx)
	require.Error(t, err)

	e := errors.AsError(err)
	assert.Equal(t, ErrRpcTransient, e.Code)
	assert.Equal(t, "1", e.Context["attempts"])
}

func TestClosedClientFailsFast(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrClientClosed, errors.AsError(err).Code)
}
