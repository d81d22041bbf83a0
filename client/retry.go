package client

import (
	"context"
	stderrors "errors"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/apache/thrift/lib/go/thrift"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// rpcFailurePattern matches the failure markers remote transport stacks
// embed in rendered messages.
var rpcFailurePattern = regexp.MustCompile(`(TApplication|TProtocol|TTransport)Exception`)

// withRetry runs op under the client's instance lock with bounded
// retry-and-reconnect. The deadline is fixed on entry at retryLimit times
// the retry delay. Transient failures are retried against a freshly dialed
// connection until attempts or deadline run out; anything else propagates
// unchanged on the first occurrence. A retryLimit of zero or less means a
// single attempt with no sleep.
func (c *Client) withRetry(ctx context.Context, op func(conn *hms.Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New(ErrClientClosed, "client is closed", nil)
	}

	deadline := time.Now().Add(time.Duration(c.retryLimit) * c.retryDelay)

	var lastErr error
	attempts := 0
	for {
		attempts++
		err := op(c.conn)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err

		if attempts > c.retryLimit || !time.Now().Before(deadline) || ctx.Err() != nil {
			break
		}

		c.logger.Warn().
			Err(err).
			Int("attempt", attempts).
			Int("retry_limit", c.retryLimit).
			Msg("Transient metastore failure, reconnecting")

		time.Sleep(c.retryDelay)
		c.reconnect(ctx)
	}

	return errors.New(ErrRpcTransient, "metastore unreachable after retried attempts", lastErr).
		AddContext("attempts", strconv.Itoa(attempts)).
		AddContext("remote", c.conn.Remote())
}

// reconnect swaps the connection handle for a freshly dialed one, forcing a
// new remote handshake. The old handle is closed first; when the dial fails
// the fault is logged and the dead handle stays in place, so the next
// attempt classifies transient again and the retry loop keeps going.
func (c *Client) reconnect(ctx context.Context) {
	c.conn.Close()
	conn, err := hms.Dial(ctx, c.dialOptions())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to refresh metastore connection, will retry")
		return
	}
	c.conn = conn
}

// isTransient reports whether err is a connection-level failure worth a
// reconnect. Typed checks catch thrift transport, protocol, and application
// exceptions plus net errors anywhere in the chain. The message scan covers
// remote stacks that only surface rendered exception names; matching on
// message text is brittle, but the catalog protocol carries no structured
// code for these failures, so it stays until one exists.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var (
		transport thrift.TTransportException
		protocol  thrift.TProtocolException
		app       thrift.TApplicationException
		netErr    net.Error
	)
	switch {
	case stderrors.As(err, &transport),
		stderrors.As(err, &protocol),
		stderrors.As(err, &app),
		stderrors.As(err, &netErr):
		return true
	}

	// A call issued against an already-closed handle means the previous
	// reconnect did not land; keep retrying.
	if stderrors.Is(err, hms.ErrConnClosed) {
		return true
	}

	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if rpcFailurePattern.MatchString(e.Error()) {
			return true
		}
	}
	return false
}
