package hms

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Conn is a single connection to a metastore catalog service speaking the
// thrift binary protocol. A Conn has exactly one owner at a time and is not
// safe for concurrent calls; callers serialize access themselves.
type Conn struct {
	opt       *Options
	remote    string
	transport thrift.TTransport
	client    *thrift.TStandardClient
	logger    *zap.Logger
	closed    bool
}

// Dial opens a connection and, unless disabled, performs the set_ugi
// identity handshake before handing the connection out.
func Dial(ctx context.Context, opt *Options) (*Conn, error) {
	if opt == nil {
		opt = &Options{}
	}
	o := opt.SetDefaults()

	remote := net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	cfg := &thrift.TConfiguration{
		ConnectTimeout: o.DialTimeout,
		SocketTimeout:  o.SocketTimeout,
	}

	socket := thrift.NewTSocketConf(remote, cfg)
	transport := thrift.NewTBufferedTransport(socket, o.BufferSize)
	if err := transport.Open(); err != nil {
		return nil, errors.Wrap(err, "open metastore transport")
	}

	conn := &Conn{
		opt:       o,
		remote:    remote,
		transport: transport,
		client: thrift.NewTStandardClient(
			thrift.NewTBinaryProtocolConf(transport, cfg),
			thrift.NewTBinaryProtocolConf(transport, cfg),
		),
		logger: o.Logger,
	}

	if !o.DisableUgi {
		if _, err := conn.SetUgi(ctx, o.Username, o.Groups); err != nil {
			transport.Close()
			return nil, errors.Wrap(err, "set_ugi handshake")
		}
	}

	conn.logger.Debug("metastore connection established",
		zap.String("remote", remote),
		zap.String("user", o.Username))

	return conn, nil
}

// Remote returns the host:port this connection dialed.
func (c *Conn) Remote() string {
	return c.remote
}

// IsOpen reports whether the transport is still usable.
func (c *Conn) IsOpen() bool {
	return !c.closed && c.transport.IsOpen()
}

// Close shuts the transport down. Closing twice is harmless.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}

// call runs one RPC through the standard client. Transport and protocol
// failures come back wrapped with the method name; service-declared
// exceptions are the result reader's business.
func (c *Conn) call(ctx context.Context, method string, args, result thrift.TStruct) error {
	if c.closed {
		return ErrConnClosed
	}

	start := time.Now()
	if _, err := c.client.Call(ctx, method, args, result); err != nil {
		return errors.Wrap(err, method)
	}

	c.logger.Debug("metastore call",
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// argsWriter adapts a field-writing closure into the TStruct the standard
// client expects for outgoing arguments.
type argsWriter func(ctx context.Context, p thrift.TProtocol) error

func (w argsWriter) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "args"); err != nil {
		return err
	}
	if w != nil {
		if err := w(ctx, p); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (w argsWriter) Read(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolExceptionWithType(thrift.NOT_IMPLEMENTED, errors.New("call arguments are write-only"))
}

// resultReader adapts a per-field closure into the TStruct the standard
// client fills from a reply. The closure reports whether it consumed the
// field; anything unconsumed is skipped.
type resultReader func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error)

func (r resultReader) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if r == nil {
			return false, nil
		}
		return r(ctx, p, id, typ)
	})
}

func (r resultReader) Write(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolExceptionWithType(thrift.NOT_IMPLEMENTED, errors.New("call results are read-only"))
}

// noArgs and noResult are placeholders for calls without payload in one
// direction.
var (
	noArgs   = argsWriter(nil)
	noResult = resultReader(nil)
)

// Errors
var (
	ErrConnClosed    = errors.New("hms: connection is closed")
	ErrMissingResult = errors.New("hms: reply carried no result")
)
