package client

import (
	"context"
	stderrors "errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/gear6io/metabridge/client/config"
	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// Settings the client reads once at construction.
const (
	retryLimitKey = "metastore.failure.retries"
	retryDelayKey = "metastore.connect.retry.delay"
)

// Client is a version-portable metastore catalog client. One client owns one
// connection and one session; operations from concurrent callers are
// serialized behind the instance lock because the remote session they share
// is not safe for interleaved use. Independent clients share nothing and run
// in parallel freely.
type Client struct {
	cfg        config.MetastoreConfig
	version    Version
	shim       shim
	session    *Session
	deriver    PrivilegeDeriver
	logger     zerolog.Logger
	wireLogger *zap.Logger

	mu         sync.Mutex
	conn       *hms.Conn
	closed     bool
	retryLimit int
	retryDelay time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithPrivilegeDeriver supplies the authorization collaborator that must be
// present when the configuration names an authorization manager.
func WithPrivilegeDeriver(d PrivilegeDeriver) Option {
	return func(c *Client) { c.deriver = d }
}

// WithWireLogger routes connection-level protocol logging somewhere useful.
// Wire logging is off by default.
func WithWireLogger(l *zap.Logger) Option {
	return func(c *Client) { c.wireLogger = l }
}

// New builds a client for cfg and dials the catalog eagerly, so a bad
// endpoint fails construction instead of the first operation.
func New(ctx context.Context, cfg config.MetastoreConfig, logger zerolog.Logger, opts ...Option) (*Client, error) {
	return newClient(ctx, cfg, nil, logger, opts)
}

// NewWithSession reuses an existing session instead of opening a fresh one,
// for callers running several protocol versions over one execution state.
func NewWithSession(ctx context.Context, cfg config.MetastoreConfig, sess *Session, logger zerolog.Logger, opts ...Option) (*Client, error) {
	return newClient(ctx, cfg, sess, logger, opts)
}

func newClient(ctx context.Context, cfg config.MetastoreConfig, sess *Session, logger zerolog.Logger, opts []Option) (*Client, error) {
	version, err := ParseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}
	sh, err := newShim(version)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		version: version,
		shim:    sh,
		logger: logger.With().
			Str("component", "catalog-client").
			Str("metastore_version", version.String()).
			Logger(),
		wireLogger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.AuthManager != "" && c.deriver == nil {
		return nil, errors.Newf(ErrAuthorizerRequired,
			"configuration names authorization manager %q but no privilege deriver was supplied", cfg.AuthManager)
	}

	if sess == nil {
		user := cfg.Username
		if user == "" {
			user = "anonymous"
		}
		sess = newSession(user, cfg.Settings, c.logger)
	}
	c.session = sess

	c.retryLimit = retryLimitFrom(sess)
	delayRaw, _ := sess.Value(retryDelayKey)
	c.retryDelay = sh.connectRetryDelay(delayRaw)

	conn, err := hms.Dial(ctx, c.dialOptions())
	if err != nil {
		return nil, errors.New(ErrConnectionFailed, "could not reach the metastore", err).
			AddContext("host", cfg.Host).
			AddContext("port", strconv.Itoa(cfg.Port))
	}
	c.conn = conn

	c.logger.Info().
		Str("remote", conn.Remote()).
		Int("retry_limit", c.retryLimit).
		Dur("retry_delay", c.retryDelay).
		Msg("Connected to metastore")
	return c, nil
}

// retryLimitFrom reads the failure retry count, defaulting to one retry
// beyond the first attempt.
func retryLimitFrom(sess *Session) int {
	raw, ok := sess.Value(retryLimitKey)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

func (c *Client) dialOptions() *hms.Options {
	return &hms.Options{
		Host:          c.cfg.Host,
		Port:          c.cfg.Port,
		Username:      c.cfg.Username,
		Groups:        c.cfg.Groups,
		DialTimeout:   c.cfg.Timeout,
		SocketTimeout: c.cfg.Timeout,
		Logger:        c.wireLogger,
	}
}

// Version returns the protocol version the client was built for.
func (c *Client) Version() Version { return c.version }

// Session returns the client's execution state.
func (c *Client) Session() *Session { return c.session }

// CurrentDatabase returns the database unqualified names resolve against.
func (c *Client) CurrentDatabase() string { return c.session.CurrentDatabase() }

// Value returns a session setting, or def when unset.
func (c *Client) Value(key, def string) string {
	if v, ok := c.session.Value(key); ok {
		return v
	}
	return def
}

// SetOutputStream redirects command output for this client's session.
func (c *Client) SetOutputStream(w io.Writer) { c.session.SetOutputStream(w) }

// SetErrorStream redirects command error output for this client's session.
func (c *Client) SetErrorStream(w io.Writer) { c.session.SetErrorStream(w) }

// SetInfoStream redirects informational output for this client's session.
func (c *Client) SetInfoStream(w io.Writer) { c.session.SetInfoStream(w) }

// SetCurrentDatabase switches the session's database after checking it
// exists.
func (c *Client) SetCurrentDatabase(ctx context.Context, name string) error {
	db, err := c.GetDatabase(ctx, name)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.Newf(ErrDatabaseNotFound, "database %q does not exist", name)
	}
	c.session.setCurrentDatabase(db.Name)
	return nil
}

// Ping verifies the catalog answers at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		_, err := conn.GetDatabase(ctx, "default")
		return err
	})
}

// Close shuts the connection down. Closing twice is harmless; operations
// after Close fail with a closed-client error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.conn.Close()
	c.logger.Debug().Msg("Catalog client closed")
	return err
}

// --- databases ---

// CreateDatabase registers a new database.
func (c *Client) CreateDatabase(ctx context.Context, db *Database) error {
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return conn.CreateDatabase(ctx, fromDatabase(db))
	})
}

// GetDatabase fetches one database, returning nil when it does not exist.
func (c *Client) GetDatabase(ctx context.Context, name string) (*Database, error) {
	var db *Database
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		native, err := conn.GetDatabase(ctx, name)
		if err != nil {
			return err
		}
		db = toDatabase(native)
		return nil
	})
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// DropDatabase removes a database. cascade drops its tables first.
func (c *Client) DropDatabase(ctx context.Context, name string, deleteData, cascade bool) error {
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return conn.DropDatabase(ctx, name, deleteData, cascade)
	})
}

// ListDatabases lists database names matching pattern ("*" for all).
func (c *Client) ListDatabases(ctx context.Context, pattern string) ([]string, error) {
	var names []string
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		var err error
		names, err = conn.GetDatabases(ctx, pattern)
		return err
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// --- tables ---

// GetTable fetches one table, returning nil when it does not exist. An
// empty db means the session's current database.
func (c *Client) GetTable(ctx context.Context, db, name string) (*Table, error) {
	if db == "" {
		db = c.session.CurrentDatabase()
	}
	var tbl *Table
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		native, err := conn.GetTable(ctx, db, name)
		if err != nil {
			return err
		}
		tbl, err = toTable(c.shim, native)
		return err
	})
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tbl.client = c
	return tbl, nil
}

// TableExists reports whether a table exists.
func (c *Client) TableExists(ctx context.Context, db, name string) (bool, error) {
	tbl, err := c.GetTable(ctx, db, name)
	if err != nil {
		return false, err
	}
	return tbl != nil, nil
}

// CreateTable registers a new table. Owner and creation time are stamped
// from the session; a table without a database lands in the current one.
func (c *Client) CreateTable(ctx context.Context, t *Table) error {
	native, err := fromTable(c.session, c.shim, t)
	if err != nil {
		return err
	}
	native.DbName = c.databaseOf(t)
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return conn.CreateTable(ctx, native)
	})
}

// AlterTable replaces the definition behind qualifiedName with t.
func (c *Client) AlterTable(ctx context.Context, qualifiedName string, t *Table) error {
	db, name := c.splitTarget(qualifiedName)
	native, err := fromTable(c.session, c.shim, t)
	if err != nil {
		return err
	}
	native.DbName = db
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return conn.AlterTable(ctx, db, name, native)
	})
}

// DropTable removes a table.
func (c *Client) DropTable(ctx context.Context, db, name string, deleteData bool) error {
	if db == "" {
		db = c.session.CurrentDatabase()
	}
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return conn.DropTable(ctx, db, name, deleteData)
	})
}

// ListTables lists every table name in a database.
func (c *Client) ListTables(ctx context.Context, db string) ([]string, error) {
	if db == "" {
		db = c.session.CurrentDatabase()
	}
	var names []string
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		var err error
		names, err = conn.GetTables(ctx, db, "*")
		return err
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// --- partitions ---

// GetPartition fetches one partition by spec, returning nil when it does
// not exist. The spec must bind every partition column.
func (c *Client) GetPartition(ctx context.Context, tbl *Table, spec PartitionSpec) (*Partition, error) {
	values, err := orderedValues(tbl, spec)
	if err != nil {
		return nil, err
	}
	db := c.databaseOf(tbl)

	var part *Partition
	err = c.withRetry(ctx, func(conn *hms.Conn) error {
		native, err := conn.GetPartition(ctx, db, tbl.Name, values)
		if err != nil {
			return err
		}
		part = toPartition(native)
		return nil
	})
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return part, nil
}

// GetAllPartitions lists every partition of a table.
func (c *Client) GetAllPartitions(ctx context.Context, tbl *Table) ([]*Partition, error) {
	db := c.databaseOf(tbl)
	var natives []*hms.Partition
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		var err error
		natives, err = c.shim.allPartitions(ctx, conn, db, tbl.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toPartitions(natives), nil
}

// GetPartitionsByFilter lists the partitions matching every predicate.
// Versions that cannot push the filter to the server are pruned here
// instead, so callers see the same semantics everywhere.
func (c *Client) GetPartitionsByFilter(ctx context.Context, tbl *Table, preds []Predicate) ([]*Partition, error) {
	if len(preds) == 0 {
		return c.GetAllPartitions(ctx, tbl)
	}
	filter, err := renderFilter(preds)
	if err != nil {
		return nil, err
	}
	db := c.databaseOf(tbl)

	var (
		natives []*hms.Partition
		pushed  bool
	)
	err = c.withRetry(ctx, func(conn *hms.Conn) error {
		var err error
		natives, pushed, err = c.shim.partitionsByFilter(ctx, conn, db, tbl.Name, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !pushed {
		kept := natives[:0]
		for _, native := range natives {
			ok, err := matchPartition(tbl, native.Values, preds)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, native)
			}
		}
		natives = kept
	}
	return toPartitions(natives), nil
}

func toPartitions(natives []*hms.Partition) []*Partition {
	parts := make([]*Partition, len(natives))
	for i, native := range natives {
		parts[i] = toPartition(native)
	}
	return parts
}

// --- loads ---

// LoadPartition moves prepared data files into one partition of a table.
// The spec's binding order is preserved on the wire.
func (c *Client) LoadPartition(ctx context.Context, source, table string, spec PartitionSpec, replace, holdDDLTime, inheritTableSpecs, isSkewedStoreAsSubdir bool) error {
	db, name := c.splitTarget(table)
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return c.shim.loadPartition(ctx, conn, source, db, name, specToWire(spec), replace, holdDDLTime, inheritTableSpecs, isSkewedStoreAsSubdir)
	})
}

// LoadTable moves prepared data files into an unpartitioned table.
func (c *Client) LoadTable(ctx context.Context, source, table string, replace, holdDDLTime bool) error {
	db, name := c.splitTarget(table)
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return c.shim.loadTable(ctx, conn, source, db, name, replace, holdDDLTime)
	})
}

// LoadDynamicPartitions moves data whose trailing partition values are
// discovered from the data itself; numDP is how many columns are dynamic.
func (c *Client) LoadDynamicPartitions(ctx context.Context, source, table string, spec PartitionSpec, replace bool, numDP int, holdDDLTime, listBucketingEnabled bool) error {
	db, name := c.splitTarget(table)
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		return c.shim.loadDynamicPartitions(ctx, conn, source, db, name, specToWire(spec), replace, int32(numDP), holdDDLTime, listBucketingEnabled)
	})
}

// --- reset ---

// Reset drops every index and table in the default database, then every
// non-default database. Destructive; meant for test teardown and session
// resets, and runs as one operation so a reconnect restarts it whole.
func (c *Client) Reset(ctx context.Context) error {
	return c.withRetry(ctx, func(conn *hms.Conn) error {
		tables, err := conn.GetTables(ctx, "default", "*")
		if err != nil {
			return err
		}
		for _, name := range tables {
			tbl, err := conn.GetTable(ctx, "default", name)
			if err != nil {
				// An index table listed up front may already be gone,
				// dropped along with its parent's index.
				if isMissing(err) {
					continue
				}
				return err
			}
			indexes, err := conn.GetIndexes(ctx, "default", name, 255)
			if err != nil {
				return err
			}
			for _, idx := range indexes {
				if _, err := c.shim.dropIndex(ctx, conn, "default", name, idx.Name, true); err != nil {
					return err
				}
			}
			// Index tables go away with their index.
			if tbl.TableType == IndexTable.String() {
				continue
			}
			if err := conn.DropTable(ctx, "default", name, true); err != nil {
				return err
			}
		}

		dbs, err := conn.GetDatabases(ctx, "*")
		if err != nil {
			return err
		}
		for _, db := range dbs {
			if db == "default" {
				continue
			}
			if err := conn.DropDatabase(ctx, db, true, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// databaseOf resolves the database a table belongs to, defaulting to the
// session's current one.
func (c *Client) databaseOf(t *Table) string {
	if t.Database != "" {
		return t.Database
	}
	return c.session.CurrentDatabase()
}

// splitTarget resolves a possibly-qualified table name against the session.
func (c *Client) splitTarget(table string) (db, name string) {
	db, name = splitQualified(table)
	if db == "" {
		db = c.session.CurrentDatabase()
	}
	return db, name
}

// isMissing spots the catalog's object-not-found failure, which lookups
// translate to a nil result instead of an error.
func isMissing(err error) bool {
	var miss *hms.NoSuchObjectError
	return stderrors.As(err, &miss)
}
