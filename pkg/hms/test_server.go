package hms

import (
	"context"
	"net"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/require"
)

// TestServer is an in-process metastore fake speaking the real wire
// protocol. It keeps catalog state in memory and exposes failure knobs so
// tests can exercise reconnect paths without a flaky network.
type TestServer struct {
	ln net.Listener

	mu        sync.Mutex
	databases map[string]*Database
	tables    map[string]*Table
	partition map[string][]*Partition
	indexes   map[string][]*Index
	results   map[string][]string
	canned    map[string][]string
	cannedErr map[string]string
	failures  map[string][]string
	loads     []LoadCall
	commands  []string
	ugiUser   string
	ugiGroups []string
	rejectN   int
	conns     map[net.Conn]struct{}
	closed    bool
}

// LoadCall records one load_* request for assertions. Optional flags stay
// pointers so tests can tell an explicit false from an absent field.
type LoadCall struct {
	Method            string
	Source            string
	DbName            string
	TableName         string
	Partition         []*KeyValue
	Replace           bool
	InheritTableSpecs bool
	NumDP             int32

	HoldDDLTime           *bool
	IsSrcLocal            *bool
	IsSkewedStoreAsSubdir *bool
	IsAcid                *bool
	ListBucketingEnabled  *bool
	TxnID                 *int64
}

// NewTestServer starts a fake metastore on an ephemeral port. It is torn
// down with the test.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &TestServer{
		ln:        ln,
		databases: make(map[string]*Database),
		tables:    make(map[string]*Table),
		partition: make(map[string][]*Partition),
		indexes:   make(map[string][]*Index),
		results:   make(map[string][]string),
		canned:    make(map[string][]string),
		cannedErr: make(map[string]string),
		failures:  make(map[string][]string),
		conns:     make(map[net.Conn]struct{}),
	}
	go s.acceptLoop()
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// Addr returns the host:port the fake listens on.
func (s *TestServer) Addr() string {
	return s.ln.Addr().String()
}

// Port returns the ephemeral port the fake listens on.
func (s *TestServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Options returns connection options pointed at the fake.
func (s *TestServer) Options() *Options {
	return &Options{Host: "127.0.0.1", Port: s.Port()}
}

// Close stops the listener and severs every live connection.
func (s *TestServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = make(map[net.Conn]struct{})
	s.mu.Unlock()
	return s.ln.Close()
}

// RejectNext makes the fake slam the door on the next n accepted
// connections before any handshake completes.
func (s *TestServer) RejectNext(n int) {
	s.mu.Lock()
	s.rejectN = n
	s.mu.Unlock()
}

// DropActiveConns severs every established connection server-side. The
// client's next call on a dropped connection fails at the transport.
func (s *TestServer) DropActiveConns() {
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = make(map[net.Conn]struct{})
	s.mu.Unlock()
}

// FailNext queues a metastore-level failure for the next invocation of
// method. The call is answered with a declared exception, not a broken
// transport, so it reads as a permanent failure to callers.
func (s *TestServer) FailNext(method, message string) {
	s.mu.Lock()
	s.failures[method] = append(s.failures[method], message)
	s.mu.Unlock()
}

// Respond cans result rows for one command string.
func (s *TestServer) Respond(command string, rows ...string) {
	s.mu.Lock()
	s.canned[command] = rows
	s.mu.Unlock()
}

// FailCommand makes execute report a failed status for one command string.
func (s *TestServer) FailCommand(command, message string) {
	s.mu.Lock()
	s.cannedErr[command] = message
	s.mu.Unlock()
}

// LastUgi reports the identity announced on the most recent handshake.
func (s *TestServer) LastUgi() (string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ugiUser, append([]string(nil), s.ugiGroups...)
}

// LoadCalls returns the load_* requests seen so far.
func (s *TestServer) LoadCalls() []LoadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LoadCall(nil), s.loads...)
}

// ExecutedCommands returns every command string passed to execute.
func (s *TestServer) ExecutedCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// SeedPartition installs a partition record directly, bypassing the wire.
func (s *TestServer) SeedPartition(part *Partition) {
	s.mu.Lock()
	key := part.DbName + "." + part.TableName
	s.partition[key] = append(s.partition[key], part)
	s.mu.Unlock()
}

// SeedIndex installs an index record directly, bypassing the wire.
func (s *TestServer) SeedIndex(idx *Index) {
	s.mu.Lock()
	key := idx.DbName + "." + idx.OrigTableName
	s.indexes[key] = append(s.indexes[key], idx)
	s.mu.Unlock()
}

func (s *TestServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.rejectN > 0 {
			s.rejectN--
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *TestServer) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *TestServer) serve(conn net.Conn) {
	defer s.forget(conn)
	defer conn.Close()

	ctx := context.Background()
	socket := thrift.NewTSocketFromConnConf(conn, &thrift.TConfiguration{})
	trans := thrift.NewTBufferedTransport(socket, 4096)
	proto := thrift.NewTBinaryProtocolConf(trans, nil)

	for {
		name, typeID, seqID, err := proto.ReadMessageBegin(ctx)
		if err != nil {
			return
		}
		if typeID != thrift.CALL {
			return
		}
		if err := s.dispatch(ctx, proto, name, seqID); err != nil {
			return
		}
		if err := trans.Flush(ctx); err != nil {
			return
		}
	}
}

// Exception slot of the generic metastore failure per method, used when a
// queued FailNext fires.
var metaSlot = map[string]int16{
	"set_ugi":                  1,
	"create_database":          3,
	"get_database":             2,
	"get_databases":            1,
	"drop_database":            3,
	"create_table":             3,
	"get_table":                1,
	"get_tables":               1,
	"alter_table":              2,
	"drop_table":               3,
	"get_partition":            1,
	"get_partitions":           2,
	"get_partitions_by_filter": 1,
	"get_indexes":              2,
	"drop_index_by_name":       2,
	"load_table":               2,
	"load_partition":           2,
	"load_dynamic_partitions":  2,
	"execute":                  1,
	"fetch_results":            1,
}

func (s *TestServer) dispatch(ctx context.Context, proto thrift.TProtocol, name string, seqID int32) error {
	if msg, ok := s.takeFailure(name); ok {
		if err := thrift.Skip(ctx, proto, thrift.STRUCT, thrift.DEFAULT_RECURSION_DEPTH); err != nil {
			return err
		}
		if err := proto.ReadMessageEnd(ctx); err != nil {
			return err
		}
		slot := metaSlot[name]
		return s.reply(ctx, proto, name, seqID, func(p thrift.TProtocol) error {
			return writeFieldStruct(ctx, p, slot, "o", &MetaError{Message: msg})
		})
	}

	var (
		write func(p thrift.TProtocol) error
		err   error
	)
	switch name {
	case "set_ugi":
		write, err = s.handleSetUgi(ctx, proto)
	case "create_database":
		write, err = s.handleCreateDatabase(ctx, proto)
	case "get_database":
		write, err = s.handleGetDatabase(ctx, proto)
	case "get_databases":
		write, err = s.handleGetDatabases(ctx, proto)
	case "drop_database":
		write, err = s.handleDropDatabase(ctx, proto)
	case "create_table":
		write, err = s.handleCreateTable(ctx, proto)
	case "get_table":
		write, err = s.handleGetTable(ctx, proto)
	case "get_tables":
		write, err = s.handleGetTables(ctx, proto)
	case "alter_table":
		write, err = s.handleAlterTable(ctx, proto)
	case "drop_table":
		write, err = s.handleDropTable(ctx, proto)
	case "get_partition":
		write, err = s.handleGetPartition(ctx, proto)
	case "get_partitions":
		write, err = s.handleGetPartitions(ctx, proto)
	case "get_partitions_by_filter":
		write, err = s.handleGetPartitionsByFilter(ctx, proto)
	case "get_indexes":
		write, err = s.handleGetIndexes(ctx, proto)
	case "drop_index_by_name":
		write, err = s.handleDropIndex(ctx, proto)
	case "load_table":
		write, err = s.handleLoadTable(ctx, proto)
	case "load_partition":
		write, err = s.handleLoadPartition(ctx, proto)
	case "load_dynamic_partitions":
		write, err = s.handleLoadDynamicPartitions(ctx, proto)
	case "execute":
		write, err = s.handleExecute(ctx, proto)
	case "fetch_results":
		write, err = s.handleFetchResults(ctx, proto)
	default:
		if err := thrift.Skip(ctx, proto, thrift.STRUCT, thrift.DEFAULT_RECURSION_DEPTH); err != nil {
			return err
		}
		if err := proto.ReadMessageEnd(ctx); err != nil {
			return err
		}
		ex := thrift.NewTApplicationException(thrift.UNKNOWN_METHOD, "unknown method: "+name)
		if err := proto.WriteMessageBegin(ctx, name, thrift.EXCEPTION, seqID); err != nil {
			return err
		}
		if err := ex.Write(ctx, proto); err != nil {
			return err
		}
		return proto.WriteMessageEnd(ctx)
	}
	if err != nil {
		return err
	}
	if err := proto.ReadMessageEnd(ctx); err != nil {
		return err
	}
	return s.reply(ctx, proto, name, seqID, write)
}

func (s *TestServer) takeFailure(method string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.failures[method]
	if len(queue) == 0 {
		return "", false
	}
	s.failures[method] = queue[1:]
	return queue[0], true
}

func (s *TestServer) reply(ctx context.Context, proto thrift.TProtocol, method string, seqID int32, write func(p thrift.TProtocol) error) error {
	if err := proto.WriteMessageBegin(ctx, method, thrift.REPLY, seqID); err != nil {
		return err
	}
	if err := proto.WriteStructBegin(ctx, method+"_result"); err != nil {
		return err
	}
	if write != nil {
		if err := write(proto); err != nil {
			return err
		}
	}
	if err := proto.WriteFieldStop(ctx); err != nil {
		return err
	}
	if err := proto.WriteStructEnd(ctx); err != nil {
		return err
	}
	return proto.WriteMessageEnd(ctx)
}

func (s *TestServer) handleSetUgi(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		user   string
		groups []string
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			user, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.LIST:
			groups, err = readStringList(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.ugiUser = user
	s.ugiGroups = append([]string(nil), groups...)
	s.mu.Unlock()

	return func(out thrift.TProtocol) error {
		return writeFieldStringList(ctx, out, 0, "success", groups)
	}, nil
}

func (s *TestServer) handleCreateDatabase(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	db := &Database{}
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRUCT {
			return true, db.Read(ctx, p)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[db.Name]; ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &AlreadyExistsError{Message: "database " + db.Name + " already exists"})
		}, nil
	}
	s.databases[db.Name] = db
	return nil, nil
}

func (s *TestServer) handleGetDatabase(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var name string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRING {
			var err error
			name, err = p.ReadString(ctx)
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	db, ok := s.databases[name]
	s.mu.Unlock()
	if !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &NoSuchObjectError{Message: "database " + name})
		}, nil
	}
	return func(out thrift.TProtocol) error {
		return writeFieldStruct(ctx, out, 0, "success", db)
	}, nil
}

func (s *TestServer) handleGetDatabases(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var pattern string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRING {
			var err error
			pattern, err = p.ReadString(ctx)
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var names []string
	for name := range s.databases {
		if matchPattern(pattern, name) {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	return func(out thrift.TProtocol) error {
		return writeFieldStringList(ctx, out, 0, "success", names)
	}, nil
}

func (s *TestServer) handleDropDatabase(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		name    string
		cascade bool
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			name, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.BOOL:
			cascade, err = p.ReadBool(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[name]; !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &NoSuchObjectError{Message: "database " + name})
		}, nil
	}
	var contained []string
	for key := range s.tables {
		if strings.HasPrefix(key, name+".") {
			contained = append(contained, key)
		}
	}
	if len(contained) > 0 && !cascade {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 2, "o2", &InvalidOperationError{Message: "database " + name + " is not empty"})
		}, nil
	}
	for _, key := range contained {
		delete(s.tables, key)
		delete(s.partition, key)
		delete(s.indexes, key)
	}
	delete(s.databases, name)
	return nil, nil
}

func (s *TestServer) handleCreateTable(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	tbl := &Table{}
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRUCT {
			return true, tbl.Read(ctx, p)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[tbl.DbName]; !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 4, "o4", &NoSuchObjectError{Message: "database " + tbl.DbName})
		}, nil
	}
	key := tbl.DbName + "." + tbl.Name
	if _, ok := s.tables[key]; ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &AlreadyExistsError{Message: "table " + key + " already exists"})
		}, nil
	}
	s.tables[key] = tbl
	return nil, nil
}

func (s *TestServer) handleGetTable(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var db, tbl string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	record, ok := s.tables[db+"."+tbl]
	s.mu.Unlock()
	if !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 2, "o2", &NoSuchObjectError{Message: "table " + db + "." + tbl})
		}, nil
	}
	return func(out thrift.TProtocol) error {
		return writeFieldStruct(ctx, out, 0, "success", record)
	}, nil
}

func (s *TestServer) handleGetTables(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var db, pattern string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			pattern, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var names []string
	for key := range s.tables {
		name := strings.TrimPrefix(key, db+".")
		if name == key {
			continue
		}
		if matchPattern(pattern, name) {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	return func(out thrift.TProtocol) error {
		return writeFieldStringList(ctx, out, 0, "success", names)
	}, nil
}

func (s *TestServer) handleAlterTable(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		db, tbl string
		next    = &Table{}
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRUCT:
			err = next.Read(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := db + "." + tbl
	if _, ok := s.tables[key]; !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &InvalidOperationError{Message: "table " + key + " not found"})
		}, nil
	}
	delete(s.tables, key)
	s.tables[next.DbName+"."+next.Name] = next
	return nil, nil
}

func (s *TestServer) handleDropTable(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var db, tbl string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := db + "." + tbl
	if _, ok := s.tables[key]; !ok {
		return func(out thrift.TProtocol) error {
			return writeFieldStruct(ctx, out, 1, "o1", &NoSuchObjectError{Message: "table " + key})
		}, nil
	}
	delete(s.tables, key)
	delete(s.partition, key)
	delete(s.indexes, key)
	return nil, nil
}

func (s *TestServer) handleGetPartition(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		db, tbl string
		values  []string
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.LIST:
			values, err = readStringList(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, part := range s.partition[db+"."+tbl] {
		if equalValues(part.Values, values) {
			record := part
			return func(out thrift.TProtocol) error {
				return writeFieldStruct(ctx, out, 0, "success", record)
			}, nil
		}
	}
	return func(out thrift.TProtocol) error {
		return writeFieldStruct(ctx, out, 2, "o2", &NoSuchObjectError{Message: "partition of " + db + "." + tbl})
	}, nil
}

func (s *TestServer) handleGetPartitions(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		db, tbl  string
		maxParts int16
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.I16:
			maxParts, err = p.ReadI16(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	parts := append([]*Partition(nil), s.partition[db+"."+tbl]...)
	s.mu.Unlock()
	if maxParts >= 0 && int(maxParts) < len(parts) {
		parts = parts[:maxParts]
	}

	return func(out thrift.TProtocol) error {
		return writeFieldStructList(ctx, out, 0, "success", parts)
	}, nil
}

func (s *TestServer) handleGetPartitionsByFilter(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		db, tbl, filter string
		maxParts        int16
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			filter, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.I16:
			maxParts, err = p.ReadI16(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	record := s.tables[db+"."+tbl]
	var keys []*FieldSchema
	if record != nil {
		keys = record.PartitionKeys
	}
	var parts []*Partition
	for _, part := range s.partition[db+"."+tbl] {
		if matchFilter(filter, part, keys) {
			parts = append(parts, part)
		}
	}
	s.mu.Unlock()
	if maxParts >= 0 && int(maxParts) < len(parts) {
		parts = parts[:maxParts]
	}

	return func(out thrift.TProtocol) error {
		return writeFieldStructList(ctx, out, 0, "success", parts)
	}, nil
}

func (s *TestServer) handleGetIndexes(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		db, tbl    string
		maxIndexes int16
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.I16:
			maxIndexes, err = p.ReadI16(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	indexes := append([]*Index(nil), s.indexes[db+"."+tbl]...)
	s.mu.Unlock()
	if maxIndexes >= 0 && int(maxIndexes) < len(indexes) {
		indexes = indexes[:maxIndexes]
	}

	return func(out thrift.TProtocol) error {
		return writeFieldStructList(ctx, out, 0, "success", indexes)
	}, nil
}

func (s *TestServer) handleDropIndex(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var db, tbl, index string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			db, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			tbl, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			index, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := db + "." + tbl
	kept := s.indexes[key][:0]
	dropped := false
	for _, idx := range s.indexes[key] {
		if idx.Name == index {
			dropped = true
			// The index table goes away with its index, mirroring the
			// real server.
			if idx.IndexTableName != "" {
				delete(s.tables, db+"."+idx.IndexTableName)
			}
			continue
		}
		kept = append(kept, idx)
	}
	s.indexes[key] = kept

	return func(out thrift.TProtocol) error {
		return writeFieldBool(ctx, out, 0, "success", dropped)
	}, nil
}

func (s *TestServer) handleLoadTable(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	req := &LoadTableReq{}
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRUCT {
			return true, req.Read(ctx, p)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loads = append(s.loads, LoadCall{
		Method:                "load_table",
		Source:                req.SourcePath,
		DbName:                req.DbName,
		TableName:             req.TableName,
		Replace:               req.Replace,
		HoldDDLTime:           req.HoldDDLTime,
		IsSrcLocal:            req.IsSrcLocal,
		IsSkewedStoreAsSubdir: req.IsSkewedStoreAsSubdir,
		IsAcid:                req.IsAcid,
	})
	s.mu.Unlock()
	return nil, nil
}

func (s *TestServer) handleLoadPartition(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	req := &LoadPartitionReq{}
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRUCT {
			return true, req.Read(ctx, p)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loads = append(s.loads, LoadCall{
		Method:                "load_partition",
		Source:                req.SourcePath,
		DbName:                req.DbName,
		TableName:             req.TableName,
		Partition:             req.Partition,
		Replace:               req.Replace,
		InheritTableSpecs:     req.InheritTableSpecs,
		HoldDDLTime:           req.HoldDDLTime,
		IsSrcLocal:            req.IsSrcLocal,
		IsSkewedStoreAsSubdir: req.IsSkewedStoreAsSubdir,
		IsAcid:                req.IsAcid,
	})
	// Loading a fresh partition registers it, mirroring the real server.
	key := req.DbName + "." + req.TableName
	values := make([]string, 0, len(req.Partition))
	for _, kv := range req.Partition {
		values = append(values, kv.Value)
	}
	known := false
	for _, part := range s.partition[key] {
		if equalValues(part.Values, values) {
			known = true
			break
		}
	}
	if !known {
		location := ""
		if tbl, ok := s.tables[key]; ok && tbl.Sd != nil {
			segments := make([]string, 0, len(req.Partition))
			for _, kv := range req.Partition {
				segments = append(segments, kv.Key+"="+kv.Value)
			}
			location = tbl.Sd.Location + "/" + path.Join(segments...)
		}
		s.partition[key] = append(s.partition[key], &Partition{
			Values:    values,
			DbName:    req.DbName,
			TableName: req.TableName,
			Sd:        &StorageDescriptor{Location: location},
		})
	}
	s.mu.Unlock()
	return nil, nil
}

func (s *TestServer) handleLoadDynamicPartitions(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	req := &LoadDynamicPartitionsReq{}
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRUCT {
			return true, req.Read(ctx, p)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.loads = append(s.loads, LoadCall{
		Method:               "load_dynamic_partitions",
		Source:               req.SourcePath,
		DbName:               req.DbName,
		TableName:            req.TableName,
		Partition:            req.Partition,
		Replace:              req.Replace,
		NumDP:                req.NumDP,
		HoldDDLTime:          req.HoldDDLTime,
		ListBucketingEnabled: req.ListBucketingEnabled,
		IsAcid:               req.IsAcid,
		TxnID:                req.TxnID,
	})
	s.mu.Unlock()
	return nil, nil
}

func (s *TestServer) handleExecute(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var commandID, command string
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			commandID, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			command, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.commands = append(s.commands, command)
	status := &CommandStatus{Code: 0, SQLState: "00000"}
	if msg, ok := s.cannedErr[command]; ok {
		status = &CommandStatus{Code: 1, SQLState: "42000", Message: msg}
	} else if rows, ok := s.canned[command]; ok {
		s.results[commandID] = append([]string(nil), rows...)
	} else {
		s.results[commandID] = nil
	}
	s.mu.Unlock()

	return func(out thrift.TProtocol) error {
		return writeFieldStruct(ctx, out, 0, "success", status)
	}, nil
}

func (s *TestServer) handleFetchResults(ctx context.Context, p thrift.TProtocol) (func(thrift.TProtocol) error, error) {
	var (
		commandID string
		maxRows   int32
	)
	err := readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			commandID, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.I32:
			maxRows, err = p.ReadI32(ctx)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows := s.results[commandID]
	if maxRows >= 0 && int(maxRows) < len(rows) {
		s.results[commandID] = rows[maxRows:]
		rows = rows[:maxRows]
	} else {
		delete(s.results, commandID)
	}
	s.mu.Unlock()

	return func(out thrift.TProtocol) error {
		return writeFieldStringList(ctx, out, 0, "success", rows)
	}, nil
}

// matchPattern implements the metastore's glob dialect: '*' matches any
// run, '|' separates alternatives.
func matchPattern(pattern, name string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	for _, alt := range strings.Split(pattern, "|") {
		if ok, err := path.Match(alt, name); err == nil && ok {
			return true
		}
	}
	return false
}

// matchFilter evaluates a conjunction of "key = value" clauses against a
// partition, enough of the filter language for tests.
func matchFilter(filter string, part *Partition, keys []*FieldSchema) bool {
	if strings.TrimSpace(filter) == "" {
		return true
	}
	for _, clause := range strings.Split(filter, " AND ") {
		name, want, ok := strings.Cut(clause, "=")
		if !ok {
			return false
		}
		name = strings.TrimSpace(name)
		want = strings.Trim(strings.TrimSpace(want), `"'`)
		idx := -1
		for i, key := range keys {
			if key.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 || idx >= len(part.Values) || part.Values[idx] != want {
			return false
		}
	}
	return true
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
