package hms

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/go-faster/errors"
)

// RPC wrappers. Argument field ids and exception slots follow the classic
// metastore IDL; the handful of calls that go beyond it (loads, execute,
// fetch_results) use this project's service extension.

// SetUgi announces the caller's identity and echoes the accepted groups.
func (c *Conn) SetUgi(ctx context.Context, user string, groups []string) ([]string, error) {
	var (
		meta   *MetaError
		echoed []string
	)
	err := c.call(ctx, "set_ugi",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "user_name", user); err != nil {
				return err
			}
			return writeFieldStringList(ctx, p, 2, "group_names", groups)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				echoed, err = readStringList(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return nil, meta
	}
	return echoed, nil
}

// CreateDatabase registers a new database.
func (c *Conn) CreateDatabase(ctx context.Context, db *Database) error {
	var (
		exists  *AlreadyExistsError
		invalid *InvalidObjectError
		meta    *MetaError
	)
	err := c.call(ctx, "create_database",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			return writeFieldStruct(ctx, p, 1, "database", db)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				exists = &AlreadyExistsError{}
				err = exists.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				invalid = &InvalidObjectError{}
				err = invalid.Read(ctx, p)
			case id == 3 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case exists != nil:
		return exists
	case invalid != nil:
		return invalid
	case meta != nil:
		return meta
	}
	return nil
}

// GetDatabase fetches one database record.
func (c *Conn) GetDatabase(ctx context.Context, name string) (*Database, error) {
	var (
		miss  *NoSuchObjectError
		meta  *MetaError
		db    = &Database{}
		found bool
	)
	err := c.call(ctx, "get_database",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			return writeFieldString(ctx, p, 1, "name", name)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.STRUCT:
				found = true
				err = db.Read(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case miss != nil:
		return nil, miss
	case meta != nil:
		return nil, meta
	case !found:
		return nil, errors.Wrap(ErrMissingResult, "get_database")
	}
	return db, nil
}

// GetDatabases lists database names matching a glob-style pattern, "*" for
// everything.
func (c *Conn) GetDatabases(ctx context.Context, pattern string) ([]string, error) {
	var (
		meta  *MetaError
		names []string
	)
	err := c.call(ctx, "get_databases",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			return writeFieldString(ctx, p, 1, "pattern", pattern)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				names, err = readStringList(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return nil, meta
	}
	return names, nil
}

// DropDatabase removes a database. With cascade the server drops contained
// tables first; with deleteData it removes the backing files too.
func (c *Conn) DropDatabase(ctx context.Context, name string, deleteData, cascade bool) error {
	var (
		miss    *NoSuchObjectError
		invalid *InvalidOperationError
		meta    *MetaError
	)
	err := c.call(ctx, "drop_database",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "name", name); err != nil {
				return err
			}
			if err := writeFieldBool(ctx, p, 2, "deleteData", deleteData); err != nil {
				return err
			}
			return writeFieldBool(ctx, p, 3, "cascade", cascade)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				invalid = &InvalidOperationError{}
				err = invalid.Read(ctx, p)
			case id == 3 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case miss != nil:
		return miss
	case invalid != nil:
		return invalid
	case meta != nil:
		return meta
	}
	return nil
}

// CreateTable registers a new table record.
func (c *Conn) CreateTable(ctx context.Context, tbl *Table) error {
	var (
		exists  *AlreadyExistsError
		invalid *InvalidObjectError
		meta    *MetaError
		miss    *NoSuchObjectError
	)
	err := c.call(ctx, "create_table",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			return writeFieldStruct(ctx, p, 1, "tbl", tbl)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				exists = &AlreadyExistsError{}
				err = exists.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				invalid = &InvalidObjectError{}
				err = invalid.Read(ctx, p)
			case id == 3 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			case id == 4 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case exists != nil:
		return exists
	case invalid != nil:
		return invalid
	case meta != nil:
		return meta
	case miss != nil:
		return miss
	}
	return nil
}

// GetTable fetches one table record.
func (c *Conn) GetTable(ctx context.Context, dbName, tableName string) (*Table, error) {
	var (
		meta  *MetaError
		miss  *NoSuchObjectError
		tbl   = &Table{}
		found bool
	)
	err := c.call(ctx, "get_table",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "dbname", dbName); err != nil {
				return err
			}
			return writeFieldString(ctx, p, 2, "tbl_name", tableName)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.STRUCT:
				found = true
				err = tbl.Read(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case meta != nil:
		return nil, meta
	case miss != nil:
		return nil, miss
	case !found:
		return nil, errors.Wrap(ErrMissingResult, "get_table")
	}
	return tbl, nil
}

// GetTables lists table names in a database matching a glob-style pattern.
func (c *Conn) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	var (
		meta  *MetaError
		names []string
	)
	err := c.call(ctx, "get_tables",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			return writeFieldString(ctx, p, 2, "pattern", pattern)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				names, err = readStringList(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return nil, meta
	}
	return names, nil
}

// AlterTable replaces a table's record wholesale.
func (c *Conn) AlterTable(ctx context.Context, dbName, tableName string, tbl *Table) error {
	var (
		invalid *InvalidOperationError
		meta    *MetaError
	)
	err := c.call(ctx, "alter_table",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "dbname", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			return writeFieldStruct(ctx, p, 3, "new_tbl", tbl)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				invalid = &InvalidOperationError{}
				err = invalid.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case invalid != nil:
		return invalid
	case meta != nil:
		return meta
	}
	return nil
}

// DropTable removes a table record, and its data when deleteData is set.
func (c *Conn) DropTable(ctx context.Context, dbName, tableName string, deleteData bool) error {
	var (
		miss *NoSuchObjectError
		meta *MetaError
	)
	err := c.call(ctx, "drop_table",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "dbname", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "name", tableName); err != nil {
				return err
			}
			return writeFieldBool(ctx, p, 3, "deleteData", deleteData)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			// The classic IDL skips slot 2 for this call.
			case id == 3 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case miss != nil:
		return miss
	case meta != nil:
		return meta
	}
	return nil
}

// GetPartition fetches one partition by its values, ordered as the table's
// partition keys.
func (c *Conn) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*Partition, error) {
	var (
		meta  *MetaError
		miss  *NoSuchObjectError
		part  = &Partition{}
		found bool
	)
	err := c.call(ctx, "get_partition",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			return writeFieldStringList(ctx, p, 3, "part_vals", values)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.STRUCT:
				found = true
				err = part.Read(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case meta != nil:
		return nil, meta
	case miss != nil:
		return nil, miss
	case !found:
		return nil, errors.Wrap(ErrMissingResult, "get_partition")
	}
	return part, nil
}

// GetPartitions lists up to maxParts partitions of a table; -1 means all.
func (c *Conn) GetPartitions(ctx context.Context, dbName, tableName string, maxParts int16) ([]*Partition, error) {
	var (
		miss  *NoSuchObjectError
		meta  *MetaError
		parts []*Partition
	)
	err := c.call(ctx, "get_partitions",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			return writeFieldI16(ctx, p, 3, "max_parts", maxParts)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				parts, err = readStructList(ctx, p, func() *Partition { return &Partition{} })
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case miss != nil:
		return nil, miss
	case meta != nil:
		return nil, meta
	}
	return parts, nil
}

// GetPartitionsByFilter lists partitions matching a server-side filter
// expression over partition columns.
func (c *Conn) GetPartitionsByFilter(ctx context.Context, dbName, tableName, filter string, maxParts int16) ([]*Partition, error) {
	var (
		meta  *MetaError
		miss  *NoSuchObjectError
		parts []*Partition
	)
	err := c.call(ctx, "get_partitions_by_filter",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 3, "filter", filter); err != nil {
				return err
			}
			return writeFieldI16(ctx, p, 4, "max_parts", maxParts)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				parts, err = readStructList(ctx, p, func() *Partition { return &Partition{} })
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case meta != nil:
		return nil, meta
	case miss != nil:
		return nil, miss
	}
	return parts, nil
}

// GetIndexes lists up to maxIndexes indexes of a table; -1 means all.
func (c *Conn) GetIndexes(ctx context.Context, dbName, tableName string, maxIndexes int16) ([]*Index, error) {
	var (
		miss    *NoSuchObjectError
		meta    *MetaError
		indexes []*Index
	)
	err := c.call(ctx, "get_indexes",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			return writeFieldI16(ctx, p, 3, "max_indexes", maxIndexes)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				indexes, err = readStructList(ctx, p, func() *Index { return &Index{} })
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case miss != nil:
		return nil, miss
	case meta != nil:
		return nil, meta
	}
	return indexes, nil
}

// DropIndex removes one index by name and reports whether it existed.
func (c *Conn) DropIndex(ctx context.Context, dbName, tableName, indexName string, deleteData bool) (bool, error) {
	var (
		miss    *NoSuchObjectError
		meta    *MetaError
		dropped bool
	)
	err := c.call(ctx, "drop_index_by_name",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "db_name", dbName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 2, "tbl_name", tableName); err != nil {
				return err
			}
			if err := writeFieldString(ctx, p, 3, "index_name", indexName); err != nil {
				return err
			}
			return writeFieldBool(ctx, p, 4, "deleteData", deleteData)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.BOOL:
				dropped, err = p.ReadBool(ctx)
			case id == 1 && typ == thrift.STRUCT:
				miss = &NoSuchObjectError{}
				err = miss.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return false, err
	}
	switch {
	case miss != nil:
		return false, miss
	case meta != nil:
		return false, meta
	}
	return dropped, nil
}

// LoadTable moves prepared data files into a table.
func (c *Conn) LoadTable(ctx context.Context, req *LoadTableReq) error {
	return c.load(ctx, "load_table", req)
}

// LoadPartition moves prepared data files into one partition.
func (c *Conn) LoadPartition(ctx context.Context, req *LoadPartitionReq) error {
	return c.load(ctx, "load_partition", req)
}

// LoadDynamicPartitions moves prepared data files into partitions whose
// trailing values the server discovers from the data layout.
func (c *Conn) LoadDynamicPartitions(ctx context.Context, req *LoadDynamicPartitionsReq) error {
	return c.load(ctx, "load_dynamic_partitions", req)
}

// All three load calls share the request-in-field-1, two-exception shape.
func (c *Conn) load(ctx context.Context, method string, req thrift.TStruct) error {
	var (
		invalid *InvalidObjectError
		meta    *MetaError
	)
	err := c.call(ctx, method,
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			return writeFieldStruct(ctx, p, 1, "req", req)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 1 && typ == thrift.STRUCT:
				invalid = &InvalidObjectError{}
				err = invalid.Read(ctx, p)
			case id == 2 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return err
	}
	switch {
	case invalid != nil:
		return invalid
	case meta != nil:
		return meta
	}
	return nil
}

// Execute runs a catalog command on the server under the given command id
// and returns its status. Result rows, if any, are fetched separately.
func (c *Conn) Execute(ctx context.Context, commandID, command string) (*CommandStatus, error) {
	var (
		meta   *MetaError
		status = &CommandStatus{}
		found  bool
	)
	err := c.call(ctx, "execute",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "command_id", commandID); err != nil {
				return err
			}
			return writeFieldString(ctx, p, 2, "command", command)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.STRUCT:
				found = true
				err = status.Read(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	switch {
	case meta != nil:
		return nil, meta
	case !found:
		return nil, errors.Wrap(ErrMissingResult, "execute")
	}
	return status, nil
}

// FetchResults returns up to maxRows result rows of an executed command.
// Rows are rendered server-side with tab-separated columns.
func (c *Conn) FetchResults(ctx context.Context, commandID string, maxRows int32) ([]string, error) {
	var (
		meta *MetaError
		rows []string
	)
	err := c.call(ctx, "fetch_results",
		argsWriter(func(ctx context.Context, p thrift.TProtocol) error {
			if err := writeFieldString(ctx, p, 1, "command_id", commandID); err != nil {
				return err
			}
			return writeFieldI32(ctx, p, 2, "max_rows", maxRows)
		}),
		resultReader(func(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType) (bool, error) {
			var err error
			switch {
			case id == 0 && typ == thrift.LIST:
				rows, err = readStringList(ctx, p)
			case id == 1 && typ == thrift.STRUCT:
				meta = &MetaError{}
				err = meta.Read(ctx, p)
			default:
				return false, nil
			}
			return true, err
		}))
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return nil, meta
	}
	return rows, nil
}
