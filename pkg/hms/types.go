package hms

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Wire model for the metastore catalog protocol. Field ids follow the
// classic metastore IDL so the client stays compatible with servers built
// from it. All structs implement thrift.TStruct with hand-written codecs;
// unknown fields are skipped on read.

// Database is a namespace for tables.
type Database struct {
	Name        string
	Description string
	LocationURI string
	Parameters  map[string]string
}

func (d *Database) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Database"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "name", d.Name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "description", d.Description); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "locationUri", d.LocationURI); err != nil {
		return err
	}
	if err := writeFieldStringMap(ctx, p, 4, "parameters", d.Parameters); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (d *Database) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			d.Name, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			d.Description, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			d.LocationURI, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.MAP:
			d.Parameters, err = readStringMap(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// FieldSchema describes one column: name, type name, and comment.
type FieldSchema struct {
	Name    string
	Type    string
	Comment string
}

func (f *FieldSchema) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "FieldSchema"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "name", f.Name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "type", f.Type); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "comment", f.Comment); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (f *FieldSchema) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			f.Name, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			f.Type, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			f.Comment, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// Order is one sort column of a storage descriptor. Order is 1 for
// ascending, 0 for descending.
type Order struct {
	Col   string
	Order int32
}

func (o *Order) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Order"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "col", o.Col); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 2, "order", o.Order); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (o *Order) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			o.Col, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.I32:
			o.Order, err = p.ReadI32(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// SerDeInfo names the serialization library and its properties.
type SerDeInfo struct {
	Name             string
	SerializationLib string
	Parameters       map[string]string
}

func (s *SerDeInfo) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "SerDeInfo"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "name", s.Name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "serializationLib", s.SerializationLib); err != nil {
		return err
	}
	if err := writeFieldStringMap(ctx, p, 3, "parameters", s.Parameters); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (s *SerDeInfo) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			s.Name, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			s.SerializationLib, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.MAP:
			s.Parameters, err = readStringMap(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// StorageDescriptor holds the physical layout of a table or partition.
type StorageDescriptor struct {
	Cols            []*FieldSchema
	Location        string
	InputFormat     string
	OutputFormat    string
	Compressed      bool
	NumBuckets      int32
	SerdeInfo       *SerDeInfo
	BucketCols      []string
	SortCols        []*Order
	Parameters      map[string]string
	StoredAsSubDirs bool
}

func (s *StorageDescriptor) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "StorageDescriptor"); err != nil {
		return err
	}
	if err := writeFieldStructList(ctx, p, 1, "cols", s.Cols); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "location", s.Location); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "inputFormat", s.InputFormat); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 4, "outputFormat", s.OutputFormat); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 5, "compressed", s.Compressed); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 6, "numBuckets", s.NumBuckets); err != nil {
		return err
	}
	if s.SerdeInfo != nil {
		if err := writeFieldStruct(ctx, p, 7, "serdeInfo", s.SerdeInfo); err != nil {
			return err
		}
	}
	if err := writeFieldStringList(ctx, p, 8, "bucketCols", s.BucketCols); err != nil {
		return err
	}
	if err := writeFieldStructList(ctx, p, 9, "sortCols", s.SortCols); err != nil {
		return err
	}
	if err := writeFieldStringMap(ctx, p, 10, "parameters", s.Parameters); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 12, "storedAsSubDirectories", s.StoredAsSubDirs); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (s *StorageDescriptor) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.LIST:
			s.Cols, err = readStructList(ctx, p, func() *FieldSchema { return &FieldSchema{} })
		case id == 2 && typ == thrift.STRING:
			s.Location, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			s.InputFormat, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.STRING:
			s.OutputFormat, err = p.ReadString(ctx)
		case id == 5 && typ == thrift.BOOL:
			s.Compressed, err = p.ReadBool(ctx)
		case id == 6 && typ == thrift.I32:
			s.NumBuckets, err = p.ReadI32(ctx)
		case id == 7 && typ == thrift.STRUCT:
			s.SerdeInfo = &SerDeInfo{}
			err = s.SerdeInfo.Read(ctx, p)
		case id == 8 && typ == thrift.LIST:
			s.BucketCols, err = readStringList(ctx, p)
		case id == 9 && typ == thrift.LIST:
			s.SortCols, err = readStructList(ctx, p, func() *Order { return &Order{} })
		case id == 10 && typ == thrift.MAP:
			s.Parameters, err = readStringMap(ctx, p)
		case id == 12 && typ == thrift.BOOL:
			s.StoredAsSubDirs, err = p.ReadBool(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// Table is the full table record, storage descriptor included. Times are
// unix seconds, zero when unknown.
type Table struct {
	Name             string
	DbName           string
	Owner            string
	CreateTime       int32
	LastAccessTime   int32
	Retention        int32
	Sd               *StorageDescriptor
	PartitionKeys    []*FieldSchema
	Parameters       map[string]string
	ViewOriginalText string
	ViewExpandedText string
	TableType        string
}

func (t *Table) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Table"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "tableName", t.Name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "dbName", t.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "owner", t.Owner); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 4, "createTime", t.CreateTime); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 5, "lastAccessTime", t.LastAccessTime); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 6, "retention", t.Retention); err != nil {
		return err
	}
	if t.Sd != nil {
		if err := writeFieldStruct(ctx, p, 7, "sd", t.Sd); err != nil {
			return err
		}
	}
	if err := writeFieldStructList(ctx, p, 8, "partitionKeys", t.PartitionKeys); err != nil {
		return err
	}
	if err := writeFieldStringMap(ctx, p, 9, "parameters", t.Parameters); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 10, "viewOriginalText", t.ViewOriginalText); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 11, "viewExpandedText", t.ViewExpandedText); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 12, "tableType", t.TableType); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (t *Table) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			t.Name, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			t.DbName, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			t.Owner, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.I32:
			t.CreateTime, err = p.ReadI32(ctx)
		case id == 5 && typ == thrift.I32:
			t.LastAccessTime, err = p.ReadI32(ctx)
		case id == 6 && typ == thrift.I32:
			t.Retention, err = p.ReadI32(ctx)
		case id == 7 && typ == thrift.STRUCT:
			t.Sd = &StorageDescriptor{}
			err = t.Sd.Read(ctx, p)
		case id == 8 && typ == thrift.LIST:
			t.PartitionKeys, err = readStructList(ctx, p, func() *FieldSchema { return &FieldSchema{} })
		case id == 9 && typ == thrift.MAP:
			t.Parameters, err = readStringMap(ctx, p)
		case id == 10 && typ == thrift.STRING:
			t.ViewOriginalText, err = p.ReadString(ctx)
		case id == 11 && typ == thrift.STRING:
			t.ViewExpandedText, err = p.ReadString(ctx)
		case id == 12 && typ == thrift.STRING:
			t.TableType, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// Partition is one partition of a table. Values align positionally with
// the table's partition keys.
type Partition struct {
	Values         []string
	DbName         string
	TableName      string
	CreateTime     int32
	LastAccessTime int32
	Sd             *StorageDescriptor
	Parameters     map[string]string
}

func (pt *Partition) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Partition"); err != nil {
		return err
	}
	if err := writeFieldStringList(ctx, p, 1, "values", pt.Values); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "dbName", pt.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "tableName", pt.TableName); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 4, "createTime", pt.CreateTime); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 5, "lastAccessTime", pt.LastAccessTime); err != nil {
		return err
	}
	if pt.Sd != nil {
		if err := writeFieldStruct(ctx, p, 6, "sd", pt.Sd); err != nil {
			return err
		}
	}
	if err := writeFieldStringMap(ctx, p, 7, "parameters", pt.Parameters); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (pt *Partition) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.LIST:
			pt.Values, err = readStringList(ctx, p)
		case id == 2 && typ == thrift.STRING:
			pt.DbName, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			pt.TableName, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.I32:
			pt.CreateTime, err = p.ReadI32(ctx)
		case id == 5 && typ == thrift.I32:
			pt.LastAccessTime, err = p.ReadI32(ctx)
		case id == 6 && typ == thrift.STRUCT:
			pt.Sd = &StorageDescriptor{}
			err = pt.Sd.Read(ctx, p)
		case id == 7 && typ == thrift.MAP:
			pt.Parameters, err = readStringMap(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// Index is a secondary index record, kept for servers that still expose
// index maintenance.
type Index struct {
	Name            string
	HandlerClass    string
	DbName          string
	OrigTableName   string
	CreateTime      int32
	LastAccessTime  int32
	IndexTableName  string
	Sd              *StorageDescriptor
	Parameters      map[string]string
	DeferredRebuild bool
}

func (ix *Index) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Index"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "indexName", ix.Name); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "indexHandlerClass", ix.HandlerClass); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "dbName", ix.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 4, "origTableName", ix.OrigTableName); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 5, "createTime", ix.CreateTime); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 6, "lastAccessTime", ix.LastAccessTime); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 7, "indexTableName", ix.IndexTableName); err != nil {
		return err
	}
	if ix.Sd != nil {
		if err := writeFieldStruct(ctx, p, 8, "sd", ix.Sd); err != nil {
			return err
		}
	}
	if err := writeFieldStringMap(ctx, p, 9, "parameters", ix.Parameters); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 10, "deferredRebuild", ix.DeferredRebuild); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (ix *Index) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			ix.Name, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			ix.HandlerClass, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			ix.DbName, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.STRING:
			ix.OrigTableName, err = p.ReadString(ctx)
		case id == 5 && typ == thrift.I32:
			ix.CreateTime, err = p.ReadI32(ctx)
		case id == 6 && typ == thrift.I32:
			ix.LastAccessTime, err = p.ReadI32(ctx)
		case id == 7 && typ == thrift.STRING:
			ix.IndexTableName, err = p.ReadString(ctx)
		case id == 8 && typ == thrift.STRUCT:
			ix.Sd = &StorageDescriptor{}
			err = ix.Sd.Read(ctx, p)
		case id == 9 && typ == thrift.MAP:
			ix.Parameters, err = readStringMap(ctx, p)
		case id == 10 && typ == thrift.BOOL:
			ix.DeferredRebuild, err = p.ReadBool(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// KeyValue is one entry of an ordered partition spec. Load calls care about
// key order, so specs travel as lists instead of maps.
type KeyValue struct {
	Key   string
	Value string
}

func (kv *KeyValue) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "KeyValue"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "key", kv.Key); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "value", kv.Value); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (kv *KeyValue) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			kv.Key, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			kv.Value, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

// LoadTableReq asks the server to move prepared data files into a table.
// Optional flags are written only when set, so older servers never see
// fields they would not understand.
type LoadTableReq struct {
	SourcePath            string
	DbName                string
	TableName             string
	Replace               bool
	HoldDDLTime           *bool
	IsSrcLocal            *bool
	IsSkewedStoreAsSubdir *bool
	IsAcid                *bool
}

func (r *LoadTableReq) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "LoadTableReq"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "sourcePath", r.SourcePath); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "dbName", r.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "tableName", r.TableName); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 4, "replace", r.Replace); err != nil {
		return err
	}
	if r.HoldDDLTime != nil {
		if err := writeFieldBool(ctx, p, 5, "holdDDLTime", *r.HoldDDLTime); err != nil {
			return err
		}
	}
	if r.IsSrcLocal != nil {
		if err := writeFieldBool(ctx, p, 6, "isSrcLocal", *r.IsSrcLocal); err != nil {
			return err
		}
	}
	if r.IsSkewedStoreAsSubdir != nil {
		if err := writeFieldBool(ctx, p, 7, "isSkewedStoreAsSubdir", *r.IsSkewedStoreAsSubdir); err != nil {
			return err
		}
	}
	if r.IsAcid != nil {
		if err := writeFieldBool(ctx, p, 8, "isAcid", *r.IsAcid); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *LoadTableReq) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			r.SourcePath, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			r.DbName, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			r.TableName, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.BOOL:
			r.Replace, err = p.ReadBool(ctx)
		case id == 5 && typ == thrift.BOOL:
			r.HoldDDLTime, err = readBoolPtr(ctx, p)
		case id == 6 && typ == thrift.BOOL:
			r.IsSrcLocal, err = readBoolPtr(ctx, p)
		case id == 7 && typ == thrift.BOOL:
			r.IsSkewedStoreAsSubdir, err = readBoolPtr(ctx, p)
		case id == 8 && typ == thrift.BOOL:
			r.IsAcid, err = readBoolPtr(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// LoadPartitionReq asks the server to move prepared data files into one
// partition. Partition holds the fully-specified spec in caller order.
type LoadPartitionReq struct {
	SourcePath            string
	DbName                string
	TableName             string
	Partition             []*KeyValue
	Replace               bool
	InheritTableSpecs     bool
	HoldDDLTime           *bool
	IsSkewedStoreAsSubdir *bool
	IsSrcLocal            *bool
	IsAcid                *bool
}

func (r *LoadPartitionReq) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "LoadPartitionReq"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "sourcePath", r.SourcePath); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "dbName", r.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "tableName", r.TableName); err != nil {
		return err
	}
	if err := writeFieldStructList(ctx, p, 4, "partition", r.Partition); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 5, "replace", r.Replace); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 6, "inheritTableSpecs", r.InheritTableSpecs); err != nil {
		return err
	}
	if r.HoldDDLTime != nil {
		if err := writeFieldBool(ctx, p, 7, "holdDDLTime", *r.HoldDDLTime); err != nil {
			return err
		}
	}
	if r.IsSkewedStoreAsSubdir != nil {
		if err := writeFieldBool(ctx, p, 8, "isSkewedStoreAsSubdir", *r.IsSkewedStoreAsSubdir); err != nil {
			return err
		}
	}
	if r.IsSrcLocal != nil {
		if err := writeFieldBool(ctx, p, 9, "isSrcLocal", *r.IsSrcLocal); err != nil {
			return err
		}
	}
	if r.IsAcid != nil {
		if err := writeFieldBool(ctx, p, 10, "isAcid", *r.IsAcid); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *LoadPartitionReq) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			r.SourcePath, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			r.DbName, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			r.TableName, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.LIST:
			r.Partition, err = readStructList(ctx, p, func() *KeyValue { return &KeyValue{} })
		case id == 5 && typ == thrift.BOOL:
			r.Replace, err = p.ReadBool(ctx)
		case id == 6 && typ == thrift.BOOL:
			r.InheritTableSpecs, err = p.ReadBool(ctx)
		case id == 7 && typ == thrift.BOOL:
			r.HoldDDLTime, err = readBoolPtr(ctx, p)
		case id == 8 && typ == thrift.BOOL:
			r.IsSkewedStoreAsSubdir, err = readBoolPtr(ctx, p)
		case id == 9 && typ == thrift.BOOL:
			r.IsSrcLocal, err = readBoolPtr(ctx, p)
		case id == 10 && typ == thrift.BOOL:
			r.IsAcid, err = readBoolPtr(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// LoadDynamicPartitionsReq loads data whose trailing partition values are
// discovered from the data itself. Partition's dynamic entries carry empty
// values.
type LoadDynamicPartitionsReq struct {
	SourcePath           string
	DbName               string
	TableName            string
	Partition            []*KeyValue
	Replace              bool
	NumDP                int32
	HoldDDLTime          *bool
	ListBucketingEnabled *bool
	IsAcid               *bool
	TxnID                *int64
}

func (r *LoadDynamicPartitionsReq) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "LoadDynamicPartitionsReq"); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 1, "sourcePath", r.SourcePath); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "dbName", r.DbName); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "tableName", r.TableName); err != nil {
		return err
	}
	if err := writeFieldStructList(ctx, p, 4, "partition", r.Partition); err != nil {
		return err
	}
	if err := writeFieldBool(ctx, p, 5, "replace", r.Replace); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 6, "numDP", r.NumDP); err != nil {
		return err
	}
	if r.HoldDDLTime != nil {
		if err := writeFieldBool(ctx, p, 7, "holdDDLTime", *r.HoldDDLTime); err != nil {
			return err
		}
	}
	if r.ListBucketingEnabled != nil {
		if err := writeFieldBool(ctx, p, 8, "listBucketingEnabled", *r.ListBucketingEnabled); err != nil {
			return err
		}
	}
	if r.IsAcid != nil {
		if err := writeFieldBool(ctx, p, 9, "isAcid", *r.IsAcid); err != nil {
			return err
		}
	}
	if r.TxnID != nil {
		if err := writeFieldI64(ctx, p, 10, "txnId", *r.TxnID); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *LoadDynamicPartitionsReq) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.STRING:
			r.SourcePath, err = p.ReadString(ctx)
		case id == 2 && typ == thrift.STRING:
			r.DbName, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			r.TableName, err = p.ReadString(ctx)
		case id == 4 && typ == thrift.LIST:
			r.Partition, err = readStructList(ctx, p, func() *KeyValue { return &KeyValue{} })
		case id == 5 && typ == thrift.BOOL:
			r.Replace, err = p.ReadBool(ctx)
		case id == 6 && typ == thrift.I32:
			r.NumDP, err = p.ReadI32(ctx)
		case id == 7 && typ == thrift.BOOL:
			r.HoldDDLTime, err = readBoolPtr(ctx, p)
		case id == 8 && typ == thrift.BOOL:
			r.ListBucketingEnabled, err = readBoolPtr(ctx, p)
		case id == 9 && typ == thrift.BOOL:
			r.IsAcid, err = readBoolPtr(ctx, p)
		case id == 10 && typ == thrift.I64:
			r.TxnID, err = readI64Ptr(ctx, p)
		default:
			return false, nil
		}
		return true, err
	})
}

// CommandStatus is the server's verdict on an executed command. Code zero
// means success; anything else comes with a message and SQL state.
type CommandStatus struct {
	Code     int32
	SQLState string
	Message  string
}

func (c *CommandStatus) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "CommandStatus"); err != nil {
		return err
	}
	if err := writeFieldI32(ctx, p, 1, "code", c.Code); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 2, "sqlState", c.SQLState); err != nil {
		return err
	}
	if err := writeFieldString(ctx, p, 3, "message", c.Message); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (c *CommandStatus) Read(ctx context.Context, p thrift.TProtocol) error {
	return readFields(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && typ == thrift.I32:
			c.Code, err = p.ReadI32(ctx)
		case id == 2 && typ == thrift.STRING:
			c.SQLState, err = p.ReadString(ctx)
		case id == 3 && typ == thrift.STRING:
			c.Message, err = p.ReadString(ctx)
		default:
			return false, nil
		}
		return true, err
	})
}

func readBoolPtr(ctx context.Context, p thrift.TProtocol) (*bool, error) {
	v, err := p.ReadBool(ctx)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readI64Ptr(ctx context.Context, p thrift.TProtocol) (*int64, error) {
	v, err := p.ReadI64(ctx)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Bool and I64 build optional request flags in place.
func Bool(v bool) *bool { return &v }

func I64(v int64) *int64 { return &v }
