package client

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

func strPtr(s string) *string { return &s }

func testSession(t *testing.T) *Session {
	t.Helper()
	return newSession("spark", nil, zerolog.Nop())
}

func TestFromTableStampsCatalogFields(t *testing.T) {
	sess := testSession(t)
	sh := mustShim(t, V13)

	native, err := fromTable(sess, sh, &Table{
		Name:     "events",
		Database: "sales",
		Columns: []Column{
			{Name: "id", Type: "bigint"},
			{Name: "payload", Type: "string", Comment: "raw event"},
		},
		PartitionColumns: []Column{{Name: "ds", Type: "string"}},
		Properties:       map[string]string{"comment": "events feed"},
		SerdeProperties:  map[string]string{"field.delim": "\t"},
		Type:             ManagedTable,
		Location:         strPtr("/warehouse/sales.db/events"),
	})
	require.NoError(t, err)

	assert.Equal(t, "events", native.Name)
	assert.Equal(t, "sales", native.DbName)
	assert.Equal(t, "spark", native.Owner)
	assert.Positive(t, native.CreateTime)
	assert.Equal(t, "MANAGED_TABLE", native.TableType)
	assert.Equal(t, "events feed", native.Parameters["comment"])

	require.NotNil(t, native.Sd)
	require.Len(t, native.Sd.Cols, 2)
	assert.Equal(t, "raw event", native.Sd.Cols[1].Comment)
	assert.Equal(t, int32(-1), native.Sd.NumBuckets)

	def := defaultFormat()
	assert.Equal(t, def.InputFormat, native.Sd.InputFormat)
	assert.Equal(t, def.OutputFormat, native.Sd.OutputFormat)
	require.NotNil(t, native.Sd.SerdeInfo)
	assert.Equal(t, "events", native.Sd.SerdeInfo.Name)
	assert.Equal(t, def.Serde, native.Sd.SerdeInfo.SerializationLib)
	assert.Equal(t, map[string]string{"field.delim": "\t"}, native.Sd.SerdeInfo.Parameters)

	require.Len(t, native.PartitionKeys, 1)
	assert.Equal(t, "ds", native.PartitionKeys[0].Name)

	// The 0.13 shim records the location in both places.
	assert.Equal(t, "/warehouse/sales.db/events", native.Sd.Location)
	assert.Equal(t, "/warehouse/sales.db/events", native.Parameters["path"])
}

func TestFromTableExternalMarker(t *testing.T) {
	sess := testSession(t)
	sh := mustShim(t, V12)

	native, err := fromTable(sess, sh, &Table{
		Name:     "raw",
		Database: "sales",
		Columns:  []Column{{Name: "line", Type: "string"}},
		Type:     ExternalTable,
		Location: strPtr("s3a://bucket/raw"),
	})
	require.NoError(t, err)

	assert.Equal(t, "EXTERNAL_TABLE", native.TableType)
	assert.Equal(t, "TRUE", native.Parameters["EXTERNAL"])
	assert.Equal(t, "s3a://bucket/raw", native.Sd.Location)
	// 0.12 knows nothing about the path parameter.
	assert.Empty(t, native.Parameters["path"])
}

func TestFromTableViewText(t *testing.T) {
	sess := testSession(t)
	sh := mustShim(t, V1_2)

	native, err := fromTable(sess, sh, &Table{
		Name:     "recent_events",
		Database: "sales",
		Type:     VirtualView,
		ViewText: strPtr("SELECT * FROM sales.events WHERE ds > '20130101'"),
	})
	require.NoError(t, err)

	assert.Equal(t, "VIRTUAL_VIEW", native.TableType)
	assert.Equal(t, "SELECT * FROM sales.events WHERE ds > '20130101'", native.ViewOriginalText)
	assert.Equal(t, native.ViewOriginalText, native.ViewExpandedText)
}

func TestFromTableRejectsOverlappingColumns(t *testing.T) {
	sess := testSession(t)
	sh := mustShim(t, V1_2)

	_, err := fromTable(sess, sh, &Table{
		Name:             "events",
		Database:         "sales",
		Columns:          []Column{{Name: "id", Type: "bigint"}, {Name: "DS", Type: "string"}},
		PartitionColumns: []Column{{Name: "ds", Type: "string"}},
		Type:             ManagedTable,
	})
	require.Error(t, err)
	assert.Equal(t, ErrPartitionColumnOverlap, errors.AsError(err).Code)
	assert.Equal(t, "sales.events", errors.AsError(err).Context["table"])
}

func TestFromTableResolvesFormatClasses(t *testing.T) {
	sess := testSession(t)
	sh := mustShim(t, V1_2)

	tbl := &Table{
		Name:        "events",
		Database:    "sales",
		Columns:     []Column{{Name: "id", Type: "bigint"}},
		Type:        ManagedTable,
		InputFormat: strPtr("com.example.CustomInputFormat"),
	}

	_, err := fromTable(sess, sh, tbl)
	require.Error(t, err)
	assert.Equal(t, ErrFormatUnresolved, errors.AsError(err).Code)

	sess.Formats().Register("custom", FormatSpec{
		InputFormat:  "com.example.CustomInputFormat",
		OutputFormat: "com.example.CustomOutputFormat",
		Serde:        "com.example.CustomSerDe",
	})

	native, err := fromTable(sess, sh, tbl)
	require.NoError(t, err)
	assert.Equal(t, "com.example.CustomInputFormat", native.Sd.InputFormat)
	// Unset slots still fall back to the builtin default.
	assert.Equal(t, defaultFormat().OutputFormat, native.Sd.OutputFormat)
}

func TestToTableMapsNativeRecord(t *testing.T) {
	sh := mustShim(t, V13)

	native := &hms.Table{
		Name:      "events",
		DbName:    "sales",
		TableType: "EXTERNAL_TABLE",
		Parameters: map[string]string{
			"EXTERNAL": "TRUE",
			"path":     "hdfs://nn/lake/events",
		},
		Sd: &hms.StorageDescriptor{
			Cols:         []*hms.FieldSchema{{Name: "id", Type: "bigint"}},
			InputFormat:  "org.apache.hadoop.mapred.TextInputFormat",
			OutputFormat: "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat",
			SerdeInfo: &hms.SerDeInfo{
				SerializationLib: "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe",
				Parameters:       map[string]string{"field.delim": ","},
			},
		},
		PartitionKeys:    []*hms.FieldSchema{{Name: "ds", Type: "string"}},
		ViewExpandedText: "",
	}

	tbl, err := toTable(sh, native)
	require.NoError(t, err)

	assert.Equal(t, "events", tbl.Name)
	assert.Equal(t, "sales", tbl.Database)
	assert.Equal(t, ExternalTable, tbl.Type)
	require.Len(t, tbl.Columns, 1)
	require.Len(t, tbl.PartitionColumns, 1)
	// Empty descriptor location, so the 0.13 shim reads the path parameter.
	require.NotNil(t, tbl.Location)
	assert.Equal(t, "hdfs://nn/lake/events", *tbl.Location)
	require.NotNil(t, tbl.InputFormat)
	assert.Equal(t, "org.apache.hadoop.mapred.TextInputFormat", *tbl.InputFormat)
	require.NotNil(t, tbl.Serde)
	assert.Equal(t, map[string]string{"field.delim": ","}, tbl.SerdeProperties)
	assert.Nil(t, tbl.ViewText)
}

func TestToTableRejectsUnknownType(t *testing.T) {
	sh := mustShim(t, V1_2)

	_, err := toTable(sh, &hms.Table{Name: "x", DbName: "d", TableType: "MATERIALIZED_VIEW"})
	require.Error(t, err)
	assert.Equal(t, ErrTableTypeUnknown, errors.AsError(err).Code)
}

func TestParseTableType(t *testing.T) {
	for raw, want := range map[string]TableType{
		"MANAGED_TABLE":  ManagedTable,
		"EXTERNAL_TABLE": ExternalTable,
		"VIRTUAL_VIEW":   VirtualView,
		"INDEX_TABLE":    IndexTable,
	} {
		got, err := parseTableType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
		assert.Equal(t, raw, got.String())
	}

	_, err := parseTableType("managed_table")
	require.Error(t, err)
	assert.Equal(t, ErrTableTypeUnknown, errors.AsError(err).Code)
}

func TestOrderedValues(t *testing.T) {
	tbl := &Table{
		Name:     "events",
		Database: "sales",
		PartitionColumns: []Column{
			{Name: "ds", Type: "string"},
			{Name: "hr", Type: "string"},
		},
	}

	t.Run("ReordersToColumnOrder", func(t *testing.T) {
		values, err := orderedValues(tbl, PartitionSpec{
			{Column: "hr", Value: "07"},
			{Column: "DS", Value: "20130101"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"20130101", "07"}, values)
	})

	t.Run("WrongArity", func(t *testing.T) {
		_, err := orderedValues(tbl, PartitionSpec{{Column: "ds", Value: "20130101"}})
		require.Error(t, err)
		assert.Equal(t, ErrPartitionArity, errors.AsError(err).Code)
	})

	t.Run("DuplicateBinding", func(t *testing.T) {
		_, err := orderedValues(tbl, PartitionSpec{
			{Column: "ds", Value: "20130101"},
			{Column: "ds", Value: "20130102"},
		})
		require.Error(t, err)
		assert.Equal(t, ErrPartitionArity, errors.AsError(err).Code)
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		_, err := orderedValues(tbl, PartitionSpec{
			{Column: "ds", Value: "20130101"},
			{Column: "region", Value: "us"},
		})
		require.Error(t, err)
		assert.Equal(t, ErrPartitionArity, errors.AsError(err).Code)
	})
}

func TestSpecToWirePreservesOrder(t *testing.T) {
	kvs := specToWire(PartitionSpec{
		{Column: "hr", Value: "07"},
		{Column: "ds", Value: "20130101"},
	})
	require.Len(t, kvs, 2)
	assert.Equal(t, "hr", kvs[0].Key)
	assert.Equal(t, "07", kvs[0].Value)
	assert.Equal(t, "ds", kvs[1].Key)
}

func TestRenderFilter(t *testing.T) {
	filter, err := renderFilter([]Predicate{
		{Column: "ds", Op: "=", Value: "20130101"},
		{Column: "hr", Op: "<>", Value: "07"},
		{Column: "ds", Op: "like", Value: "2013%"},
	})
	require.NoError(t, err)
	assert.Equal(t, `ds = "20130101" AND hr != "07" AND ds LIKE "2013%"`, filter)

	_, err = renderFilter([]Predicate{{Column: "ds", Op: "~", Value: "x"}})
	require.Error(t, err)
	assert.Equal(t, ErrPredicateOpUnsupported, errors.AsError(err).Code)
}

func TestMatchPartition(t *testing.T) {
	tbl := &Table{
		Name:     "events",
		Database: "sales",
		PartitionColumns: []Column{
			{Name: "ds", Type: "string"},
			{Name: "hr", Type: "string"},
		},
	}
	values := []string{"20130101", "07"}

	cases := []struct {
		name  string
		preds []Predicate
		want  bool
	}{
		{"Equality", []Predicate{{Column: "ds", Op: "=", Value: "20130101"}}, true},
		{"EqualityMiss", []Predicate{{Column: "ds", Op: "=", Value: "20130102"}}, false},
		{"Conjunction", []Predicate{{Column: "ds", Op: "=", Value: "20130101"}, {Column: "hr", Op: ">", Value: "06"}}, true},
		{"ConjunctionMiss", []Predicate{{Column: "ds", Op: "=", Value: "20130101"}, {Column: "hr", Op: "<=", Value: "06"}}, false},
		{"NotEqual", []Predicate{{Column: "hr", Op: "!=", Value: "06"}}, true},
		{"Range", []Predicate{{Column: "ds", Op: ">=", Value: "20130101"}, {Column: "ds", Op: "<", Value: "20130201"}}, true},
		{"Like", []Predicate{{Column: "ds", Op: "LIKE", Value: "2013%"}}, true},
		{"LikeMiss", []Predicate{{Column: "ds", Op: "LIKE", Value: "2014%"}}, false},
		{"CaseInsensitiveColumn", []Predicate{{Column: "DS", Op: "=", Value: "20130101"}}, true},
		{"UnknownColumn", []Predicate{{Column: "region", Op: "=", Value: "us"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := matchPartition(tbl, values, tc.preds)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	_, err := matchPartition(tbl, values, []Predicate{{Column: "ds", Op: "~", Value: "x"}})
	require.Error(t, err)
	assert.Equal(t, ErrPredicateOpUnsupported, errors.AsError(err).Code)
}

func TestLikeMatch(t *testing.T) {
	cases := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"%", "anything", true},
		{"%", "", true},
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"a%", "abc", true},
		{"%c", "abc", true},
		{"%b%", "abc", true},
		{"a_c", "abc", true},
		{"a_c", "abdc", false},
		{"a%b%c", "aXXbYYc", true},
		{"a%b%c", "aXXbYY", false},
		{"", "", true},
		{"", "a", false},
		{"_", "a", true},
		{"_", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, likeMatch(tc.pattern, tc.s), "%q ~ %q", tc.pattern, tc.s)
	}
}

func TestToPartition(t *testing.T) {
	part := toPartition(&hms.Partition{
		Values: []string{"20130101", "07"},
		Sd: &hms.StorageDescriptor{
			Location:     "/warehouse/sales.db/events/ds=20130101/hr=07",
			InputFormat:  "org.apache.hadoop.mapred.TextInputFormat",
			OutputFormat: "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat",
			SerdeInfo: &hms.SerDeInfo{
				SerializationLib: "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe",
			},
		},
	})

	assert.Equal(t, []string{"20130101", "07"}, part.Values)
	assert.Equal(t, "/warehouse/sales.db/events/ds=20130101/hr=07", part.Storage.Location)
	assert.Equal(t, "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe", part.Storage.Serde)

	bare := toPartition(&hms.Partition{Values: []string{"x"}})
	assert.Equal(t, Storage{}, bare.Storage)
}

func TestSplitQualified(t *testing.T) {
	db, name := splitQualified("sales.events")
	assert.Equal(t, "sales", db)
	assert.Equal(t, "events", name)

	db, name = splitQualified("events")
	assert.Empty(t, db)
	assert.Equal(t, "events", name)
}
