package hms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/hms"
)

func newConn(t *testing.T, srv *hms.TestServer) *hms.Conn {
	t.Helper()

	opt := srv.Options()
	opt.Username = "spark"
	opt.Groups = []string{"eng", "data"}

	conn, err := hms.Dial(context.Background(), opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func testTable(db, name string) *hms.Table {
	return &hms.Table{
		Name:      name,
		DbName:    db,
		Owner:     "spark",
		TableType: "MANAGED_TABLE",
		Sd: &hms.StorageDescriptor{
			Cols: []*hms.FieldSchema{
				{Name: "id", Type: "bigint"},
				{Name: "payload", Type: "string", Comment: "raw event"},
			},
			Location:     "/warehouse/" + db + ".db/" + name,
			InputFormat:  "org.apache.hadoop.mapred.TextInputFormat",
			OutputFormat: "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat",
			SerdeInfo: &hms.SerDeInfo{
				SerializationLib: "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe",
				Parameters:       map[string]string{"field.delim": "\t"},
			},
		},
		PartitionKeys: []*hms.FieldSchema{
			{Name: "ds", Type: "string"},
			{Name: "hr", Type: "string"},
		},
		Parameters: map[string]string{"comment": "events feed"},
	}
}

func TestDialHandshake(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)

	assert.True(t, conn.IsOpen())
	assert.Equal(t, srv.Addr(), conn.Remote())

	user, groups := srv.LastUgi()
	assert.Equal(t, "spark", user)
	assert.Equal(t, []string{"eng", "data"}, groups)
}

func TestDialRejected(t *testing.T) {
	srv := hms.NewTestServer(t)
	srv.RejectNext(1)

	_, err := hms.Dial(context.Background(), srv.Options())
	require.Error(t, err)

	// The injected failure is consumed; the next dial goes through.
	conn, err := hms.Dial(context.Background(), srv.Options())
	require.NoError(t, err)
	defer conn.Close()
}

func TestDatabaseLifecycle(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		err := conn.CreateDatabase(ctx, &hms.Database{
			Name:        "sales",
			Description: "sales feeds",
			LocationURI: "/warehouse/sales.db",
			Parameters:  map[string]string{"owner": "spark"},
		})
		require.NoError(t, err)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		err := conn.CreateDatabase(ctx, &hms.Database{Name: "sales"})
		require.Error(t, err)

		var exists *hms.AlreadyExistsError
		require.ErrorAs(t, err, &exists)
	})

	t.Run("Get", func(t *testing.T) {
		db, err := conn.GetDatabase(ctx, "sales")
		require.NoError(t, err)
		assert.Equal(t, "sales", db.Name)
		assert.Equal(t, "sales feeds", db.Description)
		assert.Equal(t, "/warehouse/sales.db", db.LocationURI)
		assert.Equal(t, map[string]string{"owner": "spark"}, db.Parameters)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := conn.GetDatabase(ctx, "nope")
		require.Error(t, err)

		var miss *hms.NoSuchObjectError
		require.ErrorAs(t, err, &miss)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "staging"}))

		names, err := conn.GetDatabases(ctx, "*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sales", "staging"}, names)

		names, err = conn.GetDatabases(ctx, "sa*")
		require.NoError(t, err)
		assert.Equal(t, []string{"sales"}, names)
	})

	t.Run("Drop", func(t *testing.T) {
		require.NoError(t, conn.DropDatabase(ctx, "staging", true, false))

		_, err := conn.GetDatabase(ctx, "staging")
		require.Error(t, err)
	})
}

func TestTableLifecycle(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))

	t.Run("CreateWithoutDatabase", func(t *testing.T) {
		err := conn.CreateTable(ctx, testTable("nope", "events"))
		require.Error(t, err)

		var miss *hms.NoSuchObjectError
		require.ErrorAs(t, err, &miss)
	})

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, conn.CreateTable(ctx, testTable("sales", "events")))
	})

	t.Run("Get", func(t *testing.T) {
		tbl, err := conn.GetTable(ctx, "sales", "events")
		require.NoError(t, err)
		assert.Equal(t, "events", tbl.Name)
		assert.Equal(t, "spark", tbl.Owner)
		require.NotNil(t, tbl.Sd)
		assert.Equal(t, "/warehouse/sales.db/events", tbl.Sd.Location)
		require.Len(t, tbl.Sd.Cols, 2)
		assert.Equal(t, "payload", tbl.Sd.Cols[1].Name)
		assert.Equal(t, "raw event", tbl.Sd.Cols[1].Comment)
		require.NotNil(t, tbl.Sd.SerdeInfo)
		assert.Equal(t, map[string]string{"field.delim": "\t"}, tbl.Sd.SerdeInfo.Parameters)
		require.Len(t, tbl.PartitionKeys, 2)
		assert.Equal(t, "ds", tbl.PartitionKeys[0].Name)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, conn.CreateTable(ctx, testTable("sales", "refunds")))

		names, err := conn.GetTables(ctx, "sales", "*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"events", "refunds"}, names)

		names, err = conn.GetTables(ctx, "sales", "ev*|re*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"events", "refunds"}, names)
	})

	t.Run("Alter", func(t *testing.T) {
		tbl, err := conn.GetTable(ctx, "sales", "refunds")
		require.NoError(t, err)

		tbl.Owner = "finance"
		require.NoError(t, conn.AlterTable(ctx, "sales", "refunds", tbl))

		got, err := conn.GetTable(ctx, "sales", "refunds")
		require.NoError(t, err)
		assert.Equal(t, "finance", got.Owner)
	})

	t.Run("AlterMissing", func(t *testing.T) {
		err := conn.AlterTable(ctx, "sales", "nope", testTable("sales", "nope"))
		require.Error(t, err)

		var invalid *hms.InvalidOperationError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("Drop", func(t *testing.T) {
		require.NoError(t, conn.DropTable(ctx, "sales", "refunds", true))

		_, err := conn.GetTable(ctx, "sales", "refunds")
		require.Error(t, err)
	})
}

func TestPartitions(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))
	require.NoError(t, conn.CreateTable(ctx, testTable("sales", "events")))

	for _, values := range [][]string{
		{"20130101", "00"},
		{"20130101", "01"},
		{"20130102", "00"},
	} {
		srv.SeedPartition(&hms.Partition{
			Values:    values,
			DbName:    "sales",
			TableName: "events",
			Sd:        &hms.StorageDescriptor{Location: "/warehouse/sales.db/events/ds=" + values[0] + "/hr=" + values[1]},
		})
	}

	t.Run("GetOne", func(t *testing.T) {
		part, err := conn.GetPartition(ctx, "sales", "events", []string{"20130101", "01"})
		require.NoError(t, err)
		assert.Equal(t, []string{"20130101", "01"}, part.Values)
		require.NotNil(t, part.Sd)
		assert.Equal(t, "/warehouse/sales.db/events/ds=20130101/hr=01", part.Sd.Location)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := conn.GetPartition(ctx, "sales", "events", []string{"21000101", "00"})
		require.Error(t, err)

		var miss *hms.NoSuchObjectError
		require.ErrorAs(t, err, &miss)
	})

	t.Run("GetAll", func(t *testing.T) {
		parts, err := conn.GetPartitions(ctx, "sales", "events", -1)
		require.NoError(t, err)
		assert.Len(t, parts, 3)
	})

	t.Run("GetCapped", func(t *testing.T) {
		parts, err := conn.GetPartitions(ctx, "sales", "events", 2)
		require.NoError(t, err)
		assert.Len(t, parts, 2)
	})

	t.Run("ByFilter", func(t *testing.T) {
		parts, err := conn.GetPartitionsByFilter(ctx, "sales", "events", `ds = "20130101"`, -1)
		require.NoError(t, err)
		assert.Len(t, parts, 2)

		parts, err = conn.GetPartitionsByFilter(ctx, "sales", "events", `ds = "20130101" AND hr = "01"`, -1)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, []string{"20130101", "01"}, parts[0].Values)
	})
}

func TestIndexes(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))
	require.NoError(t, conn.CreateTable(ctx, testTable("sales", "events")))
	srv.SeedIndex(&hms.Index{
		Name:           "events_by_id",
		DbName:         "sales",
		OrigTableName:  "events",
		IndexTableName: "sales__events_events_by_id",
	})

	indexes, err := conn.GetIndexes(ctx, "sales", "events", -1)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "events_by_id", indexes[0].Name)

	dropped, err := conn.DropIndex(ctx, "sales", "events", "events_by_id", true)
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = conn.DropIndex(ctx, "sales", "events", "events_by_id", true)
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestLoadCallsPreserveSpecOrder(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))
	require.NoError(t, conn.CreateTable(ctx, testTable("sales", "events")))

	spec := []*hms.KeyValue{
		{Key: "ds", Value: "20130101"},
		{Key: "hr", Value: "07"},
	}
	err := conn.LoadPartition(ctx, &hms.LoadPartitionReq{
		SourcePath:  "/tmp/staging/batch-1",
		DbName:      "sales",
		TableName:   "events",
		Partition:   spec,
		Replace:     true,
		HoldDDLTime: hms.Bool(false),
	})
	require.NoError(t, err)

	calls := srv.LoadCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "load_partition", calls[0].Method)
	assert.Equal(t, "/tmp/staging/batch-1", calls[0].Source)
	assert.True(t, calls[0].Replace)
	require.Len(t, calls[0].Partition, 2)
	assert.Equal(t, "ds", calls[0].Partition[0].Key)
	assert.Equal(t, "hr", calls[0].Partition[1].Key)

	// The load registered the partition with values in key order.
	part, err := conn.GetPartition(ctx, "sales", "events", []string{"20130101", "07"})
	require.NoError(t, err)
	assert.Equal(t, "/warehouse/sales.db/events/ds=20130101/hr=07", part.Sd.Location)
}

func TestExecuteAndFetch(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	t.Run("CannedRows", func(t *testing.T) {
		srv.Respond("SHOW TABLES", "events", "refunds", "users")

		status, err := conn.Execute(ctx, "cmd-1", "SHOW TABLES")
		require.NoError(t, err)
		assert.Equal(t, int32(0), status.Code)

		rows, err := conn.FetchResults(ctx, "cmd-1", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"events", "refunds"}, rows)
	})

	t.Run("FailedCommand", func(t *testing.T) {
		srv.FailCommand("DROP TABLE nope", "table nope does not exist")

		status, err := conn.Execute(ctx, "cmd-2", "DROP TABLE nope")
		require.NoError(t, err)
		assert.Equal(t, int32(1), status.Code)
		assert.Equal(t, "42000", status.SQLState)
		assert.Contains(t, status.Message, "does not exist")
	})

	t.Run("NoRows", func(t *testing.T) {
		status, err := conn.Execute(ctx, "cmd-3", "USE sales")
		require.NoError(t, err)
		assert.Equal(t, int32(0), status.Code)

		rows, err := conn.FetchResults(ctx, "cmd-3", 1000)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestInjectedMetastoreFailure(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	srv.FailNext("get_table", "backend glitch")

	_, err := conn.GetTable(ctx, "sales", "events")
	require.Error(t, err)

	var meta *hms.MetaError
	require.ErrorAs(t, err, &meta)
	assert.Contains(t, meta.Message, "backend glitch")

	// Same connection keeps working afterwards.
	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))
}

func TestCallAfterClose(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsOpen())

	_, err := conn.GetDatabases(context.Background(), "*")
	require.ErrorIs(t, err, hms.ErrConnClosed)
}

func TestDroppedConnectionFailsCalls(t *testing.T) {
	srv := hms.NewTestServer(t)
	conn := newConn(t, srv)
	ctx := context.Background()

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))

	srv.DropActiveConns()

	_, err := conn.GetDatabase(ctx, "sales")
	require.Error(t, err)

	// A fresh connection still reaches the same server state.
	conn2 := newConn(t, srv)
	db, err := conn2.GetDatabase(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", db.Name)
}
