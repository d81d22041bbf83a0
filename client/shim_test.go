package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

func dialShimConn(t *testing.T, srv *hms.TestServer) *hms.Conn {
	t.Helper()

	opt := srv.Options()
	opt.Username = "spark"

	conn, err := hms.Dial(context.Background(), opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func mustShim(t *testing.T, v Version) shim {
	t.Helper()
	sh, err := newShim(v)
	require.NoError(t, err)
	return sh
}

func TestNewShimCoversSupportedVersions(t *testing.T) {
	for _, v := range []Version{V12, V13, V14, V1_0, V1_1, V1_2} {
		sh, err := newShim(v)
		require.NoError(t, err, v.String())
		require.NotNil(t, sh, v.String())
	}

	_, err := newShim(Version(99))
	require.Error(t, err)
	assert.Equal(t, ErrVersionUnsupported, errors.AsError(err).Code)
}

func TestParseVersion(t *testing.T) {
	good := map[string]Version{
		"12":     V12,
		"0.12":   V12,
		"0.12.0": V12,
		"13":     V13,
		"0.13.1": V13,
		"0.14":   V14,
		"0.14.1": V1_0,
		"1.0":    V1_0,
		"1.1.0":  V1_1,
		"1.2":    V1_2,
		"1.2.1":  V1_2,
		" 1.2 ":  V1_2,
	}
	for raw, want := range good {
		v, err := ParseVersion(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, v, raw)
	}

	for _, raw := range []string{"", "2.0", "0.11", "1.3", "latest"} {
		_, err := ParseVersion(raw)
		require.Error(t, err, raw)
		assert.Equal(t, ErrVersionUnsupported, errors.AsError(err).Code, raw)
	}
}

func TestConnectRetryDelay(t *testing.T) {
	t.Run("BareSecondsEverywhere", func(t *testing.T) {
		for _, v := range []Version{V12, V13, V14, V1_0, V1_1, V1_2} {
			sh := mustShim(t, v)
			assert.Equal(t, 90*time.Second, sh.connectRetryDelay("90"), v.String())
			assert.Equal(t, 5*time.Second, sh.connectRetryDelay(" 5 "), v.String())
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay(""), v.String())
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay("-3"), v.String())
		}
	})

	t.Run("SuffixesRejectedBefore014", func(t *testing.T) {
		for _, v := range []Version{V12, V13} {
			sh := mustShim(t, v)
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay("500ms"), v.String())
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay("2s"), v.String())
		}
	})

	t.Run("SuffixesUnderstoodFrom014", func(t *testing.T) {
		for _, v := range []Version{V14, V1_0, V1_1, V1_2} {
			sh := mustShim(t, v)
			assert.Equal(t, 500*time.Millisecond, sh.connectRetryDelay("500ms"), v.String())
			assert.Equal(t, 2*time.Second, sh.connectRetryDelay("2s"), v.String())
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay("junk"), v.String())
			assert.Equal(t, defaultRetryDelay, sh.connectRetryDelay("-5s"), v.String())
		}
	})
}

func TestCommandProcessorVerbs(t *testing.T) {
	v12 := mustShim(t, V12)
	v13 := mustShim(t, V13)
	v12Latest := mustShim(t, V1_2)

	for _, verb := range []string{"set", "reset", "dfs", "add", "delete", "SET", "Add"} {
		assert.Equal(t, simpleProcessor, v12.commandProcessor([]string{verb, "x"}), verb)
		assert.Equal(t, simpleProcessor, v13.commandProcessor([]string{verb, "x"}), verb)
	}

	// compile moved server-side in 0.13.
	assert.Equal(t, driverProcessor, v12.commandProcessor([]string{"compile", "expr"}))
	assert.Equal(t, simpleProcessor, v13.commandProcessor([]string{"compile", "expr"}))
	assert.Equal(t, simpleProcessor, v12Latest.commandProcessor([]string{"compile", "expr"}))

	assert.Equal(t, driverProcessor, v12.commandProcessor([]string{"select", "*"}))
	assert.Equal(t, driverProcessor, v13.commandProcessor([]string{"show", "tables"}))
}

func TestCommandResults(t *testing.T) {
	rows := []string{"events\tMANAGED_TABLE", "refunds", "users\tEXTERNAL_TABLE\textra"}

	v12 := mustShim(t, V12)
	assert.Equal(t, []string{"events", "refunds", "users"}, v12.commandResults(rows))

	for _, v := range []Version{V13, V14, V1_2} {
		sh := mustShim(t, v)
		assert.Equal(t, rows, sh.commandResults(rows), v.String())
	}
}

func TestDataLocation(t *testing.T) {
	withSd := &hms.Table{Sd: &hms.StorageDescriptor{Location: "/warehouse/sales.db/events"}}
	pathParam := &hms.Table{
		Sd:         &hms.StorageDescriptor{},
		Parameters: map[string]string{"path": "hdfs://nn/lake/events"},
	}
	bare := &hms.Table{}

	t.Run("V12ReadsDescriptorOnly", func(t *testing.T) {
		sh := mustShim(t, V12)

		loc, ok := sh.dataLocation(withSd)
		require.True(t, ok)
		assert.Equal(t, "/warehouse/sales.db/events", loc)

		_, ok = sh.dataLocation(pathParam)
		assert.False(t, ok)
		_, ok = sh.dataLocation(bare)
		assert.False(t, ok)
	})

	t.Run("V13FallsBackToPathParameter", func(t *testing.T) {
		sh := mustShim(t, V13)

		loc, ok := sh.dataLocation(withSd)
		require.True(t, ok)
		assert.Equal(t, "/warehouse/sales.db/events", loc)

		loc, ok = sh.dataLocation(pathParam)
		require.True(t, ok)
		assert.Equal(t, "hdfs://nn/lake/events", loc)

		_, ok = sh.dataLocation(bare)
		assert.False(t, ok)
	})
}

func TestSetDataLocation(t *testing.T) {
	t.Run("V12DescriptorOnly", func(t *testing.T) {
		sh := mustShim(t, V12)
		tbl := &hms.Table{}

		sh.setDataLocation(tbl, "/data/events")
		require.NotNil(t, tbl.Sd)
		assert.Equal(t, "/data/events", tbl.Sd.Location)
		assert.Empty(t, tbl.Parameters["path"])
	})

	t.Run("V13SyncsPathParameter", func(t *testing.T) {
		sh := mustShim(t, V13)
		tbl := &hms.Table{}

		sh.setDataLocation(tbl, "/data/events")
		require.NotNil(t, tbl.Sd)
		assert.Equal(t, "/data/events", tbl.Sd.Location)
		assert.Equal(t, "/data/events", tbl.Parameters["path"])
	})
}

func TestLocalSource(t *testing.T) {
	assert.True(t, localSource("file:/tmp/batch-1"))
	assert.True(t, localSource("file:///tmp/batch-1"))
	assert.False(t, localSource("/tmp/batch-1"))
	assert.False(t, localSource("hdfs://nn/staging/batch-1"))
	assert.False(t, localSource("s3a://bucket/staging"))
}

func TestLoadTableWireFlags(t *testing.T) {
	ctx := context.Background()

	t.Run("V12SendsLegacyFieldsOnly", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V12)

		require.NoError(t, sh.loadTable(ctx, conn, "file:/tmp/batch-1", "sales", "events", true, false))

		calls := srv.LoadCalls()
		require.Len(t, calls, 1)
		call := calls[0]
		assert.Equal(t, "load_table", call.Method)
		assert.Equal(t, "file:/tmp/batch-1", call.Source)
		assert.Equal(t, "sales", call.DbName)
		assert.Equal(t, "events", call.TableName)
		assert.True(t, call.Replace)
		require.NotNil(t, call.HoldDDLTime)
		assert.False(t, *call.HoldDDLTime)
		assert.Nil(t, call.IsSrcLocal)
		assert.Nil(t, call.IsSkewedStoreAsSubdir)
		assert.Nil(t, call.IsAcid)
	})

	t.Run("V14MarksLocalSources", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V14)

		require.NoError(t, sh.loadTable(ctx, conn, "file:/tmp/batch-1", "sales", "events", false, true))
		require.NoError(t, sh.loadTable(ctx, conn, "hdfs://nn/staging/batch-2", "sales", "events", false, true))

		calls := srv.LoadCalls()
		require.Len(t, calls, 2)

		local := calls[0]
		require.NotNil(t, local.HoldDDLTime)
		assert.True(t, *local.HoldDDLTime)
		require.NotNil(t, local.IsSrcLocal)
		assert.True(t, *local.IsSrcLocal)
		require.NotNil(t, local.IsSkewedStoreAsSubdir)
		assert.False(t, *local.IsSkewedStoreAsSubdir)
		require.NotNil(t, local.IsAcid)
		assert.False(t, *local.IsAcid)

		shared := calls[1]
		require.NotNil(t, shared.IsSrcLocal)
		assert.False(t, *shared.IsSrcLocal)
	})
}

func TestLoadPartitionWireFlags(t *testing.T) {
	ctx := context.Background()
	spec := []*hms.KeyValue{
		{Key: "ds", Value: "20130101"},
		{Key: "hr", Value: "07"},
	}

	t.Run("V12SendsLegacyFieldsOnly", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V12)

		require.NoError(t, sh.loadPartition(ctx, conn, "hdfs://nn/staging/b1", "sales", "events", spec, true, false, true, true))

		calls := srv.LoadCalls()
		require.Len(t, calls, 1)
		call := calls[0]
		assert.Equal(t, "load_partition", call.Method)
		assert.True(t, call.Replace)
		assert.True(t, call.InheritTableSpecs)
		require.Len(t, call.Partition, 2)
		assert.Equal(t, "ds", call.Partition[0].Key)
		assert.Equal(t, "hr", call.Partition[1].Key)
		require.NotNil(t, call.HoldDDLTime)
		assert.False(t, *call.HoldDDLTime)
		require.NotNil(t, call.IsSkewedStoreAsSubdir)
		assert.True(t, *call.IsSkewedStoreAsSubdir)
		assert.Nil(t, call.IsSrcLocal)
		assert.Nil(t, call.IsAcid)
	})

	t.Run("V1_0InheritsAcidFields", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V1_0)

		require.NoError(t, sh.loadPartition(ctx, conn, "hdfs://nn/staging/b1", "sales", "events", spec, false, false, false, false))

		calls := srv.LoadCalls()
		require.Len(t, calls, 1)
		call := calls[0]
		require.NotNil(t, call.IsSrcLocal)
		assert.False(t, *call.IsSrcLocal)
		require.NotNil(t, call.IsAcid)
		assert.False(t, *call.IsAcid)
	})
}

func TestLoadDynamicPartitionsWireFlags(t *testing.T) {
	ctx := context.Background()
	spec := []*hms.KeyValue{
		{Key: "ds", Value: "20130101"},
		{Key: "hr", Value: ""},
	}

	t.Run("V12SendsLegacyFieldsOnly", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V12)

		require.NoError(t, sh.loadDynamicPartitions(ctx, conn, "hdfs://nn/staging/b1", "sales", "events", spec, true, 1, false, true))

		calls := srv.LoadCalls()
		require.Len(t, calls, 1)
		call := calls[0]
		assert.Equal(t, "load_dynamic_partitions", call.Method)
		assert.Equal(t, int32(1), call.NumDP)
		require.NotNil(t, call.HoldDDLTime)
		assert.False(t, *call.HoldDDLTime)
		require.NotNil(t, call.ListBucketingEnabled)
		assert.True(t, *call.ListBucketingEnabled)
		assert.Nil(t, call.IsAcid)
		assert.Nil(t, call.TxnID)
	})

	t.Run("V1_2SendsTransactionFieldsAsZeros", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		conn := dialShimConn(t, srv)
		sh := mustShim(t, V1_2)

		require.NoError(t, sh.loadDynamicPartitions(ctx, conn, "hdfs://nn/staging/b1", "sales", "events", spec, true, 1, false, false))

		calls := srv.LoadCalls()
		require.Len(t, calls, 1)
		call := calls[0]
		require.NotNil(t, call.IsAcid)
		assert.False(t, *call.IsAcid)
		require.NotNil(t, call.TxnID)
		assert.Equal(t, int64(0), *call.TxnID)
	})
}

func TestPartitionsByFilterSeam(t *testing.T) {
	ctx := context.Background()
	srv := hms.NewTestServer(t)
	conn := dialShimConn(t, srv)

	require.NoError(t, conn.CreateDatabase(ctx, &hms.Database{Name: "sales"}))
	require.NoError(t, conn.CreateTable(ctx, &hms.Table{
		Name:      "events",
		DbName:    "sales",
		TableType: "MANAGED_TABLE",
		Sd:        &hms.StorageDescriptor{Location: "/warehouse/sales.db/events"},
		PartitionKeys: []*hms.FieldSchema{
			{Name: "ds", Type: "string"},
			{Name: "hr", Type: "string"},
		},
	}))
	for _, values := range [][]string{
		{"20130101", "00"},
		{"20130101", "01"},
		{"20130102", "00"},
	} {
		srv.SeedPartition(&hms.Partition{Values: values, DbName: "sales", TableName: "events"})
	}

	t.Run("V12FetchesEverythingUnpushed", func(t *testing.T) {
		sh := mustShim(t, V12)
		parts, pushed, err := sh.partitionsByFilter(ctx, conn, "sales", "events", `ds = "20130101"`)
		require.NoError(t, err)
		assert.False(t, pushed)
		assert.Len(t, parts, 3)
	})

	t.Run("V13PushesToServer", func(t *testing.T) {
		sh := mustShim(t, V13)
		parts, pushed, err := sh.partitionsByFilter(ctx, conn, "sales", "events", `ds = "20130101"`)
		require.NoError(t, err)
		assert.True(t, pushed)
		assert.Len(t, parts, 2)
	})

	t.Run("AllPartitionsBothBounds", func(t *testing.T) {
		for _, v := range []Version{V12, V13, V1_2} {
			sh := mustShim(t, v)
			parts, err := sh.allPartitions(ctx, conn, "sales", "events")
			require.NoError(t, err, v.String())
			assert.Len(t, parts, 3, v.String())
		}
	})
}

func TestDropIndexSeam(t *testing.T) {
	ctx := context.Background()

	for _, v := range []Version{V12, V13} {
		t.Run(v.String(), func(t *testing.T) {
			srv := hms.NewTestServer(t)
			conn := dialShimConn(t, srv)
			srv.SeedIndex(&hms.Index{
				Name:           "events_by_id",
				DbName:         "sales",
				OrigTableName:  "events",
				IndexTableName: "sales__events_events_by_id",
			})

			sh := mustShim(t, v)
			dropped, err := sh.dropIndex(ctx, conn, "sales", "events", "events_by_id", false)
			require.NoError(t, err)
			assert.True(t, dropped)

			dropped, err = sh.dropIndex(ctx, conn, "sales", "events", "events_by_id", false)
			require.NoError(t, err)
			assert.False(t, dropped)
		})
	}
}
