package client

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

func TestRunCommandBlank(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)

	for _, cmd := range []string{"", "   ", "\t\n"} {
		_, err := c.RunCommand(context.Background(), cmd, -1)
		require.Error(t, err)
		assert.Equal(t, ErrCommandBlank, errors.AsError(err).Code)
	}
	assert.Empty(t, srv.ExecutedCommands())
}

func TestRunCommandSimpleVerbEchoes(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)
	ctx := context.Background()

	var buf bytes.Buffer
	c.SetOutputStream(&buf)

	rows, err := c.RunCommand(ctx, "set hive.exec.dynamic.partition=true", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, rows)

	rows, err = c.RunCommand(ctx, "add jar /tmp/udfs.jar", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, rows)

	assert.Equal(t, "hive.exec.dynamic.partition=true\njar /tmp/udfs.jar\n", buf.String())
	// Processor-handled verbs never reach the server.
	assert.Empty(t, srv.ExecutedCommands())
}

func TestRunCommandCompileVersionSeam(t *testing.T) {
	ctx := context.Background()

	t.Run("V12RunsCompileRemotely", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		c := newTestClient(t, srv, "0.12.0", nil)

		rows, err := c.RunCommand(ctx, "compile expr", -1)
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Equal(t, []string{"compile expr"}, srv.ExecutedCommands())
	})

	t.Run("V13HandlesCompileLocally", func(t *testing.T) {
		srv := hms.NewTestServer(t)
		c := newTestClient(t, srv, "0.13.1", nil)

		rows, err := c.RunCommand(ctx, "compile expr", -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"0"}, rows)
		assert.Empty(t, srv.ExecutedCommands())
	})
}

func TestRunCommandRowsAndCap(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)
	ctx := context.Background()

	srv.Respond("SHOW TABLES", "events", "refunds", "users")

	rows, err := c.RunCommand(ctx, "SHOW TABLES", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "refunds"}, rows)

	rows, err = c.RunCommand(ctx, "SHOW TABLES", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "refunds", "users"}, rows)
}

func TestRunCommandLegacyRowFormat(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "0.12.0", nil)

	srv.Respond("SHOW TABLES", "events\tMANAGED_TABLE", "refunds\tEXTERNAL_TABLE")

	rows, err := c.RunCommand(context.Background(), "SHOW TABLES", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "refunds"}, rows)
}

func TestRunCommandFailureCarriesCapturedOutput(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)
	ctx := context.Background()

	// Simple commands land in the session capture buffer by default.
	_, err := c.RunCommand(ctx, "set role admin", -1)
	require.NoError(t, err)

	srv.FailCommand("DROP TABLE nope", "table nope does not exist")

	_, err = c.RunCommand(ctx, "DROP TABLE nope", -1)
	require.Error(t, err)

	e := errors.AsError(err)
	assert.Equal(t, ErrQueryFailed, e.Code)
	assert.Contains(t, e.Message, "does not exist")
	assert.Equal(t, "42000", e.Context["sqlstate"])
	assert.Contains(t, e.Context["captured_output"], "role admin")

	// Query failures are the catalog's answer, not a broken connection;
	// exactly one execute went out.
	assert.Equal(t, []string{"DROP TABLE nope"}, srv.ExecutedCommands())
}

func TestRunQueryTruncationAmbiguity(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", nil)
	ctx := context.Background()

	srv.Respond("SELECT * FROM small", "r1", "r2")
	rows, err := c.RunQuery(ctx, "SELECT * FROM small")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, rows)

	big := make([]string, maxQueryRows)
	for i := range big {
		big[i] = fmt.Sprintf("row-%d", i)
	}
	srv.Respond("SELECT * FROM big", big...)

	rows, err = c.RunQuery(ctx, "SELECT * FROM big")
	require.Error(t, err)
	assert.Equal(t, ErrResultsMaybeTruncated, errors.AsError(err).Code)
	// The rows still come back; the caller decides what to trust.
	assert.Len(t, rows, maxQueryRows)
	assert.Equal(t, "row-0", rows[0])
}

func TestRunCommandRetriesTransportFailures(t *testing.T) {
	srv := hms.NewTestServer(t)
	c := newTestClient(t, srv, "1.2.1", fastRetrySettings("2", "50ms"))
	ctx := context.Background()

	srv.Respond("SHOW TABLES", "events")
	srv.DropActiveConns()

	rows, err := c.RunCommand(ctx, "SHOW TABLES", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, rows)

	// The first attempt died at the transport; only the retry's execute
	// reached the server.
	assert.Equal(t, []string{"SHOW TABLES"}, srv.ExecutedCommands())
}
