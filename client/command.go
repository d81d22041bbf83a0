package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// maxQueryRows is the row ceiling RunQuery asks for.
const maxQueryRows = 100000

// RunCommand executes one catalog-language command and returns at most
// maxRows result rows as text. Commands whose verb maps to a server-side
// processor produce no rows; the remainder of the command is echoed to the
// session's output stream and the processor's response code comes back as
// the single row. Driver commands run remotely; a non-zero response code
// surfaces as a query failure carrying the catalog's own message and is
// never retried.
func (c *Client) RunCommand(ctx context.Context, cmd string, maxRows int) ([]string, error) {
	cmd = strings.TrimSpace(cmd)
	tokens := strings.Fields(cmd)
	if len(tokens) == 0 {
		return nil, errors.New(ErrCommandBlank, "command is blank", nil)
	}

	if c.shim.commandProcessor(tokens) == simpleProcessor {
		remainder := strings.TrimSpace(strings.TrimPrefix(cmd, tokens[0]))
		fmt.Fprintln(c.session.Out(), remainder)
		return []string{"0"}, nil
	}

	var rows []string
	err := c.withRetry(ctx, func(conn *hms.Conn) error {
		// A fresh id per attempt keeps a retried execute from colliding
		// with a half-fetched command on the server.
		commandID := uuid.NewString()

		status, err := conn.Execute(ctx, commandID, cmd)
		if err != nil {
			return err
		}
		if status.Code != 0 {
			return errors.Newf(ErrQueryFailed, "command returned code %d: %s", status.Code, status.Message).
				AddContext("sqlstate", status.SQLState)
		}

		rows, err = conn.FetchResults(ctx, commandID, int32(maxRows))
		return err
	})
	if err != nil {
		captured := c.session.CapturedOutput()
		c.logger.Error().
			Err(err).
			Str("command", cmd).
			Str("captured_output", captured).
			Msg("Catalog command failed")
		if e, ok := err.(*errors.Error); ok {
			return nil, e.AddContext("captured_output", captured)
		}
		return nil, err
	}

	// The server already honors maxRows; the cap here holds the contract
	// even against one that does not.
	if maxRows >= 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return c.shim.commandResults(rows), nil
}

// RunQuery runs a query with the standard row ceiling. A result of exactly
// the ceiling cannot be told apart from one truncated at it, so the rows
// come back alongside an explicit truncation error and the caller decides
// what to trust.
func (c *Client) RunQuery(ctx context.Context, query string) ([]string, error) {
	rows, err := c.RunCommand(ctx, query, maxQueryRows)
	if err != nil {
		return nil, err
	}
	if len(rows) == maxQueryRows {
		return rows, errors.Newf(ErrResultsMaybeTruncated, "query returned exactly %d rows, results possibly truncated", maxQueryRows)
	}
	return rows, nil
}
