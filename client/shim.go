package client

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// defaultRetryDelay applies when the retry delay setting is absent or
// unparsable.
const defaultRetryDelay = time.Second

// processorKind tells the command runner how to execute a command.
type processorKind int

const (
	// driverProcessor compiles and runs the command remotely, producing rows.
	driverProcessor processorKind = iota
	// simpleProcessor is handled server-side with a bare response code and no
	// result rows.
	simpleProcessor
)

// shim absorbs the differences between metastore protocol releases so the
// rest of the client stays version-blind. Implementations are stateless;
// newer versions embed older ones and override only the operations whose
// behavior actually changed.
type shim interface {
	// connectRetryDelay interprets the raw value of the connect retry delay
	// setting. Older releases read a bare count of seconds; newer ones also
	// understand duration suffixes.
	connectRetryDelay(raw string) time.Duration

	// allPartitions lists every partition of a table.
	allPartitions(ctx context.Context, conn *hms.Conn, db, table string) ([]*hms.Partition, error)

	// partitionsByFilter lists partitions matching filter. pushed reports
	// whether the server evaluated the filter; when false the caller holds
	// every partition and must prune locally.
	partitionsByFilter(ctx context.Context, conn *hms.Conn, db, table, filter string) (parts []*hms.Partition, pushed bool, err error)

	// dataLocation extracts a table's data location, version-appropriately.
	dataLocation(tbl *hms.Table) (string, bool)

	// setDataLocation records a table's data location everywhere the version
	// expects to find it.
	setDataLocation(tbl *hms.Table, location string)

	loadTable(ctx context.Context, conn *hms.Conn, source, db, table string, replace, holdDDLTime bool) error
	loadPartition(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace, holdDDLTime, inheritTableSpecs, isSkewedStoreAsSubdir bool) error
	loadDynamicPartitions(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace bool, numDP int32, holdDDLTime, listBucketingEnabled bool) error

	// dropIndex removes a secondary index, reporting whether it existed.
	dropIndex(ctx context.Context, conn *hms.Conn, db, table, index string, deleteData bool) (bool, error)

	// commandProcessor classifies a tokenized command by its leading verb.
	commandProcessor(tokens []string) processorKind

	// commandResults normalizes fetched driver rows for the caller.
	commandResults(rows []string) []string
}

// newShim selects the adapter for a protocol version. The switch is total
// over the supported set; anything else fails construction.
func newShim(v Version) (shim, error) {
	switch v {
	case V12:
		return shimV12{}, nil
	case V13:
		return shimV13{}, nil
	case V14:
		return shimV14{}, nil
	case V1_0:
		return shimV1_0{}, nil
	case V1_1:
		return shimV1_1{}, nil
	case V1_2:
		return shimV1_2{}, nil
	}
	return nil, errors.Newf(ErrVersionUnsupported, "no protocol shim for metastore version %q", v.String())
}

type (
	shimV12  struct{}
	shimV13  struct{ shimV12 }
	shimV14  struct{ shimV13 }
	shimV1_0 struct{ shimV14 }
	shimV1_1 struct{ shimV1_0 }
	shimV1_2 struct{ shimV1_1 }
)

// localSource reports whether a load source sits on the submitting host.
// Paths already on shared storage carry a non-file scheme or none at all.
func localSource(path string) bool {
	return strings.HasPrefix(path, "file:")
}

// --- 0.12 ---

func (shimV12) connectRetryDelay(raw string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return defaultRetryDelay
	}
	return time.Duration(secs) * time.Second
}

// allPartitions on 0.12 servers bounds every listing to a signed 16-bit
// count; there is no unbounded form.
func (shimV12) allPartitions(ctx context.Context, conn *hms.Conn, db, table string) ([]*hms.Partition, error) {
	return conn.GetPartitions(ctx, db, table, math.MaxInt16)
}

// partitionsByFilter on 0.12 cannot push the filter down; everything comes
// back and the caller prunes.
func (s shimV12) partitionsByFilter(ctx context.Context, conn *hms.Conn, db, table, filter string) ([]*hms.Partition, bool, error) {
	parts, err := s.allPartitions(ctx, conn, db, table)
	return parts, false, err
}

func (shimV12) dataLocation(tbl *hms.Table) (string, bool) {
	if tbl.Sd == nil || tbl.Sd.Location == "" {
		return "", false
	}
	return tbl.Sd.Location, true
}

func (shimV12) setDataLocation(tbl *hms.Table, location string) {
	if tbl.Sd == nil {
		tbl.Sd = &hms.StorageDescriptor{}
	}
	tbl.Sd.Location = location
}

func (shimV12) loadTable(ctx context.Context, conn *hms.Conn, source, db, table string, replace, holdDDLTime bool) error {
	return conn.LoadTable(ctx, &hms.LoadTableReq{
		SourcePath:  source,
		DbName:      db,
		TableName:   table,
		Replace:     replace,
		HoldDDLTime: hms.Bool(holdDDLTime),
	})
}

func (shimV12) loadPartition(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace, holdDDLTime, inheritTableSpecs, isSkewedStoreAsSubdir bool) error {
	return conn.LoadPartition(ctx, &hms.LoadPartitionReq{
		SourcePath:            source,
		DbName:                db,
		TableName:             table,
		Partition:             part,
		Replace:               replace,
		InheritTableSpecs:     inheritTableSpecs,
		HoldDDLTime:           hms.Bool(holdDDLTime),
		IsSkewedStoreAsSubdir: hms.Bool(isSkewedStoreAsSubdir),
	})
}

func (shimV12) loadDynamicPartitions(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace bool, numDP int32, holdDDLTime, listBucketingEnabled bool) error {
	return conn.LoadDynamicPartitions(ctx, &hms.LoadDynamicPartitionsReq{
		SourcePath:           source,
		DbName:               db,
		TableName:            table,
		Partition:            part,
		Replace:              replace,
		NumDP:                numDP,
		HoldDDLTime:          hms.Bool(holdDDLTime),
		ListBucketingEnabled: hms.Bool(listBucketingEnabled),
	})
}

// dropIndex on 0.12 gives the caller no say; the server always removes the
// index data.
func (shimV12) dropIndex(ctx context.Context, conn *hms.Conn, db, table, index string, _ bool) (bool, error) {
	return conn.DropIndex(ctx, db, table, index, true)
}

func (shimV12) commandProcessor(tokens []string) processorKind {
	switch strings.ToLower(tokens[0]) {
	case "set", "reset", "dfs", "add", "delete":
		return simpleProcessor
	}
	return driverProcessor
}

// commandResults on 0.12 drivers arrive preformatted with tab-joined
// columns; only the leading column carries the value callers want.
func (shimV12) commandResults(rows []string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		if j := strings.IndexByte(row, '\t'); j >= 0 {
			out[i] = row[:j]
			continue
		}
		out[i] = row
	}
	return out
}

// --- 0.13 ---

func (shimV13) allPartitions(ctx context.Context, conn *hms.Conn, db, table string) ([]*hms.Partition, error) {
	return conn.GetPartitions(ctx, db, table, -1)
}

func (shimV13) partitionsByFilter(ctx context.Context, conn *hms.Conn, db, table, filter string) ([]*hms.Partition, bool, error) {
	parts, err := conn.GetPartitionsByFilter(ctx, db, table, filter, -1)
	return parts, true, err
}

// dataLocation on 0.13 also honors the "path" table parameter, where engines
// writing through older clients left the location.
func (s shimV13) dataLocation(tbl *hms.Table) (string, bool) {
	if tbl.Sd != nil && tbl.Sd.Location != "" {
		return tbl.Sd.Location, true
	}
	if loc := tbl.Parameters["path"]; loc != "" {
		return loc, true
	}
	return "", false
}

func (s shimV13) setDataLocation(tbl *hms.Table, location string) {
	s.shimV12.setDataLocation(tbl, location)
	if tbl.Parameters == nil {
		tbl.Parameters = make(map[string]string)
	}
	tbl.Parameters["path"] = location
}

func (shimV13) dropIndex(ctx context.Context, conn *hms.Conn, db, table, index string, deleteData bool) (bool, error) {
	return conn.DropIndex(ctx, db, table, index, deleteData)
}

// commandProcessor gained compile as a server-side verb in 0.13.
func (shimV13) commandProcessor(tokens []string) processorKind {
	switch strings.ToLower(tokens[0]) {
	case "set", "reset", "dfs", "add", "delete", "compile":
		return simpleProcessor
	}
	return driverProcessor
}

func (shimV13) commandResults(rows []string) []string {
	return rows
}

// --- 0.14 ---

// connectRetryDelay understands unit suffixes from 0.14 on; a bare integer
// still means seconds.
func (shimV14) connectRetryDelay(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return defaultRetryDelay
		}
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return defaultRetryDelay
}

func (shimV14) loadTable(ctx context.Context, conn *hms.Conn, source, db, table string, replace, holdDDLTime bool) error {
	return conn.LoadTable(ctx, &hms.LoadTableReq{
		SourcePath:            source,
		DbName:                db,
		TableName:             table,
		Replace:               replace,
		HoldDDLTime:           hms.Bool(holdDDLTime),
		IsSrcLocal:            hms.Bool(localSource(source)),
		IsSkewedStoreAsSubdir: hms.Bool(false),
		IsAcid:                hms.Bool(false),
	})
}

func (shimV14) loadPartition(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace, holdDDLTime, inheritTableSpecs, isSkewedStoreAsSubdir bool) error {
	return conn.LoadPartition(ctx, &hms.LoadPartitionReq{
		SourcePath:            source,
		DbName:                db,
		TableName:             table,
		Partition:             part,
		Replace:               replace,
		InheritTableSpecs:     inheritTableSpecs,
		HoldDDLTime:           hms.Bool(holdDDLTime),
		IsSkewedStoreAsSubdir: hms.Bool(isSkewedStoreAsSubdir),
		IsSrcLocal:            hms.Bool(localSource(source)),
		IsAcid:                hms.Bool(false),
	})
}

// --- 1.0 and 1.1 change nothing the client can observe ---

// --- 1.2 ---

// loadDynamicPartitions grew transactional fields in 1.2. The client never
// loads inside a transaction, so they travel as explicit zeros.
func (shimV1_2) loadDynamicPartitions(ctx context.Context, conn *hms.Conn, source, db, table string, part []*hms.KeyValue, replace bool, numDP int32, holdDDLTime, listBucketingEnabled bool) error {
	return conn.LoadDynamicPartitions(ctx, &hms.LoadDynamicPartitionsReq{
		SourcePath:           source,
		DbName:               db,
		TableName:            table,
		Partition:            part,
		Replace:              replace,
		NumDP:                numDP,
		HoldDDLTime:          hms.Bool(holdDDLTime),
		ListBucketingEnabled: hms.Bool(listBucketingEnabled),
		IsAcid:               hms.Bool(false),
		TxnID:                hms.I64(0),
	})
}
