package client

import (
	"context"
	"strings"

	"github.com/gear6io/metabridge/pkg/errors"
)

// Version identifies one supported release of the metastore protocol. It is
// fixed at client construction and selects the protocol shim.
type Version int

const (
	V12 Version = iota
	V13
	V14
	V1_0
	V1_1
	V1_2
)

// releases maps each version to its canonical release string.
var releases = map[Version]string{
	V12:  "0.12.0",
	V13:  "0.13.1",
	V14:  "0.14.0",
	V1_0: "1.0.0",
	V1_1: "1.1.0",
	V1_2: "1.2.1",
}

func (v Version) String() string {
	if s, ok := releases[v]; ok {
		return s
	}
	return "unknown"
}

// ParseVersion resolves a release string to a Version. Both full release
// strings ("0.13.1") and short forms ("0.13", "13") are accepted.
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "12", "0.12", "0.12.0":
		return V12, nil
	case "13", "0.13", "0.13.1":
		return V13, nil
	case "14", "0.14", "0.14.0":
		return V14, nil
	case "1.0", "1.0.0", "0.14.1":
		return V1_0, nil
	case "1.1", "1.1.0":
		return V1_1, nil
	case "1.2", "1.2.0", "1.2.1":
		return V1_2, nil
	}
	return 0, errors.Newf(ErrVersionUnsupported, "unsupported metastore version %q", s)
}

// TableType is the kind of a catalog table. Exactly one applies to a table.
type TableType int

const (
	ManagedTable TableType = iota
	ExternalTable
	VirtualView
	IndexTable
)

var tableTypeNames = map[TableType]string{
	ManagedTable:  "MANAGED_TABLE",
	ExternalTable: "EXTERNAL_TABLE",
	VirtualView:   "VIRTUAL_VIEW",
	IndexTable:    "INDEX_TABLE",
}

func (t TableType) String() string {
	if s, ok := tableTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// parseTableType maps a native kind string to a TableType. The switch is
// exhaustive over the catalog's four kinds; anything else means the two
// sides disagree about the schema and is not recoverable.
func parseTableType(s string) (TableType, error) {
	switch s {
	case "MANAGED_TABLE":
		return ManagedTable, nil
	case "EXTERNAL_TABLE":
		return ExternalTable, nil
	case "VIRTUAL_VIEW":
		return VirtualView, nil
	case "INDEX_TABLE":
		return IndexTable, nil
	}
	return 0, errors.Newf(ErrTableTypeUnknown, "unknown native table type %q", s)
}

// Database is a caller-visible database record.
type Database struct {
	Name     string
	Location string
}

// Column is one column of a table schema.
type Column struct {
	Name    string
	Type    string
	Comment string
}

// Storage describes where and how a table or partition stores its data.
type Storage struct {
	Location        string
	InputFormat     string
	OutputFormat    string
	Serde           string
	SerdeProperties map[string]string
}

// Table is the caller-visible table record. Optional fields are pointers;
// nil means "let the catalog default apply". Partition columns are disjoint
// from data columns.
type Table struct {
	Name             string
	Database         string
	Columns          []Column
	PartitionColumns []Column
	Properties       map[string]string
	SerdeProperties  map[string]string
	Type             TableType
	Location         *string
	InputFormat      *string
	OutputFormat     *string
	Serde            *string
	ViewText         *string

	// Back-reference for lazy lookups. Set on tables produced by a client;
	// never ownership.
	client *Client
}

// Qualified returns the db-qualified table name.
func (t *Table) Qualified() string {
	if t.Database == "" {
		return t.Name
	}
	return t.Database + "." + t.Name
}

// AllPartitions fetches the table's partitions through the client that
// produced this record.
func (t *Table) AllPartitions(ctx context.Context) ([]*Partition, error) {
	if t.client == nil {
		return nil, errors.New(ErrTableDetached, "table carries no client reference", nil).AddContext("table", t.Qualified())
	}
	return t.client.GetAllPartitions(ctx, t)
}

// Partition is one caller-visible partition. Values are positional,
// matching the owning table's partition-column order.
type Partition struct {
	Values  []string
	Storage Storage
}

// PartitionBinding binds one partition column to a value.
type PartitionBinding struct {
	Column string
	Value  string
}

// PartitionSpec is an ordered set of partition column bindings. Load
// operations care about order, so it is a slice, not a map.
type PartitionSpec []PartitionBinding

// Predicate is one partition-pruning condition pushed down to the catalog
// where the protocol allows it.
type Predicate struct {
	Column string
	Op     string
	Value  string
}

// splitQualified separates "db.table" into its parts; names without a
// qualifier come back with an empty db.
func splitQualified(name string) (db, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
