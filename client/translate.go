package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/gear6io/metabridge/pkg/errors"
	"github.com/gear6io/metabridge/pkg/hms"
)

// Translation between wire records and the domain model. Everything in this
// file is a pure mapping; nothing here talks to the catalog.

func toDatabase(native *hms.Database) *Database {
	return &Database{
		Name:     native.Name,
		Location: native.LocationURI,
	}
}

func fromDatabase(db *Database) *hms.Database {
	return &hms.Database{
		Name:        db.Name,
		LocationURI: db.Location,
	}
}

func toColumns(fields []*hms.FieldSchema) []Column {
	if len(fields) == 0 {
		return nil
	}
	cols := make([]Column, len(fields))
	for i, f := range fields {
		cols[i] = Column{Name: f.Name, Type: f.Type, Comment: f.Comment}
	}
	return cols
}

func fromColumns(cols []Column) []*hms.FieldSchema {
	if len(cols) == 0 {
		return nil
	}
	fields := make([]*hms.FieldSchema, len(cols))
	for i, c := range cols {
		fields[i] = &hms.FieldSchema{Name: c.Name, Type: c.Type, Comment: c.Comment}
	}
	return fields
}

// toTable maps a native table to the domain model. The data location goes
// through the shim because versions disagree on where it lives.
func toTable(s shim, native *hms.Table) (*Table, error) {
	kind, err := parseTableType(native.TableType)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Name:             native.Name,
		Database:         native.DbName,
		PartitionColumns: toColumns(native.PartitionKeys),
		Properties:       copyMap(native.Parameters),
		Type:             kind,
	}
	if loc, ok := s.dataLocation(native); ok {
		t.Location = &loc
	}
	if native.Sd != nil {
		t.Columns = toColumns(native.Sd.Cols)
		t.InputFormat = optStr(native.Sd.InputFormat)
		t.OutputFormat = optStr(native.Sd.OutputFormat)
		if native.Sd.SerdeInfo != nil {
			t.Serde = optStr(native.Sd.SerdeInfo.SerializationLib)
			t.SerdeProperties = copyMap(native.Sd.SerdeInfo.Parameters)
		}
	}
	t.ViewText = optStr(native.ViewExpandedText)
	return t, nil
}

// fromTable maps a domain table to a native one for create and alter calls.
// Owner comes from the session identity and the creation time from the
// clock; format and serde classes must resolve in the session's registry.
func fromTable(sess *Session, s shim, t *Table) (*hms.Table, error) {
	if err := checkDisjointColumns(t); err != nil {
		return nil, err
	}

	reg := sess.Formats()
	def := defaultFormat()
	in, err := resolveClass(reg, t.InputFormat, def.InputFormat)
	if err != nil {
		return nil, err
	}
	out, err := resolveClass(reg, t.OutputFormat, def.OutputFormat)
	if err != nil {
		return nil, err
	}
	serde, err := resolveClass(reg, t.Serde, def.Serde)
	if err != nil {
		return nil, err
	}

	native := &hms.Table{
		Name:       t.Name,
		DbName:     t.Database,
		Owner:      sess.User(),
		CreateTime: int32(time.Now().Unix()),
		Sd: &hms.StorageDescriptor{
			Cols:         fromColumns(t.Columns),
			InputFormat:  in,
			OutputFormat: out,
			NumBuckets:   -1,
			SerdeInfo: &hms.SerDeInfo{
				Name:             t.Name,
				SerializationLib: serde,
				Parameters:       copyMap(t.SerdeProperties),
			},
		},
		PartitionKeys: fromColumns(t.PartitionColumns),
		Parameters:    copyMap(t.Properties),
		TableType:     t.Type.String(),
	}
	if t.Type == ExternalTable {
		if native.Parameters == nil {
			native.Parameters = make(map[string]string)
		}
		native.Parameters["EXTERNAL"] = "TRUE"
	}
	if t.ViewText != nil {
		native.ViewOriginalText = *t.ViewText
		native.ViewExpandedText = *t.ViewText
	}
	if t.Location != nil {
		s.setDataLocation(native, *t.Location)
	}
	return native, nil
}

// resolveClass checks a configured class against the session scope, falling
// back to the builtin default when the table names none.
func resolveClass(reg *FormatRegistry, configured *string, def string) (string, error) {
	if configured == nil {
		return def, nil
	}
	return reg.ResolveClass(*configured)
}

func checkDisjointColumns(t *Table) error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		seen[strings.ToLower(c.Name)] = struct{}{}
	}
	for _, c := range t.PartitionColumns {
		if _, dup := seen[strings.ToLower(c.Name)]; dup {
			return errors.Newf(ErrPartitionColumnOverlap, "column %q is both a data and a partition column", c.Name).
				AddContext("table", t.Qualified())
		}
	}
	return nil
}

func toPartition(native *hms.Partition) *Partition {
	return &Partition{
		Values:  append([]string(nil), native.Values...),
		Storage: toStorage(native.Sd),
	}
}

func toStorage(sd *hms.StorageDescriptor) Storage {
	if sd == nil {
		return Storage{}
	}
	st := Storage{
		Location:     sd.Location,
		InputFormat:  sd.InputFormat,
		OutputFormat: sd.OutputFormat,
	}
	if sd.SerdeInfo != nil {
		st.Serde = sd.SerdeInfo.SerializationLib
		st.SerdeProperties = copyMap(sd.SerdeInfo.Parameters)
	}
	return st
}

// orderedValues lines a spec's values up with the table's partition-column
// order. The spec must bind every partition column exactly once.
func orderedValues(tbl *Table, spec PartitionSpec) ([]string, error) {
	if len(spec) != len(tbl.PartitionColumns) {
		return nil, errors.Newf(ErrPartitionArity, "spec binds %d of %d partition columns", len(spec), len(tbl.PartitionColumns)).
			AddContext("table", tbl.Qualified())
	}
	byCol := make(map[string]string, len(spec))
	for _, b := range spec {
		byCol[strings.ToLower(b.Column)] = b.Value
	}
	if len(byCol) != len(spec) {
		return nil, errors.New(ErrPartitionArity, "spec binds a column more than once", nil).
			AddContext("table", tbl.Qualified())
	}
	values := make([]string, len(tbl.PartitionColumns))
	for i, col := range tbl.PartitionColumns {
		v, ok := byCol[strings.ToLower(col.Name)]
		if !ok {
			return nil, errors.Newf(ErrPartitionArity, "spec does not bind partition column %q", col.Name).
				AddContext("table", tbl.Qualified())
		}
		values[i] = v
	}
	return values, nil
}

// specToWire keeps the caller's binding order, which load calls depend on.
func specToWire(spec PartitionSpec) []*hms.KeyValue {
	kvs := make([]*hms.KeyValue, len(spec))
	for i, b := range spec {
		kvs[i] = &hms.KeyValue{Key: b.Column, Value: b.Value}
	}
	return kvs
}

// renderFilter produces the catalog's partition filter grammar,
// `col op "value"` clauses joined with AND.
func renderFilter(preds []Predicate) (string, error) {
	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		op, err := normalizeOp(p.Op)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("%s %s %q", p.Column, op, p.Value))
	}
	return strings.Join(clauses, " AND "), nil
}

func normalizeOp(op string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(op)) {
	case "=":
		return "=", nil
	case "!=", "<>":
		return "!=", nil
	case "<":
		return "<", nil
	case "<=":
		return "<=", nil
	case ">":
		return ">", nil
	case ">=":
		return ">=", nil
	case "LIKE":
		return "LIKE", nil
	}
	return "", errors.Newf(ErrPredicateOpUnsupported, "unsupported predicate operator %q", op)
}

// matchPartition evaluates predicates against one partition's values, using
// the table's partition-column order to locate each column. Comparisons are
// lexicographic, which is sound for the zero-padded date-style values
// partition columns conventionally hold.
func matchPartition(tbl *Table, values []string, preds []Predicate) (bool, error) {
	for _, p := range preds {
		idx := -1
		for i, col := range tbl.PartitionColumns {
			if strings.EqualFold(col.Name, p.Column) {
				idx = i
				break
			}
		}
		if idx < 0 || idx >= len(values) {
			return false, nil
		}
		ok, err := evalPredicate(values[idx], p)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func evalPredicate(value string, p Predicate) (bool, error) {
	op, err := normalizeOp(p.Op)
	if err != nil {
		return false, err
	}
	switch op {
	case "=":
		return value == p.Value, nil
	case "!=":
		return value != p.Value, nil
	case "<":
		return value < p.Value, nil
	case "<=":
		return value <= p.Value, nil
	case ">":
		return value > p.Value, nil
	case ">=":
		return value >= p.Value, nil
	case "LIKE":
		return likeMatch(p.Value, value), nil
	}
	return false, errors.Newf(ErrPredicateOpUnsupported, "unsupported predicate operator %q", p.Op)
}

// likeMatch evaluates a SQL LIKE pattern: % matches any run of characters,
// _ matches exactly one.
func likeMatch(pattern, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '%':
			star, mark = pi, si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
