package client

import (
	"sort"
	"strings"
	"sync"

	"github.com/gear6io/metabridge/pkg/errors"
)

// FormatSpec names the classes a storage format resolves to.
type FormatSpec struct {
	InputFormat  string
	OutputFormat string
	Serde        string
}

// builtinFormats are the storage formats every session understands out of
// the box. Class names follow the hadoop conventions the catalog expects.
var builtinFormats = map[string]FormatSpec{
	"textfile": {
		InputFormat:  "org.apache.hadoop.mapred.TextInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat",
		Serde:        "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe",
	},
	"sequencefile": {
		InputFormat:  "org.apache.hadoop.mapred.SequenceFileInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.HiveSequenceFileOutputFormat",
		Serde:        "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe",
	},
	"rcfile": {
		InputFormat:  "org.apache.hadoop.hive.ql.io.RCFileInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.RCFileOutputFormat",
		Serde:        "org.apache.hadoop.hive.serde2.columnar.LazyBinaryColumnarSerDe",
	},
	"orc": {
		InputFormat:  "org.apache.hadoop.hive.ql.io.orc.OrcInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.orc.OrcOutputFormat",
		Serde:        "org.apache.hadoop.hive.ql.io.orc.OrcSerde",
	},
	"parquet": {
		InputFormat:  "org.apache.hadoop.hive.ql.io.parquet.MapredParquetInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat",
		Serde:        "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe",
	},
	"avro": {
		InputFormat:  "org.apache.hadoop.hive.ql.io.avro.AvroContainerInputFormat",
		OutputFormat: "org.apache.hadoop.hive.ql.io.avro.AvroContainerOutputFormat",
		Serde:        "org.apache.hadoop.hive.serde2.avro.AvroSerDe",
	},
}

// defaultFormat is what tables fall back to when they name no format at all.
func defaultFormat() FormatSpec {
	return builtinFormats["textfile"]
}

// FormatRegistry is a session's format resolution scope. It resolves short
// format names to class specs and knows which class names are available at
// all. Each session owns one, so formats registered there never leak into
// other sessions.
type FormatRegistry struct {
	mu      sync.RWMutex
	formats map[string]FormatSpec
	classes map[string]struct{}
}

// NewFormatRegistry builds a registry seeded with the builtin formats.
func NewFormatRegistry() *FormatRegistry {
	r := &FormatRegistry{
		formats: make(map[string]FormatSpec, len(builtinFormats)),
		classes: make(map[string]struct{}, 3*len(builtinFormats)),
	}
	for name, spec := range builtinFormats {
		r.formats[name] = spec
		r.admit(spec)
	}
	return r
}

func (r *FormatRegistry) admit(spec FormatSpec) {
	r.classes[spec.InputFormat] = struct{}{}
	r.classes[spec.OutputFormat] = struct{}{}
	r.classes[spec.Serde] = struct{}{}
}

// Register adds or replaces a format and admits its classes into the
// resolution scope. Names are case-insensitive.
func (r *FormatRegistry) Register(name string, spec FormatSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[strings.ToLower(name)] = spec
	r.admit(spec)
}

// Resolve looks a format name up.
func (r *FormatRegistry) Resolve(name string) (FormatSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.formats[strings.ToLower(name)]
	if !ok {
		return FormatSpec{}, errors.Newf(ErrFormatUnresolved, "unknown storage format %q", name)
	}
	return spec, nil
}

// ResolveClass checks that a class name is available in this registry's
// scope, returning it unchanged. Tables naming classes outside the scope
// cannot be materialized.
func (r *FormatRegistry) ResolveClass(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.classes[name]; !ok {
		return "", errors.Newf(ErrFormatUnresolved, "class %q is not available in this session", name)
	}
	return name, nil
}

// Names lists the registered format names, sorted.
func (r *FormatRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
