package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/metabridge/pkg/errors"
)

func TestFormatRegistryBuiltins(t *testing.T) {
	r := NewFormatRegistry()

	assert.Equal(t, []string{"avro", "orc", "parquet", "rcfile", "sequencefile", "textfile"}, r.Names())

	spec, err := r.Resolve("orc")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.hadoop.hive.ql.io.orc.OrcInputFormat", spec.InputFormat)
	assert.Equal(t, "org.apache.hadoop.hive.ql.io.orc.OrcSerde", spec.Serde)

	// Lookups are case-insensitive.
	upper, err := r.Resolve("PARQUET")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe", upper.Serde)

	_, err = r.Resolve("ion")
	require.Error(t, err)
	assert.Equal(t, ErrFormatUnresolved, errors.AsError(err).Code)
}

func TestFormatRegistryRegisterAdmitsClasses(t *testing.T) {
	r := NewFormatRegistry()

	_, err := r.ResolveClass("com.example.CsvInputFormat")
	require.Error(t, err)

	r.Register("CSV", FormatSpec{
		InputFormat:  "com.example.CsvInputFormat",
		OutputFormat: "com.example.CsvOutputFormat",
		Serde:        "com.example.CsvSerDe",
	})

	spec, err := r.Resolve("csv")
	require.NoError(t, err)
	assert.Equal(t, "com.example.CsvSerDe", spec.Serde)

	name, err := r.ResolveClass("com.example.CsvInputFormat")
	require.NoError(t, err)
	assert.Equal(t, "com.example.CsvInputFormat", name)
}

func TestFormatRegistryResolveClassScope(t *testing.T) {
	r := NewFormatRegistry()

	name, err := r.ResolveClass(defaultFormat().Serde)
	require.NoError(t, err)
	assert.Equal(t, defaultFormat().Serde, name)

	_, err = r.ResolveClass("com.example.NotLoaded")
	require.Error(t, err)
	assert.Equal(t, ErrFormatUnresolved, errors.AsError(err).Code)
}

func TestFormatRegistriesAreIndependent(t *testing.T) {
	a := NewFormatRegistry()
	b := NewFormatRegistry()

	a.Register("custom", FormatSpec{
		InputFormat:  "com.example.In",
		OutputFormat: "com.example.Out",
		Serde:        "com.example.SerDe",
	})

	_, err := a.Resolve("custom")
	require.NoError(t, err)
	_, err = b.Resolve("custom")
	require.Error(t, err)
}

func TestDefaultFormatIsTextfile(t *testing.T) {
	def := defaultFormat()
	assert.Equal(t, "org.apache.hadoop.mapred.TextInputFormat", def.InputFormat)
	assert.Equal(t, "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat", def.OutputFormat)
	assert.Equal(t, "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe", def.Serde)
}
