package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSource(t *testing.T) string {
	t.Helper()
	schema := testutil.Schema(
		"id", arrow.PrimitiveTypes.Int64,
		"name", arrow.BinaryTypes.String,
		"born", arrow.FixedWidthTypes.Date32,
	)
	path := filepath.Join(t.TempDir(), "people.parquet")
	testutil.WriteParquet(t, path, schema, testutil.Record(t, schema,
		`[{"id": 1, "name": "A", "born": "2001-02-03"}, {"id": 2, "name": "O'Brien", "born": null}]`))
	return path
}

func TestLoadCommand(t *testing.T) {
	src := writeSource(t)
	db := filepath.Join(t.TempDir(), "out.db")

	out, err := run(t, "load", src, "people", db, "--drop", "--type-mapping", "extended", "--chunk-size", "1")
	require.NoError(t, err)

	var summary struct {
		Table      string `json:"table"`
		Rows       int64  `json:"rows"`
		Statements int    `json:"statements"`
		Strategy   string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "people", summary.Table)
	assert.Equal(t, int64(2), summary.Rows)
	assert.Equal(t, 2, summary.Statements)
	assert.Equal(t, "insert", summary.Strategy)
}

func TestLoadCommandStrictRejectsDate(t *testing.T) {
	src := writeSource(t)
	db := filepath.Join(t.TempDir(), "out.db")

	_, err := run(t, "load", src, "people", db)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeSchemaMapping, errors.TypeOf(err))
}

func TestLoadCommandEnvOverride(t *testing.T) {
	t.Setenv("ARROWLOAD_LOADER_STRATEGY", "bulk")
	_, err := run(t, "load", writeSource(t), "people", filepath.Join(t.TempDir(), "out.db"))
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", writeSource(t), "--json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "parquet", report.Format)
	assert.Equal(t, int64(2), report.Rows)
	require.Len(t, report.Columns, 3)
	assert.Equal(t, columnReport{Name: "born", Type: "date32", Extended: "DATE"}, report.Columns[2])
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	for _, name := range []string{"sqlite", "duckdb", "postgresql", "mysql", "snowflake", "bigquery"} {
		assert.Contains(t, out, name)
	}
}

func TestHealthCommand(t *testing.T) {
	out, err := run(t, "health", filepath.Join(t.TempDir(), "probe.db"))
	require.NoError(t, err)

	var status struct {
		Status  string                 `json:"status"`
		Details map[string]interface{} `json:"details"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "sqlite", status.Details["destination"])
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("ARROWLOAD_PERFORMANCE_CHUNK_SIZE", "500")
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "chunk_size: 500")

	path := filepath.Join(t.TempDir(), "arrowload.yaml")
	_, err = run(t, "config", "--output", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Performance.ChunkSize)
	assert.Equal(t, config.StrategyAuto, cfg.Loader.Strategy)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "arrowload v"+version)
}
