package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/gear6io/hivewriter/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeesJSONL = `{"name": "tom", "title": "mr", "salary": 4.0, "employed": true}
{"name": "lucy", "title": "ms", "salary": 5.0, "employed": false}
{"name": "mike", "title": "mr", "salary": 2.0, "employed": true}
{"name": "laura", "title": "ms", "salary": 1.0, "employed": true}
{"name": "kelly", "title": "ms", "salary": 3.0, "employed": false}
`

const employeesSchema = "name:string,title:string,salary:double,employed:boolean"

type cliHarness struct {
	dir        string
	configPath string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.LoadDefaultConfig()
	cfg.Log.Console = false
	cfg.Warehouse.Root = filepath.Join(dir, "warehouse")
	configPath := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, config.SaveConfig(cfg, configPath))

	return &cliHarness{dir: dir, configPath: configPath}
}

func (h *cliHarness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", h.configPath))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_WriteAndRead(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run(t, employeesJSONL, "write", "hr.employees",
		"--schema", employeesSchema, "--partition-by", "title", "--batch-size", "2", "--await")
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(h.dir, "warehouse", "hr", "employees", "title=mr"))
	assert.DirExists(t, filepath.Join(h.dir, "warehouse", "hr", "employees", "title=ms"))

	out, err := h.run(t, "", "read", "hr.employees", "--format", "json", "--limit", "0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines, `{"name":"tom","salary":4,"employed":true,"title":"mr"}`)

	var mr, ms int
	for _, l := range lines {
		switch {
		case strings.HasSuffix(l, `"title":"mr"}`):
			mr++
		case strings.HasSuffix(l, `"title":"ms"}`):
			ms++
		}
	}
	assert.Equal(t, 2, mr)
	assert.Equal(t, 3, ms)

	out, err = h.run(t, "", "read", "hr.employees", "--format", "json", "--limit", "1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestCLI_OverwriteFromFile(t *testing.T) {
	h := newCLIHarness(t)
	input := filepath.Join(h.dir, "employees.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(employeesJSONL), 0o644))

	for i := 0; i < 2; i++ {
		_, err := h.run(t, "", "write", "hr.employees", "--schema", employeesSchema,
			"--partition-by", "title", "--input", input, "--mode", "overwrite")
		require.NoError(t, err)
	}

	out, err := h.run(t, "", "read", "hr.employees", "--format", "json", "--limit", "0")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
}

func TestCLI_WriteRejectsBadInput(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run(t, `{"name": 1}`, "write", "hr.employees", "--schema", employeesSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, InvalidRecord))

	_, err = h.run(t, "", "write", "employees", "--schema", employeesSchema)
	assert.True(t, errors.Is(err, InvalidIdentifier))

	_, err = h.run(t, "", "write", "hr.employees", "--schema", employeesSchema, "--partition-by", "department")
	assert.Error(t, err)

	_, err = h.run(t, "", "write", "hr.employees", "--schema", employeesSchema, "--mode", "upsert")
	assert.Error(t, err)
}

func TestCLI_PartitionsDescribeDrop(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, employeesJSONL, "write", "hr.employees", "--schema", employeesSchema, "--partition-by", "title")
	require.NoError(t, err)

	out, err := h.run(t, "", "partitions", "hr.employees")
	require.NoError(t, err)
	assert.Contains(t, out, "title=mr")
	assert.Contains(t, out, "title=ms")

	out, err = h.run(t, "", "describe", "hr.employees", "--show-properties")
	require.NoError(t, err)
	assert.Contains(t, out, "salary")
	assert.Contains(t, out, "partition key")
	assert.Contains(t, out, catalog.PropIcebergSchema)

	_, err = h.run(t, "", "drop", "hr.employees", "--purge")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(h.dir, "warehouse", "hr", "employees"))

	_, err = h.run(t, "", "describe", "hr.employees")
	assert.True(t, errors.Is(err, catalog.TableNotFound))
}

func TestCLI_Query(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, employeesJSONL, "write", "hr.employees", "--schema", employeesSchema, "--partition-by", "title")
	require.NoError(t, err)

	out, err := h.run(t, "", "query", "--table", "hr.employees", "--format", "json",
		"SELECT title, count(*) AS n FROM {table} GROUP BY title ORDER BY title")
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":2,\"title\":\"mr\"}\n{\"n\":3,\"title\":\"ms\"}\n", out)

	_, err = h.run(t, "", "query", "DROP TABLE hr_employees")
	assert.Error(t, err)
}

func TestCLI_Init(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lake")
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", dir})
	require.NoError(t, cmd.Execute())

	cfg, err := config.LoadConfig(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, config.StorageFilesystem, cfg.Warehouse.Storage.Type)
	assert.DirExists(t, filepath.Join(dir, "warehouse", ".hivewriter"))

	cmd = NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", dir})
	err = cmd.Execute()
	assert.True(t, errors.Is(err, errors.CommonAlreadyExists))
}
