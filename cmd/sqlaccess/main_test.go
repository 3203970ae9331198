package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlaccess "github.com/tsfans/sql-access"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAccessInline(t *testing.T) {
	out, err := run(t, "", "access", "-e", "INSERT INTO A SELECT * FROM B")
	require.NoError(t, err)
	assert.Equal(t, `{"tables":[{"name":"A","access":"Write"},{"name":"B","access":"Read"}]}`+"\n", out)
}

func TestAccessStdinYAML(t *testing.T) {
	out, err := run(t, "DELETE FROM a WHERE id IN (SELECT id FROM b)", "access", "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "statements: 1")
	assert.Contains(t, out, "name: a")
	assert.Contains(t, out, "access: Write")
	assert.Contains(t, out, "access: Read")
}

func TestAccessFilesTable(t *testing.T) {
	first := writeFile(t, "first.sql", "UPDATE a SET x = 1")
	second := writeFile(t, "second.sql", "SELECT * FROM")

	out, err := run(t, "", "access", "-o", "table", "-w", "2", first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "-- UPDATE a SET x = 1")
	assert.Contains(t, out, "TABLE")
	assert.Contains(t, out, "Write")
	assert.Contains(t, out, "error: ")
}

func TestAccessBatchJSON(t *testing.T) {
	first := writeFile(t, "first.sql", "SELECT * FROM a")
	second := writeFile(t, "second.sql", "SELECT * FROM b")

	out, err := run(t, "", "access", first, second)
	require.NoError(t, err)

	var reports []sqlaccess.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].Tables[0].Name)
	assert.Equal(t, "b", reports[1].Tables[0].Name)
}

func TestAccessMissingFile(t *testing.T) {
	_, err := run(t, "", "access", filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}

func TestAccessConfigFile(t *testing.T) {
	cfg := writeFile(t, "sqlaccess.yaml", "output: yaml\n")
	out, err := run(t, "", "access", "--config", cfg, "-e", "SELECT * FROM a")
	require.NoError(t, err)
	assert.Contains(t, out, "access: Read")
}

func TestInvalidOutput(t *testing.T) {
	_, err := run(t, "", "access", "-o", "xml", "-e", "SELECT 1")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestParseAndFormat(t *testing.T) {
	out, err := run(t, "", "parse", "-e", "SELECT * FROM a")
	require.NoError(t, err)

	var result sqlaccess.ParseResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Count)

	out, err = run(t, result.JSON, "format")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM a\n", out)

	_, err = run(t, "not json", "format")
	assert.ErrorContains(t, err, "Error parsing AST JSON")

	_, err = run(t, "", "parse", "-e", "SELECT * FROM")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "SELECT 1", "validate")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	out, err = run(t, "", "validate", "-e", "SELECT * FROM")
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "invalid: "))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "sqlaccess version "+sqlaccess.Version()+"\n", out)
}

func TestBindSkipsInlineSQL(t *testing.T) {
	flags := pflag.NewFlagSet("access", pflag.ContinueOnError)
	flags.StringP(inlineSQLFlag, "e", "", "")
	flags.String("output", "json", "")
	require.NoError(t, flags.Parse([]string{"-e", "SELECT 1", "--output", "yaml"}))

	v := viper.New()
	mustBind(v, flags)
	assert.False(t, v.IsSet(inlineSQLFlag))
	assert.Equal(t, "yaml", v.GetString("output"))
}
